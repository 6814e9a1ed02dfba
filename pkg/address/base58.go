package address

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/castellan/castellan/pkg/crypto"
)

// base58Alphabet is the Bitcoin base58 alphabet (no 0, O, I, l).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// base58AlphabetRev maps base58 characters to their values. -1 = invalid.
var base58AlphabetRev [128]int8

func init() {
	for i := range base58AlphabetRev {
		base58AlphabetRev[i] = -1
	}
	for i, c := range base58Alphabet {
		base58AlphabetRev[c] = int8(i)
	}
}

// checksumLen is the number of double-SHA256 bytes appended by
// base58check.
const checksumLen = 4

var bigRadix = big.NewInt(58)

// base58Encode encodes raw bytes as a base58 big-endian integer,
// preserving leading zero bytes as leading '1' characters.
func base58Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)
	mod := new(big.Int)

	// Worst case growth is log(256)/log(58) ≈ 1.37 characters per byte.
	out := make([]byte, 0, len(b)*137/100+1)
	for x.Sign() > 0 {
		x.DivMod(x, bigRadix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}

	for _, v := range b {
		if v != 0 {
			break
		}
		out = append(out, base58Alphabet[0])
	}

	// Reverse.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// base58Decode decodes a base58 string back into raw bytes.
func base58Decode(s string) ([]byte, error) {
	x := big.NewInt(0)
	for _, c := range s {
		if c > 127 || base58AlphabetRev[c] < 0 {
			return nil, fmt.Errorf("base58: invalid character %q", c)
		}
		x.Mul(x, bigRadix)
		x.Add(x, big.NewInt(int64(base58AlphabetRev[c])))
	}

	decoded := x.Bytes()

	// Restore leading zero bytes from leading '1' characters.
	zeros := 0
	for _, c := range s {
		if c != rune(base58Alphabet[0]) {
			break
		}
		zeros++
	}
	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}

// CheckEncode encodes version‖payload with a 4-byte double-SHA256
// checksum suffix in base58. version may be one or two bytes depending
// on the chain.
func CheckEncode(version, payload []byte) string {
	buf := make([]byte, 0, len(version)+len(payload)+checksumLen)
	buf = append(buf, version...)
	buf = append(buf, payload...)
	sum := crypto.SHA256d(buf)
	buf = append(buf, sum[:checksumLen]...)
	return base58Encode(buf)
}

// CheckDecode decodes a base58check string and verifies its checksum,
// returning version‖payload (the caller splits the version by the
// chain's prefix width).
func CheckDecode(s string) ([]byte, error) {
	raw, err := base58Decode(s)
	if err != nil {
		return nil, err
	}
	if len(raw) < checksumLen+1 {
		return nil, fmt.Errorf("base58check: too short")
	}
	body := raw[:len(raw)-checksumLen]
	sum := crypto.SHA256d(body)
	if !bytes.Equal(sum[:checksumLen], raw[len(raw)-checksumLen:]) {
		return nil, fmt.Errorf("base58check: invalid checksum")
	}
	return body, nil
}
