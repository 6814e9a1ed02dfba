// Package crypto provides the hashing and signing primitives used by the
// castellan signing core.
package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160"
)

// SHA256d computes SHA256(SHA256(data)), the double hash used for
// transaction ids, sighashes and base58check checksums.
func SHA256d(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Hash160 computes RIPEMD160(SHA256(data)), the 20-byte hash behind
// P2PKH, P2SH and P2WPKH outputs.
func Hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	rip := ripemd160.New()
	rip.Write(sha[:])
	var out [20]byte
	copy(out[:], rip.Sum(nil))
	return out
}
