package address

import (
	"fmt"

	"github.com/castellan/castellan/pkg/crypto"
)

// compressedWIFSuffix marks a WIF key whose public key is compressed.
const compressedWIFSuffix = 0x01

// EncodeWIF encodes a 32-byte private key in wallet import format using
// the chain's WIF version byte. The compressed-pubkey marker is always
// appended; this wallet only derives compressed keys.
func EncodeWIF(version byte, privKey []byte) (string, error) {
	if len(privKey) != 32 {
		return "", fmt.Errorf("wif: private key must be 32 bytes, got %d", len(privKey))
	}
	payload := make([]byte, 0, 33)
	payload = append(payload, privKey...)
	payload = append(payload, compressedWIFSuffix)
	s := CheckEncode([]byte{version}, payload)
	crypto.Zero(payload)
	return s, nil
}

// DecodeWIF decodes a wallet import format string, returning the version
// byte and the 32-byte private key. The caller must zero the key after
// use. Uncompressed WIF keys are rejected.
func DecodeWIF(s string) (version byte, privKey []byte, err error) {
	body, err := CheckDecode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("wif: %w", err)
	}
	defer crypto.Zero(body)
	if len(body) != 34 {
		return 0, nil, fmt.Errorf("wif: unexpected payload length %d", len(body))
	}
	if body[33] != compressedWIFSuffix {
		return 0, nil, fmt.Errorf("wif: uncompressed keys are not supported")
	}
	privKey = make([]byte, 32)
	copy(privKey, body[1:33])
	return body[0], privKey, nil
}
