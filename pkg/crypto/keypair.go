package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// CompressedPubKeySize is the length of a compressed secp256k1 public key.
const CompressedPubKeySize = 33

// Signer signs 32-byte message hashes. Signature generation is the only
// suspension point during transaction building; implementations must not
// mutate shared state while signing.
type Signer interface {
	// Sign produces a DER-encoded, low-S ECDSA signature over a 32-byte hash.
	Sign(hash []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// KeyPair wraps a secp256k1 private key and its compressed public key.
type KeyPair struct {
	key    *secp256k1.PrivateKey
	pubKey []byte
}

// NewKeyPair creates a KeyPair from a 32-byte private key scalar.
// The caller retains ownership of b and should zero it after use.
func NewKeyPair(b []byte) (*KeyPair, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}
	return &KeyPair{
		key:    key,
		pubKey: key.PubKey().SerializeCompressed(),
	}, nil
}

// Sign produces a deterministic (RFC 6979) ECDSA signature over a
// 32-byte hash. The signature is DER-encoded with minimal integer
// encoding and a low S value, as required for standard relay.
func (kp *KeyPair) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig := ecdsa.Sign(kp.key, hash)
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (kp *KeyPair) PublicKey() []byte {
	return kp.pubKey
}

// Serialize returns a copy of the 32-byte private key scalar.
// The caller should zero the copy after use.
func (kp *KeyPair) Serialize() []byte {
	return kp.key.Serialize()
}

// Zero clears the private key material. The KeyPair must not be used
// for signing afterwards.
func (kp *KeyPair) Zero() {
	kp.key.Zero()
}

// VerifySignature checks a DER-encoded ECDSA signature against a
// 32-byte hash and a compressed public key. Returns false on any error.
func VerifySignature(hash, derSig, publicKey []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}
