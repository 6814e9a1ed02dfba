// Package hdkey implements BIP32 hierarchical deterministic key
// derivation over secp256k1.
//
// Only private (hardened-capable) derivation is implemented; the wallet
// never hands out extended public keys. Every intermediate buffer that
// holds key material (HMAC inputs and outputs, scratch public keys,
// replaced parent keys) is zero-filled on every exit path. See
// crypto.Zero for the limits of zeroization in a garbage-collected
// runtime.
package hdkey

import (
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/castellan/castellan/pkg/crypto"
)

const (
	// SeedSize is the length of a BIP39-derived seed in bytes.
	SeedSize = 64

	// MinSeedSize and MaxSeedSize bound the seed lengths BIP32 admits.
	// The wallet always feeds 64-byte BIP39 seeds; the wider range keeps
	// NewMaster usable with standard test vectors.
	MinSeedSize = 16
	MaxSeedSize = 64

	// HardenedOffset marks the first hardened child index (2^31).
	HardenedOffset uint32 = 0x80000000

	// MaxDepth is the maximum number of derivation steps in a path.
	MaxDepth = 10
)

// masterHMACKey is the fixed HMAC key for master key generation (BIP32).
var masterHMACKey = []byte("Bitcoin seed")

// Derivation errors.
var (
	ErrInvalidSeed      = errors.New("invalid seed length")
	ErrInvalidMasterKey = errors.New("invalid master key")
	ErrInvalidChild     = errors.New("invalid child key")
	ErrInvalidPath      = errors.New("invalid derivation path")
)

// ExtendedKey is a BIP32 extended private key: a 32-byte key scalar and
// a 32-byte chain code. Invariant: 0 < key < curve order n.
type ExtendedKey struct {
	key       [32]byte
	chainCode [32]byte
}

// NewMaster derives the master extended key from a 64-byte seed:
// HMAC-SHA512(key="Bitcoin seed", data=seed), IL=key, IR=chain code.
// Fails with ErrInvalidMasterKey if IL is zero or not below the curve
// order (astronomically rare for real seeds).
func NewMaster(seed []byte) (*ExtendedKey, error) {
	if len(seed) < MinSeedSize || len(seed) > MaxSeedSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSeed, len(seed))
	}

	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seed)
	sum := mac.Sum(nil)
	defer crypto.Zero(sum)

	var scalar secp256k1.ModNScalar
	overflow := scalar.SetByteSlice(sum[:32])
	zero := scalar.IsZero()
	scalar.Zero()
	if overflow || zero {
		return nil, ErrInvalidMasterKey
	}

	k := &ExtendedKey{}
	copy(k.key[:], sum[:32])
	copy(k.chainCode[:], sum[32:])
	return k, nil
}

// child performs one strict BIP32 derivation step. It returns
// ErrInvalidChild when IL is not below the curve order or the child
// scalar is zero; policy handling lives in Child/DerivePath.
func (k *ExtendedKey) child(index uint32) (*ExtendedKey, error) {
	// Hardened: 0x00 || key || ser32(index).
	// Normal:   compressed pubkey || ser32(index).
	data := make([]byte, 0, 37)
	if index >= HardenedOffset {
		data = append(data, 0x00)
		data = append(data, k.key[:]...)
	} else {
		priv := secp256k1.PrivKeyFromBytes(k.key[:])
		pub := priv.PubKey().SerializeCompressed()
		priv.Zero()
		data = append(data, pub...)
		crypto.Zero(pub)
	}
	data = append(data, byte(index>>24), byte(index>>16), byte(index>>8), byte(index))

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)
	crypto.Zero(data)
	defer crypto.Zero(sum)

	var il, parent secp256k1.ModNScalar
	defer il.Zero()
	defer parent.Zero()

	if overflow := il.SetByteSlice(sum[:32]); overflow {
		return nil, fmt.Errorf("%w: IL not below curve order at index %d", ErrInvalidChild, index)
	}
	parent.SetByteSlice(k.key[:]) // cannot overflow, invariant holds
	il.Add(&parent)
	if il.IsZero() {
		return nil, fmt.Errorf("%w: zero child scalar at index %d", ErrInvalidChild, index)
	}

	child := &ExtendedKey{}
	childKey := il.Bytes()
	child.key = childKey
	crypto.Zero32(&childKey)
	copy(child.chainCode[:], sum[32:])
	return child, nil
}

// Child derives the child key at index under the given policy. The
// returned index is the one actually used, which differs from the
// requested index only when a retry policy advanced past an invalid
// child (bounded by the policy's attempt budget).
func (k *ExtendedKey) Child(index uint32, policy Policy) (*ExtendedKey, uint32, error) {
	attempts := policy.attempts()
	for i := 0; i < attempts; i++ {
		child, err := k.child(index)
		if err == nil {
			return child, index, nil
		}
		if policy.Mode == PolicyStrict {
			return nil, 0, err
		}
		// Advancing must not cross the hardened boundary or wrap.
		next := index + 1
		if next == HardenedOffset || next == 0 {
			return nil, 0, err
		}
		index = next
	}
	return nil, 0, fmt.Errorf("%w: attempt budget exhausted near index %d", ErrInvalidChild, index)
}

// DerivePath walks the path from k and returns the final extended key.
// Intermediate extended keys are zeroized as the walk proceeds; k itself
// is left intact and remains owned by the caller.
func (k *ExtendedKey) DerivePath(path Path, policy Policy) (*ExtendedKey, error) {
	if len(path) > MaxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrInvalidPath, len(path), MaxDepth)
	}
	current := k
	for _, index := range path {
		child, _, err := current.Child(index, policy)
		if current != k {
			current.Zero()
		}
		if err != nil {
			return nil, err
		}
		current = child
	}
	if current == k {
		// Empty path: hand back a copy so the caller can zero it freely.
		cp := *k
		return &cp, nil
	}
	return current, nil
}

// KeyPair converts the extended key into a signing key pair. The
// extended key remains valid; call Zero when it is no longer needed.
func (k *ExtendedKey) KeyPair() (*crypto.KeyPair, error) {
	buf := k.key
	kp, err := crypto.NewKeyPair(buf[:])
	crypto.Zero32(&buf)
	if err != nil {
		return nil, err
	}
	return kp, nil
}

// ChainCode returns a copy of the 32-byte chain code.
func (k *ExtendedKey) ChainCode() [32]byte {
	return k.chainCode
}

// KeyBytes returns a copy of the 32-byte private key scalar. The caller
// must zero the copy after use.
func (k *ExtendedKey) KeyBytes() [32]byte {
	return k.key
}

// Zero clears the key material. The extended key must not be used for
// derivation afterwards.
func (k *ExtendedKey) Zero() {
	crypto.Zero32(&k.key)
	crypto.Zero32(&k.chainCode)
}
