// Package types defines core primitive types shared by the castellan
// signing core.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value in internal byte order, i.e. the
// raw output of the hash function. Chain explorers and node RPCs show
// transaction hashes byte-reversed; use Display/ParseDisplay to convert.
type Hash [HashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash in internal byte order.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Display returns the hex-encoded hash in display (reversed) byte order,
// matching txids as shown by explorers and chain-data providers.
func (h Hash) Display() string {
	var rev [HashSize]byte
	for i := 0; i < HashSize; i++ {
		rev[i] = h[HashSize-1-i]
	}
	return hex.EncodeToString(rev[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a display-order hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Display())
}

// UnmarshalJSON decodes a display-order hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := ParseDisplay(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash converts an internal-order hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// ParseDisplay converts a display-order (reversed) hex string, such as a
// txid from a chain-data provider, into a Hash in internal byte order.
func ParseDisplay(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid txid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("txid must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	for i := 0; i < HashSize; i++ {
		h[i] = b[HashSize-1-i]
	}
	return h, nil
}
