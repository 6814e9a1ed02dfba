package hdkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a sequence of BIP32 child indices. Hardened steps carry the
// HardenedOffset bit.
type Path []uint32

// ParsePath parses a derivation path string of the form
// "m/44'/0'/0'/0/0". Each index must be in [0, 2^31); a trailing
// apostrophe marks a hardened step. Depth is limited to MaxDepth.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	parts := strings.Split(s, "/")
	if parts[0] != "m" {
		return nil, fmt.Errorf("%w: must start with \"m\"", ErrInvalidPath)
	}
	if len(parts)-1 > MaxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrInvalidPath, len(parts)-1, MaxDepth)
	}

	path := make(Path, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'")
		if hardened {
			part = part[:len(part)-1]
		}
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment", ErrInvalidPath)
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q", ErrInvalidPath, part)
		}
		if n >= uint64(HardenedOffset) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidPath, n)
		}
		index := uint32(n)
		if hardened {
			index += HardenedOffset
		}
		path = append(path, index)
	}
	return path, nil
}

// BIP44Path builds m/purpose'/coinType'/account'/change/index.
func BIP44Path(purpose, coinType, account, change, index uint32) Path {
	return Path{
		purpose + HardenedOffset,
		coinType + HardenedOffset,
		account + HardenedOffset,
		change,
		index,
	}
}

// String renders the path in "m/i'/i/..." form.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, index := range p {
		sb.WriteByte('/')
		if index >= HardenedOffset {
			sb.WriteString(strconv.FormatUint(uint64(index-HardenedOffset), 10))
			sb.WriteByte('\'')
		} else {
			sb.WriteString(strconv.FormatUint(uint64(index), 10))
		}
	}
	return sb.String()
}
