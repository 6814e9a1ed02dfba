package hdkey

// PolicyMode selects how the invalid-child edge case (IL not below the
// curve order, or a zero child scalar) is handled during derivation.
type PolicyMode int

const (
	// PolicyStrict fails derivation with ErrInvalidChild. This is the
	// correct behavior for standards-mandated paths where the index is
	// part of the wallet's contract with the user.
	PolicyStrict PolicyMode = iota

	// PolicyNextIndex advances to the next index and retries, bounded
	// by MaxAttempts. Useful for address-rotation schemes where the
	// exact index is an implementation detail.
	PolicyNextIndex
)

// DefaultMaxAttempts bounds PolicyNextIndex retries.
const DefaultMaxAttempts = 8

// Policy is the caller-selected invalid-child handling for a derivation.
// The zero value is the strict policy.
type Policy struct {
	Mode        PolicyMode
	MaxAttempts int // PolicyNextIndex only; 0 means DefaultMaxAttempts
}

// Strict returns the fail-fast policy.
func Strict() Policy {
	return Policy{Mode: PolicyStrict}
}

// NextIndex returns the bounded retry-at-next-index policy.
func NextIndex(maxAttempts int) Policy {
	return Policy{Mode: PolicyNextIndex, MaxAttempts: maxAttempts}
}

func (p Policy) attempts() int {
	if p.Mode == PolicyStrict {
		return 1
	}
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}
