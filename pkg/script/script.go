// Package script builds locking scripts (scriptPubKeys) for the output
// types this wallet can pay to, and resolves address strings into them.
package script

import (
	"errors"
	"fmt"

	"github.com/castellan/castellan/pkg/address"
)

// Script opcodes used by the supported output templates.
const (
	opZero        = 0x00 // OP_0
	opData20      = 0x14 // push 20 bytes
	opData32      = 0x20 // push 32 bytes
	opDup         = 0x76 // OP_DUP
	opEqual       = 0x87 // OP_EQUAL
	opEqualVerify = 0x88 // OP_EQUALVERIFY
	opHash160     = 0xa9 // OP_HASH160
	opCheckSig    = 0xac // OP_CHECKSIG
)

// ErrInvalidAddress marks an address that does not decode under any
// encoding the chain supports. At output-encoding time this is a fatal
// caller error; validation call-sites use Validate instead.
var ErrInvalidAddress = errors.New("invalid address")

// Class identifies the output script type. The set is closed; switches
// over Class cover every member.
type Class uint8

const (
	ClassP2PKH Class = iota
	ClassP2SH
	ClassP2WPKH
	ClassP2WSH
)

// String returns a human-readable name for the script class.
func (c Class) String() string {
	switch c {
	case ClassP2PKH:
		return "p2pkh"
	case ClassP2SH:
		return "p2sh"
	case ClassP2WPKH:
		return "p2wpkh"
	case ClassP2WSH:
		return "p2wsh"
	default:
		return "unknown"
	}
}

// SegWit reports whether the class spends through the witness.
func (c Class) SegWit() bool {
	return c == ClassP2WPKH || c == ClassP2WSH
}

// AddressParams carries the address-encoding parameters of one chain.
// Version prefixes are byte slices (one or two bytes) and are compared
// element-wise; Bech32HRP is empty on chains without native segwit.
type AddressParams struct {
	Bech32HRP         string
	PubKeyHashVersion []byte
	ScriptHashVersion []byte
}

// PayToPubKeyHash returns OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func PayToPubKeyHash(hash [20]byte) []byte {
	s := make([]byte, 0, 25)
	s = append(s, opDup, opHash160, opData20)
	s = append(s, hash[:]...)
	s = append(s, opEqualVerify, opCheckSig)
	return s
}

// PayToScriptHash returns OP_HASH160 <hash> OP_EQUAL.
func PayToScriptHash(hash [20]byte) []byte {
	s := make([]byte, 0, 23)
	s = append(s, opHash160, opData20)
	s = append(s, hash[:]...)
	s = append(s, opEqual)
	return s
}

// PayToWitnessPubKeyHash returns OP_0 <20-byte hash>.
func PayToWitnessPubKeyHash(hash [20]byte) []byte {
	s := make([]byte, 0, 22)
	s = append(s, opZero, opData20)
	s = append(s, hash[:]...)
	return s
}

// PayToWitnessScriptHash returns OP_0 <32-byte hash>.
func PayToWitnessScriptHash(hash [32]byte) []byte {
	s := make([]byte, 0, 34)
	s = append(s, opZero, opData32)
	s = append(s, hash[:]...)
	return s
}

// PayToAddress resolves an address string into its scriptPubKey under
// the given chain parameters. Resolution order: bech32 witness v0
// (program length 20 → P2WPKH, 32 → P2WSH), then base58check matched
// against the chain's pubkey-hash and script-hash versions. Anything
// else fails with ErrInvalidAddress.
func PayToAddress(addr string, params AddressParams) ([]byte, Class, error) {
	if params.Bech32HRP != "" {
		hrp, _, program, err := address.DecodeSegWit(addr)
		if err == nil {
			if hrp != params.Bech32HRP {
				return nil, 0, fmt.Errorf("%w: HRP %q does not match chain %q", ErrInvalidAddress, hrp, params.Bech32HRP)
			}
			switch len(program) {
			case address.WitnessV0KeyHashLen:
				var h [20]byte
				copy(h[:], program)
				return PayToWitnessPubKeyHash(h), ClassP2WPKH, nil
			default:
				var h [32]byte
				copy(h[:], program)
				return PayToWitnessScriptHash(h), ClassP2WSH, nil
			}
		}
	}

	body, err := address.CheckDecode(addr)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	if _, payload, ok := splitVersion(body, params.PubKeyHashVersion); ok {
		var h [20]byte
		copy(h[:], payload)
		return PayToPubKeyHash(h), ClassP2PKH, nil
	}
	if _, payload, ok := splitVersion(body, params.ScriptHashVersion); ok {
		var h [20]byte
		copy(h[:], payload)
		return PayToScriptHash(h), ClassP2SH, nil
	}
	return nil, 0, fmt.Errorf("%w: %q does not match chain versions", ErrInvalidAddress, addr)
}

// Validate reports whether addr resolves under the chain parameters.
// Malformed input never returns an error here; this is the non-fatal
// validation surface.
func Validate(addr string, params AddressParams) bool {
	_, _, err := PayToAddress(addr, params)
	return err == nil
}

// splitVersion matches body against a version prefix element-wise and
// returns the remaining 20-byte hash payload. Two-byte prefixes
// (Zcash-style) must match as a pair, never as a truncated scalar.
func splitVersion(body, version []byte) (ver, payload []byte, ok bool) {
	if len(version) == 0 || len(body) != len(version)+20 {
		return nil, nil, false
	}
	for i := range version {
		if body[i] != version[i] {
			return nil, nil, false
		}
	}
	return body[:len(version)], body[len(version):], true
}
