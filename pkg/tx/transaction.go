// Package tx constructs, signs, and serializes UTXO transactions in the
// Bitcoin wire format, covering legacy P2PKH and native segwit P2WPKH
// spends.
package tx

import (
	"encoding/binary"

	"github.com/castellan/castellan/pkg/crypto"
	"github.com/castellan/castellan/pkg/types"
)

// Wire defaults for every transaction this wallet builds.
const (
	// TxVersion is the transaction version. Version 2 enables BIP68
	// relative-locktime semantics, which final sequences opt out of.
	TxVersion = 2

	// SequenceFinal disables locktime and BIP125 replacement signaling.
	SequenceFinal = 0xffffffff
)

// Segwit serialization marker and flag bytes (BIP144).
const (
	witnessMarker = 0x00
	witnessFlag   = 0x01
)

// TxIn is one transaction input.
type TxIn struct {
	PrevOut   types.Outpoint
	ScriptSig []byte
	Sequence  uint32
	Witness   [][]byte
}

// TxOut is one transaction output.
type TxOut struct {
	Value    uint64
	PkScript []byte
}

// Tx is a transaction in wire form. Fields are exported so tests and
// the builder can assemble them directly; use the serialization methods
// for any byte-level representation.
type Tx struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// HasWitness reports whether any input carries witness data.
func (t *Tx) HasWitness() bool {
	for i := range t.Inputs {
		if len(t.Inputs[i].Witness) > 0 {
			return true
		}
	}
	return false
}

// SerializeBase returns the non-witness serialization:
// version | varint(nIn) | inputs | varint(nOut) | outputs | locktime.
// The txid is always computed over this form.
func (t *Tx) SerializeBase() []byte {
	buf := make([]byte, 0, t.BaseSize())
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Version))
	buf = appendCompactSize(buf, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		buf = t.Inputs[i].appendTo(buf)
	}
	buf = appendCompactSize(buf, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		buf = t.Outputs[i].appendTo(buf)
	}
	return binary.LittleEndian.AppendUint32(buf, t.LockTime)
}

// Serialize returns the full wire serialization. When any input has
// witness data the BIP144 form is produced: marker and flag bytes after
// the version, and one witness stack per input between the outputs and
// the locktime.
func (t *Tx) Serialize() []byte {
	if !t.HasWitness() {
		return t.SerializeBase()
	}
	buf := make([]byte, 0, t.TotalSize())
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Version))
	buf = append(buf, witnessMarker, witnessFlag)
	buf = appendCompactSize(buf, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		buf = t.Inputs[i].appendTo(buf)
	}
	buf = appendCompactSize(buf, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		buf = t.Outputs[i].appendTo(buf)
	}
	for i := range t.Inputs {
		buf = appendCompactSize(buf, uint64(len(t.Inputs[i].Witness)))
		for _, item := range t.Inputs[i].Witness {
			buf = appendCompactSize(buf, uint64(len(item)))
			buf = append(buf, item...)
		}
	}
	return binary.LittleEndian.AppendUint32(buf, t.LockTime)
}

// TxID returns the transaction ID in internal byte order: the double
// SHA-256 of the non-witness serialization. Witness data never affects
// the txid. Display form is the byte-reversed hex (types.Hash.Display).
func (t *Tx) TxID() types.Hash {
	return types.Hash(crypto.SHA256d(t.SerializeBase()))
}

// BaseSize returns the size in bytes of the non-witness serialization.
func (t *Tx) BaseSize() int {
	n := 4 + 4 // version + locktime
	n += compactSizeLen(uint64(len(t.Inputs)))
	for i := range t.Inputs {
		n += t.Inputs[i].serializeSize()
	}
	n += compactSizeLen(uint64(len(t.Outputs)))
	for i := range t.Outputs {
		n += t.Outputs[i].serializeSize()
	}
	return n
}

// TotalSize returns the size in bytes of the full serialization,
// including marker, flag, and witness stacks when present.
func (t *Tx) TotalSize() int {
	n := t.BaseSize()
	if !t.HasWitness() {
		return n
	}
	n += 2 // marker + flag
	for i := range t.Inputs {
		n += compactSizeLen(uint64(len(t.Inputs[i].Witness)))
		for _, item := range t.Inputs[i].Witness {
			n += compactSizeLen(uint64(len(item))) + len(item)
		}
	}
	return n
}

// Weight returns the BIP141 transaction weight: 3·base + total.
func (t *Tx) Weight() int {
	return t.BaseSize()*3 + t.TotalSize()
}

// VSize returns the virtual size, ceil(weight/4). For a transaction
// without witness data this equals TotalSize.
func (t *Tx) VSize() int {
	return (t.Weight() + 3) / 4
}

func (in *TxIn) appendTo(buf []byte) []byte {
	buf = append(buf, in.PrevOut.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Vout)
	buf = appendCompactSize(buf, uint64(len(in.ScriptSig)))
	buf = append(buf, in.ScriptSig...)
	return binary.LittleEndian.AppendUint32(buf, in.Sequence)
}

func (in *TxIn) serializeSize() int {
	return 36 + compactSizeLen(uint64(len(in.ScriptSig))) + len(in.ScriptSig) + 4
}

func (out *TxOut) appendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, out.Value)
	buf = appendCompactSize(buf, uint64(len(out.PkScript)))
	return append(buf, out.PkScript...)
}

func (out *TxOut) serializeSize() int {
	return 8 + compactSizeLen(uint64(len(out.PkScript))) + len(out.PkScript)
}
