package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/castellan/castellan/pkg/crypto"
)

// SigHashAll commits the signature to every input and output. It is the
// only sighash type this wallet produces.
const SigHashAll = 0x01

// LegacySighash computes the pre-segwit signature hash for input idx.
// The transaction is serialized with every scriptSig empty except input
// idx, whose slot holds scriptCode (the P2PKH script of the signing
// key), followed by the 4-byte little-endian sighash type, then double
// SHA-256. Each input hashes a full copy of the transaction, so signing
// n inputs is quadratic in n; BIP143 exists to fix exactly this.
func (t *Tx) LegacySighash(idx int, scriptCode []byte) ([32]byte, error) {
	if idx < 0 || idx >= len(t.Inputs) {
		return [32]byte{}, fmt.Errorf("sighash: input index %d out of range", idx)
	}

	buf := make([]byte, 0, t.BaseSize()+len(scriptCode)+4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Version))
	buf = appendCompactSize(buf, uint64(len(t.Inputs)))
	for i := range t.Inputs {
		in := &t.Inputs[i]
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Vout)
		if i == idx {
			buf = appendCompactSize(buf, uint64(len(scriptCode)))
			buf = append(buf, scriptCode...)
		} else {
			buf = appendCompactSize(buf, 0)
		}
		buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
	}
	buf = appendCompactSize(buf, uint64(len(t.Outputs)))
	for i := range t.Outputs {
		buf = t.Outputs[i].appendTo(buf)
	}
	buf = binary.LittleEndian.AppendUint32(buf, t.LockTime)
	buf = binary.LittleEndian.AppendUint32(buf, SigHashAll)

	return crypto.SHA256d(buf), nil
}

// SigHashes holds the three BIP143 midstate hashes shared by every
// input of one transaction. Computing them once turns segwit signing
// into linear work.
type SigHashes struct {
	HashPrevouts [32]byte
	HashSequence [32]byte
	HashOutputs  [32]byte
}

// NewSigHashes precomputes the BIP143 midstate hashes for t.
func NewSigHashes(t *Tx) *SigHashes {
	prevouts := make([]byte, 0, len(t.Inputs)*36)
	sequences := make([]byte, 0, len(t.Inputs)*4)
	for i := range t.Inputs {
		in := &t.Inputs[i]
		prevouts = append(prevouts, in.PrevOut.TxID[:]...)
		prevouts = binary.LittleEndian.AppendUint32(prevouts, in.PrevOut.Vout)
		sequences = binary.LittleEndian.AppendUint32(sequences, in.Sequence)
	}
	var outputs []byte
	for i := range t.Outputs {
		outputs = t.Outputs[i].appendTo(outputs)
	}
	return &SigHashes{
		HashPrevouts: crypto.SHA256d(prevouts),
		HashSequence: crypto.SHA256d(sequences),
		HashOutputs:  crypto.SHA256d(outputs),
	}
}

// WitnessV0Sighash computes the BIP143 signature hash for input idx
// spending value satoshis. scriptCode is the raw P2PKH script of the
// signing key; the varint length prefix required by the preimage is
// added here.
func (t *Tx) WitnessV0Sighash(hashes *SigHashes, idx int, scriptCode []byte, value uint64) ([32]byte, error) {
	if idx < 0 || idx >= len(t.Inputs) {
		return [32]byte{}, fmt.Errorf("sighash: input index %d out of range", idx)
	}
	in := &t.Inputs[idx]

	buf := make([]byte, 0, 156+len(scriptCode))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Version))
	buf = append(buf, hashes.HashPrevouts[:]...)
	buf = append(buf, hashes.HashSequence[:]...)
	buf = append(buf, in.PrevOut.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Vout)
	buf = appendCompactSize(buf, uint64(len(scriptCode)))
	buf = append(buf, scriptCode...)
	buf = binary.LittleEndian.AppendUint64(buf, value)
	buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
	buf = append(buf, hashes.HashOutputs[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, t.LockTime)
	buf = binary.LittleEndian.AppendUint32(buf, SigHashAll)

	return crypto.SHA256d(buf), nil
}
