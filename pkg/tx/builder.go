package tx

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/castellan/castellan/pkg/crypto"
	"github.com/castellan/castellan/pkg/script"
	"github.com/castellan/castellan/pkg/types"
)

// Builder errors.
var (
	ErrEmptyInputs      = errors.New("transaction has no inputs")
	ErrEmptyOutputs     = errors.New("transaction has no outputs")
	ErrNegativeFee      = errors.New("outputs exceed inputs")
	ErrUnsupportedInput = errors.New("input script class cannot be signed")
	ErrSignerCount      = errors.New("signer count does not match input count")
	ErrAlreadySigned    = errors.New("transaction already signed")
)

// Input is a UTXO being spent: its outpoint, its value, and the script
// class it was paid to. Only P2PKH and P2WPKH inputs can be signed.
type Input struct {
	TxID  types.Hash
	Vout  uint32
	Value uint64
	Class script.Class
}

// Output is a payment destination prior to script resolution.
type Output struct {
	Address string
	Value   uint64
}

// UTXO is a spendable output as reported by an external chain view.
type UTXO struct {
	Outpoint  types.Outpoint `json:"outpoint"`
	Value     uint64         `json:"value"`
	Confirmed bool           `json:"confirmed"`
}

// Signed is the terminal result of a build: the broadcast-ready hex,
// the display-order txid, and the size and fee figures the caller needs
// for reporting.
type Signed struct {
	TxHex string `json:"tx_hex"`
	TxID  string `json:"txid"`
	Size  int    `json:"size"`
	VSize int    `json:"vsize"`
	Fee   uint64 `json:"fee"`
}

// Builder assembles a transaction from inputs and outputs, then signs
// and serializes it in one pass. A Builder is single-use: after Sign
// succeeds it refuses further mutation, and a partially signed
// transaction is never exposed.
type Builder struct {
	params   script.AddressParams
	tx       *Tx
	inputs   []Input
	totalIn  uint64
	totalOut uint64
	signed   bool
	err      error
}

// NewBuilder creates a builder for the chain described by params.
func NewBuilder(params script.AddressParams) *Builder {
	return &Builder{
		params: params,
		tx:     &Tx{Version: TxVersion},
	}
}

// AddInput adds a UTXO to spend. The input's sequence is final; this
// wallet does not signal replacement.
func (b *Builder) AddInput(in Input) *Builder {
	if b.err != nil {
		return b
	}
	if b.signed {
		b.err = ErrAlreadySigned
		return b
	}
	if in.Class != script.ClassP2PKH && in.Class != script.ClassP2WPKH {
		b.err = fmt.Errorf("%w: %s", ErrUnsupportedInput, in.Class)
		return b
	}
	b.inputs = append(b.inputs, in)
	b.tx.Inputs = append(b.tx.Inputs, TxIn{
		PrevOut:  types.Outpoint{TxID: in.TxID, Vout: in.Vout},
		Sequence: SequenceFinal,
	})
	b.totalIn += in.Value
	return b
}

// AddOutput resolves addr into a scriptPubKey under the builder's chain
// parameters and appends an output paying value satoshis to it.
func (b *Builder) AddOutput(addr string, value uint64) *Builder {
	if b.err != nil {
		return b
	}
	if b.signed {
		b.err = ErrAlreadySigned
		return b
	}
	pkScript, _, err := script.PayToAddress(addr, b.params)
	if err != nil {
		b.err = fmt.Errorf("output %d: %w", len(b.tx.Outputs), err)
		return b
	}
	b.tx.Outputs = append(b.tx.Outputs, TxOut{Value: value, PkScript: pkScript})
	b.totalOut += value
	return b
}

// AddScriptOutput appends an output paying value satoshis to an already
// resolved scriptPubKey. Change outputs use this path.
func (b *Builder) AddScriptOutput(pkScript []byte, value uint64) *Builder {
	if b.err != nil {
		return b
	}
	if b.signed {
		b.err = ErrAlreadySigned
		return b
	}
	b.tx.Outputs = append(b.tx.Outputs, TxOut{Value: value, PkScript: pkScript})
	b.totalOut += value
	return b
}

// Fee returns the implicit fee of the collected inputs and outputs.
func (b *Builder) Fee() uint64 {
	if b.totalIn < b.totalOut {
		return 0
	}
	return b.totalIn - b.totalOut
}

// Sign signs every input and returns the finished transaction. signers
// holds one signer per input, in input order; each must control the key
// the input was paid to. The sighash scheme follows the input's class:
// legacy P2PKH inputs get the quadratic pre-segwit hash, P2WPKH inputs
// the precomputed BIP143 hash. Signing is the only call that leaves
// this package; no builder state changes until every signature is back.
func (b *Builder) Sign(signers []crypto.Signer) (*Signed, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.signed {
		return nil, ErrAlreadySigned
	}
	if len(b.tx.Inputs) == 0 {
		return nil, ErrEmptyInputs
	}
	if len(b.tx.Outputs) == 0 {
		return nil, ErrEmptyOutputs
	}
	if len(signers) != len(b.tx.Inputs) {
		return nil, fmt.Errorf("%w: %d signers for %d inputs", ErrSignerCount, len(signers), len(b.tx.Inputs))
	}
	if b.totalIn < b.totalOut {
		return nil, fmt.Errorf("%w: in=%d out=%d", ErrNegativeFee, b.totalIn, b.totalOut)
	}

	var hashes *SigHashes
	for i := range b.inputs {
		if b.inputs[i].Class == script.ClassP2WPKH {
			hashes = NewSigHashes(b.tx)
			break
		}
	}

	// Compute all sighashes first, then collect signatures: the witness
	// and scriptSig slots stay empty until every hash is fixed.
	sighashes := make([][32]byte, len(b.inputs))
	for i := range b.inputs {
		pubKey := signers[i].PublicKey()
		scriptCode := script.PayToPubKeyHash(crypto.Hash160(pubKey))
		var (
			h   [32]byte
			err error
		)
		if b.inputs[i].Class == script.ClassP2WPKH {
			h, err = b.tx.WitnessV0Sighash(hashes, i, scriptCode, b.inputs[i].Value)
		} else {
			h, err = b.tx.LegacySighash(i, scriptCode)
		}
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		sighashes[i] = h
	}

	for i := range b.inputs {
		sig, err := signers[i].Sign(sighashes[i][:])
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		sig = append(sig, SigHashAll)
		pubKey := signers[i].PublicKey()
		if b.inputs[i].Class == script.ClassP2WPKH {
			b.tx.Inputs[i].Witness = [][]byte{sig, pubKey}
		} else {
			b.tx.Inputs[i].ScriptSig = pushData(sig, pubKey)
		}
	}
	b.signed = true

	raw := b.tx.Serialize()
	return &Signed{
		TxHex: hex.EncodeToString(raw),
		TxID:  b.tx.TxID().Display(),
		Size:  b.tx.TotalSize(),
		VSize: b.tx.VSize(),
		Fee:   b.totalIn - b.totalOut,
	}, nil
}

// Tx exposes the underlying transaction for inspection in tests.
func (b *Builder) Tx() *Tx {
	return b.tx
}

// pushData concatenates direct pushes of each item. Signatures and
// compressed pubkeys are always under 76 bytes, so a single length
// byte suffices.
func pushData(items ...[]byte) []byte {
	var n int
	for _, item := range items {
		n += 1 + len(item)
	}
	out := make([]byte, 0, n)
	for _, item := range items {
		out = append(out, byte(len(item)))
		out = append(out, item...)
	}
	return out
}
