package tx

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/castellan/castellan/pkg/types"
)

func testOutpoint(fill byte, vout uint32) types.Outpoint {
	var h types.Hash
	for i := range h {
		h[i] = fill
	}
	return types.Outpoint{TxID: h, Vout: vout}
}

func legacyTx() *Tx {
	return &Tx{
		Version: TxVersion,
		Inputs: []TxIn{{
			PrevOut:   testOutpoint(0xaa, 1),
			ScriptSig: []byte{0x51},
			Sequence:  SequenceFinal,
		}},
		Outputs: []TxOut{{
			Value:    50000,
			PkScript: bytes.Repeat([]byte{0x02}, 25),
		}},
	}
}

func witnessTx() *Tx {
	t := legacyTx()
	t.Inputs[0].ScriptSig = nil
	t.Inputs[0].Witness = [][]byte{
		bytes.Repeat([]byte{0x30}, 72),
		bytes.Repeat([]byte{0x02}, 33),
	}
	return t
}

func TestAppendCompactSize(t *testing.T) {
	cases := []struct {
		n    uint64
		want string
	}{
		{0, "00"},
		{0xfc, "fc"},
		{0xfd, "fdfd00"},
		{0xffff, "fdffff"},
		{0x10000, "fe00000100"},
		{0xffffffff, "feffffffff"},
		{0x100000000, "ff0000000001000000"},
	}
	for _, tc := range cases {
		got := appendCompactSize(nil, tc.n)
		if hex.EncodeToString(got) != tc.want {
			t.Errorf("appendCompactSize(%d) = %x, want %s", tc.n, got, tc.want)
		}
		if compactSizeLen(tc.n) != len(got) {
			t.Errorf("compactSizeLen(%d) = %d, want %d", tc.n, compactSizeLen(tc.n), len(got))
		}
	}
}

func TestSerialize_LegacyLayout(t *testing.T) {
	tx := legacyTx()
	raw := tx.Serialize()

	if len(raw) != tx.BaseSize() {
		t.Fatalf("len = %d, BaseSize = %d", len(raw), tx.BaseSize())
	}
	if !bytes.Equal(raw[:4], []byte{0x02, 0x00, 0x00, 0x00}) {
		t.Errorf("version bytes = %x", raw[:4])
	}
	if raw[4] != 1 {
		t.Errorf("input count = %#x, want 1", raw[4])
	}
	// 32-byte txid then vout 1 LE.
	if !bytes.Equal(raw[5:37], bytes.Repeat([]byte{0xaa}, 32)) {
		t.Error("prevout txid mismatch")
	}
	if !bytes.Equal(raw[37:41], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("vout bytes = %x", raw[37:41])
	}
	// Trailing locktime must be zero.
	if !bytes.Equal(raw[len(raw)-4:], []byte{0, 0, 0, 0}) {
		t.Errorf("locktime bytes = %x", raw[len(raw)-4:])
	}
}

func TestSerialize_WitnessMarkerAndFlag(t *testing.T) {
	tx := witnessTx()
	raw := tx.Serialize()

	if raw[4] != witnessMarker || raw[5] != witnessFlag {
		t.Errorf("marker/flag = %x %x, want 00 01", raw[4], raw[5])
	}
	if len(raw) != tx.TotalSize() {
		t.Errorf("len = %d, TotalSize = %d", len(raw), tx.TotalSize())
	}
	if tx.TotalSize() <= tx.BaseSize() {
		t.Error("witness serialization not larger than base")
	}
}

func TestTxID_IgnoresWitness(t *testing.T) {
	withWitness := witnessTx()
	stripped := witnessTx()
	stripped.Inputs[0].Witness = nil

	if withWitness.TxID() != stripped.TxID() {
		t.Error("witness data changed the txid")
	}
}

func TestVSize_Laws(t *testing.T) {
	legacy := legacyTx()
	if legacy.VSize() != legacy.TotalSize() {
		t.Errorf("legacy vsize %d != size %d", legacy.VSize(), legacy.TotalSize())
	}

	segwit := witnessTx()
	base, total := segwit.BaseSize(), segwit.TotalSize()
	want := (base*3 + total + 3) / 4
	if segwit.VSize() != want {
		t.Errorf("segwit vsize = %d, want %d", segwit.VSize(), want)
	}
	if segwit.VSize() >= segwit.TotalSize() {
		t.Error("segwit vsize not smaller than size")
	}
	if segwit.Weight() != base*3+total {
		t.Errorf("weight = %d, want %d", segwit.Weight(), base*3+total)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	a := witnessTx().Serialize()
	b := witnessTx().Serialize()
	if !bytes.Equal(a, b) {
		t.Error("identical transactions serialized differently")
	}
}
