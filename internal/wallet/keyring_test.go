package wallet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/castellan/castellan/internal/chains"
	"github.com/castellan/castellan/pkg/address"
	"github.com/castellan/castellan/pkg/hdkey"
	"github.com/castellan/castellan/pkg/script"
	"github.com/castellan/castellan/pkg/tx"
	"github.com/castellan/castellan/pkg/types"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	kr, err := NewKeyring(seed, hdkey.Strict())
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	return kr
}

func TestKeyring_BIP84ReferenceAddresses(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)

	// First external addresses for the reference mnemonic under
	// m/84'/0'/0'/0/i.
	want := []string{
		"bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu",
		"bc1qnjg0jd8228aq7egyzacy8cys3knf9xvrerkf9g",
	}
	for i, w := range want {
		got, used, err := kr.Address(btc, 0, ChangeExternal, uint32(i))
		if err != nil {
			t.Fatalf("Address(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("address %d = %s, want %s", i, got, w)
		}
		if used != uint32(i) {
			t.Errorf("used index = %d, want %d", used, i)
		}
	}
}

func TestKeyring_BIP44ReferenceAddress(t *testing.T) {
	kr := testKeyring(t)
	legacy := &chains.Params{
		Symbol:            "BTC-LEGACY",
		CoinType:          0,
		Purpose:           chains.PurposeLegacy,
		PubKeyHashVersion: []byte{0x00},
		ScriptHashVersion: []byte{0x05},
		WIFVersion:        0x80,
	}

	// m/44'/0'/0'/0/0 for the reference mnemonic.
	got, _, err := kr.Address(legacy, 0, ChangeExternal, 0)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if want := "1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA"; got != want {
		t.Errorf("address = %s, want %s", got, want)
	}
}

func TestKeyring_AddressDeterministic(t *testing.T) {
	btc := btcParams(t)
	a, _, err := testKeyring(t).Address(btc, 0, 0, 3)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	b, _, err := testKeyring(t).Address(btc, 0, 0, 3)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if a != b {
		t.Error("same coordinates produced different addresses")
	}

	c, _, _ := testKeyring(t).Address(btc, 0, 1, 3)
	if a == c {
		t.Error("change branch produced the external address")
	}
}

func TestKeyring_ExportWIFRoundTrip(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)

	wif, err := kr.ExportWIF(btc, 0, 0, 0)
	if err != nil {
		t.Fatalf("ExportWIF: %v", err)
	}
	version, priv, err := address.DecodeWIF(wif)
	if err != nil {
		t.Fatalf("DecodeWIF: %v", err)
	}
	if version != btc.WIFVersion {
		t.Errorf("WIF version = %#x, want %#x", version, btc.WIFVersion)
	}

	kp, _, err := kr.DeriveKey(btc, 0, 0, 0)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer kp.Zero()
	if !bytes.Equal(priv, kp.Serialize()) {
		t.Error("WIF key does not match the derived key")
	}
}

func TestKeyring_Lock(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)

	if _, _, err := kr.Address(btc, 0, 0, 0); err != nil {
		t.Fatalf("Address before lock: %v", err)
	}
	kr.Lock()

	if _, err := kr.AccountKey(btc, 0); !errors.Is(err, ErrLocked) {
		t.Errorf("AccountKey after lock: err = %v", err)
	}
	if _, _, err := kr.Address(btc, 0, 0, 0); !errors.Is(err, ErrLocked) {
		t.Errorf("Address after lock: err = %v", err)
	}
	if _, err := kr.NewTransaction(btc, SendRequest{}); !errors.Is(err, ErrLocked) {
		t.Errorf("NewTransaction after lock: err = %v", err)
	}
}

func ownedUTXO(fill byte, value uint64, index uint32) OwnedUTXO {
	var txid types.Hash
	txid[0] = fill
	return OwnedUTXO{
		UTXO: tx.UTXO{
			Outpoint:  types.Outpoint{TxID: txid},
			Value:     value,
			Confirmed: true,
		},
		Change: ChangeExternal,
		Index:  index,
		Class:  script.ClassP2WPKH,
	}
}

func TestKeyring_NewTransaction(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)

	dest, _, err := kr.Address(btc, 0, ChangeExternal, 9)
	if err != nil {
		t.Fatalf("Address: %v", err)
	}

	signed, err := kr.NewTransaction(btc, SendRequest{
		Account:     0,
		To:          dest,
		Amount:      50000,
		FeeRate:     1,
		UTXOs:       []OwnedUTXO{ownedUTXO(1, 100000, 0)},
		ChangeIndex: 0,
	})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	// 1 input, 2 outputs at 1 sat/vB: change stays, fee is the estimate.
	if signed.Fee != 141 {
		t.Errorf("fee = %d, want 141", signed.Fee)
	}
	if signed.VSize >= signed.Size {
		t.Error("segwit transaction without witness discount")
	}
	if len(signed.TxID) != 64 || signed.TxHex == "" {
		t.Error("incomplete signed transaction")
	}
}

func TestKeyring_NewTransaction_DustOutput(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)
	dest, _, _ := kr.Address(btc, 0, ChangeExternal, 9)

	_, err := kr.NewTransaction(btc, SendRequest{
		To:      dest,
		Amount:  200, // below the 294 segwit dust limit
		FeeRate: 1,
		UTXOs:   []OwnedUTXO{ownedUTXO(1, 100000, 0)},
	})
	if !errors.Is(err, ErrDustOutput) {
		t.Errorf("err = %v, want ErrDustOutput", err)
	}
}

func TestKeyring_NewTransaction_InvalidAddress(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)

	_, err := kr.NewTransaction(btc, SendRequest{
		To:      "garbage",
		Amount:  50000,
		FeeRate: 1,
		UTXOs:   []OwnedUTXO{ownedUTXO(1, 100000, 0)},
	})
	if !errors.Is(err, script.ErrInvalidAddress) {
		t.Errorf("err = %v, want ErrInvalidAddress", err)
	}
}

func TestKeyring_Sweep(t *testing.T) {
	kr := testKeyring(t)
	btc := btcParams(t)
	dest, _, _ := kr.Address(btc, 0, ChangeExternal, 9)

	signed, err := kr.Sweep(btc, SweepRequest{
		To:      dest,
		FeeRate: 1,
		UTXOs: []OwnedUTXO{
			ownedUTXO(1, 50000, 0),
			ownedUTXO(2, 30000, 1),
		},
	})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	// 2 inputs, 1 output: 178 vbytes at 1 sat/vB.
	if signed.Fee != 178 {
		t.Errorf("fee = %d, want 178", signed.Fee)
	}
}

func TestNewKeyring_RejectsShortSeed(t *testing.T) {
	if _, err := NewKeyring(make([]byte, 32), hdkey.Strict()); err == nil {
		t.Error("accepted a 32-byte seed")
	}
}
