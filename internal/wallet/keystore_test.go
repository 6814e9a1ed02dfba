package wallet

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatalf("NewKeystore: %v", err)
	}
	return ks
}

func testSeed() []byte {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestKeystore_CreateLoad(t *testing.T) {
	ks := testKeystore(t)
	seed := testSeed()
	password := []byte("hunter2")

	if err := ks.Create("main", seed, password, testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	loaded, err := ks.Load("main", password)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(loaded, seed) {
		t.Error("loaded seed differs from original")
	}
}

func TestKeystore_WrongPassword(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(), []byte("right"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ks.Load("main", []byte("wrong")); err == nil {
		t.Error("Load succeeded with wrong password")
	}
}

func TestKeystore_DuplicateCreate(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(), []byte("pw"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ks.Create("main", testSeed(), []byte("pw"), testEncParams()); err == nil {
		t.Error("second Create with the same name succeeded")
	}
}

func TestKeystore_FingerprintStable(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(), []byte("pw"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fp, err := ks.Fingerprint("main")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if len(fp) != FingerprintSize*2 {
		t.Errorf("fingerprint length = %d, want %d hex chars", len(fp), FingerprintSize*2)
	}

	// The same seed under another name yields the same fingerprint.
	if err := ks.Create("backup", testSeed(), []byte("other"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fp2, _ := ks.Fingerprint("backup")
	if fp != fp2 {
		t.Error("same seed produced different fingerprints")
	}
}

func TestKeystore_TamperedFingerprint(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewKeystore(dir)
	if err != nil {
		t.Fatalf("NewKeystore: %v", err)
	}
	if err := ks.Create("main", testSeed(), []byte("pw"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Rewrite the stored fingerprint.
	path := filepath.Join(dir, "main.wallet")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wallet file: %v", err)
	}
	var kf map[string]json.RawMessage
	if err := json.Unmarshal(raw, &kf); err != nil {
		t.Fatalf("parse wallet file: %v", err)
	}
	kf["fingerprint"] = json.RawMessage(`"deadbeefdeadbeef"`)
	raw, _ = json.Marshal(kf)
	if err := os.WriteFile(path, raw, 0600); err != nil {
		t.Fatalf("write wallet file: %v", err)
	}

	if _, err := ks.Load("main", []byte("pw")); err == nil || !strings.Contains(err.Error(), "fingerprint") {
		t.Errorf("Load on tampered file: err = %v, want fingerprint mismatch", err)
	}
}

func TestKeystore_Accounts(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(), []byte("pw"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	acct := AccountEntry{Chain: "BTC", Account: 0, Name: "default"}
	if err := ks.AddAccount("main", acct); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	// Idempotent re-add.
	if err := ks.AddAccount("main", acct); err != nil {
		t.Fatalf("AddAccount again: %v", err)
	}
	if err := ks.AddAccount("main", AccountEntry{Chain: "LTC", Account: 0}); err != nil {
		t.Fatalf("AddAccount LTC: %v", err)
	}

	accounts, err := ks.ListAccounts("main")
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("ListAccounts returned %d entries, want 2", len(accounts))
	}
}

func TestKeystore_NextIndex(t *testing.T) {
	ks := testKeystore(t)
	if err := ks.Create("main", testSeed(), []byte("pw"), testEncParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ks.AddAccount("main", AccountEntry{Chain: "BTC", Account: 0}); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}

	n, err := ks.NextIndex("main", "BTC", 0, ChangeExternal)
	if err != nil {
		t.Fatalf("NextIndex: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh NextIndex = %d, want 0", n)
	}

	if err := ks.SetNextIndex("main", "BTC", 0, ChangeExternal, 5); err != nil {
		t.Fatalf("SetNextIndex: %v", err)
	}
	if err := ks.SetNextIndex("main", "BTC", 0, ChangeInternal, 2); err != nil {
		t.Fatalf("SetNextIndex internal: %v", err)
	}

	n, _ = ks.NextIndex("main", "BTC", 0, ChangeExternal)
	if n != 5 {
		t.Errorf("external NextIndex = %d, want 5", n)
	}
	n, _ = ks.NextIndex("main", "BTC", 0, ChangeInternal)
	if n != 2 {
		t.Errorf("internal NextIndex = %d, want 2", n)
	}

	if _, err := ks.NextIndex("main", "ZEC", 0, ChangeExternal); err == nil {
		t.Error("NextIndex for unknown account succeeded")
	}
}

func TestKeystore_ListAndDelete(t *testing.T) {
	ks := testKeystore(t)
	for _, name := range []string{"alpha", "beta"} {
		if err := ks.Create(name, testSeed(), []byte("pw"), testEncParams()); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("List returned %v", names)
	}

	if err := ks.Delete("alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	names, _ = ks.List()
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("List after delete = %v", names)
	}
	if err := ks.Delete("alpha"); err == nil {
		t.Error("Delete of missing wallet succeeded")
	}
}
