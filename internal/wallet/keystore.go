package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/castellan/castellan/internal/log"
	"github.com/castellan/castellan/pkg/crypto"
	"github.com/castellan/castellan/pkg/hdkey"
)

// FingerprintSize is the length in bytes of a wallet fingerprint: a
// truncated BLAKE3 hash of the master public key. It identifies a
// wallet file without revealing anything derivable.
const FingerprintSize = 8

// keystoreFile is the on-disk JSON format for an encrypted wallet.
type keystoreFile struct {
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	Fingerprint   string         `json:"fingerprint"`
	EncryptedSeed []byte         `json:"encrypted_seed"`
	Accounts      []AccountEntry `json:"accounts"`
}

// AccountEntry stores metadata for one account on one chain. The
// next-index counters track the first unused derivation index per
// branch; addresses themselves live in the address book.
type AccountEntry struct {
	Chain             string `json:"chain"`
	Account           uint32 `json:"account"`
	Name              string `json:"name"`
	NextExternalIndex uint32 `json:"next_external_index"`
	NextChangeIndex   uint32 `json:"next_change_index"`
}

// Keystore manages encrypted wallet files on disk. Only the seed is
// encrypted; account metadata is public.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// fingerprint computes the wallet fingerprint from the seed: the
// truncated BLAKE3 hash of the master public key.
func fingerprint(seed []byte) (string, error) {
	master, err := hdkey.NewMaster(seed)
	if err != nil {
		return "", err
	}
	defer master.Zero()
	kp, err := master.KeyPair()
	if err != nil {
		return "", err
	}
	defer kp.Zero()

	sum := blake3.Sum256(kp.PublicKey())
	return hex.EncodeToString(sum[:FingerprintSize]), nil
}

// Create creates a new encrypted wallet file from a seed.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	fp, err := fingerprint(seed)
	if err != nil {
		return fmt.Errorf("wallet fingerprint: %w", err)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	kf := keystoreFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		Fingerprint:   fp,
		EncryptedSeed: encrypted,
		Accounts:      []AccountEntry{},
	}
	if err := ks.writeFile(path, &kf); err != nil {
		return err
	}
	log.Keystore.Info().Str("wallet", name).Str("fingerprint", fp).Msg("wallet created")
	return nil
}

// Load decrypts a wallet and returns the seed bytes. The decrypted
// seed is checked against the stored fingerprint; a mismatch means the
// file was tampered with or corrupted. The caller owns the buffer and
// must zero it.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}

	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}

	fp, err := fingerprint(seed)
	if err != nil {
		crypto.Zero(seed)
		return nil, fmt.Errorf("wallet fingerprint: %w", err)
	}
	if fp != kf.Fingerprint {
		crypto.Zero(seed)
		return nil, fmt.Errorf("wallet %q fingerprint mismatch", name)
	}
	return seed, nil
}

// Fingerprint returns the stored fingerprint without decrypting.
func (ks *Keystore) Fingerprint(name string) (string, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return "", err
	}
	return kf.Fingerprint, nil
}

// AddAccount records an account in the wallet metadata. Adding an
// existing (chain, account) pair is idempotent.
func (ks *Keystore) AddAccount(walletName string, acct AccountEntry) error {
	path := ks.walletPath(walletName)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}

	for _, existing := range kf.Accounts {
		if existing.Chain == acct.Chain && existing.Account == acct.Account {
			return nil
		}
	}

	kf.Accounts = append(kf.Accounts, acct)
	return ks.writeFile(path, kf)
}

// ListAccounts returns the account entries for a wallet.
func (ks *Keystore) ListAccounts(walletName string) ([]AccountEntry, error) {
	kf, err := ks.readFile(ks.walletPath(walletName))
	if err != nil {
		return nil, err
	}
	return kf.Accounts, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// NextIndex returns the next unused derivation index for a branch of
// an account, per the wallet metadata.
func (ks *Keystore) NextIndex(walletName, chain string, account, change uint32) (uint32, error) {
	kf, err := ks.readFile(ks.walletPath(walletName))
	if err != nil {
		return 0, err
	}
	for _, a := range kf.Accounts {
		if a.Chain == chain && a.Account == account {
			if change == ChangeInternal {
				return a.NextChangeIndex, nil
			}
			return a.NextExternalIndex, nil
		}
	}
	return 0, fmt.Errorf("account %s/%d not found in wallet %q", chain, account, walletName)
}

// SetNextIndex records the next unused derivation index for a branch.
func (ks *Keystore) SetNextIndex(walletName, chain string, account, change, next uint32) error {
	path := ks.walletPath(walletName)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}
	for i := range kf.Accounts {
		a := &kf.Accounts[i]
		if a.Chain == chain && a.Account == account {
			if change == ChangeInternal {
				a.NextChangeIndex = next
			} else {
				a.NextExternalIndex = next
			}
			return ks.writeFile(path, kf)
		}
	}
	return fmt.Errorf("account %s/%d not found in wallet %q", chain, account, walletName)
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
