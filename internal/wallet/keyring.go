package wallet

import (
	"errors"
	"fmt"

	"github.com/castellan/castellan/internal/chains"
	"github.com/castellan/castellan/internal/log"
	"github.com/castellan/castellan/pkg/address"
	"github.com/castellan/castellan/pkg/crypto"
	"github.com/castellan/castellan/pkg/hdkey"
	"github.com/castellan/castellan/pkg/script"
	"github.com/castellan/castellan/pkg/tx"
)

// BIP-44 change branch values.
const (
	ChangeExternal = 0 // receiving addresses
	ChangeInternal = 1 // change addresses
)

// Keyring errors.
var (
	ErrLocked     = errors.New("keyring is locked")
	ErrDustOutput = errors.New("output below dust limit")
)

type accountRef struct {
	chain   string
	account uint32
}

// Keyring owns a copy of the wallet seed and derives per-chain keys on
// demand, caching the hardened account-level key per (chain, account)
// so repeated address derivation only pays the two cheap normal steps.
//
// A Keyring is not safe for concurrent mutation: callers serialize
// access per unlocked session. Derivations for distinct chains touch
// disjoint buffers once the account keys are cached.
type Keyring struct {
	seed   []byte
	policy hdkey.Policy
	cache  map[accountRef]*hdkey.ExtendedKey
}

// NewKeyring copies seed into a new keyring. policy governs how leaf
// derivation reacts to invalid child keys.
func NewKeyring(seed []byte, policy hdkey.Policy) (*Keyring, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	s := make([]byte, len(seed))
	copy(s, seed)
	return &Keyring{
		seed:   s,
		policy: policy,
		cache:  make(map[accountRef]*hdkey.ExtendedKey),
	}, nil
}

// AccountKey returns the hardened account-level extended key
// m/purpose'/coin'/account' for the chain, deriving and caching it on
// first use. The returned key is owned by the keyring; callers must not
// zero it.
func (kr *Keyring) AccountKey(params *chains.Params, account uint32) (*hdkey.ExtendedKey, error) {
	if kr.seed == nil {
		return nil, ErrLocked
	}
	ref := accountRef{chain: params.Symbol, account: account}
	if k, ok := kr.cache[ref]; ok {
		return k, nil
	}

	master, err := hdkey.NewMaster(kr.seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	defer master.Zero()

	path := hdkey.Path{
		hdkey.HardenedOffset + params.Purpose,
		hdkey.HardenedOffset + params.CoinType,
		hdkey.HardenedOffset + account,
	}
	// Hardened steps are strict: an invalid child would shift every
	// address under the account.
	acct, err := master.DerivePath(path, hdkey.Strict())
	if err != nil {
		return nil, fmt.Errorf("derive account %s/%d: %w", params.Symbol, account, err)
	}
	kr.cache[ref] = acct
	log.Keyring.Debug().
		Str("chain", params.Symbol).
		Uint32("account", account).
		Msg("account key derived")
	return acct, nil
}

// DeriveKey derives the key pair at m/purpose'/coin'/account'/change/
// index. The keyring's policy applies to the final index step; the
// index actually used is returned. The caller owns the key pair and
// must zero it after use.
func (kr *Keyring) DeriveKey(params *chains.Params, account, change, index uint32) (*crypto.KeyPair, uint32, error) {
	acct, err := kr.AccountKey(params, account)
	if err != nil {
		return nil, 0, err
	}
	branch, _, err := acct.Child(change, hdkey.Strict())
	if err != nil {
		return nil, 0, fmt.Errorf("derive change branch %d: %w", change, err)
	}
	defer branch.Zero()

	leaf, used, err := branch.Child(index, kr.policy)
	if err != nil {
		return nil, 0, fmt.Errorf("derive index %d: %w", index, err)
	}
	defer leaf.Zero()

	kp, err := leaf.KeyPair()
	if err != nil {
		return nil, 0, err
	}
	return kp, used, nil
}

// Address derives and encodes the address at the given coordinates:
// bech32 P2WPKH on segwit chains, base58check P2PKH elsewhere. Returns
// the address and the derivation index actually used.
func (kr *Keyring) Address(params *chains.Params, account, change, index uint32) (string, uint32, error) {
	kp, used, err := kr.DeriveKey(params, account, change, index)
	if err != nil {
		return "", 0, err
	}
	defer kp.Zero()

	hash := crypto.Hash160(kp.PublicKey())
	if params.SupportsSegWit {
		addr, err := address.EncodeSegWit(params.Bech32HRP, 0, hash[:])
		if err != nil {
			return "", 0, err
		}
		return addr, used, nil
	}
	return address.CheckEncode(params.PubKeyHashVersion, hash[:]), used, nil
}

// ExportWIF derives the private key at the given coordinates and
// encodes it in wallet import format. The WIF string carries key
// material; the caller is responsible for its handling.
func (kr *Keyring) ExportWIF(params *chains.Params, account, change, index uint32) (string, error) {
	kp, _, err := kr.DeriveKey(params, account, change, index)
	if err != nil {
		return "", err
	}
	defer kp.Zero()

	priv := kp.Serialize()
	defer crypto.Zero(priv)
	return address.EncodeWIF(params.WIFVersion, priv)
}

// SendRequest describes a payment to build and sign.
type SendRequest struct {
	Account     uint32
	To          string
	Amount      uint64
	FeeRate     float64 // sat/vB
	UTXOs       []OwnedUTXO
	ChangeIndex uint32 // derivation index for the change output, internal branch
}

// NewTransaction selects coins, derives the signing keys, and returns
// a signed transaction paying req.Amount to req.To. Change below the
// dust limit is dropped into the fee; otherwise it pays back to the
// internal branch at req.ChangeIndex. Every derived private key is
// zeroized before return, on success and failure alike.
func (kr *Keyring) NewTransaction(params *chains.Params, req SendRequest) (*tx.Signed, error) {
	if kr.seed == nil {
		return nil, ErrLocked
	}

	addrParams := params.AddressParams()
	_, class, err := script.PayToAddress(req.To, addrParams)
	if err != nil {
		return nil, err
	}
	if req.Amount < params.DustLimit(class) {
		return nil, fmt.Errorf("%w: %d < %d", ErrDustOutput, req.Amount, params.DustLimit(class))
	}

	sel, err := SelectCoins(params, req.UTXOs, req.Amount, req.FeeRate)
	if err != nil {
		return nil, err
	}

	b := tx.NewBuilder(addrParams)
	for _, u := range sel.Inputs {
		b.AddInput(tx.Input{
			TxID:  u.Outpoint.TxID,
			Vout:  u.Outpoint.Vout,
			Value: u.Value,
			Class: u.Class,
		})
	}
	b.AddOutput(req.To, req.Amount)

	if sel.Change > 0 {
		changeScript, err := kr.changeScript(params, req.Account, req.ChangeIndex)
		if err != nil {
			return nil, err
		}
		b.AddScriptOutput(changeScript, sel.Change)
	}

	signed, err := kr.sign(params, req.Account, b, sel.Inputs)
	if err != nil {
		return nil, err
	}
	log.Keyring.Info().
		Str("chain", params.Symbol).
		Str("txid", signed.TxID).
		Int("vsize", signed.VSize).
		Uint64("fee", signed.Fee).
		Int("inputs", len(sel.Inputs)).
		Msg("transaction signed")
	return signed, nil
}

// SweepRequest describes a full-balance sweep.
type SweepRequest struct {
	Account     uint32
	To          string
	FeeRate     float64
	MaxFeeRatio float64 // 0 means DefaultSweepFeeRatio
	UTXOs       []OwnedUTXO
}

// Sweep spends every confirmed UTXO to req.To in a single transaction.
func (kr *Keyring) Sweep(params *chains.Params, req SweepRequest) (*tx.Signed, error) {
	if kr.seed == nil {
		return nil, ErrLocked
	}

	addrParams := params.AddressParams()
	if !script.Validate(req.To, addrParams) {
		return nil, fmt.Errorf("%w: %q", script.ErrInvalidAddress, req.To)
	}

	plan, err := SweepCoins(params, req.UTXOs, req.FeeRate, req.MaxFeeRatio)
	if err != nil {
		return nil, err
	}

	b := tx.NewBuilder(addrParams)
	for _, u := range plan.Inputs {
		b.AddInput(tx.Input{
			TxID:  u.Outpoint.TxID,
			Vout:  u.Outpoint.Vout,
			Value: u.Value,
			Class: u.Class,
		})
	}
	b.AddOutput(req.To, plan.Amount)

	signed, err := kr.sign(params, req.Account, b, plan.Inputs)
	if err != nil {
		return nil, err
	}
	log.Keyring.Info().
		Str("chain", params.Symbol).
		Str("txid", signed.TxID).
		Uint64("amount", plan.Amount).
		Uint64("fee", plan.Fee).
		Int("inputs", len(plan.Inputs)).
		Msg("sweep signed")
	return signed, nil
}

// changeScript derives the scriptPubKey for a change output on the
// internal branch, using the chain's preferred script class.
func (kr *Keyring) changeScript(params *chains.Params, account, index uint32) ([]byte, error) {
	kp, _, err := kr.DeriveKey(params, account, ChangeInternal, index)
	if err != nil {
		return nil, err
	}
	defer kp.Zero()

	hash := crypto.Hash160(kp.PublicKey())
	if params.SupportsSegWit {
		return script.PayToWitnessPubKeyHash(hash), nil
	}
	return script.PayToPubKeyHash(hash), nil
}

// sign derives one signer per input and finishes the build. Signing
// derivation is always strict: the inputs exist, so their keys must
// derive exactly.
func (kr *Keyring) sign(params *chains.Params, account uint32, b *tx.Builder, inputs []OwnedUTXO) (*tx.Signed, error) {
	keys := make([]*crypto.KeyPair, 0, len(inputs))
	defer func() {
		for _, kp := range keys {
			kp.Zero()
		}
	}()

	signers := make([]crypto.Signer, 0, len(inputs))
	for _, u := range inputs {
		acct, err := kr.AccountKey(params, account)
		if err != nil {
			return nil, err
		}
		branch, _, err := acct.Child(u.Change, hdkey.Strict())
		if err != nil {
			return nil, fmt.Errorf("derive change branch %d: %w", u.Change, err)
		}
		leaf, _, err := branch.Child(u.Index, hdkey.Strict())
		branch.Zero()
		if err != nil {
			return nil, fmt.Errorf("derive index %d: %w", u.Index, err)
		}
		kp, err := leaf.KeyPair()
		leaf.Zero()
		if err != nil {
			return nil, err
		}
		keys = append(keys, kp)
		signers = append(signers, kp)
	}
	return b.Sign(signers)
}

// Lock zeroizes the seed and every cached account key. The keyring is
// unusable afterwards; create a new one to resume signing.
func (kr *Keyring) Lock() {
	crypto.Zero(kr.seed)
	kr.seed = nil
	for ref, k := range kr.cache {
		k.Zero()
		delete(kr.cache, ref)
	}
	log.Keyring.Debug().Msg("keyring locked")
}
