package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/castellan/castellan/pkg/tx"
)

// Key prefixes within the address book's keyspace.
var (
	prefixAddr = []byte("a/")
	prefixNext = []byte("n/")
	prefixUTXO = []byte("u/")
)

// AddressEntry records one derived address. Only public data: the
// address string, its derivation coordinates, and its script class.
type AddressEntry struct {
	Chain   string `json:"chain"`
	Account uint32 `json:"account"`
	Change  uint32 `json:"change"`
	Index   uint32 `json:"index"`
	Address string `json:"address"`
	Path    string `json:"path"`
	Class   string `json:"class"`
}

// AddressBook persists derived addresses, per-branch index counters,
// and externally supplied UTXO snapshots.
type AddressBook struct {
	db DB
}

// NewAddressBook creates an address book backed by db.
func NewAddressBook(db DB) *AddressBook {
	return &AddressBook{db: db}
}

func addrKey(chain string, account, change, index uint32) []byte {
	key := make([]byte, 0, len(prefixAddr)+len(chain)+13)
	key = append(key, prefixAddr...)
	key = append(key, chain...)
	key = append(key, '/')
	key = binary.BigEndian.AppendUint32(key, account)
	key = binary.BigEndian.AppendUint32(key, change)
	key = binary.BigEndian.AppendUint32(key, index)
	return key
}

func nextKey(chain string, account, change uint32) []byte {
	key := make([]byte, 0, len(prefixNext)+len(chain)+9)
	key = append(key, prefixNext...)
	key = append(key, chain...)
	key = append(key, '/')
	key = binary.BigEndian.AppendUint32(key, account)
	key = binary.BigEndian.AppendUint32(key, change)
	return key
}

func utxoKey(chain, address string) []byte {
	key := make([]byte, 0, len(prefixUTXO)+len(chain)+len(address)+1)
	key = append(key, prefixUTXO...)
	key = append(key, chain...)
	key = append(key, '/')
	key = append(key, address...)
	return key
}

// PutAddress stores one derived address entry.
func (ab *AddressBook) PutAddress(e AddressEntry) error {
	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode address entry: %w", err)
	}
	return ab.db.Put(addrKey(e.Chain, e.Account, e.Change, e.Index), val)
}

// GetAddress returns the entry at the given derivation coordinates, or
// ErrNotFound.
func (ab *AddressBook) GetAddress(chain string, account, change, index uint32) (AddressEntry, error) {
	val, err := ab.db.Get(addrKey(chain, account, change, index))
	if err != nil {
		return AddressEntry{}, err
	}
	var e AddressEntry
	if err := json.Unmarshal(val, &e); err != nil {
		return AddressEntry{}, fmt.Errorf("decode address entry: %w", err)
	}
	return e, nil
}

// Addresses returns every stored entry for a chain and account, sorted
// by (change, index).
func (ab *AddressBook) Addresses(chain string, account uint32) ([]AddressEntry, error) {
	prefix := make([]byte, 0, len(prefixAddr)+len(chain)+5)
	prefix = append(prefix, prefixAddr...)
	prefix = append(prefix, chain...)
	prefix = append(prefix, '/')
	prefix = binary.BigEndian.AppendUint32(prefix, account)

	var out []AddressEntry
	err := ab.db.ForEach(prefix, func(_, value []byte) error {
		var e AddressEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode address entry: %w", err)
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Change != out[j].Change {
			return out[i].Change < out[j].Change
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// NextIndex returns the next unused derivation index for a branch.
// A branch that was never touched starts at 0.
func (ab *AddressBook) NextIndex(chain string, account, change uint32) (uint32, error) {
	val, err := ab.db.Get(nextKey(chain, account, change))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(val) != 4 {
		return 0, fmt.Errorf("corrupt index counter: %d bytes", len(val))
	}
	return binary.BigEndian.Uint32(val), nil
}

// SetNextIndex records the next unused derivation index for a branch.
func (ab *AddressBook) SetNextIndex(chain string, account, change, next uint32) error {
	val := binary.BigEndian.AppendUint32(nil, next)
	return ab.db.Put(nextKey(chain, account, change), val)
}

// PutUTXOs replaces the cached UTXO snapshot for an address.
func (ab *AddressBook) PutUTXOs(chain, address string, utxos []tx.UTXO) error {
	val, err := json.Marshal(utxos)
	if err != nil {
		return fmt.Errorf("encode utxo snapshot: %w", err)
	}
	return ab.db.Put(utxoKey(chain, address), val)
}

// UTXOs returns the cached UTXO snapshot for an address. An address
// with no snapshot returns an empty list, not an error.
func (ab *AddressBook) UTXOs(chain, address string) ([]tx.UTXO, error) {
	val, err := ab.db.Get(utxoKey(chain, address))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []tx.UTXO
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, fmt.Errorf("decode utxo snapshot: %w", err)
	}
	return out, nil
}
