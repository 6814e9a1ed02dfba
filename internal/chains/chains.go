// Package chains holds the per-chain parameters that distinguish the
// supported networks: address version prefixes, bech32 prefixes, BIP44
// coin types, dust limits, and fee-estimation size profiles. One key
// model serves every chain; only these parameters differ.
package chains

import (
	"fmt"
	"sort"
	"sync"

	"github.com/castellan/castellan/pkg/script"
)

// BIP43 purpose fields.
const (
	PurposeLegacy = 44 // BIP44, base58 P2PKH accounts
	PurposeSegWit = 84 // BIP84, bech32 P2WPKH accounts
)

// Params describes one chain. Version prefixes are slices because
// Zcash transparent addresses use two-byte prefixes; they are matched
// element-wise, never truncated.
type Params struct {
	Symbol            string
	Name              string
	CoinType          uint32
	Purpose           uint32
	PubKeyHashVersion []byte
	ScriptHashVersion []byte
	WIFVersion        byte
	Bech32HRP         string
	SupportsSegWit    bool

	// Dust thresholds in satoshis by output class.
	DustLegacy uint64
	DustSegWit uint64
}

// Fee-estimation size profile in vbytes. Legacy figures assume a
// 1-signature P2PKH spend; segwit figures are P2WPKH virtual sizes.
const (
	OverheadLegacy = 10
	OverheadSegWit = 11 // marker/flag weight rounded up
	InputLegacy    = 148
	InputSegWit    = 68
	OutputLegacy   = 34
	OutputSegWit   = 31
)

// Default dust thresholds.
const (
	dustLegacy = 546
	dustSegWit = 294
)

// DustLimit returns the dust threshold for an output of the given
// script class. Outputs below it are not worth their own spending cost.
func (p *Params) DustLimit(class script.Class) uint64 {
	if class.SegWit() {
		return p.DustSegWit
	}
	return p.DustLegacy
}

// InputSize returns the estimated spend size in vbytes for an input of
// the given class.
func (p *Params) InputSize(class script.Class) int {
	if class.SegWit() {
		return InputSegWit
	}
	return InputLegacy
}

// OutputSize returns the serialized size in vbytes for an output of the
// given class.
func (p *Params) OutputSize(class script.Class) int {
	if class.SegWit() {
		return OutputSegWit
	}
	return OutputLegacy
}

// Overhead returns the fixed transaction overhead in vbytes. SegWit
// transactions pay one extra vbyte for the marker and flag.
func (p *Params) Overhead() int {
	if p.SupportsSegWit {
		return OverheadSegWit
	}
	return OverheadLegacy
}

// EstimateVSize returns the estimated virtual size of a transaction
// with nIn inputs and nOut outputs of the chain's preferred class.
func (p *Params) EstimateVSize(nIn, nOut int) int {
	class := p.PreferredClass()
	return p.Overhead() + nIn*p.InputSize(class) + nOut*p.OutputSize(class)
}

// PreferredClass returns the script class new addresses use: P2WPKH on
// segwit chains, P2PKH elsewhere.
func (p *Params) PreferredClass() script.Class {
	if p.SupportsSegWit {
		return script.ClassP2WPKH
	}
	return script.ClassP2PKH
}

// AddressParams returns the address-encoding view of the chain for
// pkg/script.
func (p *Params) AddressParams() script.AddressParams {
	return script.AddressParams{
		Bech32HRP:         p.Bech32HRP,
		PubKeyHashVersion: p.PubKeyHashVersion,
		ScriptHashVersion: p.ScriptHashVersion,
	}
}

var (
	mu       sync.RWMutex
	registry = make(map[string]*Params)
)

// Register adds a chain to the registry. Registering a symbol twice is
// a programming error.
func Register(p *Params) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[p.Symbol]; ok {
		panic(fmt.Sprintf("chains: duplicate registration of %s", p.Symbol))
	}
	registry[p.Symbol] = p
}

// Get returns the parameters for a chain symbol.
func Get(symbol string) (*Params, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[symbol]
	if !ok {
		return nil, fmt.Errorf("chains: unknown chain %q", symbol)
	}
	return p, nil
}

// List returns every registered chain, sorted by symbol.
func List() []*Params {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Params, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func init() {
	Register(&Params{
		Symbol:            "BTC",
		Name:              "Bitcoin",
		CoinType:          0,
		Purpose:           PurposeSegWit,
		PubKeyHashVersion: []byte{0x00},
		ScriptHashVersion: []byte{0x05},
		WIFVersion:        0x80,
		Bech32HRP:         "bc",
		SupportsSegWit:    true,
		DustLegacy:        dustLegacy,
		DustSegWit:        dustSegWit,
	})
	Register(&Params{
		Symbol:            "BTC-TEST",
		Name:              "Bitcoin Testnet",
		CoinType:          1,
		Purpose:           PurposeSegWit,
		PubKeyHashVersion: []byte{0x6f},
		ScriptHashVersion: []byte{0xc4},
		WIFVersion:        0xef,
		Bech32HRP:         "tb",
		SupportsSegWit:    true,
		DustLegacy:        dustLegacy,
		DustSegWit:        dustSegWit,
	})
	Register(&Params{
		Symbol:            "LTC",
		Name:              "Litecoin",
		CoinType:          2,
		Purpose:           PurposeSegWit,
		PubKeyHashVersion: []byte{0x30},
		ScriptHashVersion: []byte{0x32},
		WIFVersion:        0xb0,
		Bech32HRP:         "ltc",
		SupportsSegWit:    true,
		DustLegacy:        dustLegacy,
		DustSegWit:        dustSegWit,
	})
	Register(&Params{
		Symbol:            "DOGE",
		Name:              "Dogecoin",
		CoinType:          3,
		Purpose:           PurposeLegacy,
		PubKeyHashVersion: []byte{0x1e},
		ScriptHashVersion: []byte{0x16},
		WIFVersion:        0x9e,
		SupportsSegWit:    false,
		DustLegacy:        dustLegacy,
		DustSegWit:        dustSegWit,
	})
	Register(&Params{
		Symbol:            "ZEC",
		Name:              "Zcash",
		CoinType:          133,
		Purpose:           PurposeLegacy,
		PubKeyHashVersion: []byte{0x1c, 0xb8},
		ScriptHashVersion: []byte{0x1c, 0xbd},
		WIFVersion:        0x80,
		SupportsSegWit:    false,
		DustLegacy:        dustLegacy,
		DustSegWit:        dustSegWit,
	})
}
