package wallet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/castellan/castellan/internal/chains"
	"github.com/castellan/castellan/pkg/script"
	"github.com/castellan/castellan/pkg/tx"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
	ErrSweepDust         = errors.New("sweep amount below dust")
	ErrFeeRatioExceeded  = errors.New("sweep fee ratio exceeded")
)

// DefaultSweepFeeRatio is the maximum fraction of the swept total a
// sweep is allowed to spend on fees.
const DefaultSweepFeeRatio = 0.20

// OwnedUTXO is a spendable output together with the derivation
// coordinates of the key that owns it.
type OwnedUTXO struct {
	tx.UTXO
	Change uint32
	Index  uint32
	Class  script.Class
}

// Selection holds the result of coin selection.
type Selection struct {
	Inputs []OwnedUTXO // Selected UTXOs to spend, largest first.
	Total  uint64      // Sum of selected input values.
	Fee    uint64      // Fee at the requested rate.
	Change uint64      // Total - target - Fee; zero when below dust.
}

// SweepPlan is the result of planning a full-balance sweep.
type SweepPlan struct {
	Inputs []OwnedUTXO
	Total  uint64
	Fee    uint64
	Amount uint64 // Total - Fee, paid to the destination.
}

// feeFor returns the fee in satoshis for a transaction spending the
// given inputs with nOut outputs of the chain's preferred class.
func feeFor(params *chains.Params, inputs []OwnedUTXO, nOut int, feeRate float64) uint64 {
	vsize := params.Overhead()
	for i := range inputs {
		vsize += params.InputSize(inputs[i].Class)
	}
	vsize += nOut * params.OutputSize(params.PreferredClass())
	return uint64(math.Ceil(feeRate * float64(vsize)))
}

// SelectCoins chooses UTXOs to fund a payment of target satoshis at
// feeRate sat/vB. Greedy largest-first: inputs are added in descending
// value order, recomputing the fee for the new shape at each step
// (assuming two outputs), until the target plus fee is covered. If the
// resulting change is below the chain's dust limit the change output is
// dropped and the excess goes to the fee.
func SelectCoins(params *chains.Params, utxos []OwnedUTXO, target uint64, feeRate float64) (*Selection, error) {
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}
	if feeRate <= 0 {
		return nil, fmt.Errorf("fee rate must be positive")
	}

	candidates := make([]OwnedUTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Value > 0 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoUTXOs
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	var (
		selected []OwnedUTXO
		total    uint64
	)
	for _, u := range candidates {
		selected = append(selected, u)
		total += u.Value

		fee := feeFor(params, selected, 2, feeRate)
		if total < target+fee {
			continue
		}

		change := total - target - fee
		if change < params.DustLimit(params.PreferredClass()) {
			// Not worth a change output: drop it and let the excess
			// ride as fee.
			return &Selection{
				Inputs: selected,
				Total:  total,
				Fee:    total - target,
				Change: 0,
			}, nil
		}
		return &Selection{
			Inputs: selected,
			Total:  total,
			Fee:    fee,
			Change: change,
		}, nil
	}

	need := target + feeFor(params, candidates, 2, feeRate)
	return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, need, total)
}

// SweepCoins plans spending every confirmed UTXO to a single output.
// maxFeeRatio caps the fraction of the swept total consumed by fees
// (DefaultSweepFeeRatio when zero); the guard refuses sweeps where the
// fee would eat a disproportionate share of a small balance.
func SweepCoins(params *chains.Params, utxos []OwnedUTXO, feeRate, maxFeeRatio float64) (*SweepPlan, error) {
	if feeRate <= 0 {
		return nil, fmt.Errorf("fee rate must be positive")
	}
	if maxFeeRatio <= 0 {
		maxFeeRatio = DefaultSweepFeeRatio
	}

	var (
		inputs []OwnedUTXO
		total  uint64
	)
	for _, u := range utxos {
		if u.Confirmed && u.Value > 0 {
			inputs = append(inputs, u)
			total += u.Value
		}
	}
	if len(inputs) == 0 {
		return nil, ErrNoUTXOs
	}

	fee := feeFor(params, inputs, 1, feeRate)
	if total <= fee {
		return nil, fmt.Errorf("%w: total %d, fee %d", ErrSweepDust, total, fee)
	}
	amount := total - fee
	if amount < params.DustLimit(params.PreferredClass()) {
		return nil, fmt.Errorf("%w: amount %d", ErrSweepDust, amount)
	}
	if float64(fee)/float64(total) > maxFeeRatio {
		return nil, fmt.Errorf("%w: fee %d is %.0f%% of %d", ErrFeeRatioExceeded, fee, 100*float64(fee)/float64(total), total)
	}

	return &SweepPlan{
		Inputs: inputs,
		Total:  total,
		Fee:    fee,
		Amount: amount,
	}, nil
}
