package types

import "fmt"

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TxID Hash   `json:"txid"`
	Vout uint32 `json:"vout"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Vout == 0
}

// String returns "txid:vout" with the txid in display order.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.Display(), o.Vout)
}
