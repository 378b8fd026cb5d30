package domain

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"
)

// Quote is a priced, per-call estimate of swap output for one slippage tier.
// It is created by the optimizer and discarded after the swap build.
type Quote struct {
	InputMint  string
	OutputMint string

	// Amounts in base units.
	InAmount  uint64
	OutAmount uint64

	SlippageBps uint16

	PriceImpactPct decimal.Decimal

	RouteLength int

	// Derived fields, filled by Enhance.
	MinimumOutput uint64
	Price         decimal.Decimal

	// Payload is the aggregator's quote object verbatim; the swap build
	// endpoint requires it echoed back unchanged.
	Payload json.RawMessage
}

// MinimumOut computes floor(outAmount * (10000 - slippageBps) / 10000).
func MinimumOut(outAmount uint64, slippageBps uint16) uint64 {
	threshold := new(big.Int).Mul(new(big.Int).SetUint64(outAmount), big.NewInt(int64(10000-int(slippageBps))))
	threshold.Div(threshold, big.NewInt(10000))
	return threshold.Uint64()
}

// Enhance fills the derived fields from the wire values.
func (q *Quote) Enhance() {
	q.MinimumOutput = MinimumOut(q.OutAmount, q.SlippageBps)
	if q.InAmount > 0 {
		q.Price = decimal.NewFromUint64(q.OutAmount).Div(decimal.NewFromUint64(q.InAmount))
	}
	if q.RouteLength < 1 {
		q.RouteLength = 1
	}
}
