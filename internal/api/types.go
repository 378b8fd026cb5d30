package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire shapes of the trading backend. Amounts travel as strings in base
// units, matching the aggregator's JSON.

type tokensEnvelope struct {
	Tokens map[string]string `json:"tokens"`
}

type QuoteRequest struct {
	InputMint           string `json:"inputMint"`
	OutputMint          string `json:"outputMint"`
	Amount              uint64 `json:"amount"`
	SlippageBps         uint16 `json:"slippageBps"`
	OnlyDirectRoutes    bool   `json:"onlyDirectRoutes"`
	AsLegacyTransaction bool   `json:"asLegacyTransaction"`
	PlatformFeeBps      uint16 `json:"platformFeeBps"`
}

type quoteEnvelope struct {
	QuoteResponse json.RawMessage `json:"quoteResponse"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`

	raw json.RawMessage
}

// Raw returns the quote object exactly as the aggregator produced it. The
// swap build endpoint requires it echoed back byte for byte.
func (q *QuoteResponse) Raw() json.RawMessage {
	return q.raw
}

type SwapBuildRequest struct {
	UserPublicKey             string          `json:"userPublicKey"`
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	AsLegacyTransaction       bool            `json:"asLegacyTransaction"`
	CollectFees               bool            `json:"collectFees"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
}

type SwapBuildResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type MotherWallet struct {
	PublicKey       string          `json:"publicKey"`
	BalanceSol      decimal.Decimal `json:"balanceSol"`
	BalanceLamports uint64          `json:"balanceLamports"`
}

type TokenBalance struct {
	Balance  uint64 `json:"balance"`
	Decimals uint8  `json:"decimals"`
}
