package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// SwapRequest is constructed once per user-confirmed sale.
type SwapRequest struct {
	Quote *Quote

	Signer solana.PrivateKey

	WrapNativeAsset bool

	CollectFee bool
}

// SwapResult is the terminal artifact of a sale. It owns its FeeOutcome: a
// failed fee transfer never invalidates TransactionID.
type SwapResult struct {
	TransactionID string `json:"transactionId"`

	FeeCollection *FeeOutcome `json:"feeCollection,omitempty"`

	ConfirmedBalanceSol decimal.Decimal `json:"confirmedBalanceSol"`
}

// LamportsToSol converts a raw lamport amount to SOL.
func LamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}

type FeeStatus string

const (
	FeeSuccess FeeStatus = "success"
	FeeFailed  FeeStatus = "failed"
	FeeSkipped FeeStatus = "skipped"
)

// FeeOutcome is data, not an error: every fee-collection failure mode is
// encoded in Status.
type FeeOutcome struct {
	Status FeeStatus `json:"status"`

	TransactionID string `json:"transactionId,omitempty"`

	FeeAmount decimal.Decimal `json:"feeAmount"`

	FeeAsset string `json:"feeAsset"`

	Detail string `json:"detail,omitempty"`
}
