package priority

import (
	"context"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Urgency represents the priority level for a transaction
type Urgency uint8

const (
	// UrgencyLow uses p50 (median) priority fee - non-urgent transfers
	UrgencyLow Urgency = iota
	// UrgencyMedium uses p75 priority fee - normal swaps
	UrgencyMedium
	// UrgencyHigh uses p90 priority fee - time-sensitive
	UrgencyHigh
)

// DefaultFees are fallback fees when RPC fails (microLamports per CU)
var DefaultFees = map[Urgency]uint64{
	UrgencyLow:    1000,
	UrgencyMedium: 10000,
	UrgencyHigh:   100000,
}

// RecentFeesProvider is the slice of the RPC client the calculator needs.
type RecentFeesProvider interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error)
}

// FeeCalculator calculates optimal priority fees based on network conditions
type FeeCalculator struct {
	rpcClient RecentFeesProvider
}

// NewFeeCalculator creates a new fee calculator
func NewFeeCalculator(rpcClient RecentFeesProvider) *FeeCalculator {
	return &FeeCalculator{rpcClient: rpcClient}
}

// PriorityFeeResult holds the calculated fee information
type PriorityFeeResult struct {
	FeePerCU    uint64 // microLamports per compute unit
	Urgency     Urgency
	Percentile  int
	SampleCount int
}

// GetOptimalFee calculates the optimal priority fee based on urgency. RPC
// failures fall back to the default table rather than erroring: a swap should
// never be blocked on a fee estimate.
func (f *FeeCalculator) GetOptimalFee(ctx context.Context, urgency Urgency, accounts []solana.PublicKey) (*PriorityFeeResult, error) {
	recentFees, err := f.rpcClient.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		return &PriorityFeeResult{
			FeePerCU:    DefaultFees[urgency],
			Urgency:     urgency,
			Percentile:  getPercentileForUrgency(urgency),
			SampleCount: 0,
		}, nil
	}

	fees := make([]uint64, 0, len(recentFees))
	for _, fee := range recentFees {
		if fee.PrioritizationFee > 0 {
			fees = append(fees, fee.PrioritizationFee)
		}
	}

	if len(fees) == 0 {
		return &PriorityFeeResult{
			FeePerCU:    DefaultFees[urgency],
			Urgency:     urgency,
			Percentile:  getPercentileForUrgency(urgency),
			SampleCount: 0,
		}, nil
	}

	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })

	percentile := getPercentileForUrgency(urgency)
	feePerCU := calculatePercentile(fees, percentile)

	// Minimum 100 microLamports
	if feePerCU < 100 {
		feePerCU = 100
	}

	return &PriorityFeeResult{
		FeePerCU:    feePerCU,
		Urgency:     urgency,
		Percentile:  percentile,
		SampleCount: len(fees),
	}, nil
}

func getPercentileForUrgency(urgency Urgency) int {
	switch urgency {
	case UrgencyLow:
		return 50
	case UrgencyMedium:
		return 75
	case UrgencyHigh:
		return 90
	default:
		return 75
	}
}

// calculatePercentile returns the value at the given percentile
func calculatePercentile(sorted []uint64, percentile int) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 100 {
		return sorted[len(sorted)-1]
	}

	k := float64(percentile) / 100.0 * float64(len(sorted)-1)
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		c = len(sorted) - 1
	}

	// Linear interpolation
	d := k - float64(f)
	return uint64(float64(sorted[f])*(1-d) + float64(sorted[c])*d)
}

// GetFeeForAmount calculates total priority fee for given CU amount
func (r *PriorityFeeResult) GetFeeForAmount(computeUnits uint32) uint64 {
	return r.FeePerCU * uint64(computeUnits)
}
