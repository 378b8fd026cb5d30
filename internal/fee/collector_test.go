package fee

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"

	"github.com/hxuan190/sell-engine/internal/chain"
	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/domain"
	"github.com/hxuan190/sell-engine/internal/priority"
)

type fakeChainRPC struct {
	balance    uint64
	balanceErr error

	sendErr error
	sends   int

	statuses []*rpc.SignatureStatusesResult
	polls    int
}

func (f *fakeChainRPC) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return &rpc.GetBalanceResult{Value: f.balance}, nil
}

func (f *fakeChainRPC) SendRawTransactionWithOpts(ctx context.Context, txBytes []byte, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.sends++
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return solana.Signature{7}, nil
}

func (f *fakeChainRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var status *rpc.SignatureStatusesResult
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}, nil
}

type fakeBlockhashProvider struct{}

func (fakeBlockhashProvider) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{9}, LastValidBlockHeight: 500},
	}, nil
}

type fakeFeesProvider struct{}

func (fakeFeesProvider) GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error) {
	return nil, errors.New("rpc unavailable")
}

func testFeeConfig() config.FeeConfig {
	return config.FeeConfig{
		FeeRateBps:               10,
		MinFeeLamports:           100_000, // 0.0001 SOL
		NetworkFeeBufferLamports: 10_000,  // 0.00001 SOL
		CollectorAddress:         solana.NewWallet().PublicKey(),
		MaxRetries:               3,
	}
}

func newTestCollector(rpcClient *fakeChainRPC, cfg config.FeeConfig) *Collector {
	c := NewCollector(rpcClient, chain.NewBlockhashCache(fakeBlockhashProvider{}), priority.NewFeeCalculator(fakeFeesProvider{}), cfg)
	return c.WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
}

func TestFeeLamports(t *testing.T) {
	tests := []struct {
		name     string
		input    uint64
		rateBps  uint16
		minFloor uint64
		expected uint64
	}{
		{
			name:     "rate dominates above floor",
			input:    1_000_000_000, // 1 SOL in
			rateBps:  10,
			minFloor: 100_000,
			expected: 1_000_000, // 0.1%
		},
		{
			name:     "floor dominates small inputs",
			input:    1_000_000,
			rateBps:  10,
			minFloor: 100_000,
			expected: 100_000,
		},
		{
			name:     "zero input still pays floor",
			input:    0,
			rateBps:  10,
			minFloor: 100_000,
			expected: 100_000,
		},
		{
			name:     "result floors toward zero",
			input:    999,
			rateBps:  10,
			minFloor: 0,
			expected: 0, // floor(999 * 10 / 10000)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FeeLamports(tt.input, tt.rateBps, tt.minFloor))
		})
	}
}

func TestCollectSkipsOnInsufficientBalance(t *testing.T) {
	// 0.00005 SOL on hand, below the 0.0001 SOL floor plus buffer
	rpcClient := &fakeChainRPC{balance: 50_000}
	collector := newTestCollector(rpcClient, testFeeConfig())

	outcome := collector.Collect(context.Background(), solana.NewWallet().PrivateKey, 1_000_000, "MINT")

	assert.Equal(t, domain.FeeSkipped, outcome.Status)
	assert.Empty(t, outcome.TransactionID)
	assert.Equal(t, "0.0001", outcome.FeeAmount.String())
	assert.Equal(t, 0, rpcClient.sends)
}

func TestCollectFailsOnBalanceCheckError(t *testing.T) {
	rpcClient := &fakeChainRPC{balanceErr: errors.New("rpc timeout")}
	collector := newTestCollector(rpcClient, testFeeConfig())

	outcome := collector.Collect(context.Background(), solana.NewWallet().PrivateKey, 1_000_000, "MINT")

	assert.Equal(t, domain.FeeFailed, outcome.Status)
	assert.Contains(t, outcome.Detail, "balance check failed")
}

func TestCollectSuccess(t *testing.T) {
	rpcClient := &fakeChainRPC{
		balance: 10_000_000_000,
		statuses: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
	collector := newTestCollector(rpcClient, testFeeConfig())

	outcome := collector.Collect(context.Background(), solana.NewWallet().PrivateKey, 10_000_000_000, "MINT")

	assert.Equal(t, domain.FeeSuccess, outcome.Status)
	assert.NotEmpty(t, outcome.TransactionID)
	// 0.1% of 10 SOL
	assert.Equal(t, "0.01", outcome.FeeAmount.String())
	assert.Equal(t, 1, rpcClient.sends)
}

func TestCollectConfirmsWithinRetryBudget(t *testing.T) {
	rpcClient := &fakeChainRPC{
		balance: 10_000_000_000,
		statuses: []*rpc.SignatureStatusesResult{
			nil,
			{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
		},
	}
	collector := newTestCollector(rpcClient, testFeeConfig())

	outcome := collector.Collect(context.Background(), solana.NewWallet().PrivateKey, 10_000_000_000, "MINT")

	assert.Equal(t, domain.FeeSuccess, outcome.Status)
	assert.Equal(t, 2, rpcClient.polls)
}

func TestCollectFailsAfterExhaustedConfirmation(t *testing.T) {
	rpcClient := &fakeChainRPC{balance: 10_000_000_000}
	collector := newTestCollector(rpcClient, testFeeConfig())

	outcome := collector.Collect(context.Background(), solana.NewWallet().PrivateKey, 10_000_000_000, "MINT")

	assert.Equal(t, domain.FeeFailed, outcome.Status)
	assert.Contains(t, outcome.Detail, "not confirmed")
	assert.Equal(t, 3, rpcClient.polls)
}

func TestCollectFailsOnBroadcastError(t *testing.T) {
	rpcClient := &fakeChainRPC{balance: 10_000_000_000, sendErr: errors.New("node overloaded")}
	collector := newTestCollector(rpcClient, testFeeConfig())

	outcome := collector.Collect(context.Background(), solana.NewWallet().PrivateKey, 10_000_000_000, "MINT")

	assert.Equal(t, domain.FeeFailed, outcome.Status)
	assert.Contains(t, outcome.Detail, "submit fee transaction")
}
