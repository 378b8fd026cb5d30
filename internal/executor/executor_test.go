package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/sell-engine/internal/api"
	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/domain"
	"github.com/hxuan190/sell-engine/internal/priority"
)

type fakeBackend struct {
	swapTx       string
	buildErr     error
	buildReq     api.SwapBuildRequest
	walletErr    error
	balanceAfter decimal.Decimal
}

func (f *fakeBackend) BuildSwap(ctx context.Context, req api.SwapBuildRequest) (*api.SwapBuildResponse, error) {
	f.buildReq = req
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &api.SwapBuildResponse{SwapTransaction: f.swapTx, LastValidBlockHeight: 1000}, nil
}

func (f *fakeBackend) GetMotherWallet(ctx context.Context, publicKey string) (*api.MotherWallet, error) {
	if f.walletErr != nil {
		return nil, f.walletErr
	}
	return &api.MotherWallet{PublicKey: publicKey, BalanceSol: f.balanceAfter}, nil
}

type fakeChain struct {
	sendErr error
	sends   int

	// statuses is consumed one entry per poll; nil entries mean "not seen".
	statuses []*rpc.SignatureStatusesResult
	polls    int
}

func (f *fakeChain) SendRawTransactionWithOpts(ctx context.Context, txBytes []byte, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.sends++
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return solana.Signature{1, 2, 3}, nil
}

func (f *fakeChain) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var status *rpc.SignatureStatusesResult
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}, nil
}

type fakeFees struct{}

func (fakeFees) GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error) {
	return nil, errors.New("rpc unavailable")
}

type fakeCollector struct {
	called  bool
	amount  uint64
	asset   string
	outcome domain.FeeOutcome
}

func (f *fakeCollector) Collect(ctx context.Context, signer solana.PrivateKey, swapInputAmount uint64, inputAsset string) domain.FeeOutcome {
	f.called = true
	f.amount = swapInputAmount
	f.asset = inputAsset
	return f.outcome
}

func testSwapTx(t *testing.T, signer solana.PrivateKey) string {
	t.Helper()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, signer.PublicKey(), solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(signer.PublicKey()),
	)
	require.NoError(t, err)

	b64, err := tx.ToBase64()
	require.NoError(t, err)
	return b64
}

func testQuote() *domain.Quote {
	q := &domain.Quote{
		InputMint:   "MINT",
		OutputMint:  common.WSOLMint,
		InAmount:    1_000_000,
		OutAmount:   2_000_000_000,
		SlippageBps: 50,
		Payload:     []byte(`{"inputMint":"MINT"}`),
	}
	q.Enhance()
	return q
}

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func confirmedStatus() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

func newTestExecutor(backend *fakeBackend, chain *fakeChain, collector Collector) *Executor {
	return New(backend, chain, priority.NewFeeCalculator(fakeFees{}), collector, true)
}

func TestExecuteSwapHappyPath(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	backend := &fakeBackend{
		swapTx:       testSwapTx(t, signer),
		balanceAfter: decimal.RequireFromString("1.5"),
	}
	chain := &fakeChain{statuses: []*rpc.SignatureStatusesResult{confirmedStatus()}}
	collector := &fakeCollector{outcome: domain.FeeOutcome{Status: domain.FeeSuccess, FeeAsset: common.SolAsset}}

	var delays []time.Duration
	exec := newTestExecutor(backend, chain, collector).WithSleep(recordingSleep(&delays))

	result, err := exec.ExecuteSwap(context.Background(), testQuote(), signer, true)

	require.NoError(t, err)
	assert.Equal(t, 1, chain.sends)
	assert.Equal(t, 1, chain.polls)
	assert.Empty(t, delays)
	assert.NotEmpty(t, result.TransactionID)
	assert.Equal(t, "1.5", result.ConfirmedBalanceSol.String())

	require.NotNil(t, result.FeeCollection)
	assert.Equal(t, domain.FeeSuccess, result.FeeCollection.Status)
	assert.True(t, collector.called)
	assert.Equal(t, uint64(1_000_000), collector.amount)
	assert.Equal(t, "MINT", collector.asset)

	assert.Equal(t, signer.PublicKey().String(), backend.buildReq.UserPublicKey)
	assert.JSONEq(t, `{"inputMint":"MINT"}`, string(backend.buildReq.QuoteResponse))
	assert.True(t, backend.buildReq.WrapAndUnwrapSol)
}

func TestExecuteSwapSkipsFeeWhenDisabled(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	backend := &fakeBackend{swapTx: testSwapTx(t, signer)}
	chain := &fakeChain{statuses: []*rpc.SignatureStatusesResult{confirmedStatus()}}
	collector := &fakeCollector{}

	exec := newTestExecutor(backend, chain, collector)
	result, err := exec.ExecuteSwap(context.Background(), testQuote(), signer, false)

	require.NoError(t, err)
	assert.Nil(t, result.FeeCollection)
	assert.False(t, collector.called)
}

func TestExecuteSwapConfirmationExhaustionIsUnknown(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	backend := &fakeBackend{swapTx: testSwapTx(t, signer)}
	chain := &fakeChain{} // every poll returns a nil status
	collector := &fakeCollector{}

	var delays []time.Duration
	exec := newTestExecutor(backend, chain, collector).WithSleep(recordingSleep(&delays))

	_, err := exec.ExecuteSwap(context.Background(), testQuote(), signer, true)

	require.Error(t, err)
	var domainErr *common.Error
	require.ErrorAs(t, err, &domainErr)
	assert.True(t, domainErr.Unknown)
	assert.NotEmpty(t, domainErr.Signature)

	assert.Equal(t, 5, chain.polls)
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, delays)
	// ambiguous outcome must not trigger fee collection
	assert.False(t, collector.called)
}

func TestExecuteSwapOnChainErrorIsFatal(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	backend := &fakeBackend{swapTx: testSwapTx(t, signer)}
	chain := &fakeChain{statuses: []*rpc.SignatureStatusesResult{
		{Err: map[string]any{"InstructionError": []any{0, "Custom"}}},
	}}

	var delays []time.Duration
	exec := newTestExecutor(backend, chain, &fakeCollector{}).WithSleep(recordingSleep(&delays))

	_, err := exec.ExecuteSwap(context.Background(), testQuote(), signer, true)

	require.Error(t, err)
	var domainErr *common.Error
	require.ErrorAs(t, err, &domainErr)
	assert.False(t, domainErr.Unknown)
	assert.Equal(t, common.KindTransaction, domainErr.Kind)

	assert.Equal(t, 1, chain.polls)
	assert.Empty(t, delays)
}

func TestExecuteSwapBroadcastRejection(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	backend := &fakeBackend{swapTx: testSwapTx(t, signer)}
	chain := &fakeChain{sendErr: errors.New("blockhash not found")}

	exec := newTestExecutor(backend, chain, &fakeCollector{})
	_, err := exec.ExecuteSwap(context.Background(), testQuote(), signer, true)

	require.Error(t, err)
	var domainErr *common.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, common.KindTransaction, domainErr.Kind)
	assert.False(t, domainErr.Unknown)
	assert.Equal(t, 0, chain.polls)
}

func TestExecuteSwapBalanceFetchFailureIsNonFatal(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	backend := &fakeBackend{
		swapTx:    testSwapTx(t, signer),
		walletErr: common.NetworkError("/wallets/mother", errors.New("timeout")),
	}
	chain := &fakeChain{statuses: []*rpc.SignatureStatusesResult{confirmedStatus()}}

	exec := newTestExecutor(backend, chain, &fakeCollector{})
	result, err := exec.ExecuteSwap(context.Background(), testQuote(), signer, false)

	require.NoError(t, err)
	assert.True(t, result.ConfirmedBalanceSol.IsZero())
	assert.NotEmpty(t, result.TransactionID)
}

func TestDecodeTransactionRejectsGarbage(t *testing.T) {
	_, err := decodeTransaction("not base64 at all!!!")
	require.Error(t, err)
	kind, _ := common.KindOf(err)
	assert.Equal(t, common.KindValidation, kind)
}

func TestDecodeTransactionRoundTrip(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	tx, err := decodeTransaction(testSwapTx(t, signer))
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey(), tx.Message.AccountKeys[0])
}
