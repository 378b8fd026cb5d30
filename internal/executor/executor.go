// Package executor drives one swap through its full lifecycle: obtain the
// unsigned transaction, sign locally, broadcast once, and poll a bounded
// confirmation loop. Fee collection is delegated and never fails the swap.
package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/sell-engine/internal/api"
	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/domain"
	"github.com/hxuan190/sell-engine/internal/metrics"
	"github.com/hxuan190/sell-engine/internal/priority"
	"github.com/hxuan190/sell-engine/internal/retry"
)

// State is the swap lifecycle position. Confirmed, Failed, and Unknown are
// terminal; Unknown means the transaction was broadcast but its fate could
// not be established, which is distinct from a clean failure.
type State uint8

const (
	StateRequested State = iota
	StateTxObtained
	StateSigned
	StateSubmitted
	StateConfirming
	StateConfirmed
	StateFailed
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "REQUESTED"
	case StateTxObtained:
		return "TX_OBTAINED"
	case StateSigned:
		return "SIGNED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateConfirming:
		return "CONFIRMING"
	case StateConfirmed:
		return "CONFIRMED"
	case StateFailed:
		return "FAILED"
	case StateUnknown:
		return "UNKNOWN"
	}
	return "INVALID"
}

const (
	confirmAttempts  = 5
	confirmBaseDelay = 1000 * time.Millisecond

	// estimatedComputeUnits sizes the prioritization fee for a typical
	// aggregator route; the backend bakes the fee into the transaction.
	estimatedComputeUnits = 200_000

	microLamportsPerLamport = 1_000_000
)

// Backend is the slice of the trading backend the executor needs.
type Backend interface {
	BuildSwap(ctx context.Context, req api.SwapBuildRequest) (*api.SwapBuildResponse, error)
	GetMotherWallet(ctx context.Context, publicKey string) (*api.MotherWallet, error)
}

// ChainRPC is the slice of the Solana RPC client the executor needs.
type ChainRPC interface {
	SendRawTransactionWithOpts(ctx context.Context, txBytes []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Collector is implemented by the fee package; the executor only sees the
// tri-state outcome.
type Collector interface {
	Collect(ctx context.Context, signer solana.PrivateKey, swapInputAmount uint64, inputAsset string) domain.FeeOutcome
}

type Executor struct {
	backend   Backend
	chainRPC  ChainRPC
	fees      *priority.FeeCalculator
	collector Collector

	wrapNativeAsset bool

	sleep retry.SleepFunc
}

func New(backend Backend, chainRPC ChainRPC, fees *priority.FeeCalculator, collector Collector, wrapNativeAsset bool) *Executor {
	return &Executor{
		backend:         backend,
		chainRPC:        chainRPC,
		fees:            fees,
		collector:       collector,
		wrapNativeAsset: wrapNativeAsset,
		sleep:           retry.Sleep,
	}
}

// WithSleep replaces the confirmation backoff sleeper. Tests use this.
func (e *Executor) WithSleep(sleep retry.SleepFunc) *Executor {
	e.sleep = sleep
	return e
}

// ExecuteSwap runs the state machine for one sale. Any failure before the
// broadcast is propagated as-is: the swap never happened. After a successful
// broadcast the error carries the signature, and an exhausted confirmation
// budget is reported as the Unknown terminal state rather than a failure.
func (e *Executor) ExecuteSwap(ctx context.Context, quote *domain.Quote, signer solana.PrivateKey, collectFee bool) (*domain.SwapResult, error) {
	e.transition(StateRequested)

	// The priority fee is sampled from live network conditions and handed to
	// the build request: a server-built v0 transaction cannot be amended with
	// compute budget instructions after the fact.
	feeRes, err := e.fees.GetOptimalFee(ctx, priority.UrgencyMedium, []solana.PublicKey{signer.PublicKey()})
	if err != nil {
		return nil, fmt.Errorf("priority fee estimate: %w", err)
	}
	prioritizationLamports := feeRes.GetFeeForAmount(estimatedComputeUnits) / microLamportsPerLamport

	build, err := e.backend.BuildSwap(ctx, api.SwapBuildRequest{
		UserPublicKey:             signer.PublicKey().String(),
		QuoteResponse:             quote.Payload,
		WrapAndUnwrapSol:          e.wrapNativeAsset,
		AsLegacyTransaction:       false,
		CollectFees:               collectFee,
		PrioritizationFeeLamports: prioritizationLamports,
	})
	if err != nil {
		return nil, err
	}
	e.transition(StateTxObtained)

	tx, err := decodeTransaction(build.SwapTransaction)
	if err != nil {
		return nil, err
	}

	// The key is used here and nowhere downstream.
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	}); err != nil {
		return nil, common.TransactionError("", "failed to sign transaction", err)
	}
	e.transition(StateSigned)

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return nil, common.TransactionError("", "failed to serialize signed transaction", err)
	}

	// Single broadcast with preflight on; the RPC node's own rebroadcast is
	// disabled because this component owns the retry discipline.
	maxRetries := uint(0)
	sig, err := e.chainRPC.SendRawTransactionWithOpts(ctx, txBytes, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		e.transition(StateFailed)
		return nil, common.TransactionError("", "broadcast rejected", err)
	}
	e.transition(StateSubmitted)
	log.Info().Str("signature", sig.String()).Uint64("priorityFeeLamports", prioritizationLamports).Msg("swap transaction submitted")

	e.transition(StateConfirming)
	if err := e.confirm(ctx, sig); err != nil {
		var terminal State = StateFailed
		if ce, ok := err.(*common.Error); ok && ce.Unknown {
			terminal = StateUnknown
		}
		e.transition(terminal)
		return nil, err
	}
	e.transition(StateConfirmed)

	balance := decimal.Zero
	wallet, err := e.backend.GetMotherWallet(ctx, signer.PublicKey().String())
	if err != nil {
		// The swap is confirmed; a failed balance read is informational only.
		log.Warn().Err(err).Msg("confirmed balance fetch failed")
	} else {
		balance = wallet.BalanceSol
	}

	result := &domain.SwapResult{
		TransactionID:       sig.String(),
		ConfirmedBalanceSol: balance,
	}

	if collectFee && e.collector != nil {
		outcome := e.collector.Collect(ctx, signer, quote.InAmount, quote.InputMint)
		result.FeeCollection = &outcome
	}

	return result, nil
}

// confirm polls signature status up to confirmAttempts times, sleeping
// 1000ms * 2^attempt between polls. An on-chain execution error is fatal
// immediately: the transaction ran and failed, there is nothing to wait for.
func (e *Executor) confirm(ctx context.Context, sig solana.Signature) error {
	for attempt := 1; attempt <= confirmAttempts; attempt++ {
		res, err := e.chainRPC.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("confirmation status poll failed")
		} else if len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return common.TransactionError(sig.String(), fmt.Sprintf("on-chain execution error: %v", status.Err), nil)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				metrics.ConfirmationAttempts.Observe(float64(attempt))
				return nil
			}
		}

		if attempt < confirmAttempts {
			if serr := e.sleep(ctx, confirmBaseDelay*time.Duration(1<<attempt)); serr != nil {
				return common.TransactionUnknownError(sig.String(), "confirmation interrupted: "+serr.Error())
			}
		}
	}
	return common.TransactionUnknownError(sig.String(),
		fmt.Sprintf("not confirmed after %d attempts", confirmAttempts))
}

func (e *Executor) transition(s State) {
	metrics.SwapStates.WithLabelValues(s.String()).Inc()
	log.Debug().Str("state", s.String()).Msg("swap state transition")
}

// decodeTransaction deserializes the backend's base64 payload, trying the
// versioned format first and falling back to legacy.
func decodeTransaction(payload string) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromBase64(payload)
	if err == nil {
		return tx, nil
	}

	raw, decErr := base64.StdEncoding.DecodeString(payload)
	if decErr != nil {
		return nil, common.ValidationError(fmt.Sprintf("swap transaction is not valid base64: %v", decErr))
	}

	legacy := new(solana.Transaction)
	legacy.Message.SetVersion(solana.MessageVersionLegacy)
	if legErr := legacy.UnmarshalWithDecoder(bin.NewBinDecoder(raw)); legErr != nil {
		return nil, common.ValidationError(
			fmt.Sprintf("cannot deserialize swap transaction (versioned: %v, legacy: %v)", err, legErr))
	}
	return legacy, nil
}
