// Package fee implements best-effort service fee collection. Collect never
// returns an error: every failure mode is encoded in the FeeOutcome status so
// a fee problem can never taint a confirmed swap.
package fee

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/sell-engine/internal/chain"
	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/domain"
	"github.com/hxuan190/sell-engine/internal/metrics"
	"github.com/hxuan190/sell-engine/internal/priority"
	"github.com/hxuan190/sell-engine/internal/retry"
)

const (
	confirmBaseDelay = 1000 * time.Millisecond

	// transferComputeUnits caps a single system transfer plus compute budget
	// instructions.
	transferComputeUnits = 2000
)

// ChainRPC is the slice of the Solana RPC client the collector needs.
type ChainRPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	SendRawTransactionWithOpts(ctx context.Context, txBytes []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type Collector struct {
	rpcClient ChainRPC
	blockhash *chain.BlockhashCache
	fees      *priority.FeeCalculator
	cfg       config.FeeConfig

	sleep retry.SleepFunc
}

func NewCollector(rpcClient ChainRPC, blockhash *chain.BlockhashCache, fees *priority.FeeCalculator, cfg config.FeeConfig) *Collector {
	return &Collector{
		rpcClient: rpcClient,
		blockhash: blockhash,
		fees:      fees,
		cfg:       cfg,
		sleep:     retry.Sleep,
	}
}

// WithSleep replaces the confirmation backoff sleeper. Tests use this.
func (c *Collector) WithSleep(sleep retry.SleepFunc) *Collector {
	c.sleep = sleep
	return c
}

// FeeLamports computes max(minFloor, floor(swapInputAmount * rateBps / 10000)).
func FeeLamports(swapInputAmount uint64, rateBps uint16, minFloor uint64) uint64 {
	fee := new(big.Int).Mul(new(big.Int).SetUint64(swapInputAmount), big.NewInt(int64(rateBps)))
	fee.Div(fee, big.NewInt(10000))
	if v := fee.Uint64(); v > minFloor {
		return v
	}
	return minFloor
}

// Collect computes and transfers the service fee in SOL, regardless of the
// swap's input asset. The inputAsset is recorded for the log only.
func (c *Collector) Collect(ctx context.Context, signer solana.PrivateKey, swapInputAmount uint64, inputAsset string) domain.FeeOutcome {
	feeLamports := FeeLamports(swapInputAmount, c.cfg.FeeRateBps, c.cfg.MinFeeLamports)

	outcome := domain.FeeOutcome{
		FeeAmount: domain.LamportsToSol(feeLamports),
		FeeAsset:  common.SolAsset,
	}

	finish := func(o domain.FeeOutcome) domain.FeeOutcome {
		metrics.FeeOutcomes.WithLabelValues(string(o.Status)).Inc()
		log.Info().
			Str("status", string(o.Status)).
			Str("feeAmount", o.FeeAmount.String()).
			Str("inputAsset", inputAsset).
			Str("detail", o.Detail).
			Msg("fee collection finished")
		return o
	}

	balRes, err := c.rpcClient.GetBalance(ctx, signer.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		outcome.Status = domain.FeeFailed
		outcome.Detail = fmt.Sprintf("balance check failed: %v", err)
		return finish(outcome)
	}

	required := feeLamports + c.cfg.NetworkFeeBufferLamports
	if balRes.Value < required {
		outcome.Status = domain.FeeSkipped
		outcome.Detail = fmt.Sprintf("balance %d lamports below fee %d plus network buffer %d",
			balRes.Value, feeLamports, c.cfg.NetworkFeeBufferLamports)
		return finish(outcome)
	}

	sig, err := c.transfer(ctx, signer, feeLamports)
	if err != nil {
		outcome.Status = domain.FeeFailed
		outcome.Detail = err.Error()
		return finish(outcome)
	}

	outcome.Status = domain.FeeSuccess
	outcome.TransactionID = sig.String()
	return finish(outcome)
}

// transfer builds, signs, and submits the single-instruction fee transfer,
// then confirms it under the collector's own bounded retry budget.
func (c *Collector) transfer(ctx context.Context, signer solana.PrivateKey, feeLamports uint64) (solana.Signature, error) {
	blockhash, _, err := c.blockhash.GetBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("fetch blockhash: %w", err)
	}

	feeRes, err := c.fees.GetOptimalFee(ctx, priority.UrgencyLow, []solana.PublicKey{signer.PublicKey()})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("priority fee estimate: %w", err)
	}

	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(transferComputeUnits).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(feeRes.FeePerCU).Build(),
		system.NewTransferInstruction(feeLamports, signer.PublicKey(), c.cfg.CollectorAddress).Build(),
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build fee transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign fee transaction: %w", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("serialize fee transaction: %w", err)
	}

	maxRetries := uint(0)
	sig, err := c.rpcClient.SendRawTransactionWithOpts(ctx, txBytes, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("submit fee transaction: %w", err)
	}

	if err := c.confirm(ctx, sig); err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (c *Collector) confirm(ctx context.Context, sig solana.Signature) error {
	attempts := c.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("fee confirmation poll failed")
		} else if len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return fmt.Errorf("fee transaction %s failed on-chain: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		if attempt < attempts {
			if serr := c.sleep(ctx, confirmBaseDelay*time.Duration(1<<attempt)); serr != nil {
				return fmt.Errorf("fee confirmation interrupted: %w", serr)
			}
		}
	}
	return fmt.Errorf("fee transaction %s not confirmed after %d attempts", sig, attempts)
}
