// Package seller drives one sale end to end: resolve the token, size the
// order, probe for a quote, then hand off to the swap executor.
package seller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/sell-engine/internal/api"
	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/domain"
)

// Backend covers the token registry and balance lookups the seller needs
// before a quote can even be requested.
type Backend interface {
	GetTokens(ctx context.Context) (map[string]string, error)
	GetTokenBalance(ctx context.Context, publicKey, mint string) (*api.TokenBalance, error)
}

type QuoteProvider interface {
	GetOptimalQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (*domain.Quote, error)
}

type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, quote *domain.Quote, signer solana.PrivateKey, collectFee bool) (*domain.SwapResult, error)
}

type Seller struct {
	backend  Backend
	quotes   QuoteProvider
	executor SwapExecutor
	cfg      config.TradeConfig
	signer   solana.PrivateKey
}

func New(backend Backend, quotes QuoteProvider, executor SwapExecutor, cfg config.TradeConfig, signer solana.PrivateKey) *Seller {
	return &Seller{
		backend:  backend,
		quotes:   quotes,
		executor: executor,
		cfg:      cfg,
		signer:   signer,
	}
}

// Run performs exactly one sale session under ctx. The ctx deadline is the
// session budget: once it fires, every pending stage aborts.
func (s *Seller) Run(ctx context.Context) (*domain.SwapResult, error) {
	mint, err := s.resolveMint(ctx)
	if err != nil {
		return nil, err
	}

	amount, err := s.resolveAmount(ctx, mint)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("mint", mint).
		Uint64("amount", amount).
		Str("strategy", s.cfg.Strategy).
		Msg("starting sell session")

	quote, err := s.quotes.GetOptimalQuote(ctx, mint, common.WSOLMint, amount)
	if err != nil {
		return nil, err
	}

	result, err := s.executor.ExecuteSwap(ctx, quote, s.signer, s.cfg.CollectFee)
	if err != nil {
		return nil, err
	}

	ev := log.Info().
		Str("transactionId", result.TransactionID).
		Str("confirmedBalanceSol", result.ConfirmedBalanceSol.String())
	if result.FeeCollection != nil {
		ev = ev.Str("feeStatus", string(result.FeeCollection.Status))
	}
	ev.Msg("sell session complete")

	return result, nil
}

// resolveMint prefers an explicit mint address over a symbol lookup against
// the backend token registry.
func (s *Seller) resolveMint(ctx context.Context) (string, error) {
	if s.cfg.TokenMint != "" {
		return s.cfg.TokenMint, nil
	}

	tokens, err := s.backend.GetTokens(ctx)
	if err != nil {
		return "", err
	}

	if mint, ok := tokens[s.cfg.TokenSymbol]; ok {
		return mint, nil
	}
	for symbol, mint := range tokens {
		if strings.EqualFold(symbol, s.cfg.TokenSymbol) {
			return mint, nil
		}
	}
	return "", common.ValidationError(fmt.Sprintf("token symbol %q not found in registry of %d tokens", s.cfg.TokenSymbol, len(tokens)))
}

// resolveAmount returns the configured sell amount, or the full wallet
// balance when no amount was configured.
func (s *Seller) resolveAmount(ctx context.Context, mint string) (uint64, error) {
	if s.cfg.SellAmount > 0 {
		return s.cfg.SellAmount, nil
	}

	balance, err := s.backend.GetTokenBalance(ctx, s.signer.PublicKey().String(), mint)
	if err != nil {
		return 0, err
	}
	if balance.Balance == 0 {
		return 0, common.ValidationError(fmt.Sprintf("wallet holds no balance of %s", mint))
	}

	log.Debug().
		Uint64("balance", balance.Balance).
		Uint8("decimals", balance.Decimals).
		Msg("selling full token balance")
	return balance.Balance, nil
}
