package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyImmediate sells the full amount in one swap. Gradual strategies are
// deliberately not implemented.
const StrategyImmediate = "immediate"

type TradeConfig struct {
	// Token to sell: resolved against the backend token registry when Symbol
	// is set, otherwise Mint is used verbatim.
	TokenSymbol string
	TokenMint   string

	// Amount in base units. Zero means sell the full wallet balance.
	SellAmount uint64

	Strategy string

	MinSlippageBps     uint16
	DefaultSlippageBps uint16
	MaxSlippageBps     uint16

	// MaxPriceImpactPct triggers a warning, never a rejection.
	MaxPriceImpactPct decimal.Decimal

	WrapNativeAsset bool
	CollectFee      bool
}

// SlippageTiers returns the ascending probe order for the quote optimizer.
func (tc *TradeConfig) SlippageTiers() []uint16 {
	return []uint16{tc.MinSlippageBps, tc.DefaultSlippageBps, tc.MaxSlippageBps}
}

func (tc *TradeConfig) Load() error {
	tc.TokenSymbol = getEnvOrDefault("TOKEN_SYMBOL", "")
	tc.TokenMint = getEnvOrDefault("TOKEN_MINT", "")
	tc.SellAmount = uint64(getEnvOrDefaultInt("SELL_AMOUNT_BASE_UNITS", 0))
	tc.Strategy = getEnvOrDefault("SELL_STRATEGY", StrategyImmediate)
	tc.MinSlippageBps = uint16(getEnvOrDefaultInt("MIN_SLIPPAGE_BPS", 50))
	tc.DefaultSlippageBps = uint16(getEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 75))
	tc.MaxSlippageBps = uint16(getEnvOrDefaultInt("MAX_SLIPPAGE_BPS", 100))
	tc.MaxPriceImpactPct = decimal.RequireFromString(getEnvOrDefault("MAX_PRICE_IMPACT_PCT", "5"))
	tc.WrapNativeAsset = getEnvOrDefaultBool("WRAP_NATIVE_ASSET", true)
	tc.CollectFee = getEnvOrDefaultBool("COLLECT_FEE", true)
	return tc.Validate()
}

func (tc *TradeConfig) Validate() error {
	if tc.TokenSymbol == "" && tc.TokenMint == "" {
		return errors.New("either TOKEN_SYMBOL or TOKEN_MINT is required")
	}
	if tc.Strategy != StrategyImmediate {
		return fmt.Errorf("unsupported sell strategy %q: only %q is implemented", tc.Strategy, StrategyImmediate)
	}
	if tc.MinSlippageBps > tc.DefaultSlippageBps || tc.DefaultSlippageBps > tc.MaxSlippageBps {
		return errors.New("slippage tiers must be ascending: min <= default <= max")
	}
	if tc.MaxSlippageBps > 10000 {
		return errors.New("slippage cannot exceed 10000 bps")
	}
	return nil
}
