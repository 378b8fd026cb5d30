// Package quote picks a workable slippage tier. Tiers are probed in ascending
// order and the first structurally valid quote wins; a tighter tier that
// validates is always preferred over a looser one with better output.
package quote

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/sell-engine/internal/api"
	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/domain"
	"github.com/hxuan190/sell-engine/internal/metrics"
)

// Backend is the slice of the trading backend the optimizer needs.
type Backend interface {
	GetQuote(ctx context.Context, req api.QuoteRequest) (*api.QuoteResponse, error)
}

type Optimizer struct {
	backend Backend
	cfg     config.TradeConfig
}

func NewOptimizer(backend Backend, cfg config.TradeConfig) *Optimizer {
	return &Optimizer{backend: backend, cfg: cfg}
}

// GetOptimalQuote probes the configured tiers sequentially. Per-tier failures
// (network or validation) are swallowed and logged; only full exhaustion
// surfaces as an error.
func (o *Optimizer) GetOptimalQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (*domain.Quote, error) {
	tiers := o.cfg.SlippageTiers()

	for _, tier := range tiers {
		tierLabel := strconv.Itoa(int(tier))

		resp, err := o.backend.GetQuote(ctx, api.QuoteRequest{
			InputMint:   inputMint,
			OutputMint:  outputMint,
			Amount:      amount,
			SlippageBps: tier,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			metrics.QuoteTierProbes.WithLabelValues(tierLabel, "error").Inc()
			log.Warn().Err(err).Uint16("slippageBps", tier).Msg("quote tier failed, trying next")
			continue
		}

		q, err := o.validate(resp, tier)
		if err != nil {
			metrics.QuoteTierProbes.WithLabelValues(tierLabel, "invalid").Inc()
			log.Warn().Err(err).Uint16("slippageBps", tier).Msg("quote tier returned malformed quote, trying next")
			continue
		}

		metrics.QuoteTierProbes.WithLabelValues(tierLabel, "accepted").Inc()

		impact, _ := q.PriceImpactPct.Float64()
		metrics.PriceImpact.Observe(impact)
		if q.PriceImpactPct.GreaterThan(o.cfg.MaxPriceImpactPct) {
			log.Warn().
				Str("priceImpactPct", q.PriceImpactPct.String()).
				Str("threshold", o.cfg.MaxPriceImpactPct.String()).
				Msg("price impact above threshold, proceeding anyway")
		}

		q.Enhance()
		log.Info().
			Uint16("slippageBps", q.SlippageBps).
			Uint64("inAmount", q.InAmount).
			Uint64("outAmount", q.OutAmount).
			Uint64("minimumOutput", q.MinimumOutput).
			Int("routeLength", q.RouteLength).
			Msg("quote accepted")
		return q, nil
	}

	return nil, common.NoQuoteError(fmt.Sprintf("all slippage tiers exhausted: %v bps", tiers))
}

// validate enforces the structural contract: mints present, both amounts
// strictly positive integers. Price impact is parsed but never rejected here.
func (o *Optimizer) validate(resp *api.QuoteResponse, tier uint16) (*domain.Quote, error) {
	if resp.InputMint == "" || resp.OutputMint == "" {
		return nil, common.ValidationError("quote missing input or output mint")
	}

	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil || inAmount == 0 {
		return nil, common.ValidationError(fmt.Sprintf("quote inAmount %q is not a positive integer", resp.InAmount))
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil || outAmount == 0 {
		return nil, common.ValidationError(fmt.Sprintf("quote outAmount %q is not a positive integer", resp.OutAmount))
	}

	impact := decimal.Zero
	if resp.PriceImpactPct != "" {
		impact, err = decimal.NewFromString(resp.PriceImpactPct)
		if err != nil {
			return nil, common.ValidationError(fmt.Sprintf("quote priceImpactPct %q is not a decimal", resp.PriceImpactPct))
		}
	}

	slippage := resp.SlippageBps
	if slippage == 0 {
		slippage = tier
	}

	return &domain.Quote{
		InputMint:      resp.InputMint,
		OutputMint:     resp.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		SlippageBps:    slippage,
		PriceImpactPct: impact,
		RouteLength:    len(resp.RoutePlan),
		Payload:        resp.Raw(),
	}, nil
}
