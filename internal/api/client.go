// Package api is the retrying client for the trading backend. Transient
// failures (transport errors, 429, 408, 5xx) are absorbed here behind the
// shared retry policy; callers only ever see a typed error after the budget
// is spent, or a fatal one immediately.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/domain"
	"github.com/hxuan190/sell-engine/internal/metrics"
	"github.com/hxuan190/sell-engine/internal/retry"
)

const (
	tokensTTL      = 60 * time.Second
	tokensCacheKey = "tokens"

	maxErrorBodyLen = 512
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	policy     domain.RetryPolicy
	sleep      retry.SleepFunc

	tokenCache *TTLCache[string, map[string]string]
}

func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		policy: domain.RetryPolicy{
			MaxAttempts:   cfg.MaxRetries,
			BaseDelay:     cfg.RetryBaseDelay,
			BackoffFactor: cfg.BackoffFactor,
		},
		sleep:      retry.Sleep,
		tokenCache: NewTTLCache[string, map[string]string](tokensTTL),
	}
}

// WithSleep replaces the backoff sleeper. Tests use this to observe delays.
func (c *Client) WithSleep(sleep retry.SleepFunc) *Client {
	c.sleep = sleep
	return c
}

// Execute issues one backend call under the retry policy. retryOverride, when
// non-nil, replaces the configured max retries for this call only. The
// returned bytes are the raw response body of the first successful try.
func (c *Client) Execute(ctx context.Context, method, endpoint string, payload any, retryOverride *int) ([]byte, error) {
	policy := c.policy
	if retryOverride != nil {
		policy = policy.WithMaxAttempts(*retryOverride)
	}

	var body []byte
	err := retry.Do(ctx, policy, c.sleep, func(attempt int) error {
		if attempt > 1 {
			metrics.BackendRetries.WithLabelValues(endpoint).Inc()
			log.Warn().Str("endpoint", endpoint).Int("attempt", attempt).Msg("retrying backend request")
		}
		b, err := c.do(ctx, method, endpoint, payload)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := sonic.Marshal(payload)
		if err != nil {
			return nil, common.ValidationError(fmt.Sprintf("encode request for %s: %v", endpoint, err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, common.ValidationError(fmt.Sprintf("build request for %s: %v", endpoint, err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, common.NetworkError(endpoint, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("endpoint", endpoint).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "read_error").Inc()
		return nil, common.NetworkError(endpoint, err)
	}

	metrics.BackendRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBodyLen {
			msg = msg[:maxErrorBodyLen]
		}
		return nil, common.HTTPStatusError(resp.StatusCode, endpoint, msg)
	}

	return body, nil
}

// GetTokens returns the backend token registry (symbol -> mint), cached for a
// short TTL since the registry changes rarely within one session.
func (c *Client) GetTokens(ctx context.Context) (map[string]string, error) {
	if cached, ok := c.tokenCache.Get(tokensCacheKey); ok {
		return cached, nil
	}

	body, err := c.Execute(ctx, http.MethodGet, "/jupiter/tokens", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope tokensEnvelope
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, common.ValidationError(fmt.Sprintf("decode tokens response: %v", err))
	}
	if len(envelope.Tokens) == 0 {
		return nil, common.ValidationError("tokens response has no tokens field")
	}

	c.tokenCache.Set(tokensCacheKey, envelope.Tokens)
	return envelope.Tokens, nil
}

// GetQuote requests one quote at the given slippage tier. A response without
// a quoteResponse object is fatal: the request itself succeeded, so there is
// nothing to retry.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	body, err := c.Execute(ctx, http.MethodPost, "/jupiter/quote", req, nil)
	if err != nil {
		return nil, err
	}

	var envelope quoteEnvelope
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, common.ValidationError(fmt.Sprintf("decode quote response: %v", err))
	}
	if len(envelope.QuoteResponse) == 0 {
		return nil, common.ValidationError("quote response missing quoteResponse object")
	}

	var quote QuoteResponse
	if err := sonic.Unmarshal(envelope.QuoteResponse, &quote); err != nil {
		return nil, common.ValidationError(fmt.Sprintf("decode quoteResponse object: %v", err))
	}
	quote.raw = envelope.QuoteResponse
	return &quote, nil
}

// BuildSwap asks the backend to assemble the unsigned swap transaction for
// the quoted route and the signer's public identity.
func (c *Client) BuildSwap(ctx context.Context, req SwapBuildRequest) (*SwapBuildResponse, error) {
	body, err := c.Execute(ctx, http.MethodPost, "/jupiter/swap", req, nil)
	if err != nil {
		return nil, err
	}

	var resp SwapBuildResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, common.ValidationError(fmt.Sprintf("decode swap response: %v", err))
	}
	if resp.SwapTransaction == "" {
		return nil, common.ValidationError("swap response missing swapTransaction")
	}
	return &resp, nil
}

// GetMotherWallet fetches the SOL balance of the selling wallet.
func (c *Client) GetMotherWallet(ctx context.Context, publicKey string) (*MotherWallet, error) {
	body, err := c.Execute(ctx, http.MethodGet, "/wallets/mother/"+publicKey, nil, nil)
	if err != nil {
		return nil, err
	}

	var wallet MotherWallet
	if err := sonic.Unmarshal(body, &wallet); err != nil {
		return nil, common.ValidationError(fmt.Sprintf("decode wallet response: %v", err))
	}
	if wallet.PublicKey == "" {
		return nil, common.ValidationError("wallet response missing publicKey")
	}
	return &wallet, nil
}

// GetTokenBalance fetches the wallet's balance of one SPL token in base units.
func (c *Client) GetTokenBalance(ctx context.Context, publicKey, mint string) (*TokenBalance, error) {
	body, err := c.Execute(ctx, http.MethodGet, "/wallets/token-balance/"+publicKey+"/"+mint, nil, nil)
	if err != nil {
		return nil, err
	}

	var balance TokenBalance
	if err := sonic.Unmarshal(body, &balance); err != nil {
		return nil, common.ValidationError(fmt.Sprintf("decode token balance response: %v", err))
	}
	return &balance, nil
}
