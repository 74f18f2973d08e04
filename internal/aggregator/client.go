// Package aggregator provides quoting and swap-transaction construction
// against a Jupiter-style swap aggregator API.
package aggregator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
)

// Sentinel errors. Neither is retried against the same quote: callers
// surface ErrQuoteUnavailable and re-quote on ErrSwapBuild.
var (
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrSwapBuild        = errors.New("swap build failed")
)

// Client defines the aggregator surface the engine consumes.
type Client interface {
	// GetQuote fetches a swap quote for an exact input amount. Any
	// aggregator failure maps to ErrQuoteUnavailable; the caller decides
	// whether to re-quote.
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.Quote, error)

	// BuildSwap exchanges a previously fetched quote for unsigned
	// transaction bytes ready to sign. An expired or unknown quote maps
	// to ErrSwapBuild; the quote is dead, re-quote before retrying.
	BuildSwap(ctx context.Context, quote *domain.Quote, signerPubkey string) ([]byte, error)
}

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.jup.ag/swap/v1"
	DefaultClientTimeout = 10 * time.Second
)

// HTTPClient implements Client against an HTTP aggregator endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	feeBps  int
	now     func() time.Time
}

// Option configures HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithPlatformFeeBps sets the platform fee applied to every quote.
func WithPlatformFeeBps(bps int) Option {
	return func(c *HTTPClient) {
		c.feeBps = bps
	}
}

// NewHTTPClient creates an aggregator client for the given base URL
// (e.g. https://api.jup.ag/swap/v1).
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultClientTimeout},
		feeBps:  domain.TradeFeeBps,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// quoteResponse is the subset of the aggregator quote payload we read.
// Amount fields arrive as decimal strings.
type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	SlippageBps    int    `json:"slippageBps"`
	Error          string `json:"error"`
}

// GetQuote fetches an ExactIn quote.
func (c *HTTPClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (quote *domain.Quote, err error) {
	defer func() { observability.RecordQuote(err) }()
	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&swapMode=ExactIn",
		c.baseURL, inputMint, outputMint, amount, slippageBps)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrQuoteUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrQuoteUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrQuoteUnavailable, err)
	}
	if qr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnavailable, qr.Error)
	}

	inAmount, err := strconv.ParseUint(qr.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: inAmount %q", ErrQuoteUnavailable, qr.InAmount)
	}
	outAmount, err := strconv.ParseUint(qr.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: outAmount %q", ErrQuoteUnavailable, qr.OutAmount)
	}

	var priceImpact float64
	if qr.PriceImpactPct != "" {
		priceImpact, err = strconv.ParseFloat(qr.PriceImpactPct, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: priceImpactPct %q", ErrQuoteUnavailable, qr.PriceImpactPct)
		}
	}

	return &domain.Quote{
		InputMint:      qr.InputMint,
		OutputMint:     qr.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		PriceImpactPct: priceImpact,
		SlippageBps:    qr.SlippageBps,
		FeeBps:         c.feeBps,
		FeeLamports:    inAmount * uint64(c.feeBps) / 10_000,
		Raw:            json.RawMessage(body),
		FetchedAt:      c.now(),
	}, nil
}

// swapRequest is the aggregator swap-build payload. The raw quote
// response acts as the quote identifier.
type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
	Error           string `json:"error"`
}

// BuildSwap posts the quote back to the aggregator and returns the
// unsigned transaction bytes.
func (c *HTTPClient) BuildSwap(ctx context.Context, quote *domain.Quote, signerPubkey string) ([]byte, error) {
	if len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: quote carries no aggregator payload", ErrSwapBuild)
	}

	body, err := json.Marshal(swapRequest{
		QuoteResponse:    quote.Raw,
		UserPublicKey:    signerPubkey,
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSwapBuild, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrSwapBuild, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSwapBuild, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSwapBuild, resp.StatusCode)
	}

	var sr swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrSwapBuild, err)
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrSwapBuild, sr.Error)
	}
	if sr.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: no transaction in response", ErrSwapBuild)
	}

	tx, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrSwapBuild, err)
	}

	return tx, nil
}
