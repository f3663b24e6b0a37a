package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hongminglow/papertrade/internal/models"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var _ Provider = (*Client)(nil)

// Client calls GET {baseURL}/stock/{symbol}/quote?token={apiKey}.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries uint64
	backoff    time.Duration
	log        logrus.FieldLogger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff sets the base delay between retries.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) { c.backoff = base }
}

// NewClient creates a client. timeout bounds each attempt; maxRetries counts
// attempts after the first one.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries uint64, log logrus.FieldLogger, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    200 * time.Millisecond,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type iexQuote struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	LatestPrice *float64 `json:"latestPrice"`
}

// Lookup resolves symbol. Transport failures and 5xx answers are retried with
// exponential backoff; unknown symbols and malformed bodies are not.
func (c *Client) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Quote{}, ErrSymbolNotFound
	}

	var out models.Quote
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		q, err := c.fetch(ctx, symbol)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				c.log.WithFields(logrus.Fields{"symbol": symbol, "attempt": attempt}).WithError(err).Warn("quote lookup failed")
				return retry.RetryableError(err)
			}
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSymbolNotFound) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrUnavailable) {
			return models.Quote{}, err
		}
		return models.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (models.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/stock/%s/quote?%s", c.baseURL, url.PathEscape(symbol), url.Values{"token": {c.apiKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Quote{}, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.Quote{}, ErrSymbolNotFound
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return models.Quote{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return models.Quote{}, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var payload iexQuote
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	resolved := NormalizeSymbol(payload.Symbol)
	if resolved == "" || payload.LatestPrice == nil || *payload.LatestPrice <= 0 {
		return models.Quote{}, ErrMalformedResponse
	}

	return models.Quote{
		Symbol: resolved,
		Name:   payload.CompanyName,
		Price:  decimal.NewFromFloat(*payload.LatestPrice),
	}, nil
}
