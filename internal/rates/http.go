package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"example.com/legacyfund/internal/domain"
)

type httpOption struct {
	apiKey   string
	maxTries uint
	backOff  backoff.BackOff
	client   *http.Client
	logger   *zap.Logger
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*httpOption)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(o *httpOption) { o.apiKey = key }
}

// WithMaxTries caps attempts, the first one included. Defaults to 4.
func WithMaxTries(n uint) HTTPOption {
	return func(o *httpOption) { o.maxTries = n }
}

// WithBackOff replaces the exponential backoff between attempts.
func WithBackOff(b backoff.BackOff) HTTPOption {
	return func(o *httpOption) { o.backOff = b }
}

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(o *httpOption) { o.client = c }
}

func WithLogger(l *zap.Logger) HTTPOption {
	return func(o *httpOption) { o.logger = l }
}

// HTTPProvider reads the latest snapshot from the rates function endpoint.
type HTTPProvider struct {
	url  string
	opts httpOption
}

func NewHTTPProvider(url string, options ...HTTPOption) (*HTTPProvider, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("missing rates URL")
	}
	opts := httpOption{
		maxTries: 4,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, o := range options {
		o(&opts)
	}
	return &HTTPProvider{url: url, opts: opts}, nil
}

type ratesResponse struct {
	MXNRate float64 `json:"mxn_rate"`
	COPRate float64 `json:"cop_rate"`
	CLPRate float64 `json:"clp_rate"`
	Date    string  `json:"date"`
}

// Fetch retries transport failures, 429 and 5xx answers; other statuses fail at once.
func (p *HTTPProvider) Fetch(ctx context.Context) (domain.ExchangeRateSnapshot, error) {
	b := p.opts.backOff
	if b == nil {
		b = backoff.NewExponentialBackOff()
	}
	operation := func() (domain.ExchangeRateSnapshot, error) {
		return p.fetchOnce(ctx)
	}
	notify := func(err error, next time.Duration) {
		p.opts.logger.Warn("rates fetch failed, retrying", zap.Error(err), zap.Duration("next", next))
	}
	snap, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.opts.maxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return domain.ExchangeRateSnapshot{}, fmt.Errorf("fetch rates: %w", err)
	}
	if !snap.Loaded() {
		return domain.ExchangeRateSnapshot{}, ErrNotLoaded
	}
	return snap, nil
}

func (p *HTTPProvider) fetchOnce(ctx context.Context) (domain.ExchangeRateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return domain.ExchangeRateSnapshot{}, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if p.opts.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.opts.apiKey)
	}

	resp, err := p.opts.client.Do(req)
	if err != nil {
		return domain.ExchangeRateSnapshot{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ExchangeRateSnapshot{}, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.ExchangeRateSnapshot{}, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return domain.ExchangeRateSnapshot{}, backoff.Permanent(fmt.Errorf("HTTP error: %d (%s)", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var r ratesResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return domain.ExchangeRateSnapshot{}, backoff.Permanent(fmt.Errorf("failed to unmarshal rates: %w", err))
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return domain.ExchangeRateSnapshot{}, backoff.Permanent(err)
	}
	return domain.ExchangeRateSnapshot{MXNRate: r.MXNRate, COPRate: r.COPRate, CLPRate: r.CLPRate, Date: date}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid rate date %q", s)
	}
	return t.UTC(), nil
}
