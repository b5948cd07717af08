package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"pricetracker/internal/httpx"
	"pricetracker/internal/provider"
)

const (
	defaultBaseURL  = "https://query1.finance.yahoo.com"
	defaultMaxTries = 5

	initialWait = 1 * time.Second
	maxWait     = 16 * time.Second
	maxJitter   = 500 * time.Millisecond
)

type Config struct {
	Name    string
	BaseURL string
	// MaxTries bounds fetch attempts, 0 means the default of 5.
	MaxTries int
}

// Provider is the universal fallback: it pulls the last 10 calendar days of
// daily history from Yahoo's chart endpoint and uses the latest non-null
// close, rounded to 4 decimal places. Failed attempts back off exponentially
// (1s doubling up to 16s) with uniform jitter in [0, 500ms) added every
// attempt; rate-limit failures are retried like any other.
type Provider struct {
	cfg    Config
	client *httpx.Client

	// sleep and jitter are swapped out in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = defaultMaxTries
	}
	return &Provider{
		cfg:    cfg,
		client: hc,
		sleep:  sleepCtx,
		jitter: func() time.Duration { return time.Duration(rand.Int63n(int64(maxJitter))) },
	}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialWait
	bo.Multiplier = 2
	bo.MaxInterval = maxWait
	bo.RandomizationFactor = 0 // jitter is added separately, additively
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	for try := 0; try < p.cfg.MaxTries; try++ {
		q, err := p.fetchOnce(ctx, symbol)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if err := p.sleep(ctx, bo.NextBackOff()+p.jitter()); err != nil {
			return provider.Quote{}, err
		}
	}
	if lastErr == nil {
		lastErr = provider.ErrNoData
	}
	return provider.Quote{}, fmt.Errorf("yahoo %s: %w", symbol, lastErr)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *Provider) fetchOnce(ctx context.Context, symbol string) (provider.Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=10d&interval=1d",
		strings.TrimRight(p.cfg.BaseURL, "/"), strings.ToUpper(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return provider.Quote{}, err
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return provider.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return provider.Quote{}, fmt.Errorf("%w: yahoo chart -> 429", provider.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.Quote{}, fmt.Errorf("GET yahoo chart -> %d", resp.StatusCode)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return provider.Quote{}, fmt.Errorf("decode: %w", err)
	}
	if body.Chart.Error != nil {
		return provider.Quote{}, fmt.Errorf("yahoo chart error: %s (%s)", body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return provider.Quote{}, fmt.Errorf("%w: empty yahoo history", provider.ErrNoData)
	}

	result := body.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	// Latest non-null close wins.
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		asOf := time.Now().UTC()
		if i < len(result.Timestamp) {
			asOf = time.Unix(result.Timestamp[i], 0).UTC()
		}
		return provider.Quote{
			Symbol: symbol,
			Price:  round4(*closes[i]),
			AsOf:   asOf,
			Source: p.cfg.Name,
		}, nil
	}
	return provider.Quote{}, fmt.Errorf("%w: empty yahoo history", provider.ErrNoData)
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
