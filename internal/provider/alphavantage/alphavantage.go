package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"pricetracker/internal/httpx"
	"pricetracker/internal/instrument"
	"pricetracker/internal/provider"
)

const defaultBaseURL = "https://www.alphavantage.co"

type Config struct {
	Name    string
	BaseURL string
	// APIKey enables the provider. Empty means ErrUnavailable on every fetch,
	// which fallback chains skip without surfacing.
	APIKey string
}

// Provider fetches quotes from Alpha Vantage. Equities use GLOBAL_QUOTE;
// crypto pairs use DIGITAL_CURRENCY_DAILY.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if p.cfg.APIKey == "" {
		return provider.Quote{}, fmt.Errorf("%w: alpha vantage key not set", provider.ErrUnavailable)
	}
	if instrument.IsCryptoUSDPair(symbol) {
		return p.fetchCrypto(ctx, symbol)
	}
	return p.fetchEquity(ctx, symbol)
}

func (p *Provider) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("apikey", p.cfg.APIKey)
	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET alphavantage %s -> %d", params.Get("function"), resp.StatusCode)
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return body, nil
}

func (p *Provider) fetchEquity(ctx context.Context, symbol string) (provider.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", strings.ToUpper(symbol))
	body, err := p.query(ctx, params)
	if err != nil {
		return provider.Quote{}, err
	}

	var gq map[string]string
	if raw, ok := body["Global Quote"]; ok {
		if err := json.Unmarshal(raw, &gq); err != nil {
			return provider.Quote{}, fmt.Errorf("decode global quote: %w", err)
		}
	}
	priceStr := gq["05. price"]
	if priceStr == "" {
		return provider.Quote{}, fmt.Errorf("%w: alphavantage equity no data for %s", provider.ErrNoData, symbol)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parse price %q: %w", priceStr, err)
	}
	return provider.Quote{Symbol: symbol, Price: price, AsOf: time.Now().UTC(), Source: p.cfg.Name}, nil
}

func (p *Provider) fetchCrypto(ctx context.Context, symbol string) (provider.Quote, error) {
	base, quote, _ := strings.Cut(strings.ToUpper(symbol), "-")
	params := url.Values{}
	params.Set("function", "DIGITAL_CURRENCY_DAILY")
	params.Set("symbol", base)
	params.Set("market", quote)
	body, err := p.query(ctx, params)
	if err != nil {
		return provider.Quote{}, err
	}

	var series map[string]map[string]string
	if raw, ok := body["Time Series (Digital Currency Daily)"]; ok {
		if err := json.Unmarshal(raw, &series); err != nil {
			return provider.Quote{}, fmt.Errorf("decode crypto series: %w", err)
		}
	}
	if len(series) == 0 {
		return provider.Quote{}, fmt.Errorf("%w: alphavantage crypto no data for %s", provider.ErrNoData, symbol)
	}
	days := make([]string, 0, len(series))
	for d := range series {
		days = append(days, d)
	}
	sort.Strings(days)
	latest := days[len(days)-1]

	// Some markets report the close under "4a.", others "4b.".
	priceStr := series[latest]["4b. close (USD)"]
	if priceStr == "" {
		priceStr = series[latest]["4a. close (USD)"]
	}
	if priceStr == "" {
		return provider.Quote{}, fmt.Errorf("%w: alphavantage crypto close missing for %s", provider.ErrNoData, symbol)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parse close %q: %w", priceStr, err)
	}
	asOf, err := time.Parse("2006-01-02", latest)
	if err != nil {
		asOf = time.Now().UTC()
	}
	return provider.Quote{Symbol: symbol, Price: price, AsOf: asOf, Source: p.cfg.Name}, nil
}
