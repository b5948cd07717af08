package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pricetracker/internal/httpx"
	"pricetracker/internal/provider"
)

const defaultBaseURL = "https://api.coinbase.com"

type Config struct {
	Name string
	// BaseURL overrides the Coinbase API host, mainly for tests.
	BaseURL string
}

// Provider fetches crypto spot prices from the public Coinbase API.
// Crypto pairs only; a single GET with no retry.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Coinbase"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	url := fmt.Sprintf("%s/v2/prices/%s/spot", strings.TrimRight(p.cfg.BaseURL, "/"), strings.ToUpper(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return provider.Quote{}, err
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return provider.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return provider.Quote{}, fmt.Errorf("GET %s -> %d: %s", url, resp.StatusCode, string(b))
	}

	var body struct {
		Data struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return provider.Quote{}, fmt.Errorf("decode: %w", err)
	}
	if strings.TrimSpace(body.Data.Amount) == "" {
		return provider.Quote{}, fmt.Errorf("%w: spot amount missing for %s", provider.ErrNoData, symbol)
	}
	price, err := strconv.ParseFloat(body.Data.Amount, 64)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parse spot amount %q: %w", body.Data.Amount, err)
	}
	return provider.Quote{
		Symbol: symbol,
		Price:  price,
		AsOf:   time.Now().UTC(),
		Source: p.cfg.Name,
	}, nil
}
