package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pricetracker/internal/httpx"
	"pricetracker/internal/instrument"
	"pricetracker/internal/provider"
)

const defaultBaseURL = "https://stooq.com"

type Config struct {
	Name    string
	BaseURL string
}

// Provider fetches daily close prices from Stooq's keyless CSV feed.
// US equities and ETFs map to "<symbol>.us"; the feed's rows are
// chronological, so the last row carries the most recent close.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Stooq"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Symbol maps a watch-list symbol to Stooq's naming. Crypto pairs keep
// their dashed form, everything else is assumed to be a US listing.
func Symbol(symbol string) string {
	if instrument.IsCryptoUSDPair(symbol) {
		return strings.ToLower(symbol)
	}
	return strings.ToLower(symbol) + ".us"
}

func (p *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	url := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", strings.TrimRight(p.cfg.BaseURL, "/"), Symbol(symbol))
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
		return provider.Quote{}, fmt.Errorf("GET %s -> %d", url, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return provider.Quote{}, fmt.Errorf("read body: %w", err)
	}

	text := strings.TrimSpace(string(raw))
	if len(strings.Split(text, "\n")) < 2 {
		// Header only (or "No data"): the feed has nothing for this symbol.
		return provider.Quote{}, fmt.Errorf("%w: stooq returned no rows for %s", provider.ErrNoData, symbol)
	}

	closePrice, asOf, err := lastClose(text)
	if err != nil {
		return provider.Quote{}, err
	}
	return provider.Quote{
		Symbol: symbol,
		Price:  closePrice,
		AsOf:   asOf,
		Source: p.cfg.Name,
	}, nil
}

// lastClose scans the CSV (Date,Open,High,Low,Close,Volume) and returns the
// Close of the last row that has one.
func lastClose(text string) (float64, time.Time, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("read csv header: %w", err)
	}
	closeIdx, dateIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Close":
			closeIdx = i
		case "Date":
			dateIdx = i
		}
	}
	if closeIdx < 0 {
		return 0, time.Time{}, fmt.Errorf("%w: no Close column in stooq csv", provider.ErrNoData)
	}

	var last string
	var lastDate string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("read csv row: %w", err)
		}
		if closeIdx < len(row) && strings.TrimSpace(row[closeIdx]) != "" {
			last = strings.TrimSpace(row[closeIdx])
			if dateIdx >= 0 && dateIdx < len(row) {
				lastDate = strings.TrimSpace(row[dateIdx])
			}
		}
	}
	if last == "" {
		return 0, time.Time{}, fmt.Errorf("%w: no close in stooq csv", provider.ErrNoData)
	}
	price, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse close %q: %w", last, err)
	}
	asOf, err := time.Parse("2006-01-02", lastDate)
	if err != nil {
		asOf = time.Now().UTC()
	}
	return price, asOf, nil
}
