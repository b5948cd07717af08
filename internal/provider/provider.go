package provider

import (
	"context"
	"errors"
	"time"
)

// Quote is the normalized shape returned by all providers: one latest
// close per symbol. Quotes are computed fresh each run and never persisted.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	AsOf   time.Time `json:"as_of"`
	Source string    `json:"source"`
}

// Provider fetches the latest close for a single symbol.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (Quote, error)
}

var (
	// ErrNoData means the provider answered but had nothing usable for the symbol.
	ErrNoData = errors.New("provider: no data")
	// ErrUnavailable means the provider is not configured (e.g. missing API key).
	// Fallback chains skip over it without counting it as a real failure.
	ErrUnavailable = errors.New("provider: unavailable")
	// ErrRateLimited marks provider-side throttling. Callers treat it like any
	// other retryable failure.
	ErrRateLimited = errors.New("provider: rate limited")
)
