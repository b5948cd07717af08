package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pricetracker/internal/instrument"
	"pricetracker/internal/provider"
)

// Resolver tries an ordered chain of providers and uses the first usable
// price. Exactly one provider's quote is returned per resolution; this is a
// strict fallback chain, not a race.
type Resolver struct {
	// Crypto is the chain for <BASE>-USD pairs, Equity for everything else.
	Crypto []provider.Provider
	Equity []provider.Provider

	log *zap.Logger
}

func New(crypto, equity []provider.Provider, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{Crypto: crypto, Equity: equity, log: log}
}

// Resolve fetches the latest close for symbol. Providers that report
// ErrUnavailable (not configured) are skipped silently; other failures are
// logged and the chain moves on. Only the last step's failure propagates.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (provider.Quote, error) {
	chain := r.Equity
	if instrument.IsCryptoUSDPair(symbol) {
		chain = r.Crypto
	}
	if len(chain) == 0 {
		return provider.Quote{}, fmt.Errorf("no providers configured for %s", symbol)
	}

	var lastErr error
	for _, p := range chain {
		q, err := p.Fetch(ctx, symbol)
		if err == nil {
			return q, nil
		}
		if errors.Is(err, provider.ErrUnavailable) {
			continue
		}
		lastErr = err
		r.log.Debug("provider failed, falling back",
			zap.String("symbol", symbol),
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	if lastErr == nil {
		lastErr = provider.ErrUnavailable
	}
	return provider.Quote{}, fmt.Errorf("resolve %s: %w", symbol, lastErr)
}
