package updater

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"pricetracker/internal/notion"
	"pricetracker/internal/provider"
)

const defaultAction = "Auto price update"

// PriceResolver yields one price per symbol via the fallback chain.
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) (provider.Quote, error)
}

// Store is the record-store surface the updater needs. *notion.Client
// satisfies it.
//
//go:generate mockgen -package=updater_test -destination=mock_store_test.go -source=updater.go Store
type Store interface {
	FindRecord(ctx context.Context, schema notion.Schema, symbol, day string) (string, error)
	PriorPrice(ctx context.Context, schema notion.Schema, symbol, beforeDay string) (float64, bool, error)
	CreateRecord(ctx context.Context, props notion.Properties) (int, error)
	UpdateRecord(ctx context.Context, pageID string, props notion.Properties) (int, error)
}

type Config struct {
	// Action is the free-text label written into each record.
	Action string
	// PriorLookupFatal makes a failed prior-price lookup fail the whole
	// upsert for that symbol. Off by default: the lookup is best-effort and
	// a failure just means "no prior price" plus a warning.
	PriorLookupFatal bool
	// PauseBase and PauseJitter shape the courtesy sleep between symbols:
	// PauseBase plus uniform [0, PauseJitter). Zero values use the defaults
	// (600ms each). Reduces provider throttling, not a correctness mechanism.
	PauseBase   time.Duration
	PauseJitter time.Duration
}

// Updater performs the per-day upsert: resolve a price, compute day-over-day
// change against the prior record, then create or update the (symbol, day)
// row. The find-then-write pair is not transactional; two concurrent runs
// can both insert. Accepted: runs are scheduled once a day.
type Updater struct {
	cfg      Config
	resolver PriceResolver
	store    Store
	schema   notion.Schema
	log      *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

func New(cfg Config, r PriceResolver, s Store, schema notion.Schema, log *zap.Logger) *Updater {
	if cfg.Action == "" {
		cfg.Action = defaultAction
	}
	if cfg.PauseBase <= 0 {
		cfg.PauseBase = 600 * time.Millisecond
	}
	if cfg.PauseJitter <= 0 {
		cfg.PauseJitter = 600 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Updater{
		cfg:      cfg,
		resolver: r,
		store:    s,
		schema:   schema,
		log:      log,
		sleep:    sleepCtx,
		jitter:   func(max time.Duration) time.Duration { return time.Duration(rand.Int63n(int64(max))) },
	}
}

// Upsert resolves the price for symbol and writes the (symbol, day) record,
// updating in place when one already exists.
func (u *Updater) Upsert(ctx context.Context, symbol, day string) error {
	quote, err := u.resolver.Resolve(ctx, symbol)
	if err != nil {
		return err
	}

	var change *float64
	prior, ok, err := u.store.PriorPrice(ctx, u.schema, symbol, day)
	if err != nil {
		if u.cfg.PriorLookupFatal {
			return fmt.Errorf("prior price lookup: %w", err)
		}
		u.log.Warn("prior price lookup failed, treating as no prior",
			zap.String("symbol", symbol), zap.Error(err))
	} else if ok && prior != 0 {
		c := quote.Price/prior - 1.0
		change = &c
	}

	props := notion.BuildProperties(u.schema, symbol, day, u.cfg.Action, quote.Price, change)

	pageID, err := u.store.FindRecord(ctx, u.schema, symbol, day)
	if err != nil {
		return fmt.Errorf("find existing record: %w", err)
	}
	if pageID != "" {
		status, err := u.store.UpdateRecord(ctx, pageID, props)
		if err != nil {
			return err
		}
		u.log.Info("UPDATE",
			zap.String("symbol", symbol),
			zap.String("day", day),
			zap.Float64("price", quote.Price),
			zap.String("source", quote.Source),
			zap.Int("status", status))
		return nil
	}
	status, err := u.store.CreateRecord(ctx, props)
	if err != nil {
		return err
	}
	u.log.Info("CREATE",
		zap.String("symbol", symbol),
		zap.String("day", day),
		zap.Float64("price", quote.Price),
		zap.String("source", quote.Source),
		zap.Int("status", status))
	return nil
}

// Run upserts every symbol sequentially for the given day. A failed symbol
// is logged and skipped; the loop keeps going. Returns how many symbols were
// written.
func (u *Updater) Run(ctx context.Context, symbols []string, day string) int {
	var written int
	for i, symbol := range symbols {
		if err := u.Upsert(ctx, symbol, day); err != nil {
			u.log.Warn("skip", zap.String("symbol", symbol), zap.Error(err))
		} else {
			written++
		}
		if i == len(symbols)-1 {
			break
		}
		if err := u.sleep(ctx, u.cfg.PauseBase+u.jitter(u.cfg.PauseJitter)); err != nil {
			u.log.Warn("run canceled", zap.Error(err))
			break
		}
	}
	return written
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
