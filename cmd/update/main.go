package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"pricetracker/internal/config"
	"pricetracker/internal/httpx"
	"pricetracker/internal/instrument"
	"pricetracker/internal/notion"
	"pricetracker/internal/provider"
	"pricetracker/internal/provider/alphavantage"
	"pricetracker/internal/provider/coinbase"
	"pricetracker/internal/provider/ratelimit"
	"pricetracker/internal/provider/stooq"
	"pricetracker/internal/provider/yahoo"
	"pricetracker/internal/resolver"
	"pricetracker/internal/updater"
)

func main() {
	config.LoadDotenv()

	var tickersFile string
	var day string
	var timeout int
	var priorFatal bool

	flag.StringVar(&tickersFile, "tickers", getenv("TICKERS_FILE", "tickers.txt"), "path to tickers file (one symbol per line, # comments)")
	flag.StringVar(&day, "date", "", "record date as YYYY-MM-DD (default: today UTC)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 10), "request timeout seconds")
	flag.BoolVar(&priorFatal, "prior-fatal", false, "treat a failed prior-price lookup as fatal for that symbol")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if tickersFile != "" {
		cfg.TickersFile = tickersFile
	}
	if timeout > 0 {
		cfg.RequestTimeoutSec = timeout
	}
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		log.Fatalf("invalid -date %q: %v", day, err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	httpClient := httpx.New(time.Duration(cfg.RequestTimeoutSec) * time.Second)

	cb := coinbase.New(coinbase.Config{}, httpClient)
	st := stooq.New(stooq.Config{}, httpClient)
	yh := yahoo.New(yahoo.Config{}, httpx.New(15*time.Second))

	crypto := []provider.Provider{cb, yh}
	equity := []provider.Provider{st}
	if cfg.AlphaVantageKey != "" {
		av := alphavantage.New(alphavantage.Config{APIKey: cfg.AlphaVantageKey}, httpx.New(15*time.Second))
		var p provider.Provider = av
		if cfg.AlphaVantageMaxRPM > 0 {
			rate := float64(cfg.AlphaVantageMaxRPM) / 60.0
			p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(rate, 1)}
		} else if cfg.AlphaVantageMinIntervalSec > 0 {
			interval := time.Duration(cfg.AlphaVantageMinIntervalSec) * time.Second
			p = &ratelimit.MinInterval{P: p, Interval: interval}
		}
		equity = append(equity, p)
	}
	equity = append(equity, yh)

	res := resolver.New(crypto, equity, logger)

	store, err := notion.NewClient(cfg.NotionToken, cfg.NotionDatabaseID,
		notion.WithHTTPClient(httpClient.HTTP))
	if err != nil {
		logger.Fatal("notion client", zap.Error(err))
	}

	ctx := context.Background()
	schema, err := store.Schema(ctx)
	if err != nil {
		logger.Fatal("schema discovery", zap.Error(err))
	}
	logger.Info("schema discovered",
		zap.String("title_prop", schema.TitleProp),
		zap.Bool("change_percent", schema.HasChangePercent))

	symbols, err := instrument.Load(cfg.TickersFile)
	if err != nil {
		logger.Fatal("tickers", zap.Error(err))
	}

	u := updater.New(updater.Config{PriorLookupFatal: priorFatal}, res, store, schema, logger)
	written := u.Run(ctx, symbols, day)
	logger.Info("run complete",
		zap.String("day", day),
		zap.Int("written", written),
		zap.Int("symbols", len(symbols)))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x > 0 {
			return x
		}
	}
	return def
}
