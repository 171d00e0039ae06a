package service

import (
	"context"
	"gw-wallet-ledger/internal/metrics"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefreshInterval is how long a fetched rate table stays fresh.
const DefaultRefreshInterval = 5 * time.Minute

// Rates maps a currency code to its rate in the reference currency.
// A Rates value returned by RateCache is shared and must not be modified.
type Rates map[string]float64

// RateFetcher loads a complete rate table from the upstream provider.
type RateFetcher interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

type RateProvider interface {
	GetRates(ctx context.Context) Rates
	Convert(ctx context.Context, amount float64, currency string) float64
	FetchedAt() time.Time
}

type rateSnapshot struct {
	rates     Rates
	fetchedAt time.Time
}

// RateCache keeps the last successfully fetched rate table. Fresh reads are lock-free;
// at most one refresh runs at a time and concurrent stale readers wait for it.
type RateCache struct {
	fetcher      RateFetcher
	interval     time.Duration
	fetchTimeout time.Duration

	snapshot  atomic.Pointer[rateSnapshot]
	refreshMu sync.Mutex

	now     func() time.Time
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewRateCache(
	fetcher RateFetcher,
	interval time.Duration,
	fetchTimeout time.Duration,
	m *metrics.Metrics,
	log *slog.Logger,
) *RateCache {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	c := &RateCache{
		fetcher:      fetcher,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		metrics:      m,
		log:          log,
	}
	c.snapshot.Store(&rateSnapshot{rates: Rates{}})

	return c
}

func (c *RateCache) fresh(s *rateSnapshot) bool {
	return !s.fetchedAt.IsZero() && c.now().Sub(s.fetchedAt) <= c.interval
}

// GetRates returns the current table, refreshing it first when it is older than the
// refresh interval. Refresh failures are logged and the last known table is returned.
func (c *RateCache) GetRates(ctx context.Context) Rates {
	if s := c.snapshot.Load(); c.fresh(s) {
		return s.rates
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// another goroutine may have refreshed while we waited on the lock
	s := c.snapshot.Load()
	if c.fresh(s) {
		return s.rates
	}

	return c.refresh(ctx, s).rates
}

// refresh must be called with refreshMu held.
func (c *RateCache) refresh(ctx context.Context, current *rateSnapshot) *rateSnapshot {
	const op = "service.RateCache.refresh"

	// the fetch result is shared by every waiting reader, so it must not die with one request
	fetchCtx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
		defer cancel()
	}

	fetched, err := c.fetcher.FetchRates(fetchCtx)
	if err != nil {
		c.metrics.ObserveRefresh(metrics.ResultFailure, c.now())
		c.log.Error("rate refresh failed, serving last known rates",
			slog.String("op", op),
			slog.Int("cached_currencies", len(current.rates)),
			slog.Time("fetched_at", current.fetchedAt),
			slog.String("error", err.Error()))
		return current
	}

	rates := make(Rates, len(fetched))
	for code, rate := range fetched {
		rates[code] = rate
	}

	next := &rateSnapshot{rates: rates, fetchedAt: c.now()}
	c.snapshot.Store(next)
	c.metrics.ObserveRefresh(metrics.ResultSuccess, next.fetchedAt)

	c.log.Info("rates refreshed",
		slog.String("op", op),
		slog.Int("currencies", len(rates)))

	return next
}

// Convert returns amount expressed in the reference currency, or 0 when the currency
// is not in the current table.
func (c *RateCache) Convert(ctx context.Context, amount float64, currency string) float64 {
	rate, ok := c.GetRates(ctx)[currency]
	if !ok {
		return 0
	}
	return amount * rate
}

// FetchedAt reports when the current table was fetched; zero if never.
func (c *RateCache) FetchedAt() time.Time {
	return c.snapshot.Load().fetchedAt
}

func (c *RateCache) Interval() time.Duration {
	return c.interval
}
