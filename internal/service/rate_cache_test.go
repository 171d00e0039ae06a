package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/metrics"
)

func setupRateCache(fetcher RateFetcher, m *metrics.Metrics) (*RateCache, *fakeClock) {
	clock := newFakeClock()
	c := NewRateCache(fetcher, 5*time.Minute, time.Second, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = clock.Now
	return c, clock
}

func mapPointer(r Rates) uintptr {
	return reflect.ValueOf(r).Pointer()
}

func TestRateCache_EmptyCacheFetchesOnFirstRead(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3, "USD": 3.9})
	cache, clock := setupRateCache(fetcher, nil)
	ctx := context.Background()

	assert.True(t, cache.FetchedAt().IsZero())

	rates := cache.GetRates(ctx)

	assert.Equal(t, Rates{"EUR": 4.3, "USD": 3.9}, rates)
	assert.Equal(t, clock.Now(), cache.FetchedAt())
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestRateCache_FreshReadsDoNotFetch(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3})
	cache, clock := setupRateCache(fetcher, nil)
	ctx := context.Background()

	cache.GetRates(ctx)
	clock.Advance(4 * time.Minute)
	cache.GetRates(ctx)
	clock.Advance(time.Minute)
	cache.GetRates(ctx)

	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestRateCache_StaleReadRefreshes(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3})
	cache, clock := setupRateCache(fetcher, nil)
	ctx := context.Background()

	first := cache.GetRates(ctx)

	fetcher.setRates(map[string]float64{"EUR": 4.4})
	clock.Advance(5*time.Minute + time.Second)

	second := cache.GetRates(ctx)

	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, 4.4, second["EUR"])
	assert.Equal(t, 4.3, first["EUR"], "previous snapshot must not be mutated")
	assert.Equal(t, clock.Now(), cache.FetchedAt())
}

func TestRateCache_ConcurrentStaleReadersFetchOnce(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3, "CHF": 4.6})
	started, release := fetcher.block()
	cache, _ := setupRateCache(fetcher, nil)
	ctx := context.Background()

	const readers = 50
	results := make([]Rates, readers)

	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetRates(ctx)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for i := 1; i < readers; i++ {
		require.Equal(t, mapPointer(results[0]), mapPointer(results[i]), "reader %d got a different snapshot", i)
	}
	assert.Equal(t, Rates{"EUR": 4.3, "CHF": 4.6}, results[0])
}

func TestRateCache_ReadersSeeWholeSnapshots(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 1, "USD": 1, "CHF": 1})
	cache, clock := setupRateCache(fetcher, nil)
	ctx := context.Background()
	cache.GetRates(ctx)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				rates := cache.GetRates(ctx)
				if assert.Len(t, rates, 3) {
					assert.Equal(t, rates["EUR"], rates["USD"])
					assert.Equal(t, rates["EUR"], rates["CHF"])
				}
			}
		}()
	}

	for v := 2.0; v <= 50; v++ {
		fetcher.setRates(map[string]float64{"EUR": v, "USD": v, "CHF": v})
		clock.Advance(6 * time.Minute)
		cache.GetRates(ctx)
	}

	close(stop)
	wg.Wait()
}

func TestRateCache_FailedFetchKeepsSnapshot(t *testing.T) {
	m := metrics.New()
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3})
	cache, clock := setupRateCache(fetcher, m)
	ctx := context.Background()

	before := cache.GetRates(ctx)
	fetchedAt := cache.FetchedAt()

	fetcher.fail(custom_err.ErrUpstreamUnavailable)
	clock.Advance(10 * time.Minute)

	after := cache.GetRates(ctx)

	assert.Equal(t, mapPointer(before), mapPointer(after))
	assert.Equal(t, fetchedAt, cache.FetchedAt())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RatesRefreshTotal.WithLabelValues(metrics.ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RatesRefreshTotal.WithLabelValues(metrics.ResultFailure)))
	assert.Equal(t, float64(fetchedAt.Unix()), testutil.ToFloat64(m.RatesSnapshotTime))
}

func TestRateCache_StaleAfterFailureRetriesOnNextRead(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3})
	cache, clock := setupRateCache(fetcher, nil)
	ctx := context.Background()

	cache.GetRates(ctx)
	fetcher.fail(errors.New("boom"))
	clock.Advance(6 * time.Minute)

	cache.GetRates(ctx)
	cache.GetRates(ctx)
	assert.Equal(t, int32(3), fetcher.calls.Load())

	fetcher.setRates(map[string]float64{"EUR": 4.5})
	rates := cache.GetRates(ctx)

	assert.Equal(t, 4.5, rates["EUR"])
	assert.Equal(t, int32(4), fetcher.calls.Load())
	assert.Equal(t, clock.Now(), cache.FetchedAt())
}

func TestRateCache_FailureOnEmptyCacheReturnsEmpty(t *testing.T) {
	fetcher := newFakeFetcher(nil)
	fetcher.fail(custom_err.ErrUpstreamUnavailable)
	cache, _ := setupRateCache(fetcher, nil)

	rates := cache.GetRates(context.Background())

	assert.NotNil(t, rates)
	assert.Empty(t, rates)
	assert.True(t, cache.FetchedAt().IsZero())
}

func TestRateCache_CancelledCallerDoesNotAbortRefresh(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3})
	cache, _ := setupRateCache(fetcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rates := cache.GetRates(ctx)

	assert.Equal(t, 4.3, rates["EUR"])
}

func TestRateCache_Convert(t *testing.T) {
	fetcher := newFakeFetcher(map[string]float64{"EUR": 4.3})
	cache, _ := setupRateCache(fetcher, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		amount   float64
		currency string
		want     float64
	}{
		{name: "known currency", amount: 50, currency: "EUR", want: 215.0},
		{name: "zero amount", amount: 0, currency: "EUR", want: 0},
		{name: "unknown currency", amount: 50, currency: "XYZ", want: 0},
		{name: "unknown currency large amount", amount: 1e9, currency: "XYZ", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cache.Convert(ctx, tt.amount, tt.currency), 1e-9)
		})
	}
}

func TestNewRateCache_DefaultInterval(t *testing.T) {
	cache := NewRateCache(newFakeFetcher(nil), 0, 0, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, DefaultRefreshInterval, cache.Interval())
}
