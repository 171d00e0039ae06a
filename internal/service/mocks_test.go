package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"gw-wallet-ledger/internal/models"
)

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) ListByOwner(ctx context.Context, owner string) ([]models.Wallet, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Add(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	args := m.Called(ctx, owner, currency, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Subtract(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	args := m.Called(ctx, owner, currency, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Set(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	args := m.Called(ctx, owner, currency, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Close() {
	m.Called()
}

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) GetRates(ctx context.Context) Rates {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(Rates)
}

func (m *MockRateProvider) Convert(ctx context.Context, amount float64, currency string) float64 {
	args := m.Called(ctx, amount, currency)
	return args.Get(0).(float64)
}

func (m *MockRateProvider) FetchedAt() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) SendWalletEvent(ctx context.Context, event models.WalletEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fakeFetcher counts calls and can block until released or fail on demand.
type fakeFetcher struct {
	calls   atomic.Int32
	mu      sync.Mutex
	rates   map[string]float64
	err     error
	started chan struct{}
	release chan struct{}
}

func newFakeFetcher(rates map[string]float64) *fakeFetcher {
	return &fakeFetcher{rates: rates}
}

func (f *fakeFetcher) FetchRates(ctx context.Context) (map[string]float64, error) {
	f.calls.Add(1)

	f.mu.Lock()
	started, release := f.started, f.release
	rates, err := f.rates, f.err
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}

	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (f *fakeFetcher) setRates(rates map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates, f.err = rates, nil
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// block makes every following fetch wait for the returned release channel to close.
func (f *fakeFetcher) block() (started <-chan struct{}, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = make(chan struct{}, 1)
	f.release = make(chan struct{})
	return f.started, f.release
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
