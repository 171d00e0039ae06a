package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/models"
)

var testRates = Rates{"EUR": 4.3, "USD": 3.9, "CHF": 4.62}

func setupWalletService(t *testing.T) (*WalletService, *MockWalletRepo, *MockRateProvider, *MockProducer) {
	t.Helper()

	repo := new(MockWalletRepo)
	rates := new(MockRateProvider)
	producer := new(MockProducer)

	svc := NewWalletService(repo, rates, producer, "pln", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return svc, repo, rates, producer
}

func shutdown(t *testing.T, svc *WalletService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
}

func TestWalletService_View(t *testing.T) {
	svc, repo, rates, _ := setupWalletService(t)
	ctx := context.Background()

	repo.On("ListByOwner", ctx, "test_user1").Return([]models.Wallet{
		{Owner: "test_user1", Currency: "CHF", Amount: 30},
		{Owner: "test_user1", Currency: "EUR", Amount: 50},
	}, nil)
	rates.On("Convert", ctx, 30.0, "CHF").Return(138.6)
	rates.On("Convert", ctx, 50.0, "EUR").Return(215.0)

	view, err := svc.View(ctx, "test_user1")

	require.NoError(t, err)
	assert.Equal(t, "PLN", view.ReferenceCurrency)
	assert.Equal(t, []string{
		"138.60 PLN for CHF",
		"215.00 PLN for EUR",
		"353.60 PLN total",
	}, view.Lines)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, 138.6, view.Entries[0].Converted)
	assert.InDelta(t, 353.6, view.Total, 1e-9)
	repo.AssertExpectations(t)
	rates.AssertExpectations(t)
}

func TestWalletService_View_UnknownCurrencyConvertsToZero(t *testing.T) {
	svc, repo, rates, _ := setupWalletService(t)
	ctx := context.Background()

	repo.On("ListByOwner", ctx, "test_user1").Return([]models.Wallet{
		{Owner: "test_user1", Currency: "XYZ", Amount: 100},
	}, nil)
	rates.On("Convert", ctx, 100.0, "XYZ").Return(0.0)

	view, err := svc.View(ctx, "test_user1")

	require.NoError(t, err)
	assert.Equal(t, []string{"0.00 PLN for XYZ", "0.00 PLN total"}, view.Lines)
}

func TestWalletService_View_EmptyWallet(t *testing.T) {
	svc, repo, _, _ := setupWalletService(t)
	ctx := context.Background()

	repo.On("ListByOwner", ctx, "nobody").Return([]models.Wallet{}, nil)

	view, err := svc.View(ctx, "nobody")

	require.NoError(t, err)
	assert.Equal(t, []string{"0.00 PLN total"}, view.Lines)
	assert.Empty(t, view.Entries)
}

func TestWalletService_View_RepoError(t *testing.T) {
	svc, repo, _, _ := setupWalletService(t)
	ctx := context.Background()

	repo.On("ListByOwner", ctx, "test_user1").Return(nil, errors.New("db down"))

	view, err := svc.View(ctx, "test_user1")

	assert.Nil(t, view)
	assert.Contains(t, err.Error(), "service.View")
}

func TestWalletService_Add_Success(t *testing.T) {
	svc, repo, rates, producer := setupWalletService(t)
	ctx := context.Background()

	rates.On("GetRates", ctx).Return(testRates)
	repo.On("Add", ctx, "test_user1", "EUR", 50.0).
		Return(&models.Wallet{Owner: "test_user1", Currency: "EUR", Amount: 50}, nil)
	producer.On("SendWalletEvent", mock.Anything, mock.MatchedBy(func(e models.WalletEvent) bool {
		return e.Owner == "test_user1" && e.Currency == "EUR" &&
			e.Operation == models.OperationAdd && e.Balance == 50
	})).Return(nil).Once()

	resp, err := svc.Add(ctx, "test_user1", "eur", 50)

	require.NoError(t, err)
	assert.Equal(t, "Added 50 EUR to your wallet", resp.Message)

	shutdown(t, svc)
	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestWalletService_Subtract_Success(t *testing.T) {
	svc, repo, rates, producer := setupWalletService(t)
	ctx := context.Background()

	rates.On("GetRates", ctx).Return(testRates)
	repo.On("Subtract", ctx, "test_user1", "EUR", 12.5).
		Return(&models.Wallet{Owner: "test_user1", Currency: "EUR", Amount: 37.5}, nil)
	producer.On("SendWalletEvent", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Subtract(ctx, "test_user1", "EUR", 12.5)

	require.NoError(t, err)
	assert.Equal(t, "Subtracted 12.5 EUR from your wallet", resp.Message)
}

func TestWalletService_Set_Success(t *testing.T) {
	svc, repo, rates, producer := setupWalletService(t)
	ctx := context.Background()

	rates.On("GetRates", ctx).Return(testRates)
	repo.On("Set", ctx, "test_user1", "CHF", 30.0).
		Return(&models.Wallet{Owner: "test_user1", Currency: "CHF", Amount: 30}, nil)
	producer.On("SendWalletEvent", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Set(ctx, "test_user1", "chf", 30)

	require.NoError(t, err)
	assert.Equal(t, "Set CHF to 30 in your wallet", resp.Message)
}

func TestWalletService_Operations_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		currency string
		amount   float64
		wantErr  error
		rates    bool
	}{
		{name: "negative amount", owner: "test_user1", currency: "EUR", amount: -1, wantErr: custom_err.ErrInvalidAmount},
		{name: "empty owner", owner: "", currency: "EUR", amount: 1, wantErr: custom_err.ErrUnauthorized},
		{name: "unknown currency", owner: "test_user1", currency: "XYZ", amount: 1, wantErr: custom_err.ErrInvalidCurrency, rates: true},
		{name: "reference currency is not in table", owner: "test_user1", currency: "PLN", amount: 1, wantErr: custom_err.ErrInvalidCurrency, rates: true},
	}

	ops := map[string]func(*WalletService, context.Context, string, string, float64) (*models.OperationResponse, error){
		"add": (*WalletService).Add,
		"sub": (*WalletService).Subtract,
		"set": (*WalletService).Set,
	}

	for _, tt := range tests {
		for opName, call := range ops {
			t.Run(tt.name+"/"+opName, func(t *testing.T) {
				svc, repo, rates, producer := setupWalletService(t)
				ctx := context.Background()
				if tt.rates {
					rates.On("GetRates", ctx).Return(testRates)
				}

				resp, err := call(svc, ctx, tt.owner, tt.currency, tt.amount)

				assert.Nil(t, resp)
				assert.ErrorIs(t, err, tt.wantErr)
				if !tt.rates {
					rates.AssertNotCalled(t, "GetRates", mock.Anything)
				}
				repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "Subtract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				producer.AssertNotCalled(t, "SendWalletEvent", mock.Anything, mock.Anything)
			})
		}
	}
}

func TestWalletService_Subtract_RepoErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
	}{
		{name: "wallet not found", repoErr: custom_err.ErrNotFound},
		{name: "insufficient funds", repoErr: custom_err.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, rates, producer := setupWalletService(t)
			ctx := context.Background()

			rates.On("GetRates", ctx).Return(testRates)
			repo.On("Subtract", ctx, "test_user1", "EUR", 10.0).Return(nil, tt.repoErr)

			resp, err := svc.Subtract(ctx, "test_user1", "EUR", 10)

			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.repoErr)
			producer.AssertNotCalled(t, "SendWalletEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestWalletService_ProducerErrorDoesNotFailOperation(t *testing.T) {
	svc, repo, rates, producer := setupWalletService(t)
	ctx := context.Background()

	rates.On("GetRates", ctx).Return(testRates)
	repo.On("Add", ctx, "test_user1", "USD", 1.0).
		Return(&models.Wallet{Owner: "test_user1", Currency: "USD", Amount: 1}, nil)
	producer.On("SendWalletEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	resp, err := svc.Add(ctx, "test_user1", "USD", 1)

	require.NoError(t, err)
	assert.NotNil(t, resp)

	shutdown(t, svc)
	producer.AssertExpectations(t)
}

func TestWalletService_ShutdownIsIdempotent(t *testing.T) {
	svc, _, _, _ := setupWalletService(t)

	shutdown(t, svc)
	shutdown(t, svc)
}
