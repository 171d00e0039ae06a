package storage

import (
	"context"
	"gw-wallet-ledger/internal/models"
)

// WalletRepository хранит балансы, ключ (owner, currency)
type WalletRepository interface {
	ListByOwner(ctx context.Context, owner string) ([]models.Wallet, error)
	// Add creates the wallet when it does not exist yet.
	Add(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error)
	// Subtract fails with ErrNotFound for a missing wallet and ErrInsufficientFunds
	// when the balance would go negative; the stored balance is unchanged in both cases.
	Subtract(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error)
	Set(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error)
	Close()
}
