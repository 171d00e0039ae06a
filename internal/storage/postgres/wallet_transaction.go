package postgres

import (
	"context"
	"errors"
	"fmt"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (r *PgWalletRepository) Subtract(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	const op = "storage.Subtract"

	var wallet *models.Wallet
	err := r.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := r.getAmountForUpdateTx(ctx, tx, owner, currency)
		if err != nil {
			return err
		}

		newAmount := current - amount
		if newAmount < 0 {
			return custom_err.ErrInsufficientFunds
		}

		wallet, err = scanWallet(tx.QueryRow(ctx, storage.UpdateWalletAmountQuery, owner, currency, newAmount))
		return err
	})
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) || errors.Is(err, custom_err.ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return wallet, nil
}

func (r *PgWalletRepository) getAmountForUpdateTx(ctx context.Context, tx pgx.Tx, owner, currency string) (float64, error) {
	var amount float64
	err := tx.QueryRow(ctx, storage.GetWalletAmountForUpdateQuery, owner, currency).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, custom_err.ErrNotFound
		}
		return 0, err
	}
	return amount, nil
}
