package postgres

import (
	"context"
	"fmt"
	"gw-wallet-ledger/internal/db"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool the repository needs; pgxmock pools satisfy it too.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

type PgWalletRepository struct {
	db        Pool
	txManager db.TxManager
}

var _ storage.WalletRepository = (*PgWalletRepository)(nil)

func NewWalletRepository(pool Pool, txManager db.TxManager) *PgWalletRepository {
	return &PgWalletRepository{db: pool, txManager: txManager}
}

func (r *PgWalletRepository) ListByOwner(ctx context.Context, owner string) ([]models.Wallet, error) {
	const op = "storage.ListByOwner"

	rows, err := r.db.Query(ctx, storage.ListWalletsByOwnerQuery, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var wallet models.Wallet
		if err := rows.Scan(&wallet.Owner, &wallet.Currency, &wallet.Amount, &wallet.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		wallets = append(wallets, wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return wallets, nil
}

func (r *PgWalletRepository) Add(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	const op = "storage.Add"

	wallet, err := scanWallet(r.db.QueryRow(ctx, storage.AddToWalletQuery, owner, currency, amount))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return wallet, nil
}

func (r *PgWalletRepository) Set(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	const op = "storage.Set"

	wallet, err := scanWallet(r.db.QueryRow(ctx, storage.SetWalletQuery, owner, currency, amount))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return wallet, nil
}

func (r *PgWalletRepository) Close() {
	r.db.Close()
}

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := row.Scan(&wallet.Owner, &wallet.Currency, &wallet.Amount, &wallet.UpdatedAt); err != nil {
		return nil, err
	}
	return &wallet, nil
}
