package redisstore

import (
	"context"
	"errors"
	"fmt"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/storage"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// subtractScript atomically checks existence and balance before decrementing.
// Returns the new amount as a string, or an error reply NOT_FOUND / INSUFFICIENT.
var subtractScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current then
	return redis.error_reply('NOT_FOUND')
end
local updated = tonumber(current) - tonumber(ARGV[2])
if updated < 0 then
	return redis.error_reply('INSUFFICIENT')
end
redis.call('HSET', KEYS[1], ARGV[1], tostring(updated))
return tostring(updated)
`)

// RedisWalletRepository keeps every owner's wallets in one hash: wallet:<owner> -> currency -> amount.
type RedisWalletRepository struct {
	client *redis.Client
	log    *slog.Logger
}

var _ storage.WalletRepository = (*RedisWalletRepository)(nil)

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		PoolSize:        50,
		MinIdleConns:    2,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func NewWalletRepository(client *redis.Client, log *slog.Logger) *RedisWalletRepository {
	return &RedisWalletRepository{client: client, log: log}
}

func walletKey(owner string) string {
	return "wallet:" + owner
}

func (r *RedisWalletRepository) ListByOwner(ctx context.Context, owner string) ([]models.Wallet, error) {
	const op = "redisstore.ListByOwner"

	fields, err := r.client.HGetAll(ctx, walletKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	wallets := make([]models.Wallet, 0, len(fields))
	for currency, raw := range fields {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			r.log.Warn("skipping unparsable balance",
				slog.String("op", op),
				slog.String("owner", owner),
				slog.String("currency", currency),
				slog.String("value", raw))
			continue
		}
		wallets = append(wallets, models.Wallet{Owner: owner, Currency: currency, Amount: amount})
	}

	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Currency < wallets[j].Currency })

	return wallets, nil
}

func (r *RedisWalletRepository) Add(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	const op = "redisstore.Add"

	newAmount, err := r.client.HIncrByFloat(ctx, walletKey(owner), currency, amount).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Wallet{Owner: owner, Currency: currency, Amount: newAmount, UpdatedAt: time.Now()}, nil
}

func (r *RedisWalletRepository) Set(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	const op = "redisstore.Set"

	value := strconv.FormatFloat(amount, 'f', -1, 64)
	if err := r.client.HSet(ctx, walletKey(owner), currency, value).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Wallet{Owner: owner, Currency: currency, Amount: amount, UpdatedAt: time.Now()}, nil
}

func (r *RedisWalletRepository) Subtract(ctx context.Context, owner, currency string, amount float64) (*models.Wallet, error) {
	const op = "redisstore.Subtract"

	raw, err := subtractScript.Run(ctx, r.client, []string{walletKey(owner)},
		currency, strconv.FormatFloat(amount, 'f', -1, 64)).Text()
	if err != nil {
		switch {
		case isScriptError(err, "NOT_FOUND"):
			return nil, custom_err.ErrNotFound
		case isScriptError(err, "INSUFFICIENT"):
			return nil, custom_err.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newAmount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: bad amount %q: %w", op, raw, err)
	}

	return &models.Wallet{Owner: owner, Currency: currency, Amount: newAmount, UpdatedAt: time.Now()}, nil
}

func (r *RedisWalletRepository) Close() {
	if err := r.client.Close(); err != nil {
		r.log.Error("ошибка при закрытии redis клиента", slog.String("error", err.Error()))
	}
}

func isScriptError(err error, code string) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return strings.Contains(redisErr.Error(), code)
	}
	return false
}
