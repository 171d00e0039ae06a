package storage

const (
	// Все кошельки владельца
	ListWalletsByOwnerQuery = `
		SELECT owner, currency, amount, updated_at
		FROM wallets
		WHERE owner = $1
		ORDER BY currency
	`

	// Пополнение: создаёт кошелек, если его нет
	AddToWalletQuery = `
		INSERT INTO wallets (owner, currency, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, currency)
		DO UPDATE SET amount = wallets.amount + EXCLUDED.amount, updated_at = NOW()
		RETURNING owner, currency, amount, updated_at
	`

	// Установка баланса без учета предыдущего значения
	SetWalletQuery = `
		INSERT INTO wallets (owner, currency, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, currency)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
		RETURNING owner, currency, amount, updated_at
	`

	// Transaction queries (с FOR UPDATE для блокировки)
	GetWalletAmountForUpdateQuery = `
		SELECT amount
		FROM wallets
		WHERE owner = $1 AND currency = $2
		FOR UPDATE
	`

	UpdateWalletAmountQuery = `
		UPDATE wallets
		SET amount = $3, updated_at = NOW()
		WHERE owner = $1 AND currency = $2
		RETURNING owner, currency, amount, updated_at
	`
)
