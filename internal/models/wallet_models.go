package models

import (
	"strings"
	"time"
)

// Wallet представляет баланс владельца в одной валюте
type Wallet struct {
	Owner     string    `json:"owner" db:"owner"`
	Currency  string    `json:"currency" db:"currency"`
	Amount    float64   `json:"amount" db:"amount"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type OperationType string

const (
	OperationAdd OperationType = "ADD"
	OperationSub OperationType = "SUB"
	OperationSet OperationType = "SET"
)

func (ot OperationType) IsValid() bool {
	return ot == OperationAdd || ot == OperationSub || ot == OperationSet
}

// NormalizeCurrency приводит код валюты к верхнему регистру
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// WalletOperationRequest запрос на изменение баланса
type WalletOperationRequest struct {
	Owner         string
	Currency      string
	Amount        float64
	OperationType OperationType
}

// OperationResponse ответ на add/sub/set
type OperationResponse struct {
	Message string `json:"message" example:"Added 50 EUR to your wallet"`
}

// WalletLine одна валюта кошелька, пересчитанная в базовую валюту
type WalletLine struct {
	Currency  string  `json:"currency"`
	Amount    float64 `json:"amount"`
	Converted float64 `json:"converted"`
}

// WalletView содержимое кошелька, пересчитанное в базовую валюту
type WalletView struct {
	ReferenceCurrency string       `json:"reference_currency"`
	Entries           []WalletLine `json:"entries"`
	Total             float64      `json:"total"`
	Lines             []string     `json:"lines"`
}
