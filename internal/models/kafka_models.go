package models

import (
	"time"

	"github.com/google/uuid"
)

// событие об изменении баланса кошелька
type WalletEvent struct {
	EventID   uuid.UUID     `json:"event_id"`  // Уникальный ID события
	Owner     string        `json:"owner"`     // Владелец кошелька
	Currency  string        `json:"currency"`  // Валюта
	Operation OperationType `json:"operation"` // ADD / SUB / SET
	Amount    float64       `json:"amount"`    // Сумма операции
	Balance   float64       `json:"balance"`   // Баланс после операции
	Timestamp time.Time     `json:"timestamp"` // Время операции
}
