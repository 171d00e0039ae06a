package models

import "time"

// NBPTable одна таблица курсов из ответа API NBP
type NBPTable struct {
	Table         string    `json:"table"`
	No            string    `json:"no"`
	TradingDate   string    `json:"tradingDate"`
	EffectiveDate string    `json:"effectiveDate"`
	Rates         []NBPRate `json:"rates"`
}

type NBPRate struct {
	Currency string  `json:"currency"`
	Code     string  `json:"code"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
}

// ExchangeRatesResponse ответ с текущими курсами
type ExchangeRatesResponse struct {
	ReferenceCurrency string             `json:"reference_currency" example:"PLN"`
	Rates             map[string]float64 `json:"rates"`
	FetchedAt         *time.Time         `json:"fetched_at,omitempty"`
	Stale             bool               `json:"stale"`
}
