package custom_err

import "errors"

var (
	// Wallet errors
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Identity errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenNotActive = errors.New("token not active yet")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidAmount   = errors.New("invalid amount")

	// Rate provider errors
	ErrUpstream            = errors.New("rate provider returned an error")
	ErrUpstreamUnavailable = errors.New("rate provider unavailable")
	ErrMalformedRates      = errors.New("malformed rate table")
)
