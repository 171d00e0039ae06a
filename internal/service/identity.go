package service

import (
	"errors"
	"fmt"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/models"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityResolver issues bearer tokens and maps them back to a wallet owner.
type IdentityResolver interface {
	IssueToken(username string) (string, error)
	ResolveOwner(token string) (string, error)
}

// PlainTokenResolver treats the bearer token as the owner name itself.
type PlainTokenResolver struct{}

func NewPlainTokenResolver() *PlainTokenResolver {
	return &PlainTokenResolver{}
}

func (PlainTokenResolver) IssueToken(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", custom_err.ErrInvalidInput)
	}
	return username, nil
}

func (PlainTokenResolver) ResolveOwner(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", custom_err.ErrInvalidToken
	}
	return token, nil
}

// JWTResolver signs HS256 tokens carrying the owner in the subject claim.
type JWTResolver struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewJWTResolver(secret string, expiration time.Duration) *JWTResolver {
	return &JWTResolver{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

func (r *JWTResolver) IssueToken(username string) (string, error) {
	const op = "service.JWTResolver.IssueToken"

	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", custom_err.ErrInvalidInput)
	}

	now := r.now()
	claims := models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(r.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

func (r *JWTResolver) ResolveOwner(tokenString string) (string, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", custom_err.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return "", custom_err.ErrTokenNotActive
		}
		return "", custom_err.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", custom_err.ErrInvalidToken
	}

	return claims.Subject, nil
}
