package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenResponse ответ на запрос токена
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"test_user1"`
	TokenType   string `json:"token_type" example:"bearer"`
}

// JWTClaims claims токена в режиме AUTH_MODE=jwt, владелец хранится в sub
type JWTClaims struct {
	jwt.RegisteredClaims
}
