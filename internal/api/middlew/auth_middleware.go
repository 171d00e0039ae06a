package middlew

import (
	"context"
	"errors"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/service"
	"gw-wallet-ledger/pkg/response"
	"log/slog"
	"net/http"
	"strings"
)

// RequireAuth resolves the bearer token to a wallet owner and stores it in the request context.
func RequireAuth(resolver service.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := GetLogger(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Not authenticated")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn("invalid authorization header format")
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
				return
			}

			owner, err := resolver.ResolveOwner(parts[1])
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				switch {
				case errors.Is(err, custom_err.ErrTokenExpired):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_expired", "Token has expired")
				case errors.Is(err, custom_err.ErrTokenNotActive):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_not_active", "Token not yet active")
				case errors.Is(err, custom_err.ErrInvalidToken):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "invalid_token", "Invalid token")
				default:
					log.Error("failed to resolve token", slog.String("error", err.Error()))
					response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Internal error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey, owner)
			ctx = context.WithValue(ctx, loggerKey, log.With(slog.String("owner", owner)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetOwner(ctx context.Context) string {
	owner, ok := ctx.Value(ownerKey).(string)
	if !ok {
		panic("owner not found in context - RequireAuth middleware not applied?")
	}
	return owner
}

// WithOwner returns a copy of ctx carrying owner, for handlers exercised without RequireAuth.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}
