package handlers

import (
	"errors"
	"gw-wallet-ledger/internal/api/middlew"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/service"
	"gw-wallet-ledger/pkg/response"
	"log/slog"
	"net/http"
)

type AuthHandler struct {
	resolver service.IdentityResolver
}

func NewAuthHandler(resolver service.IdentityResolver) *AuthHandler {
	return &AuthHandler{
		resolver: resolver,
	}
}

// Token godoc
// @Summary      Получить токен
// @Description  Выдает bearer-токен для владельца кошелька. Пароль не проверяется.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username formData string true  "Имя владельца"
// @Param        password formData string false "Пароль (игнорируется)"
// @Success      200 {object} models.TokenResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Token"
	log := middlew.GetLogger(r.Context())

	if err := r.ParseForm(); err != nil {
		log.Warn("invalid form", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_form", "Invalid form body")
		return
	}

	token, err := h.resolver.IssueToken(r.PostFormValue("username"))
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidInput):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_input", "username is required")
		default:
			log.Error("failed to issue token", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Internal error")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
