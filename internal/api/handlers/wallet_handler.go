package handlers

import (
	"errors"
	"fmt"
	"gw-wallet-ledger/internal/api/middlew"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/service"
	"gw-wallet-ledger/pkg/response"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type WalletHandler struct {
	service service.Wallet
}

func NewWalletHandler(service service.Wallet) *WalletHandler {
	return &WalletHandler{
		service: service,
	}
}

// GetWallet godoc
// @Summary      Содержимое кошелька
// @Description  Возвращает балансы, пересчитанные в базовую валюту, и итоговую строку
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} string
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetWallet"
	log := middlew.GetLogger(r.Context())
	owner := middlew.GetOwner(r.Context())

	view, err := h.service.View(r.Context(), owner)
	if err != nil {
		log.Error("failed to view wallet", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve wallet")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, view.Lines)
}

// Add godoc
// @Summary      Пополнить кошелек
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        currency path string true "Код валюты" example(EUR)
// @Param        amount   path number true "Сумма, не меньше 0"
// @Success      200 {object} models.OperationResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /wallet/add/{currency}/{amount} [post]
func (h *WalletHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, models.OperationAdd)
}

// Subtract godoc
// @Summary      Списать с кошелька
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        currency path string true "Код валюты" example(EUR)
// @Param        amount   path number true "Сумма, не меньше 0"
// @Success      200 {object} models.OperationResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /wallet/sub/{currency}/{amount} [post]
func (h *WalletHandler) Subtract(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, models.OperationSub)
}

// Set godoc
// @Summary      Установить баланс
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        currency path string true "Код валюты" example(CHF)
// @Param        amount   path number true "Сумма, не меньше 0"
// @Success      200 {object} models.OperationResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /wallet/set/{currency}/{amount} [post]
func (h *WalletHandler) Set(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, models.OperationSet)
}

func (h *WalletHandler) operation(w http.ResponseWriter, r *http.Request, opType models.OperationType) {
	const op = "handler.WalletOperation"
	log := middlew.GetLogger(r.Context())
	owner := middlew.GetOwner(r.Context())

	currency := models.NormalizeCurrency(chi.URLParam(r, "currency"))
	rawAmount := chi.URLParam(r, "amount")

	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		log.Warn("invalid amount", slog.String("op", op), slog.String("amount", rawAmount))
		response.WriteJSONError(w, log, http.StatusUnprocessableEntity, "invalid_amount", "Amount must be a number")
		return
	}

	var resp *models.OperationResponse
	switch opType {
	case models.OperationAdd:
		resp, err = h.service.Add(r.Context(), owner, currency, amount)
	case models.OperationSub:
		resp, err = h.service.Subtract(r.Context(), owner, currency, amount)
	default:
		resp, err = h.service.Set(r.Context(), owner, currency, amount)
	}
	if err != nil {
		h.handleOperationError(w, log, err, currency)
		return
	}

	log.Info("wallet updated",
		slog.String("op", op),
		slog.String("operation", string(opType)),
		slog.String("currency", currency),
		slog.Float64("amount", amount))

	response.WriteJSONSuccess(w, log, http.StatusOK, resp)
}

func (h *WalletHandler) handleOperationError(w http.ResponseWriter, log *slog.Logger, err error, currency string) {
	switch {
	case errors.Is(err, custom_err.ErrInvalidAmount):
		response.WriteJSONError(w, log, http.StatusUnprocessableEntity, "invalid_amount", "Amount must be greater than or equal to 0")
	case errors.Is(err, custom_err.ErrInvalidCurrency):
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_currency", "Invalid currency")
	case errors.Is(err, custom_err.ErrNotFound):
		response.WriteJSONError(w, log, http.StatusBadRequest, "not_found",
			fmt.Sprintf("You don't have any %s in your wallet", currency))
	case errors.Is(err, custom_err.ErrInsufficientFunds):
		response.WriteJSONError(w, log, http.StatusBadRequest, "insufficient_funds",
			fmt.Sprintf("You don't have enough %s in your wallet", currency))
	case errors.Is(err, custom_err.ErrUnauthorized):
		response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Not authenticated")
	default:
		log.Error("wallet operation failed", slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Internal error")
	}
}
