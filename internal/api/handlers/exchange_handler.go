package handlers

import (
	"gw-wallet-ledger/internal/api/middlew"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/service"
	"gw-wallet-ledger/pkg/response"
	"net/http"
	"time"
)

type ExchangeHandler struct {
	rates             service.RateProvider
	interval          time.Duration
	referenceCurrency string
	now               func() time.Time
}

func NewExchangeHandler(rates service.RateProvider, interval time.Duration, referenceCurrency string) *ExchangeHandler {
	return &ExchangeHandler{
		rates:             rates,
		interval:          interval,
		referenceCurrency: models.NormalizeCurrency(referenceCurrency),
		now:               time.Now,
	}
}

// GetExchangeRates godoc
// @Summary      Получить курсы валют
// @Description  Возвращает закешированную таблицу курсов. stale=true, если последнее обновление не удалось.
// @Tags         rates
// @Produce      json
// @Success      200 {object} models.ExchangeRatesResponse
// @Router       /rates [get]
func (h *ExchangeHandler) GetExchangeRates(w http.ResponseWriter, r *http.Request) {
	log := middlew.GetLogger(r.Context())

	rates := h.rates.GetRates(r.Context())
	fetchedAt := h.rates.FetchedAt()

	resp := models.ExchangeRatesResponse{
		ReferenceCurrency: h.referenceCurrency,
		Rates:             rates,
		Stale:             fetchedAt.IsZero() || h.now().Sub(fetchedAt) > h.interval,
	}
	if !fetchedAt.IsZero() {
		resp.FetchedAt = &fetchedAt
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, resp)
}

// Health godoc
// @Summary      Проверка доступности
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	response.WriteJSONSuccess(w, middlew.GetLogger(r.Context()), http.StatusOK, map[string]string{"status": "ok"})
}
