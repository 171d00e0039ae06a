package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_currency"`
	Message string `json:"message,omitempty" example:"Invalid currency"`
}

func WriteJSONError(w http.ResponseWriter, log *slog.Logger, status int, errCode, message string) {
	if status >= http.StatusInternalServerError {
		log.Warn("ответ с ошибкой сервера", slog.Int("status", status), slog.String("code", errCode))
	}
	writeJSON(w, log, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteJSONSuccess writes data as JSON; a nil data writes headers only.
func WriteJSONSuccess(w http.ResponseWriter, log *slog.Logger, status int, data any) {
	if data == nil {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(status)
		return
	}
	writeJSON(w, log, status, data)
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error("ошибка при кодировании JSON-ответа", slog.String("error", err.Error()))
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_error"}`))
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Debug("клиент закрыл соединение", slog.String("error", err.Error()))
	}
}
