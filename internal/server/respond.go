package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("http.response.encode_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrBatchRejected),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrQuotaExhausted):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError answers with the error's user message. Failures without a
// message of their own are reported as internal errors.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		if status := statusFor(err); status != http.StatusInternalServerError {
			writeError(w, status, common.UserMessage(err))
			return
		}
		slog.Default().Error("http.internal_error", "error", err)
		err = common.NewInternalError(err)
	}
	writeError(w, statusFor(err), common.UserMessage(err))
}
