package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/libreserve/backend/logger"
	"github.com/libreserve/backend/middleware"
	"github.com/libreserve/backend/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps a typed service failure to its transport status.
// Internal details are logged, never leaked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		logger.WithRequestID(middleware.RequestIDFromContext(r.Context())).Error("internal error", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unexpected server error"})
		return
	}
	writeJSON(w, statusForKind(kind), errorResponse{Error: service.Message(err)})
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindIncompleteInput, service.KindInvalidDate,
		service.KindUnavailable, service.KindDuplicateReservation,
		service.KindAlreadyReturned:
		return http.StatusBadRequest
	case service.KindInvalidCredentials:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
