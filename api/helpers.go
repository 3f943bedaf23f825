package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fiverrclaw/fiverrclaw/internal/apperr"
)

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

// writeAppErr translates a taxonomy error into the JSON error shape,
// logging internal causes without leaking them.
func writeAppErr(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		logger.Error("internal error", slog.Any("err", err))
	}
	writeError(w, status, apperr.PublicMessage(err))
}

// formatBudget renders integer cents as dollars for display.
func formatBudget(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
