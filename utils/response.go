// Package utils holds the small HTTP helpers shared by the controllers.
package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kelydev/apiProyectos/apperrors"
	"github.com/kelydev/apiProyectos/models"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error encoding response", "err", err)
	}
}

// WriteOK sends data inside a successful envelope.
func WriteOK(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, models.Response{Success: true, Data: data})
}

// WriteError maps err to its status and sends a failed envelope. Only the
// public message leaves the server; internal causes are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)
	status := appErr.Status()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", appErr.Err)
	}
	msg := appErr.Message
	WriteJSON(w, status, models.Response{Success: false, Error: &msg})
}
