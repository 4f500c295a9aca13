package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/KenL-TW/travel-planner-pro/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps application errors to HTTP statuses. Unknown errors
// become opaque 500s; the caller is expected to have logged them.
func writeError(w http.ResponseWriter, err error) {
	var ie *apperr.ImportError
	if errors.As(err, &ie) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   ie.Error(),
			"records": ie.Records,
		})
		return
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := http.StatusInternalServerError
		switch ae.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindConstraint:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": ae.Error()})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// validDate accepts an empty string or YYYY-MM-DD.
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// validClock accepts an empty string or HH:MM.
func validClock(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
