package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"zenstay/internal/core"
	"zenstay/internal/occupancy"
	"zenstay/pkg/domain"
)

type errorBody struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// errBadRequest marks request decoding and validation failures.
type errBadRequest struct{ err error }

func (e errBadRequest) Error() string { return e.err.Error() }
func (e errBadRequest) Unwrap() error { return e.err }

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var notFound domain.ErrNotFound
	var blocked domain.RuleViolationError
	var bad errBadRequest
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &blocked):
		return http.StatusUnprocessableEntity
	case errors.As(err, &bad), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidVacancy),
		errors.Is(err, occupancy.ErrNoBeds),
		errors.Is(err, occupancy.ErrInvalidNights),
		errors.Is(err, occupancy.ErrInvalidDate),
		errors.Is(err, occupancy.ErrInvalidBatch):
		return http.StatusBadRequest
	case errors.Is(err, occupancy.ErrBedUnavailable),
		errors.Is(err, occupancy.ErrRoomOccupied),
		errors.Is(err, occupancy.ErrGuestExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var blocked domain.RuleViolationError
	if errors.As(err, &blocked) {
		body.Violations = blocked.Result.Violations
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}
