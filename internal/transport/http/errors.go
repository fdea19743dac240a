package http

import (
	"errors"
	"net/http"

	"quiz-engine/internal/domain"
)

// errorPayload is shared by REST error bodies and websocket error messages.
type errorPayload struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

// classify maps a use-case error onto an HTTP status and a stable error code.
func classify(err error) (int, errorPayload) {
	payload := errorPayload{Message: err.Error()}

	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &invalid):
		payload.Code = "invalid"
		payload.Problems = invalid.Problems
		return http.StatusBadRequest, payload
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		payload.Code = "not_found"
		return http.StatusNotFound, payload
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrOptionNotFound):
		payload.Code = "invalid_answer"
		return http.StatusBadRequest, payload
	case errors.Is(err, domain.ErrAttemptExpired):
		payload.Code = "expired"
		return http.StatusConflict, payload
	case errors.Is(err, domain.ErrAttemptConflict):
		payload.Code = "conflict"
		return http.StatusConflict, payload
	case errors.Is(err, domain.ErrNotEligible):
		payload.Code = "not_eligible"
		return http.StatusForbidden, payload
	case errors.Is(err, domain.ErrForbidden):
		payload.Code = "forbidden"
		return http.StatusForbidden, payload
	default:
		payload.Code = "internal"
		payload.Message = "internal error"
		return http.StatusInternalServerError, payload
	}
}
