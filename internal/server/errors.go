package server

import (
	"errors"
	"net/http"

	"github.com/spigell/resume-matcher/internal/extraction"
)

var (
	ErrNoFile      = errors.New("no file uploaded")
	ErrRateLimited = errors.New("too many requests, please try again later")
)

// HTTPStatus returns the status code for an error raised while handling a request.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoFile),
		errors.Is(err, extraction.ErrUnsupportedFormat),
		errors.Is(err, extraction.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// newErrorBody exposes client errors directly; server errors get a generic message
// with the cause in details.
func newErrorBody(status int, err error) errorBody {
	if status >= http.StatusInternalServerError {
		return errorBody{Error: "Failed to process resume", Details: err.Error()}
	}
	return errorBody{Error: err.Error()}
}
