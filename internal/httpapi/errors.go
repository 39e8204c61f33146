package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/filevault/internal/files"
)

// HTTPError is an error with everything needed to render it.
type HTTPError struct {
	// Err is the cause; logged, never shown.
	Err error
	// Message is shown to the client.
	Message string
	// ErrorCode is a stable machine-readable code.
	ErrorCode string
	Code      int
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, errorCode, message string) *HTTPError {
	return &HTTPError{Code: code, ErrorCode: errorCode, Message: message}
}

func errBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, "bad_request", message)
}

func errUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, "unauthorized", message)
}

func errForbidden(message string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, "forbidden", message)
}

func errNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, "not_found", message)
}

// toHTTPError maps domain errors to their HTTP rendering.
func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var e *HTTPError
	switch {
	case errors.Is(err, files.ErrForbidden):
		e = errForbidden("you may not access this object")
	case errors.Is(err, files.ErrNotFound):
		e = errNotFound("file not found")
	case errors.Is(err, files.ErrInvalidKey):
		e = NewHTTPError(http.StatusUnprocessableEntity, "invalid_key", "storage key is not valid")
	case errors.Is(err, files.ErrInvalidFilename):
		e = NewHTTPError(http.StatusUnprocessableEntity, "invalid_filename", "filename is not valid")
	case errors.Is(err, files.ErrUpstream):
		e = NewHTTPError(http.StatusBadGateway, "upstream_error", "object store unavailable, retry later")
	default:
		e = NewHTTPError(http.StatusInternalServerError, "internal_error", "internal server error")
	}
	e.Err = err
	return e
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError renders err as JSON. Server-side failures are logged at error
// level, client errors at debug.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	e := toHTTPError(err)

	if e.Code >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", e.Code),
			slog.Any("error", err),
		)
	} else {
		log.DebugContext(r.Context(), "request rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status", e.Code),
			slog.Any("error", err),
		)
	}

	writeJSON(w, e.Code, errorBody{Error: errorDetail{
		Code:      e.ErrorCode,
		Message:   e.Message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}
