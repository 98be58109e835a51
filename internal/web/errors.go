package web

// errors.go turns handler errors into JSON responses. The technical error
// is logged with the request ID; the client gets the mapped user message
// and its support code.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/ibreport/internal/logging"
	"github.com/JonMunkholm/ibreport/internal/report"
	"github.com/JonMunkholm/ibreport/internal/runlog"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message with status.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := report.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status of a run error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, report.ErrUnknownScript), errors.Is(err, runlog.ErrNotFound), errors.Is(err, errFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, report.ErrMissingArg), errors.Is(err, report.ErrMissingInput), errors.Is(err, errNoFile), errors.Is(err, errInvalidRunID):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case report.IsUserFacing(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
