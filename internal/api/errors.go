// Package api provides the HTTP handlers for the insights API, including
// standardized error responses.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/apexaso/insights/internal/analytics"
	"github.com/apexaso/insights/internal/middleware"
)

// ErrCodeBadRequest is the generic transport-level error code (wrong method,
// unreadable request). Pipeline errors carry their own codes from the
// analytics package.
const ErrCodeBadRequest = "bad_request"

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure:
// {"error": {"code": "...", "message": "...", "retryable": false}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code, a human-readable message, and whether
// the caller may retry the same request with backoff.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// WriteError writes a standardized JSON error response.
//
// Call middleware.SetErrorCode on the context first so the logging middleware
// picks the code up, and pass the updated context here.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string, retryable bool) {
	middleware.UpdateResponseContext(w, ctx)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}

	data, err := json.Marshal(errResp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// writePipelineError maps an analytics pipeline error onto its wire code and
// status and writes the standard envelope.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	code := analytics.ErrorCode(err)
	ctx := middleware.SetErrorCode(r.Context(), code)
	WriteError(w, ctx, analytics.HTTPStatus(err), code, messageFor(code, err), analytics.Retryable(err))
}

// messageFor keeps 5xx messages generic; upstream error detail stays in logs.
func messageFor(code string, err error) string {
	switch code {
	case analytics.CodeWarehouseUnavailable:
		return "Analytics warehouse is temporarily unavailable"
	case analytics.CodeWarehouseRejected:
		return "Analytics query failed"
	case analytics.CodeInternal:
		return "Internal server error"
	default:
		return err.Error()
	}
}

// writeJSON writes a 200 JSON response.
func writeJSON(w http.ResponseWriter, ctx context.Context, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
