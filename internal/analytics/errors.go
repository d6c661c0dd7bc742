package analytics

import (
	"errors"
	"net/http"

	"github.com/apexaso/insights/internal/identity"
	"github.com/apexaso/insights/internal/scope"
	"github.com/apexaso/insights/internal/warehouse"
)

// Machine-readable error codes carried on error responses and audit events.
const (
	CodeMalformedCredential      = "malformed_credential"
	CodeUnauthenticated          = "unauthenticated"
	CodeNoAccessibleOrganization = "no_accessible_organization"
	CodeAccessDenied             = "access_denied"
	CodeValidation               = "validation_error"
	CodeWarehouseUnavailable     = "warehouse_unavailable"
	CodeWarehouseRejected        = "warehouse_query_rejected"
	CodeInternal                 = "internal_error"
)

// ErrorCode maps a pipeline error onto its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, identity.ErrMalformedCredential):
		return CodeMalformedCredential
	case errors.Is(err, identity.ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, scope.ErrNoAccessibleOrganization):
		return CodeNoAccessibleOrganization
	case errors.Is(err, scope.ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrInvalidRequest):
		return CodeValidation
	case errors.Is(err, warehouse.ErrUnavailable):
		return CodeWarehouseUnavailable
	case errors.Is(err, warehouse.ErrRejected):
		return CodeWarehouseRejected
	default:
		return CodeInternal
	}
}

// HTTPStatus maps a pipeline error onto its status code: 4xx for caller
// errors, 503 for retryable upstream failures, 500 for everything else.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeMalformedCredential, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNoAccessibleOrganization, CodeAccessDenied:
		return http.StatusForbidden
	case CodeWarehouseUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request with
// backoff. Only transient warehouse failures qualify; a rejected query will
// fail identically every time.
func Retryable(err error) bool {
	return errors.Is(err, warehouse.ErrUnavailable)
}
