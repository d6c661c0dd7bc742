package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/apexaso/insights/internal/identity"
	"github.com/apexaso/insights/internal/scope"
	"github.com/apexaso/insights/internal/warehouse"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err       error
		code      string
		status    int
		retryable bool
	}{
		{identity.ErrMalformedCredential, CodeMalformedCredential, http.StatusBadRequest, false},
		{identity.ErrUnauthenticated, CodeUnauthenticated, http.StatusUnauthorized, false},
		{scope.ErrNoAccessibleOrganization, CodeNoAccessibleOrganization, http.StatusForbidden, false},
		{scope.ErrAccessDenied, CodeAccessDenied, http.StatusForbidden, false},
		{ErrInvalidRequest, CodeValidation, http.StatusBadRequest, false},
		{warehouse.ErrUnavailable, CodeWarehouseUnavailable, http.StatusServiceUnavailable, true},
		{warehouse.ErrRejected, CodeWarehouseRejected, http.StatusInternalServerError, false},
		{errors.New("something else"), CodeInternal, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			// Mapping must hold through wrapping.
			wrapped := fmt.Errorf("context: %w", tt.err)
			if got := ErrorCode(wrapped); got != tt.code {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.code)
			}
			if got := HTTPStatus(wrapped); got != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.status)
			}
			if got := Retryable(wrapped); got != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}
