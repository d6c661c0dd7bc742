package api

import (
	"log/slog"
	"net/http"

	"github.com/apexaso/insights/internal/analytics"
	"github.com/apexaso/insights/internal/audit"
	"github.com/apexaso/insights/internal/middleware"
)

// AnalyticsHandlers serves the analytics query endpoint.
type AnalyticsHandlers struct {
	service *analytics.Service
	logger  *slog.Logger
}

// NewAnalyticsHandlers creates the analytics handlers.
func NewAnalyticsHandlers(service *analytics.Service, logger *slog.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{service: service, logger: logger}
}

// Query handles GET and POST /v1/analytics/query.
//
// GET carries the query in URL parameters (start_date, end_date, app_ids,
// traffic_source, comparison, include_raw, aggregate, org_id); POST carries
// the same fields as a JSON body.
func (h *AnalyticsHandlers) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed", false)
		return
	}

	req, err := analytics.ParseRequest(r)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	meta := analytics.RequestMeta{
		RequestID: middleware.GetRequestID(r.Context()),
		IPAddress: audit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	result, err := h.service.Query(r.Context(), r.Header.Get("Authorization"), req, meta)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	ctx := middleware.SetPrincipalID(r.Context(), result.PrincipalID)
	middleware.UpdateResponseContext(w, ctx)
	writeJSON(w, ctx, result.Response)
}
