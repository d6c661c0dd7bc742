package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/apexaso/insights/internal/audit"
	"github.com/apexaso/insights/internal/cache"
	"github.com/apexaso/insights/internal/identity"
	"github.com/apexaso/insights/internal/scope"
	"github.com/apexaso/insights/internal/tracing"
	"github.com/apexaso/insights/internal/warehouse"
)

// RequestMeta carries transport metadata attached to audit events.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// QueryResult pairs the response with the resolved principal so handlers can
// attribute the request in logs.
type QueryResult struct {
	Response    *Response
	PrincipalID string
}

// Service runs the full analytics pipeline for one request: resolve the
// credential, expand scope, consult the cache, query the warehouse on a miss,
// aggregate, assemble, cache, and audit.
type Service struct {
	resolver *identity.Resolver
	expander *scope.Expander
	cache    cache.ResultCache
	planner  *warehouse.Planner
	sink     *audit.Sink
	metrics  *Metrics
	logger   *slog.Logger
	cacheTTL time.Duration

	// group collapses concurrent identical misses into one warehouse call.
	group singleflight.Group
}

// NewService wires the pipeline. metrics may be nil; sink may be nil in
// tests that do not assert on audit events.
func NewService(
	resolver *identity.Resolver,
	expander *scope.Expander,
	resultCache cache.ResultCache,
	planner *warehouse.Planner,
	sink *audit.Sink,
	metrics *Metrics,
	logger *slog.Logger,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		resolver: resolver,
		expander: expander,
		cache:    resultCache,
		planner:  planner,
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Query executes one analytics request end to end. req must already be
// validated by the parser. Every outcome, including failures, produces an
// audit event; failed requests never populate the cache.
func (s *Service) Query(ctx context.Context, authorization string, req *Request, meta RequestMeta) (*QueryResult, error) {
	started := time.Now()

	principal, err := s.resolver.Resolve(ctx, authorization)
	if err != nil {
		s.record(started, "", nil, req, meta, nil, err)
		return nil, err
	}

	qs, err := s.expander.Expand(ctx, principal, req.AppIDs)
	if err != nil {
		s.record(started, principal.ID, nil, req, meta, nil, err)
		return nil, err
	}

	// An explicit org hint outside the resolved scope is a hard denial, not
	// silent narrowing: the caller named a resource it is not entitled to.
	if req.OrgHint != "" && !qs.Unrestricted() && !containsString(qs.OrgIDs, req.OrgHint) {
		err := fmt.Errorf("%w: organization %s is not in scope", scope.ErrAccessDenied, req.OrgHint)
		s.record(started, principal.ID, qs, req, meta, nil, err)
		return nil, err
	}

	if len(qs.DroppedAppIDs) > 0 {
		s.metrics.ObserveScopeNarrowed(len(qs.DroppedAppIDs))
		s.logger.LogAttrs(ctx, slog.LevelInfo, "scope narrowed",
			slog.String("principal_id", principal.ID),
			slog.Any("dropped_app_ids", qs.DroppedAppIDs),
		)
	}

	key := cache.Key(cache.KeyInputs{
		OrgIDs:        qs.OrgIDs,
		AppIDs:        qs.AppIDs,
		Unrestricted:  qs.Unrestricted(),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		TrafficSource: req.TrafficSource,
		Comparison:    req.Comparison,
		IncludeRaw:    req.IncludeRawRows,
		IncludeLegacy: !req.Aggregate,
	})

	if payload, ok := s.cache.Get(ctx, key); ok {
		resp := &Response{}
		if err := json.Unmarshal(payload, resp); err == nil {
			s.metrics.ObserveCacheHit()
			resp.Meta.FromCache = true
			s.record(started, principal.ID, qs, req, meta, resp, nil)
			return &QueryResult{Response: resp, PrincipalID: principal.ID}, nil
		}
		// Treat a payload that fails to decode as a miss and recompute.
		s.metrics.ObserveCacheCorruption()
		s.logger.LogAttrs(ctx, slog.LevelWarn, "corrupt cache payload, recomputing",
			slog.String("cache_key", key),
		)
	}
	s.metrics.ObserveCacheMiss()

	v, err, _ := s.group.Do(key, func() (any, error) {
		queryCtx, endSpan := tracing.StartWarehouseSpan(ctx)
		rows, duration, err := s.planner.Execute(queryCtx, qs, req.DateRange(), req.Comparison, req.TrafficSource)
		endSpan(err)
		if err != nil {
			// Log the query shape, never literal SQL or tenant values.
			s.logger.LogAttrs(ctx, slog.LevelError, "warehouse query failed",
				slog.String("start_date", req.StartDate),
				slog.String("end_date", req.EndDate),
				slog.Bool("comparison", req.Comparison),
				slog.Int("app_filter_size", len(qs.AppIDs)),
				slog.Int64("duration_ms", duration.Milliseconds()),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		s.metrics.ObserveWarehouseQuery(duration.Seconds())

		resp := Assemble(req, rows, qs.AuthorizedAppIDs, duration.Milliseconds())

		if payload, err := json.Marshal(resp); err == nil {
			s.cache.Put(ctx, key, payload, s.cacheTTL)
		}
		return resp, nil
	})
	if err != nil {
		s.record(started, principal.ID, qs, req, meta, nil, err)
		return nil, err
	}

	resp := v.(*Response)
	s.record(started, principal.ID, qs, req, meta, resp, nil)
	return &QueryResult{Response: resp, PrincipalID: principal.ID}, nil
}

// record emits the audit event and outcome metric for one request.
func (s *Service) record(started time.Time, principalID string, qs *scope.QueryScope, req *Request, meta RequestMeta, resp *Response, err error) {
	event := &audit.Event{
		PrincipalID:     principalID,
		RequestedAppIDs: req.AppIDs,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Comparison:      req.Comparison,
		LatencyMS:       time.Since(started).Milliseconds(),
		RequestID:       meta.RequestID,
		IPAddress:       meta.IPAddress,
		UserAgent:       meta.UserAgent,
	}
	if qs != nil {
		event.OrgIDs = qs.OrgIDs
		event.AuthorizedAppIDs = qs.AuthorizedAppIDs
		event.DroppedAppIDs = qs.DroppedAppIDs
	}

	switch {
	case err == nil:
		event.Outcome = audit.OutcomeSuccess
		event.RowCount = resp.Meta.RowCount
		event.FromCache = resp.Meta.FromCache
	case isDenial(err):
		event.Outcome = audit.OutcomeDenied
		event.ErrorCode = ErrorCode(err)
	default:
		event.Outcome = audit.OutcomeError
		event.ErrorCode = ErrorCode(err)
	}

	s.metrics.ObserveQuery(event.Outcome)
	if s.sink != nil {
		s.sink.Record(event)
	}
}

// isDenial distinguishes access denials from operational failures for the
// audit outcome field.
func isDenial(err error) bool {
	return errors.Is(err, identity.ErrMalformedCredential) ||
		errors.Is(err, identity.ErrUnauthenticated) ||
		errors.Is(err, scope.ErrNoAccessibleOrganization) ||
		errors.Is(err, scope.ErrAccessDenied)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
