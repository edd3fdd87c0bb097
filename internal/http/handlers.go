package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

// handleUpload authenticates the caller, reads the form and runs the
// ingestion pipeline.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError(http.MethodPost).Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx, s.logger)

	userID, err := s.resolver.ResolveCaller(ctx, auth.BearerToken(r))
	if err != nil {
		if core.KindOf(err) == "" {
			logger.ErrorContext(ctx, "Caller resolution failed", log.FieldError, err)
		}
		ErrorResponse(err).Write(w)
		return
	}

	req, err := ParseUploadRequest(w, r, s.maxUploadBytes)
	if err != nil {
		logger.WarnContext(ctx, "Upload request rejected",
			log.FieldUserID, userID,
			log.FieldErrorKind, string(core.KindOf(err)),
			log.FieldError, err)
		ErrorResponse(err).Write(w)
		return
	}

	result, err := s.uploader.Process(ctx, userID, req)
	ResultResponse(result, err).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the transaction store answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}

	switch {
	case s.pinger == nil:
		checks["store"] = "not_configured"
	default:
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(r.Context(), s.logger).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			checks["store"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		}
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in a Prometheus-like text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ingest := s.uploader.Stats()
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metrics := []struct {
		name, help, kind string
		value            int64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_requests_failed_total", "HTTP requests answered with status >= 400", "counter", traceMetrics.FailedRequests},
		{"http_request_duration_avg_microseconds", "Average request duration", "gauge", traceMetrics.AverageResponseTime},
		{"uploads_total", "Batch uploads received", "counter", ingest.Uploads},
		{"uploads_succeeded_total", "Batch uploads fully persisted", "counter", ingest.Succeeded},
		{"uploads_failed_total", "Batch uploads rejected or failed", "counter", ingest.Failed},
		{"rows_inserted_total", "Transaction rows persisted", "counter", ingest.RowsInserted},
		{"compensations_total", "Compensating deletes started", "counter", ingest.Compensations},
		{"compensation_failures_total", "Compensating deletes that left rows behind", "counter", ingest.CompensationFailures},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.started).Seconds())},
	}
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n\n", m.name, m.value)
	}
}
