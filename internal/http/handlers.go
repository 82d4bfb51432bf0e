package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "custdash/internal/log"
	"custdash/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once templates are loaded and the snapshot fetch
// has resolved. A failed fetch still counts as ready: the dashboard serves
// its empty state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	load := s.loadStatus()
	data := map[string]any{"status": string(load)}
	if s.loader != nil {
		if err := s.loader.Err(); err != nil {
			data["error"] = err.Error()
		}
	}
	checks["data"] = data
	if load == services.StatusPending {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		info, err := s.storage(ctx)
		cancel()
		if err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Storage check failed",
				applog.FieldError, err,
				"error_type", applog.ErrorTypeDatabase)
		} else {
			checks["storage"] = info
		}
	}

	checks["sessions"] = s.sessions.Size()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	created, evicted := s.sessions.Stats()

	var customers, transactions int
	if snap := s.snapshot(); snap != nil {
		customers, transactions = len(snap.Customers), len(snap.Transactions)
	}

	var liveCanvases, acquiredCanvases int64
	if s.charts != nil {
		liveCanvases, acquiredCanvases = s.charts.Live(), s.charts.Acquired()
	}

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_requests_in_flight", "Requests currently being served", "gauge", traceMetrics.InFlight)
	metric("dashboard_sessions", "Live dashboard sessions", "gauge", s.sessions.Size())
	metric("dashboard_sessions_created_total", "Sessions created", "counter", created)
	metric("dashboard_sessions_evicted_total", "Sessions evicted or expired", "counter", evicted)
	metric("dashboard_filter_changes_total", "Accepted filter changes", "counter", atomic.LoadInt64(&s.appMetrics.filterChanges))
	metric("dashboard_filter_rejected_total", "Rejected filter inputs", "counter", atomic.LoadInt64(&s.appMetrics.rejected))
	metric("chart_canvases_live", "Chart canvases acquired and not yet released", "gauge", liveCanvases)
	metric("chart_canvases_acquired_total", "Chart canvases ever acquired", "counter", acquiredCanvases)
	metric("snapshot_customers", "Customers in the loaded snapshot", "gauge", customers)
	metric("snapshot_transactions", "Transactions in the loaded snapshot", "gauge", transactions)
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.appMetrics.started).Seconds()))
}
