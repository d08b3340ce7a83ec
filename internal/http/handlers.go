package http

import (
	"context"
	"net/http"
	"time"

	"famledger/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

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

	switch {
	case s.ready == nil:
		checks["backend"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"hits":           s.limiter.GetMetrics().TotalHits,
	}
	checks["requests"] = s.tracer.GetMetrics().TotalRequests

	NewResponse().
		Status(httpStatus).
		JSON(map[string]any{
			"status":    status,
			"timestamp": s.now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleIndex serves the single page client. Data is fetched by the page
// through the JSON API.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	today := s.ledger.Today()
	data := struct {
		Today      string
		Year       int
		Month      int
		Categories []string
	}{
		Today:      today.String(),
		Year:       today.Year(),
		Month:      today.Month(),
		Categories: categoryChoices,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			"template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
