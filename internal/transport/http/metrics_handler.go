package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	prometheus http.Handler
}

// NewMetricsHandler creates a new metrics handler. A nil handler answers 404
// so a disabled exporter does not break the route table.
func NewMetricsHandler(prometheus http.Handler) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	return r
}

// GetMetrics handles GET /metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.NotFound(w, r)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
