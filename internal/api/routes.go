package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// RegisterRoutes mounts every endpoint on r and wraps it in the shared
// middleware. limiter guards both prediction entry points and may be nil.
func RegisterRoutes(r *mux.Router, h *Handler, limiter *rate.Limiter) http.Handler {
	limit := RateLimitMiddleware(limiter, h.metrics)

	// Dashboard
	r.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	r.Handle("/modules/{subsystem}", limit(http.HandlerFunc(h.SubmitForm))).Methods(http.MethodPost)
	r.HandleFunc("/favicon.svg", h.Favicon).Methods(http.MethodGet)

	// Module APIs
	r.HandleFunc("/api/modules", h.ListModules).Methods(http.MethodGet)
	r.HandleFunc("/api/modules/{subsystem}", h.GetModule).Methods(http.MethodGet)
	r.Handle("/api/modules/{subsystem}/predict", limit(http.HandlerFunc(h.Predict))).Methods(http.MethodPost)
	r.HandleFunc("/api/modules/{subsystem}/assess", h.Assess).Methods(http.MethodGet)
	r.HandleFunc("/api/modules/{subsystem}/history", h.History).Methods(http.MethodGet)

	// Observability APIs
	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.GetMetrics).Methods(http.MethodGet)
	r.Handle("/metrics/prometheus", h.metrics.Handler()).Methods(http.MethodGet)

	// Admin APIs
	r.HandleFunc("/admin/logs", h.GetLogs).Methods(http.MethodGet)
	r.HandleFunc("/admin/backend", h.GetBackend).Methods(http.MethodGet)

	// Middlewares
	return Chain(
		r,
		RecoveryMiddleware(h.logger, h.metrics),
		RequestIDMiddleware,
		LoggingMiddleware(h.logger),
	)
}
