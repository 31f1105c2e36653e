package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medtravel/directory/internal/api/handlers"
	"github.com/medtravel/directory/internal/api/middleware"
	"github.com/medtravel/directory/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	cmsHandler        *handlers.CMSHandler
	hospitalsHandler  *handlers.HospitalsHandler
	submissionHandler *handlers.SubmissionHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	cmsHandler *handlers.CMSHandler,
	hospitalsHandler *handlers.HospitalsHandler,
	submissionHandler *handlers.SubmissionHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		cmsHandler:        cmsHandler,
		hospitalsHandler:  hospitalsHandler,
		submissionHandler: submissionHandler,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Directory reads
	r.mux.HandleFunc("GET /api/cms", r.cmsHandler.HandleCMS)
	r.mux.HandleFunc("POST /api/cms/revalidate", r.cmsHandler.Revalidate)
	r.mux.HandleFunc("GET /api/hospitals", r.hospitalsHandler.ListFiltered)
	r.mux.HandleFunc("GET /api/hospitals/{slug}", r.cmsHandler.GetHospital)

	// Website forms
	if r.submissionHandler != nil {
		r.mux.HandleFunc("POST /api/inquiries", r.submissionHandler.Inquiry)
		r.mux.HandleFunc("POST /api/registrations", r.submissionHandler.Registration)
		r.mux.HandleFunc("POST /api/partner-applications", r.submissionHandler.PartnerApplication)
	}

	// promhttp negotiates its own compression, so /metrics bypasses ours.
	root := http.NewServeMux()
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("/", middleware.ResponseOptimization(r.mux))

	// Applied inside out: the last wrapper sees the request first.
	var handler http.Handler = root
	handler = middleware.CacheHeaders("/api/cms", "/api/hospitals")(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
