package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/filevault/pkg/health"
)

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(s.log), Recover(s.log))

	r.NotFound(s.handle(func(w http.ResponseWriter, r *http.Request) error {
		return errNotFound("route not found")
	}))
	r.MethodNotAllowed(s.handle(func(w http.ResponseWriter, r *http.Request) error {
		return NewHTTPError(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}))

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(s.checks, health.WithLogger(s.log)))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/files", func(r chi.Router) {
		r.Use(s.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireRole(RoleViewer))
			r.Get("/", s.handle(s.listFiles))
			r.Get("/{id}", s.handle(s.getFile))
			r.Get("/{id}/download", s.handle(s.downloadFile))
		})

		r.Group(func(r chi.Router) {
			r.Use(s.RequireRole(RoleEditor))
			r.Post("/presign-upload", s.handle(s.presignUpload))
			r.Post("/finalize", s.handle(s.finalize))
			r.Delete("/{id}", s.handle(s.deleteFile))
		})

		r.With(s.RequireRole(RoleAdmin)).Get("/all", s.handle(s.listAllFiles))
	})

	return r
}
