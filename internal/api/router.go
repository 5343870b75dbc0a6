package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/logicflow/engine/internal/api/handlers"
	mw "github.com/logicflow/engine/internal/api/middleware"
	"github.com/logicflow/engine/internal/api/types"
	"github.com/logicflow/engine/internal/ratelimit"
	appErr "github.com/logicflow/engine/pkg/errors"
)

type Dependencies struct {
	HMACSecret []byte

	ProjectsHandler *handlers.ProjectsHandler
	VersionsHandler *handlers.VersionsHandler
	BackupHandler   *handlers.BackupHandler
	ShareHandler    *handlers.ShareHandler
	AIHandler       *handlers.AIHandler
	TraceHandler    *handlers.TraceHandler
	HealthHandler   *handlers.HealthHandler

	// Throttle guards every route; nil disables it.
	Throttle     *mw.IPThrottle
	AILimiter    ratelimit.Limiter
	ShareLimiter ratelimit.Limiter
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.Throttle != nil {
		r.Use(dep.Throttle.Handler)
	}
	r.Use(chimid.Compress(5))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		types.WriteError(w, appErr.New(appErr.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		types.WriteJSON(w, http.StatusMethodNotAllowed, types.APIResponse{
			Error: &types.APIError{Code: "method_not_allowed", Message: "method not allowed"},
		})
	})

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			if dep.ShareLimiter != nil {
				public.Use(mw.WindowLimit(dep.ShareLimiter))
			}
			public.Get("/share/{shareToken}", dep.ShareHandler.Get)
		})

		api.Group(func(guest chi.Router) {
			guest.Use(mw.OptionalAuth(dep.HMACSecret))
			if dep.AILimiter != nil {
				guest.Use(mw.WindowLimit(dep.AILimiter))
			}
			guest.Post("/diagram", dep.AIHandler.Diagram)
			guest.Post("/convert", dep.AIHandler.Convert)
			guest.Post("/analyze", dep.AIHandler.Analyze)
			guest.Post("/explain", dep.AIHandler.Explain)
			guest.Post("/trace", dep.TraceHandler.Run)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)

				pr.Route("/{id}", func(p chi.Router) {
					p.Get("/", dep.ProjectsHandler.Get)
					p.Put("/", dep.ProjectsHandler.Update)
					p.Delete("/", dep.ProjectsHandler.Delete)
					p.Post("/", dep.ProjectsHandler.Restore)
					p.Patch("/", dep.ProjectsHandler.Patch)
					p.Get("/history", dep.ProjectsHandler.History)

					p.Route("/versions", func(vr chi.Router) {
						vr.Get("/", dep.VersionsHandler.List)
						vr.Post("/", dep.VersionsHandler.Create)
						vr.Get("/{versionId}", dep.VersionsHandler.Get)
						vr.Post("/{versionId}", dep.VersionsHandler.Restore)
						vr.Post("/{versionId}/restore", dep.VersionsHandler.Restore)
						vr.Delete("/{versionId}", dep.VersionsHandler.Delete)
						vr.Get("/{versionId}/history", dep.VersionsHandler.History)
					})
				})
			})

			protected.Get("/backup", dep.BackupHandler.Export)
			protected.Post("/backup/import", dep.BackupHandler.Import)
		})
	})

	return r
}
