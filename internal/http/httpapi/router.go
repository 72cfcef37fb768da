package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mediaforge/internal/http/handlers"
	"mediaforge/internal/infra"
	appmw "mediaforge/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(logger),
	)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(appmw.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitPerMin > 0 {
		r.Use(appmw.RateLimit(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/credits", app.Credits)
	r.Get("/v1/archive", app.ArchiveRecent)

	r.Route("/v1/tasks", func(r chi.Router) {
		r.Post("/", app.TasksCreate)
		r.Post("/storyboard", app.TasksStoryboard)
		r.Post("/frames", app.TasksFrames)
		r.Get("/", app.TasksList)
		r.Get("/{id}", app.TaskGet)
		r.Delete("/{id}", app.TaskDelete)
		r.Post("/{id}/retry", app.TaskRetry)
	})

	return r
}
