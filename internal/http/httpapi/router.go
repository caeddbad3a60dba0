package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pixelstudio/internal/http/handlers"
	"pixelstudio/internal/middleware"
)

// Options tunes the middleware stack.
type Options struct {
	DefaultLocale   string
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/connection", app.Connection)
	r.Get("/v1/stats", app.Stats)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Get("/", app.ListJobs)
		r.Post("/", app.TrackJob)
		r.Get("/active", app.ListActiveJobs)
		r.Get("/completed", app.ListCompletedJobs)
		r.Get("/failed", app.ListFailedJobs)
		r.Post("/sweep", app.SweepJobs)
		r.Get("/{id}", app.GetJob)
		r.Delete("/{id}", app.DismissJob)
	})

	return r
}
