package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/infra/geoip"
	"server/internal/middleware"
)

// Options carries the router's cross-cutting config.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	GeoIP           *geoip.Resolver
	Logger          zerolog.Logger
}

// NewRouter mounts the API. The payment webhook sits outside both auth and
// the submission rate limit: it authenticates with its own signature and the
// provider controls its delivery rate.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.GeoIP != nil {
		r.Use(middleware.Country(opts.GeoIP))
	}

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/payment", app.PaymentWebhook)

	submitLimit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Route("/jobs", func(r chi.Router) {
			r.With(submitLimit).Post("/", app.JobsCreate)
			r.Get("/", app.JobsList)
			r.Get("/{id}", app.JobsGet)
		})
		r.Route("/videos", func(r chi.Router) {
			r.With(submitLimit).Post("/", app.VideosCreate)
			r.Get("/", app.VideosList)
			r.Get("/{id}", app.VideosGet)
		})
	})

	return r
}
