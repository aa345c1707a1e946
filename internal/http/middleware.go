package httpx

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/manav03panchal/nodiverse/internal/app"
	"github.com/manav03panchal/nodiverse/pkg/ratelimit"
)

type Middleware struct {
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
}

// NewMiddleware builds the shared middleware stack from config
func NewMiddleware(cfg app.Config) *Middleware {
	perMin := cfg.APIRatePerMinute
	if perMin <= 0 {
		perMin = 120
	}
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllow,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}),
		rlimit: ratelimit.New(perMin, time.Minute),
	}
}

// Wrap applies CORS to everything
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.cors.Handler(h)
}

// Limit rate limits a REST handler per client IP
func (m *Middleware) Limit(h http.HandlerFunc) http.Handler {
	return m.rlimit.Middleware(h)
}
