package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/api/handler"
	apimw "github.com/advisio/messaging-core/internal/api/middleware"
	"github.com/advisio/messaging-core/internal/ratelimiter"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	wh *handler.WebhookHandler,
	mh *handler.MessageHandler,
	hh *handler.HealthHandler,
	bh *handler.BookingHandler,
	ph *handler.PresenceHandler,
	limiters *ratelimiter.SourceLimiters,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/webhooks", func(r chi.Router) {
		r.With(throttle(limiters, ratelimiter.SourcePayments)).
			Post("/payments", wh.Payment)
		r.With(throttle(limiters, ratelimiter.SourceScheduling)).
			Post("/scheduling", wh.Scheduling)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages/email", mh.SendEmail)
		r.Post("/messages/sms", mh.SendSMS)
		r.Post("/bookings/pending", bh.RegisterPending)
		r.Get("/presence", ph.Online)
		r.Put("/presence/{userID}", ph.Connect)
		r.Delete("/presence/{userID}", ph.Disconnect)
	})

	return r
}

// throttle rejects requests with 429 once the source's token bucket is
// drained. Providers retry rejected webhooks, so shedding here is safe.
func throttle(limiters *ratelimiter.SourceLimiters, source string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.Allow(source) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
