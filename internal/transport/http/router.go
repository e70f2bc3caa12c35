package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PublishNotifier/internal/ports"
)

// Deps wires the routes to the application services.
type Deps struct {
	Contact       ContactService
	Watcher       ContentWatcher
	Ledger        LedgerReader
	Resetter      Resetter
	Limiter       ports.RateLimiter
	Ready         Pinger
	AdminToken    string
	WebhookSecret string
	// TrustForwardedFor keys the contact throttle on X-Forwarded-For.
	TrustForwardedFor bool
	Logger            *slog.Logger
}

// NewRouter builds the public, webhook and admin API.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		contact:  deps.Contact,
		watcher:  deps.Watcher,
		ledger:   deps.Ledger,
		resetter: deps.Resetter,
		limiter:  deps.Limiter,
		ready:    deps.Ready,
		logger:   logger.With("component", "http"),

		trustForwarded: deps.TrustForwardedFor,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/contact", h.submitContact)

	r.Group(func(r chi.Router) {
		r.Use(requireSecret(deps.WebhookSecret, webhookSecret))
		r.Post("/hooks/content-saved", h.contentSaved)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireSecret(deps.AdminToken, bearerToken))
		r.Get("/notifications", h.listNotifications)
		r.Get("/notifications/{kind}/{id}", h.getNotification)
		r.Post("/notifications/{kind}/{id}/reset", h.resetNotification)
		r.Get("/contact-messages", h.listContactMessages)
		r.Get("/contact-messages/stats", h.contactStats)
		r.Get("/contact-messages/{id}", h.getContactMessage)
		r.Post("/contact-messages/{id}/replied", h.markContactReplied)
		r.Post("/contact-messages/{id}/archive", h.archiveContactMessage)
	})

	return r
}
