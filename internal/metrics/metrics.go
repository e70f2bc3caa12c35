// Package metrics holds the Prometheus collectors of the notifier.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_notifier_dispatch_total",
		Help: "Publication dispatch attempts by content kind and outcome.",
	}, []string{"kind", "outcome"})

	contactSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_notifier_contact_submissions_total",
		Help: "Contact form submissions by outcome.",
	}, []string{"outcome"})

	contactNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_notifier_contact_notifications_total",
		Help: "Admin notifications for contact messages by outcome.",
	}, []string{"outcome"})

	stalePending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stale_pending_notifications",
		Help: "Ledger records stuck in pending beyond the configured age.",
	})
)

// ObserveDispatch counts one dispatch outcome.
func ObserveDispatch(kind, outcome string) {
	dispatches.WithLabelValues(kind, outcome).Inc()
}

// ObserveContactSubmission counts accepted, invalid and throttled submissions.
func ObserveContactSubmission(outcome string) {
	contactSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveContactNotification counts sent or failed admin notifications.
func ObserveContactNotification(outcome string) {
	contactNotifications.WithLabelValues(outcome).Inc()
}

// SetStalePending publishes the latest audit count.
func SetStalePending(n int) {
	stalePending.Set(float64(n))
}
