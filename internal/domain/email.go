package domain

import "time"

// RenderedEmail is a fully built message ready for the provider.
type RenderedEmail struct {
	// Name is the internal campaign label, unused for transactional sends.
	Name    string
	Subject string
	HTML    string
}

// Campaign is a bulk send to a provider-managed list.
type Campaign struct {
	ListID  int64
	Name    string
	Subject string
	HTML    string
}

// TransactionalEmail is a single-recipient send.
type TransactionalEmail struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	ReplyTo     string
	ReplyToName string
}

// RateOutcome enumerates limiter decisions.
type RateOutcome string

const (
	RateAllowed       RateOutcome = "allowed"
	RateThrottled     RateOutcome = "throttled"
	RateMisconfigured RateOutcome = "misconfigured"
)

// RateDecision is the result of a limiter check. Misconfigured decisions
// are treated as allowed.
type RateDecision struct {
	Outcome RateOutcome
	Wait    time.Duration
}

// Allowed reports whether the request may proceed.
func (d RateDecision) Allowed() bool {
	return d.Outcome != RateThrottled
}
