package ratelimit

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/ports"
)

// Limiter keeps one token bucket per key. A limiter built from an invalid
// rate lets every request through and reports RateMisconfigured.
type Limiter struct {
	limit  rate.Limit
	burst  int
	period time.Duration
	err    error
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

var _ ports.RateLimiter = (*Limiter)(nil)

// New builds a limiter from a "N/period" rate such as "5/hour".
func New(spec string, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Limiter{
		logger:  logger,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}

	count, period, err := ParseRate(spec)
	if err != nil {
		l.err = err
		logger.Warn("rate limiter misconfigured, requests will not be throttled", "rate", spec, "err", err)
		return l
	}
	l.burst = count
	l.period = period
	l.limit = rate.Every(period / time.Duration(count))
	return l
}

// ParseRate reads "N/second", "N/minute", "N/hour" or "N/day". Only the
// first letter of the period is significant, so "5/h" and "5/hours" work too.
func ParseRate(spec string) (int, time.Duration, error) {
	num, period, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok {
		return 0, 0, fmt.Errorf("rate %q: expected N/period", spec)
	}
	count, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("rate %q: count must be a positive integer", spec)
	}
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		return 0, 0, fmt.Errorf("rate %q: missing period", spec)
	}
	switch period[0] {
	case 's':
		return count, time.Second, nil
	case 'm':
		return count, time.Minute, nil
	case 'h':
		return count, time.Hour, nil
	case 'd':
		return count, 24 * time.Hour, nil
	}
	return 0, 0, fmt.Errorf("rate %q: unknown period %q", spec, period)
}

// Allow consumes one token for key. Throttled decisions carry the wait until
// a token is available and leave the bucket untouched.
func (l *Limiter) Allow(key string) domain.RateDecision {
	if l.err != nil {
		return domain.RateDecision{Outcome: domain.RateMisconfigured}
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return domain.RateDecision{Outcome: domain.RateThrottled, Wait: l.period}
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return domain.RateDecision{Outcome: domain.RateThrottled, Wait: wait}
	}
	return domain.RateDecision{Outcome: domain.RateAllowed}
}

// sweep drops buckets idle for a full period; they would be full again anyway.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.seen) >= l.period {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
