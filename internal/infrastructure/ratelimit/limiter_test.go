package ratelimit

import (
	"testing"
	"time"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/logging"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, spec string) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(spec, logging.Discard())
	l.now = c.now
	return l, c
}

func TestParseRate(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		count  int
		period time.Duration
	}{
		"5/hour":   {5, time.Hour},
		"10/m":     {10, time.Minute},
		" 2/day ":  {2, 24 * time.Hour},
		"1/second": {1, time.Second},
	}
	for spec, want := range cases {
		count, period, err := ParseRate(spec)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", spec, err)
		}
		if count != want.count || period != want.period {
			t.Fatalf("%q: got %d/%s", spec, count, period)
		}
	}

	for _, bad := range []string{"", "5", "x/hour", "0/hour", "-1/hour", "5/", "5/week"} {
		if _, _, err := ParseRate(bad); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}

func TestAllowThrottlesPerKey(t *testing.T) {
	t.Parallel()

	l, c := newTestLimiter(t, "5/hour")

	for i := 0; i < 5; i++ {
		if d := l.Allow("10.0.0.1"); d.Outcome != domain.RateAllowed {
			t.Fatalf("request %d should pass, got %s", i+1, d.Outcome)
		}
	}

	d := l.Allow("10.0.0.1")
	if d.Outcome != domain.RateThrottled || d.Allowed() {
		t.Fatalf("sixth request should be throttled, got %s", d.Outcome)
	}
	if d.Wait <= 0 || d.Wait > 12*time.Minute {
		t.Fatalf("unexpected wait %s", d.Wait)
	}

	if d := l.Allow("10.0.0.2"); d.Outcome != domain.RateAllowed {
		t.Fatalf("other address must have its own budget, got %s", d.Outcome)
	}

	c.t = c.t.Add(12 * time.Minute)
	if d := l.Allow("10.0.0.1"); d.Outcome != domain.RateAllowed {
		t.Fatalf("token should refill after wait, got %s", d.Outcome)
	}
}

func TestThrottledDecisionDoesNotConsume(t *testing.T) {
	t.Parallel()

	l, c := newTestLimiter(t, "1/minute")

	if d := l.Allow("a"); d.Outcome != domain.RateAllowed {
		t.Fatalf("first request should pass")
	}
	for i := 0; i < 10; i++ {
		if d := l.Allow("a"); d.Outcome != domain.RateThrottled {
			t.Fatalf("burst should be throttled")
		}
	}

	c.t = c.t.Add(time.Minute)
	if d := l.Allow("a"); d.Outcome != domain.RateAllowed {
		t.Fatalf("rejected requests must not push the refill later, got %s", d.Outcome)
	}
}

func TestMisconfiguredFailsOpen(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t, "lots")
	for i := 0; i < 100; i++ {
		d := l.Allow("a")
		if d.Outcome != domain.RateMisconfigured || !d.Allowed() {
			t.Fatalf("misconfigured limiter must fail open, got %s", d.Outcome)
		}
	}
}

func TestIdleBucketsAreSwept(t *testing.T) {
	t.Parallel()

	l, c := newTestLimiter(t, "3/minute")
	l.Allow("a")
	l.Allow("b")
	if l.size() != 2 {
		t.Fatalf("expected 2 buckets, got %d", l.size())
	}

	c.t = c.t.Add(2 * time.Minute)
	l.Allow("c")
	if l.size() != 1 {
		t.Fatalf("idle buckets should be dropped, got %d", l.size())
	}
}
