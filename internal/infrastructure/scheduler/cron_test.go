package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"*/15 * * * *", "0 */5 * * * *", "@hourly"} {
		if err := Validate(spec); err != nil {
			t.Fatalf("%q should parse: %v", spec, err)
		}
	}
	if err := Validate("every now and then"); err == nil {
		t.Fatalf("expected invalid expression error")
	}
}

func TestCronSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("@every 50ms", time.UTC)
	fired := make(chan time.Time, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx, func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	select {
	case at := <-fired:
		if at.Location() != time.UTC {
			t.Fatalf("job must receive time in scheduler location, got %s", at.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job never fired")
	}

	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop must be a no-op: %v", err)
	}
}

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	sched := NewCronScheduler("not cron", nil)
	if err := sched.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected schedule error")
	}
}
