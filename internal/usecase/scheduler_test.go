package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/logging"
)

func TestAuditorReportsStalePending(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var cutoff time.Time
	ledger := &stubLedger{staleFn: func(_ context.Context, olderThan time.Time) ([]domain.NotificationRecord, error) {
		cutoff = olderThan
		return []domain.NotificationRecord{
			{ID: "r1", Kind: domain.KindVideo, ContentID: 3, Status: domain.NotificationPending, CreatedAt: now.Add(-2 * time.Hour)},
		}, nil
	}}
	driver := &immediateScheduler{at: now}
	auditor := NewAuditor(driver, ledger, time.Hour, logging.Discard())

	if err := auditor.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !driver.started.Load() {
		t.Fatalf("driver not started")
	}
	if !cutoff.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected cutoff %s", cutoff)
	}

	records, err := auditor.RunOnce(context.Background(), now)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one stale record, got %d (%v)", len(records), err)
	}

	if err := auditor.Stop(context.Background()); err != nil || !driver.stopped.Load() {
		t.Fatalf("Stop should reach the driver: %v", err)
	}
}

func TestAuditorPropagatesLedgerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	ledger := &stubLedger{staleFn: func(context.Context, time.Time) ([]domain.NotificationRecord, error) {
		return nil, boom
	}}
	auditor := NewAuditor(nil, ledger, 0, logging.Discard())

	if _, err := auditor.RunOnce(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if err := auditor.Start(context.Background()); err != nil {
		t.Fatalf("Start without driver is a no-op, got %v", err)
	}
}
