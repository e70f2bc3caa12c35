package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/metrics"
	"PublishNotifier/internal/ports"
)

const defaultStaleAfter = 30 * time.Minute

// Auditor periodically reports ledger records stuck in pending. It only
// reads; resolving a stuck record is an operator reset.
type Auditor struct {
	driver     ports.Scheduler
	ledger     ports.NotificationLedger
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewAuditor wires the scheduler driver with the ledger.
func NewAuditor(driver ports.Scheduler, ledger ports.NotificationLedger, staleAfter time.Duration, logger *slog.Logger) *Auditor {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		driver:     driver,
		ledger:     ledger,
		staleAfter: staleAfter,
		logger:     logger.With("component", "audit"),
	}
}

// Start registers the audit with the provided scheduler.
func (a *Auditor) Start(ctx context.Context) error {
	if a.driver == nil || a.ledger == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := a.RunOnce(ctx, trigger); err != nil {
			a.logger.Error("stale pending audit failed", "err", err)
		}
	}

	return a.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (a *Auditor) Stop(ctx context.Context) error {
	if a.driver == nil {
		return nil
	}

	return a.driver.Stop(ctx)
}

// RunOnce lists pending records created before at minus the stale age.
func (a *Auditor) RunOnce(ctx context.Context, at time.Time) ([]domain.NotificationRecord, error) {
	cutoff := at.Add(-a.staleAfter)
	records, err := a.ledger.ListStalePending(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}

	metrics.SetStalePending(len(records))
	for _, rec := range records {
		a.logger.Warn("notification stuck in pending",
			"record_id", rec.ID,
			"content_kind", rec.Kind,
			"content_id", rec.ContentID,
			"created_at", rec.CreatedAt,
			"age", at.Sub(rec.CreatedAt).Round(time.Second),
		)
	}
	if len(records) == 0 {
		a.logger.Debug("no stale pending notifications", "cutoff", cutoff)
	}
	return records, nil
}
