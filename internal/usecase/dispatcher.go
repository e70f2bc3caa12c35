package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/metrics"
	"PublishNotifier/internal/ports"
)

// Outcome is the terminal state of one dispatch attempt.
type Outcome string

const (
	OutcomeDisabled     Outcome = "disabled"
	OutcomeNotPublished Outcome = "not_published"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeSent         Outcome = "sent"
	OutcomeFailed       Outcome = "failed"
)

// DispatchResult describes what happened to a publication notification.
type DispatchResult struct {
	Outcome    Outcome `json:"outcome"`
	RecordID   string  `json:"record_id,omitempty"`
	CampaignID string  `json:"campaign_id,omitempty"`
	// Retryable is set for transient provider failures. The record stays
	// failed until an operator resets it.
	Retryable bool  `json:"retryable"`
	Err       error `json:"-"`
}

// FeatureFlags switches notifications per content kind.
type FeatureFlags struct {
	Article bool
	Video   bool
}

// Enabled reports whether notifications are on for kind.
func (f FeatureFlags) Enabled(kind domain.ContentKind) bool {
	switch kind {
	case domain.KindArticle:
		return f.Article
	case domain.KindVideo:
		return f.Video
	}
	return false
}

// DispatcherDeps wires the driven adapters used by the dispatcher.
type DispatcherDeps struct {
	Ledger   ports.NotificationLedger
	Provider ports.EmailProvider
	Renderer ports.Renderer
	ListID   int64
	Flags    FeatureFlags
	Logger   *slog.Logger
}

// Dispatcher sends at most one campaign per published content item.
type Dispatcher struct {
	ledger   ports.NotificationLedger
	provider ports.EmailProvider
	renderer ports.Renderer
	listID   int64
	flags    FeatureFlags
	logger   *slog.Logger
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ledger:   deps.Ledger,
		provider: deps.Provider,
		renderer: deps.Renderer,
		listID:   deps.ListID,
		flags:    deps.Flags,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch validates the item reference, then runs flag check, dedup claim, render, send and record for item.
// The ledger claim happens before any provider call so concurrent calls for
// the same item produce a single campaign.
func (d *Dispatcher) Dispatch(ctx context.Context, item domain.ContentItem) DispatchResult {
	log := d.logger.With("content_kind", item.Kind, "content_id", item.ID)

	if !item.Kind.Valid() {
		err := fmt.Errorf("content kind %q: %w", item.Kind, domain.ErrValidation)
		return d.finish(log, item, DispatchResult{Outcome: OutcomeFailed, Err: err})
	}
	if item.ID <= 0 {
		err := fmt.Errorf("content id %d: %w", item.ID, domain.ErrValidation)
		return d.finish(log, item, DispatchResult{Outcome: OutcomeFailed, Err: err})
	}
	if !d.flags.Enabled(item.Kind) {
		return d.finish(log, item, DispatchResult{Outcome: OutcomeDisabled})
	}
	if !item.IsPublished() {
		return d.finish(log, item, DispatchResult{Outcome: OutcomeNotPublished})
	}

	token, err := d.ledger.Begin(ctx, item.Kind, item.ID)
	if errors.Is(err, domain.ErrAlreadyNotified) {
		return d.finish(log, item, DispatchResult{Outcome: OutcomeSkipped})
	}
	if err != nil {
		return d.finish(log, item, DispatchResult{
			Outcome:   OutcomeFailed,
			Retryable: true,
			Err:       fmt.Errorf("claim ledger record: %w", err),
		})
	}
	log = log.With("record_id", token.RecordID)

	// the terminal write must land even if the caller gives up mid-send
	recordCtx := context.WithoutCancel(ctx)

	email, err := d.renderer.RenderContent(item)
	if err != nil {
		d.complete(recordCtx, log, token, domain.Failed(domain.StageRender, "", err))
		return d.finish(log, item, DispatchResult{
			Outcome:  OutcomeFailed,
			RecordID: token.RecordID,
			Err:      fmt.Errorf("render: %w", err),
		})
	}

	campaignID, err := d.provider.CreateAndSendCampaign(ctx, domain.Campaign{
		ListID:  d.listID,
		Name:    email.Name,
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		stage := domain.StageCreate
		var campaignErr *domain.CampaignError
		if errors.As(err, &campaignErr) {
			stage = campaignErr.Stage
			campaignID = campaignErr.CampaignID
		}
		d.complete(recordCtx, log, token, domain.Failed(stage, campaignID, err))
		return d.finish(log, item, DispatchResult{
			Outcome:    OutcomeFailed,
			RecordID:   token.RecordID,
			CampaignID: campaignID,
			Retryable:  domain.IsRetryable(err),
			Err:        err,
		})
	}

	d.complete(recordCtx, log, token, domain.Sent(campaignID))
	return d.finish(log, item, DispatchResult{
		Outcome:    OutcomeSent,
		RecordID:   token.RecordID,
		CampaignID: campaignID,
	})
}

// Reset clears a ledger record after an operator decision so the item can
// be dispatched again.
func (d *Dispatcher) Reset(ctx context.Context, req domain.ResetRequest) (domain.ResetEntry, error) {
	entry, err := d.ledger.Reset(ctx, req)
	if err != nil {
		d.logger.Warn("ledger reset refused",
			"content_kind", req.Kind, "content_id", req.ContentID, "operator", req.Operator, "err", err)
		return domain.ResetEntry{}, err
	}
	d.logger.Info("ledger record reset",
		"content_kind", entry.Kind,
		"content_id", entry.ContentID,
		"previous_status", entry.PreviousStatus,
		"operator", entry.Operator,
		"reason", entry.Reason,
	)
	return entry, nil
}

// complete never changes the dispatch outcome; a failed write is only logged.
func (d *Dispatcher) complete(ctx context.Context, log *slog.Logger, token domain.LedgerToken, outcome domain.NotificationOutcome) {
	if err := d.ledger.Complete(ctx, token, outcome); err != nil {
		log.Error("ledger complete failed", "status", outcome.Status, "err", err)
	}
}

func (d *Dispatcher) finish(log *slog.Logger, item domain.ContentItem, res DispatchResult) DispatchResult {
	kind := string(item.Kind)
	if !item.Kind.Valid() {
		kind = "unknown"
	}
	metrics.ObserveDispatch(kind, string(res.Outcome))

	switch res.Outcome {
	case OutcomeSent:
		log.Info("publication notified", "outcome", res.Outcome, "campaign_id", res.CampaignID)
	case OutcomeFailed:
		args := []any{"outcome", res.Outcome, "retryable", res.Retryable, "err", res.Err}
		var campaignErr *domain.CampaignError
		if errors.As(res.Err, &campaignErr) {
			args = append(args, "stage", campaignErr.Stage)
			if campaignErr.CreatedNotSent() {
				args = append(args, "campaign_id", campaignErr.CampaignID)
			}
		}
		var providerErr *domain.ProviderError
		if errors.As(res.Err, &providerErr) && providerErr.StatusCode != 0 {
			args = append(args, "status_code", providerErr.StatusCode)
		}
		log.Error("publication notification failed", args...)
	default:
		log.Debug("publication not notified", "outcome", res.Outcome)
	}
	return res
}
