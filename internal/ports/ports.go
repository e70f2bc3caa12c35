package ports

import (
	"context"
	"time"

	"PublishNotifier/internal/domain"
)

// NotificationLedger is the deduplication source of truth for content notifications.
type NotificationLedger interface {
	HasBeenNotified(ctx context.Context, kind domain.ContentKind, contentID int64) (bool, error)
	// Begin atomically inserts a pending record or returns domain.ErrAlreadyNotified.
	Begin(ctx context.Context, kind domain.ContentKind, contentID int64) (domain.LedgerToken, error)
	// Complete writes the terminal state; domain.ErrUnknownToken when the
	// token does not match a pending record.
	Complete(ctx context.Context, token domain.LedgerToken, outcome domain.NotificationOutcome) error
	Reset(ctx context.Context, req domain.ResetRequest) (domain.ResetEntry, error)
	Get(ctx context.Context, kind domain.ContentKind, contentID int64) (domain.NotificationRecord, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.NotificationRecord, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.NotificationRecord, error)
}

// EmailProvider wraps the remote campaign/transactional email API.
type EmailProvider interface {
	CreateAndSendCampaign(ctx context.Context, campaign domain.Campaign) (string, error)
	SendTransactional(ctx context.Context, email domain.TransactionalEmail) (string, error)
}

// Renderer builds email payloads from domain objects.
type Renderer interface {
	RenderContent(item domain.ContentItem) (domain.RenderedEmail, error)
	RenderContact(msg domain.ContactMessage) (domain.RenderedEmail, error)
}

// ContactRepository persists inbound contact messages.
type ContactRepository interface {
	Save(ctx context.Context, msg domain.ContactMessage) error
	Get(ctx context.Context, id string) (domain.ContactMessage, error)
	List(ctx context.Context, status domain.ContactStatus, limit int) ([]domain.ContactMessage, error)
	Update(ctx context.Context, msg domain.ContactMessage) error
	CountByStatus(ctx context.Context) (map[domain.ContactStatus]int, error)
}

// RateLimiter throttles requests keyed by source address.
type RateLimiter interface {
	Allow(key string) domain.RateDecision
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
