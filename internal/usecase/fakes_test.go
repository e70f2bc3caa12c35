package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/infrastructure/storage"
	"PublishNotifier/internal/logging"
	"PublishNotifier/internal/ports"
)

type fakeProvider struct {
	campaignCalls      atomic.Int32
	transactionalCalls atomic.Int32

	mu   sync.Mutex
	sent []domain.TransactionalEmail

	campaignFn      func(ctx context.Context, c domain.Campaign) (string, error)
	transactionalFn func(ctx context.Context, e domain.TransactionalEmail) (string, error)
}

var _ ports.EmailProvider = (*fakeProvider)(nil)

func (f *fakeProvider) CreateAndSendCampaign(ctx context.Context, c domain.Campaign) (string, error) {
	f.campaignCalls.Add(1)
	if f.campaignFn != nil {
		return f.campaignFn(ctx, c)
	}
	return "cmp-1", nil
}

func (f *fakeProvider) SendTransactional(ctx context.Context, e domain.TransactionalEmail) (string, error) {
	f.transactionalCalls.Add(1)
	f.mu.Lock()
	f.sent = append(f.sent, e)
	f.mu.Unlock()
	if f.transactionalFn != nil {
		return f.transactionalFn(ctx, e)
	}
	return "<msg@smtp>", nil
}

type fakeRenderer struct {
	contentFn func(item domain.ContentItem) (domain.RenderedEmail, error)
}

var _ ports.Renderer = (*fakeRenderer)(nil)

func (f *fakeRenderer) RenderContent(item domain.ContentItem) (domain.RenderedEmail, error) {
	if f.contentFn != nil {
		return f.contentFn(item)
	}
	return domain.RenderedEmail{Name: "n", Subject: "New article: " + item.Title, HTML: "<p>" + item.Title + "</p>"}, nil
}

func (f *fakeRenderer) RenderContact(msg domain.ContactMessage) (domain.RenderedEmail, error) {
	return domain.RenderedEmail{Subject: "Contact: " + msg.Subject, HTML: "<p>" + msg.Message + "</p>"}, nil
}

// stubLedger overrides only the methods a test needs.
type stubLedger struct {
	ports.NotificationLedger
	completeFn func(ctx context.Context, token domain.LedgerToken, outcome domain.NotificationOutcome) error
	staleFn    func(ctx context.Context, olderThan time.Time) ([]domain.NotificationRecord, error)
}

func (s *stubLedger) Complete(ctx context.Context, token domain.LedgerToken, outcome domain.NotificationOutcome) error {
	if s.completeFn != nil {
		return s.completeFn(ctx, token, outcome)
	}
	return s.NotificationLedger.Complete(ctx, token, outcome)
}

func (s *stubLedger) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.NotificationRecord, error) {
	if s.staleFn != nil {
		return s.staleFn(ctx, olderThan)
	}
	return s.NotificationLedger.ListStalePending(ctx, olderThan)
}

type immediateScheduler struct {
	started atomic.Bool
	stopped atomic.Bool
	at      time.Time
}

func (s *immediateScheduler) Start(_ context.Context, job func(time.Time)) error {
	s.started.Store(true)
	job(s.at)
	return nil
}

func (s *immediateScheduler) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "notifier.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestDispatcher(t *testing.T, ledger ports.NotificationLedger, provider *fakeProvider, renderer ports.Renderer, flags FeatureFlags) *Dispatcher {
	t.Helper()
	if renderer == nil {
		renderer = &fakeRenderer{}
	}
	return NewDispatcher(DispatcherDeps{
		Ledger:   ledger,
		Provider: provider,
		Renderer: renderer,
		ListID:   4,
		Flags:    flags,
		Logger:   logging.Discard(),
	})
}

func publishedArticle(id int64) domain.ContentItem {
	return domain.ContentItem{
		ID:     id,
		Kind:   domain.KindArticle,
		Title:  "Budget vote delayed",
		Slug:   "budget-vote-delayed",
		Status: domain.StatusPublished,
	}
}

var allOn = FeatureFlags{Article: true, Video: true}
