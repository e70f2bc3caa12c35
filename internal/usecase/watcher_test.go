package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/infrastructure/storage"
	"PublishNotifier/internal/logging"
)

type dispatchFunc func(ctx context.Context, item domain.ContentItem) DispatchResult

func (f dispatchFunc) Dispatch(ctx context.Context, item domain.ContentItem) DispatchResult {
	return f(ctx, item)
}

func TestWatcherIgnoresUnpublished(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	watcher := NewWatcher(dispatchFunc(func(context.Context, domain.ContentItem) DispatchResult {
		calls.Add(1)
		return DispatchResult{Outcome: OutcomeSent}
	}), logging.Discard())

	item := publishedArticle(1)
	item.Status = domain.StatusDraft
	if res := watcher.OnContentSaved(context.Background(), item, true); res.Outcome != OutcomeNotPublished {
		t.Fatalf("expected not_published, got %s", res.Outcome)
	}
	if calls.Load() != 0 {
		t.Fatalf("draft must not reach the dispatcher")
	}
}

func TestWatcherSurvivesFailureAndPanic(t *testing.T) {
	t.Parallel()

	failing := NewWatcher(dispatchFunc(func(context.Context, domain.ContentItem) DispatchResult {
		return DispatchResult{Outcome: OutcomeFailed, Err: domain.ErrProviderRejected}
	}), logging.Discard())
	if res := failing.OnContentSaved(context.Background(), publishedArticle(2), false); res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome to be reported, got %s", res.Outcome)
	}

	panicking := NewWatcher(dispatchFunc(func(context.Context, domain.ContentItem) DispatchResult {
		panic("boom")
	}), logging.Discard())
	res := panicking.OnContentSaved(context.Background(), publishedArticle(3), false)
	if res.Outcome != OutcomeFailed || res.Err == nil {
		t.Fatalf("panic must become a failed result, got %+v", res)
	}
}

func TestWatcherEndToEndRejectedStillReturns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := storage.NewLedger(openDB(t))
	provider := &fakeProvider{campaignFn: func(context.Context, domain.Campaign) (string, error) {
		return "", &domain.CampaignError{Stage: domain.StageCreate, Err: &domain.ProviderError{
			Class: domain.ErrProviderRejected, Op: "create campaign", StatusCode: 401,
		}}
	}}
	watcher := NewWatcher(newTestDispatcher(t, ledger, provider, nil, allOn), logging.Discard())

	res := watcher.OnContentSaved(ctx, publishedArticle(4), true)
	if res.Outcome != OutcomeFailed || !errors.Is(res.Err, domain.ErrProviderRejected) {
		t.Fatalf("unexpected result %+v", res)
	}
	rec, err := ledger.Get(ctx, domain.KindArticle, 4)
	if err != nil || rec.Status != domain.NotificationFailed {
		t.Fatalf("expected failed record, got %+v (%v)", rec, err)
	}

	// a later save of the same published item does not re-send
	if res := watcher.OnContentSaved(ctx, publishedArticle(4), false); res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped on update, got %s", res.Outcome)
	}
}
