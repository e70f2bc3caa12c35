package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"PublishNotifier/internal/domain"
)

// PublicationDispatcher is the part of Dispatcher the watcher depends on.
type PublicationDispatcher interface {
	Dispatch(ctx context.Context, item domain.ContentItem) DispatchResult
}

// Watcher reacts to content saves coming from the editorial system. It never
// retries and never returns an error to the save path.
type Watcher struct {
	dispatcher PublicationDispatcher
	logger     *slog.Logger
}

// NewWatcher wraps a dispatcher.
func NewWatcher(dispatcher PublicationDispatcher, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dispatcher: dispatcher, logger: logger.With("component", "watcher")}
}

// OnContentSaved is called after every create or update of a content item.
func (w *Watcher) OnContentSaved(ctx context.Context, item domain.ContentItem, created bool) (res DispatchResult) {
	log := w.logger.With("content_kind", item.Kind, "content_id", item.ID, "created", created)

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch panicked", "panic", r)
			res = DispatchResult{Outcome: OutcomeFailed, Err: fmt.Errorf("dispatch panicked: %v", r)}
		}
	}()

	if !item.IsPublished() {
		log.Debug("content saved unpublished", "status", item.Status)
		return DispatchResult{Outcome: OutcomeNotPublished}
	}
	if w.dispatcher == nil {
		return DispatchResult{Outcome: OutcomeDisabled}
	}

	res = w.dispatcher.Dispatch(ctx, item)
	if res.Outcome == OutcomeFailed {
		log.Warn("publication notification not delivered", "retryable", res.Retryable, "err", res.Err)
	}
	return res
}
