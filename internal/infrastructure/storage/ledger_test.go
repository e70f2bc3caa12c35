package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PublishNotifier/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLedgerBeginIsExclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	token, err := ledger.Begin(ctx, domain.KindArticle, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, token.RecordID)

	_, err = ledger.Begin(ctx, domain.KindArticle, 7)
	require.ErrorIs(t, err, domain.ErrAlreadyNotified)

	// the same id under another kind is a different item
	_, err = ledger.Begin(ctx, domain.KindVideo, 7)
	require.NoError(t, err)
}

func TestLedgerBeginConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		begun    int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Begin(ctx, domain.KindVideo, 99)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				begun++
			case errors.Is(err, domain.ErrAlreadyNotified):
				rejected++
			default:
				t.Errorf("unexpected begin error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, begun)
	assert.Equal(t, workers-1, rejected)
}

func TestLedgerCompleteSent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	token, err := ledger.Begin(ctx, domain.KindArticle, 1)
	require.NoError(t, err)

	notified, err := ledger.HasBeenNotified(ctx, domain.KindArticle, 1)
	require.NoError(t, err)
	assert.True(t, notified, "pending counts as notified")

	require.NoError(t, ledger.Complete(ctx, token, domain.Sent("321")))

	record, err := ledger.Get(ctx, domain.KindArticle, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSent, record.Status)
	assert.Equal(t, "321", record.CampaignID)
	require.NotNil(t, record.SentAt)

	// a second completion finds no pending row
	err = ledger.Complete(ctx, token, domain.Sent("321"))
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestLedgerCompleteUnknownToken(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(openTestDB(t))
	err := ledger.Complete(context.Background(), domain.LedgerToken{RecordID: "missing"}, domain.Sent("1"))
	require.ErrorIs(t, err, domain.ErrUnknownToken)
}

func TestLedgerResetFailedOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	sentToken, err := ledger.Begin(ctx, domain.KindArticle, 10)
	require.NoError(t, err)
	require.NoError(t, ledger.Complete(ctx, sentToken, domain.Sent("c-1")))

	_, err = ledger.Reset(ctx, domain.ResetRequest{Kind: domain.KindArticle, ContentID: 10, Operator: "ops"})
	require.ErrorIs(t, err, domain.ErrNotResettable)

	failedToken, err := ledger.Begin(ctx, domain.KindArticle, 11)
	require.NoError(t, err)
	require.NoError(t, ledger.Complete(ctx, failedToken, domain.Failed(domain.StageCreate, "", errors.New("boom"))))

	notified, err := ledger.HasBeenNotified(ctx, domain.KindArticle, 11)
	require.NoError(t, err)
	assert.False(t, notified, "failed records are not notified")

	entry, err := ledger.Reset(ctx, domain.ResetRequest{Kind: domain.KindArticle, ContentID: 11, Operator: "ops", Reason: "provider outage"})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationFailed, entry.PreviousStatus)

	_, err = ledger.Get(ctx, domain.KindArticle, 11)
	require.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = ledger.Begin(ctx, domain.KindArticle, 11)
	require.NoError(t, err, "reset item must be dispatchable again")
}

func TestLedgerResetForceAndMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	_, err := ledger.Reset(ctx, domain.ResetRequest{Kind: domain.KindVideo, ContentID: 5, Operator: "ops"})
	require.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = ledger.Begin(ctx, domain.KindVideo, 5)
	require.NoError(t, err)

	_, err = ledger.Reset(ctx, domain.ResetRequest{Kind: domain.KindVideo, ContentID: 5})
	require.ErrorIs(t, err, domain.ErrValidation, "operator is mandatory")

	entry, err := ledger.Reset(ctx, domain.ResetRequest{Kind: domain.KindVideo, ContentID: 5, Operator: "ops", Force: true})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationPending, entry.PreviousStatus)
}

func TestLedgerListAndStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return base }
	oldToken, err := ledger.Begin(ctx, domain.KindArticle, 1)
	require.NoError(t, err)

	ledger.now = func() time.Time { return base.Add(time.Hour) }
	_, err = ledger.Begin(ctx, domain.KindVideo, 2)
	require.NoError(t, err)

	all, err := ledger.List(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ContentID, "newest first")

	videos, err := ledger.List(ctx, domain.RecordFilter{Kind: domain.KindVideo})
	require.NoError(t, err)
	require.Len(t, videos, 1)

	stale, err := ledger.ListStalePending(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, oldToken.RecordID, stale[0].ID)
}
