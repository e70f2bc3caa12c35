package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/ports"
)

const (
	recordsTable = "notification_records"
	resetsTable  = "notification_resets"

	defaultListLimit = 100
	maxListLimit     = 500
)

var recordColumns = []string{
	"id", "content_kind", "content_id", "campaign_id", "status",
	"failure_stage", "error_message", "created_at", "updated_at", "sent_at",
}

// Ledger persists notification records. Deduplication relies solely on the
// (content_kind, content_id) unique constraint.
type Ledger struct {
	db  *DB
	now func() time.Time
}

var _ ports.NotificationLedger = (*Ledger)(nil)

// NewLedger wires a ledger over an opened database.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// HasBeenNotified reports whether a pending or sent record exists.
func (l *Ledger) HasBeenNotified(ctx context.Context, kind domain.ContentKind, contentID int64) (bool, error) {
	query, args, err := l.db.builder.
		Select("COUNT(1)").
		From(recordsTable).
		Where(sq.Eq{
			"content_kind": string(kind),
			"content_id":   contentID,
			"status":       []string{string(domain.NotificationPending), string(domain.NotificationSent)},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build notified query: %w", err)
	}

	var count int
	if err := l.db.SQL.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query notified: %w", err)
	}
	return count > 0, nil
}

// Begin inserts a pending record in a single statement.
func (l *Ledger) Begin(ctx context.Context, kind domain.ContentKind, contentID int64) (domain.LedgerToken, error) {
	token := domain.LedgerToken{RecordID: uuid.NewString(), Kind: kind, ContentID: contentID}
	now := formatTime(l.now())

	query, args, err := l.db.builder.
		Insert(recordsTable).
		Columns("id", "content_kind", "content_id", "status", "created_at", "updated_at").
		Values(token.RecordID, string(kind), contentID, string(domain.NotificationPending), now, now).
		ToSql()
	if err != nil {
		return domain.LedgerToken{}, fmt.Errorf("build begin insert: %w", err)
	}

	if _, err := l.db.SQL.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.LedgerToken{}, domain.ErrAlreadyNotified
		}
		return domain.LedgerToken{}, fmt.Errorf("insert pending record: %w", err)
	}
	return token, nil
}

// Complete moves a pending record to its terminal state.
func (l *Ledger) Complete(ctx context.Context, token domain.LedgerToken, outcome domain.NotificationOutcome) error {
	if outcome.Status != domain.NotificationSent && outcome.Status != domain.NotificationFailed {
		return fmt.Errorf("complete with status %q: %w", outcome.Status, domain.ErrValidation)
	}
	now := l.now()

	update := l.db.builder.
		Update(recordsTable).
		Set("status", string(outcome.Status)).
		Set("campaign_id", nullStr(outcome.CampaignID)).
		Set("failure_stage", nullStr(string(outcome.FailureStage))).
		Set("error_message", nullStr(outcome.ErrorMessage)).
		Set("updated_at", formatTime(now)).
		Where(sq.Eq{"id": token.RecordID, "status": string(domain.NotificationPending)})
	if outcome.Status == domain.NotificationSent {
		update = update.Set("sent_at", formatTime(now))
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build complete update: %w", err)
	}

	res, err := l.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete record %s: %w", token.RecordID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete record %s: rows affected: %w", token.RecordID, err)
	}
	if affected == 0 {
		return fmt.Errorf("complete record %s: %w", token.RecordID, domain.ErrUnknownToken)
	}
	return nil
}

// Reset deletes a record so the item can be dispatched again and keeps an audit row.
func (l *Ledger) Reset(ctx context.Context, req domain.ResetRequest) (entry domain.ResetEntry, err error) {
	if strings.TrimSpace(req.Operator) == "" {
		return domain.ResetEntry{}, fmt.Errorf("reset requires an operator: %w", domain.ErrValidation)
	}

	tx, err := l.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return domain.ResetEntry{}, fmt.Errorf("begin reset: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	key := sq.Eq{"content_kind": string(req.Kind), "content_id": req.ContentID}

	query, args, err := l.db.builder.Select("status").From(recordsTable).Where(key).ToSql()
	if err != nil {
		return domain.ResetEntry{}, fmt.Errorf("build reset lookup: %w", err)
	}
	var status string
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrRecordNotFound
			return domain.ResetEntry{}, err
		}
		return domain.ResetEntry{}, fmt.Errorf("lookup record: %w", err)
	}

	previous := domain.NotificationStatus(status)
	if previous != domain.NotificationFailed && !req.Force {
		err = fmt.Errorf("record is %s: %w", previous, domain.ErrNotResettable)
		return domain.ResetEntry{}, err
	}

	query, args, err = l.db.builder.Delete(recordsTable).Where(key).ToSql()
	if err != nil {
		return domain.ResetEntry{}, fmt.Errorf("build reset delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return domain.ResetEntry{}, fmt.Errorf("delete record: %w", err)
	}

	entry = domain.ResetEntry{
		ID:             uuid.NewString(),
		Kind:           req.Kind,
		ContentID:      req.ContentID,
		PreviousStatus: previous,
		Operator:       req.Operator,
		Reason:         req.Reason,
		At:             l.now().UTC(),
	}
	query, args, err = l.db.builder.
		Insert(resetsTable).
		Columns("id", "content_kind", "content_id", "previous_status", "operator", "reason", "at").
		Values(entry.ID, string(entry.Kind), entry.ContentID, string(entry.PreviousStatus), entry.Operator, nullStr(entry.Reason), formatTime(entry.At)).
		ToSql()
	if err != nil {
		return domain.ResetEntry{}, fmt.Errorf("build reset audit: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return domain.ResetEntry{}, fmt.Errorf("insert reset audit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.ResetEntry{}, fmt.Errorf("commit reset: %w", err)
	}
	return entry, nil
}

// Get loads the record for a content item.
func (l *Ledger) Get(ctx context.Context, kind domain.ContentKind, contentID int64) (domain.NotificationRecord, error) {
	query, args, err := l.db.builder.
		Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"content_kind": string(kind), "content_id": contentID}).
		ToSql()
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("build get query: %w", err)
	}

	record, err := scanRecord(l.db.SQL.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotificationRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// List returns records newest first.
func (l *Ledger) List(ctx context.Context, filter domain.RecordFilter) ([]domain.NotificationRecord, error) {
	builder := l.db.builder.
		Select(recordColumns...).
		From(recordsTable).
		OrderBy("created_at DESC").
		Limit(uint64(clampLimit(filter.Limit)))
	if filter.Kind != "" {
		builder = builder.Where(sq.Eq{"content_kind": string(filter.Kind)})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	return l.queryRecords(ctx, builder)
}

// ListStalePending returns pending records created before olderThan.
func (l *Ledger) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.NotificationRecord, error) {
	builder := l.db.builder.
		Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"status": string(domain.NotificationPending)}).
		Where(sq.Lt{"created_at": formatTime(olderThan)}).
		OrderBy("created_at ASC").
		Limit(maxListLimit)
	return l.queryRecords(ctx, builder)
}

func (l *Ledger) queryRecords(ctx context.Context, builder sq.SelectBuilder) ([]domain.NotificationRecord, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := l.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	var records []domain.NotificationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.NotificationRecord, error) {
	var (
		record                      domain.NotificationRecord
		kind, status                string
		campaignID, stage, errorMsg sql.NullString
		createdAt, updatedAt        string
		sentAt                      sql.NullString
	)
	if err := row.Scan(&record.ID, &kind, &record.ContentID, &campaignID, &status,
		&stage, &errorMsg, &createdAt, &updatedAt, &sentAt); err != nil {
		return domain.NotificationRecord{}, err
	}

	record.Kind = domain.ContentKind(kind)
	record.Status = domain.NotificationStatus(status)
	record.CampaignID = campaignID.String
	record.FailureStage = domain.FailureStage(stage.String)
	record.ErrorMessage = errorMsg.String

	var err error
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.NotificationRecord{}, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.NotificationRecord{}, err
	}
	if record.SentAt, err = parseNullTime(sentAt); err != nil {
		return domain.NotificationRecord{}, err
	}
	return record, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
