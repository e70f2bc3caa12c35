package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"PublishNotifier/internal/domain"
	"PublishNotifier/internal/ports"
)

const contactTable = "contact_messages"

var contactColumns = []string{
	"id", "name", "email", "subject", "message", "status",
	"ip_address", "received_at", "replied_at", "replied_by",
}

// ContactRepository persists contact form submissions.
type ContactRepository struct {
	db *DB
}

var _ ports.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository wires the repository over an opened database.
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Save inserts a new message.
func (r *ContactRepository) Save(ctx context.Context, msg domain.ContactMessage) error {
	var repliedAt any
	if msg.RepliedAt != nil {
		repliedAt = formatTime(*msg.RepliedAt)
	}

	query, args, err := r.db.builder.
		Insert(contactTable).
		Columns(contactColumns...).
		Values(msg.ID, msg.Name, msg.Email, msg.Subject, msg.Message, string(msg.Status),
			nullStr(msg.IPAddress), formatTime(msg.ReceivedAt), repliedAt, nullStr(msg.RepliedBy)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact insert: %w", err)
	}

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

// Get loads one message by id.
func (r *ContactRepository) Get(ctx context.Context, id string) (domain.ContactMessage, error) {
	query, args, err := r.db.builder.
		Select(contactColumns...).
		From(contactTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.ContactMessage{}, fmt.Errorf("build contact get: %w", err)
	}

	msg, err := scanContact(r.db.SQL.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ContactMessage{}, domain.ErrContactNotFound
	}
	if err != nil {
		return domain.ContactMessage{}, fmt.Errorf("get contact message: %w", err)
	}
	return msg, nil
}

// List returns messages newest first, optionally filtered by status.
func (r *ContactRepository) List(ctx context.Context, status domain.ContactStatus, limit int) ([]domain.ContactMessage, error) {
	builder := r.db.builder.
		Select(contactColumns...).
		From(contactTable).
		OrderBy("received_at DESC").
		Limit(uint64(clampLimit(limit)))
	if status != "" {
		builder = builder.Where(sq.Eq{"status": string(status)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact list: %w", err)
	}

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contact messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ContactMessage
	for rows.Next() {
		msg, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return messages, nil
}

// Update writes the admin-mutable fields of a message.
func (r *ContactRepository) Update(ctx context.Context, msg domain.ContactMessage) error {
	var repliedAt any
	if msg.RepliedAt != nil {
		repliedAt = formatTime(*msg.RepliedAt)
	}

	query, args, err := r.db.builder.
		Update(contactTable).
		Set("status", string(msg.Status)).
		Set("replied_at", repliedAt).
		Set("replied_by", nullStr(msg.RepliedBy)).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact update: %w", err)
	}

	res, err := r.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update contact message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrContactNotFound
	}
	return nil
}

// CountByStatus returns the number of messages in each status.
func (r *ContactRepository) CountByStatus(ctx context.Context) (map[domain.ContactStatus]int, error) {
	query, args, err := r.db.builder.
		Select("status", "COUNT(*)").
		From(contactTable).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact counts: %w", err)
	}

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count contact messages: %w", err)
	}
	defer rows.Close()

	counts := map[domain.ContactStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan contact count: %w", err)
		}
		counts[domain.ContactStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return counts, nil
}

func scanContact(row rowScanner) (domain.ContactMessage, error) {
	var (
		msg                  domain.ContactMessage
		status, receivedAt   string
		ip, repliedAt, reply sql.NullString
	)
	if err := row.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Message, &status,
		&ip, &receivedAt, &repliedAt, &reply); err != nil {
		return domain.ContactMessage{}, err
	}

	msg.Status = domain.ContactStatus(status)
	msg.IPAddress = ip.String
	msg.RepliedBy = reply.String

	var err error
	if msg.ReceivedAt, err = parseTime(receivedAt); err != nil {
		return domain.ContactMessage{}, err
	}
	if msg.RepliedAt, err = parseNullTime(repliedAt); err != nil {
		return domain.ContactMessage{}, err
	}
	return msg, nil
}
