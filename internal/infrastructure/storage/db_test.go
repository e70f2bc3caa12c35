package storage

import (
	"errors"
	"fmt"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBPlaceholders(t *testing.T) {
	t.Parallel()

	cases := map[Dialect]string{
		DialectSQLite:   "SELECT id FROM notification_records WHERE content_id = ?",
		DialectPostgres: "SELECT id FROM notification_records WHERE content_id = $1",
	}
	for dialect, want := range cases {
		db := newDB(nil, dialect)
		query, args, err := db.builder.
			Select("id").
			From("notification_records").
			Where(sq.Eq{"content_id": 7}).
			ToSql()
		require.NoError(t, err, dialect)
		assert.Equal(t, want, query, dialect)
		assert.Equal(t, []any{7}, args, dialect)
	}
}

func TestIsUniqueViolationPostgres(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}
