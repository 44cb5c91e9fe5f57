package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// PgBouncer in transaction mode can drop the unnamed statement between parse and bind.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bind message supplies") && strings.Contains(msg, "prepared statement")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unnamed prepared statement does not exist") ||
		(strings.Contains(msg, "prepared statement") && strings.Contains(msg, "(26000)"))
}

// retryStatement runs fn again once when the pooler lost the prepared statement.
func retryStatement(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
		return fn(ctx)
	}
	return err
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
