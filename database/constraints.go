package database

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// UniqueViolation reports whether err is a unique or primary key violation
// and returns the offending constraint or column reference.
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.ConstraintName + " " + pgErr.Detail, true
	}

	const marker = "UNIQUE constraint failed:"
	for _, msg := range chainMessages(err) {
		if i := strings.Index(msg, marker); i >= 0 {
			return strings.TrimSpace(msg[i+len(marker):]), true
		}
	}
	return "", false
}

// chainMessages collects the message of err and of every error it wraps.
// Repository layers wrap driver errors and may replace the driver text.
func chainMessages(err error) []string {
	var out []string
	for err != nil {
		out = append(out, err.Error())

		if rich, ok := err.(*errors.Error); ok {
			err = rich.Source
			continue
		}
		err = stderrors.Unwrap(err)
	}
	return out
}

// ForeignKeyViolation reports whether err is a foreign key violation
func ForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}

	for _, msg := range chainMessages(err) {
		if strings.Contains(msg, "FOREIGN KEY constraint failed") {
			return true
		}
	}
	return false
}
