package repository

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/database"
)

const (
	TextCodeMovieNotFound  = "MOVIE_NOT_FOUND"
	TextCodeLinkNotFound   = "LINK_NOT_FOUND"
	TextCodeRatingNotFound = "RATING_NOT_FOUND"
	TextCodeTagNotFound    = "TAG_NOT_FOUND"
	TextCodeAlreadyExists  = "ALREADY_EXISTS"
)

var ErrMovieNotFound = errors.New("Movie not found", errors.CategoryNotFound).
	WithTextCode(TextCodeMovieNotFound).
	WithCode(errors.CodeNotFound)

var ErrLinkNotFound = errors.New("Link not found", errors.CategoryNotFound).
	WithTextCode(TextCodeLinkNotFound).
	WithCode(errors.CodeNotFound)

var ErrRatingNotFound = errors.New("Rating not found", errors.CategoryNotFound).
	WithTextCode(TextCodeRatingNotFound).
	WithCode(errors.CodeNotFound)

var ErrTagNotFound = errors.New("Tag not found", errors.CategoryNotFound).
	WithTextCode(TextCodeTagNotFound).
	WithCode(errors.CodeNotFound)

func alreadyExists(format string, args ...any) *errors.Error {
	return errors.New(fmt.Sprintf(format, args...), errors.CategoryConflict).
		WithTextCode(TextCodeAlreadyExists).
		WithCode(errors.CodeBadRequest)
}

func notFound(sentinel *errors.Error, id int64) *errors.Error {
	return sentinel.Clone().WithMetadata(map[string]any{"id": id})
}

// mapWriteError turns driver errors on insert into rich errors
func mapWriteError(err error, conflict func() *errors.Error, missingMovie int64) error {
	if _, ok := database.UniqueViolation(err); ok && conflict != nil {
		return conflict()
	}
	if database.ForeignKeyViolation(err) {
		return notFound(ErrMovieNotFound, missingMovie)
	}
	return errors.Wrap(err, errors.CategoryInternal, "catalog write failed")
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}
