package repository

import (
	"github.com/uptrace/bun"
)

// Movie is the Bun model for movies.
type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:mov"`

	MovieID int64  `bun:"movie_id,pk" json:"movie_id"`
	Title   string `bun:"title,notnull" json:"title"`
	Genres  string `bun:"genres,notnull" json:"genres"`
}

// MovieUpdate carries the fields to change, nil leaves a field as is
type MovieUpdate struct {
	Title  *string `json:"title"`
	Genres *string `json:"genres"`
}

// Link is the Bun model for external ids of a movie.
type Link struct {
	bun.BaseModel `bun:"table:links,alias:lnk"`

	MovieID int64   `bun:"movie_id,pk" json:"movie_id"`
	IMDBID  string  `bun:"imdb_id,notnull" json:"imdb_id"`
	TMDBID  *string `bun:"tmdb_id" json:"tmdb_id"`
}

// LinkUpdate carries the fields to change, nil leaves a field as is
type LinkUpdate struct {
	IMDBID *string `json:"imdb_id"`
	TMDBID *string `json:"tmdb_id"`
}

// Rating is the Bun model for ratings.
type Rating struct {
	bun.BaseModel `bun:"table:ratings,alias:rat"`

	ID        int64   `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64   `bun:"user_id,notnull" json:"user_id"`
	MovieID   int64   `bun:"movie_id,notnull" json:"movie_id"`
	Rating    float64 `bun:"rating,notnull" json:"rating"`
	Timestamp int64   `bun:"timestamp,notnull" json:"timestamp"`
}

// RatingUpdate carries the fields to change, nil leaves a field as is
type RatingUpdate struct {
	Rating    *float64 `json:"rating"`
	Timestamp *int64   `json:"timestamp"`
}

// Tag is the Bun model for user tags.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64  `bun:"user_id,notnull" json:"user_id"`
	MovieID   int64  `bun:"movie_id,notnull" json:"movie_id"`
	Tag       string `bun:"tag,notnull" json:"tag"`
	Timestamp int64  `bun:"timestamp,notnull" json:"timestamp"`
}

// TagUpdate carries the fields to change, nil leaves a field as is
type TagUpdate struct {
	Tag       *string `json:"tag"`
	Timestamp *int64  `json:"timestamp"`
}

// TagCount is one row of the popular tags aggregate
type TagCount struct {
	Tag   string `bun:"tag" json:"tag"`
	Count int64  `bun:"count" json:"count"`
}

// MovieStats aggregates the ratings of one movie
type MovieStats struct {
	MovieID       int64    `json:"movie_id"`
	AverageRating *float64 `json:"average_rating"`
	RatingCount   int      `json:"rating_count"`
}
