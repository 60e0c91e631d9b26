package api

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/repository"
)

var errBlank = stderrors.New("cannot be blank")

const (
	defaultTitleSearchLimit = 20
	defaultGenreLimit       = 50
)

// MovieController serves /movies, every route requires a valid token
type MovieController struct {
	movies  *repository.MovieRepository
	ratings *repository.RatingRepository
}

func NewMovieController(m *repository.Manager) *MovieController {
	return &MovieController{movies: m.Movies(), ratings: m.Ratings()}
}

func (mc *MovieController) Register(r fiber.Router, authenticated fiber.Handler) {
	g := r.Group("/movies", authenticated)
	g.Get("/", mc.List)
	g.Post("/", mc.Create)
	g.Get("/:id", mc.Get)
	g.Get("/:id/stats", mc.Stats)
	g.Put("/:id", mc.Update)
	g.Delete("/:id", mc.Delete)
}

// List supports ?limit, ?title and ?genre
func (mc *MovieController) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	switch {
	case c.Query("title") != "":
		limit, err := queryLimit(c, defaultTitleSearchLimit)
		if err != nil {
			return err
		}
		movies, err := mc.movies.SearchByTitle(ctx, c.Query("title"), limit)
		if err != nil {
			return err
		}
		return c.JSON(movies)
	case c.Query("genre") != "":
		limit, err := queryLimit(c, defaultGenreLimit)
		if err != nil {
			return err
		}
		movies, err := mc.movies.ByGenre(ctx, c.Query("genre"), limit)
		if err != nil {
			return err
		}
		return c.JSON(movies)
	}

	limit, err := queryLimit(c, MaxLimit)
	if err != nil {
		return err
	}
	movies, err := mc.movies.List(ctx, 0, limit)
	if err != nil {
		return err
	}
	return c.JSON(movies)
}

func (mc *MovieController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	movie, err := mc.movies.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(movie)
}

func (mc *MovieController) Stats(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := mc.movies.Get(c.UserContext(), id); err != nil {
		return err
	}
	stats, err := mc.ratings.Stats(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// MovieCreateRequest payload
type MovieCreateRequest struct {
	MovieID *int64 `json:"movie_id"`
	Title   string `json:"title"`
	Genres  string `json:"genres"`
}

func (r MovieCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MovieID, validation.NotNil),
		validation.Field(&r.Title, validation.Required),
	)
}

func (mc *MovieController) Create(c *fiber.Ctx) error {
	payload := new(MovieCreateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	movie, err := mc.movies.Create(c.UserContext(), &repository.Movie{
		MovieID: *payload.MovieID,
		Title:   payload.Title,
		Genres:  payload.Genres,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(movie)
}

// MovieUpdateRequest payload, absent fields are left unchanged
type MovieUpdateRequest struct {
	repository.MovieUpdate
}

func (r MovieUpdateRequest) Validate() error {
	if r.Title != nil && *r.Title == "" {
		return validation.Errors{"title": errBlank}
	}
	return nil
}

func (mc *MovieController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	payload := new(MovieUpdateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	movie, err := mc.movies.Update(c.UserContext(), id, payload.MovieUpdate)
	if err != nil {
		return err
	}
	return c.JSON(movie)
}

func (mc *MovieController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := mc.movies.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
