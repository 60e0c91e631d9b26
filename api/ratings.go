package api

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/repository"
)

// RatingController serves /ratings
type RatingController struct {
	ratings *repository.RatingRepository
}

func NewRatingController(m *repository.Manager) *RatingController {
	return &RatingController{ratings: m.Ratings()}
}

func (rc *RatingController) Register(r fiber.Router) {
	g := r.Group("/ratings")
	g.Get("/", rc.List)
	g.Post("/", rc.Create)
	g.Get("/:id", rc.Get)
	g.Put("/:id", rc.Update)
	g.Delete("/:id", rc.Delete)
}

// List supports ?limit, ?user_id and ?movie_id
func (rc *RatingController) List(c *fiber.Ctx) error {
	limit, err := queryLimit(c, DefaultLimit)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	var ratings []*repository.Rating

	switch {
	case c.Query("user_id") != "":
		userID, err := queryInt(c, "user_id", 0, 0, maxInt)
		if err != nil {
			return err
		}
		ratings, err = rc.ratings.ByUser(ctx, int64(userID), limit)
		if err != nil {
			return err
		}
	case c.Query("movie_id") != "":
		movieID, err := queryInt(c, "movie_id", 0, 0, maxInt)
		if err != nil {
			return err
		}
		ratings, err = rc.ratings.ByMovie(ctx, int64(movieID), limit)
		if err != nil {
			return err
		}
	default:
		ratings, err = rc.ratings.List(ctx, 0, limit)
		if err != nil {
			return err
		}
	}

	return c.JSON(ratings)
}

func (rc *RatingController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	rating, err := rc.ratings.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(rating)
}

var errRatingRange = stderrors.New("must be between 0.5 and 5.0")

func ratingInRange(value any) error {
	r, _ := value.(*float64)
	if r == nil {
		return nil
	}
	if *r < repository.MinRating || *r > repository.MaxRating {
		return errRatingRange
	}
	return nil
}

// RatingCreateRequest payload
type RatingCreateRequest struct {
	UserID    *int64   `json:"user_id"`
	MovieID   *int64   `json:"movie_id"`
	Rating    *float64 `json:"rating"`
	Timestamp *int64   `json:"timestamp"`
}

func (r RatingCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.NotNil),
		validation.Field(&r.MovieID, validation.NotNil),
		validation.Field(&r.Rating, validation.NotNil, validation.By(ratingInRange)),
		validation.Field(&r.Timestamp, validation.NotNil),
	)
}

func (rc *RatingController) Create(c *fiber.Ctx) error {
	payload := new(RatingCreateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	rating, err := rc.ratings.Create(c.UserContext(), &repository.Rating{
		UserID:    *payload.UserID,
		MovieID:   *payload.MovieID,
		Rating:    *payload.Rating,
		Timestamp: *payload.Timestamp,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rating)
}

// RatingUpdateRequest payload, absent fields are left unchanged
type RatingUpdateRequest struct {
	Rating    *float64 `json:"rating"`
	Timestamp *int64   `json:"timestamp"`
}

func (r RatingUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rating, validation.By(ratingInRange)),
	)
}

func (rc *RatingController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	payload := new(RatingUpdateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	rating, err := rc.ratings.Update(c.UserContext(), id, repository.RatingUpdate{
		Rating:    payload.Rating,
		Timestamp: payload.Timestamp,
	})
	if err != nil {
		return err
	}
	return c.JSON(rating)
}

func (rc *RatingController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := rc.ratings.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
