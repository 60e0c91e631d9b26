package api

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/repository"
)

const (
	defaultPopularLimit = 20
	defaultSearchLimit  = 50
)

// TagController serves /tags
type TagController struct {
	tags *repository.TagRepository
}

func NewTagController(m *repository.Manager) *TagController {
	return &TagController{tags: m.Tags()}
}

func (tc *TagController) Register(r fiber.Router) {
	g := r.Group("/tags")
	g.Get("/", tc.List)
	g.Post("/", tc.Create)
	g.Get("/popular", tc.Popular)
	g.Get("/search", tc.Search)
	g.Get("/:id", tc.Get)
	g.Put("/:id", tc.Update)
	g.Delete("/:id", tc.Delete)
}

// List supports ?limit, ?user_id and ?movie_id
func (tc *TagController) List(c *fiber.Ctx) error {
	limit, err := queryLimit(c, DefaultLimit)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	var tags []*repository.Tag

	switch {
	case c.Query("user_id") != "":
		userID, err := queryInt(c, "user_id", 0, 0, maxInt)
		if err != nil {
			return err
		}
		tags, err = tc.tags.ByUser(ctx, int64(userID), limit)
		if err != nil {
			return err
		}
	case c.Query("movie_id") != "":
		movieID, err := queryInt(c, "movie_id", 0, 0, maxInt)
		if err != nil {
			return err
		}
		tags, err = tc.tags.ByMovie(ctx, int64(movieID), limit)
		if err != nil {
			return err
		}
	default:
		tags, err = tc.tags.List(ctx, 0, limit)
		if err != nil {
			return err
		}
	}

	return c.JSON(tags)
}

func (tc *TagController) Popular(c *fiber.Ctx) error {
	limit, err := queryLimit(c, defaultPopularLimit)
	if err != nil {
		return err
	}
	counts, err := tc.tags.Popular(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(counts)
}

func (tc *TagController) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return unprocessable("q: cannot be blank")
	}
	limit, err := queryLimit(c, defaultSearchLimit)
	if err != nil {
		return err
	}
	tags, err := tc.tags.Search(c.UserContext(), q, limit)
	if err != nil {
		return err
	}
	return c.JSON(tags)
}

func (tc *TagController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tag, err := tc.tags.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(tag)
}

// TagCreateRequest payload
type TagCreateRequest struct {
	UserID    *int64 `json:"user_id"`
	MovieID   *int64 `json:"movie_id"`
	Tag       string `json:"tag"`
	Timestamp *int64 `json:"timestamp"`
}

func (r TagCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.NotNil),
		validation.Field(&r.MovieID, validation.NotNil),
		validation.Field(&r.Tag, validation.Required),
		validation.Field(&r.Timestamp, validation.NotNil),
	)
}

func (tc *TagController) Create(c *fiber.Ctx) error {
	payload := new(TagCreateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	tag, err := tc.tags.Create(c.UserContext(), &repository.Tag{
		UserID:    *payload.UserID,
		MovieID:   *payload.MovieID,
		Tag:       payload.Tag,
		Timestamp: *payload.Timestamp,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// TagUpdateRequest payload, absent fields are left unchanged
type TagUpdateRequest struct {
	repository.TagUpdate
}

func (r TagUpdateRequest) Validate() error {
	if r.Tag != nil && *r.Tag == "" {
		return validation.Errors{"tag": errBlank}
	}
	return nil
}

func (tc *TagController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	payload := new(TagUpdateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	tag, err := tc.tags.Update(c.UserContext(), id, payload.TagUpdate)
	if err != nil {
		return err
	}
	return c.JSON(tag)
}

func (tc *TagController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := tc.tags.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
