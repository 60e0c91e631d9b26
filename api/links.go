package api

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/repository"
)

// LinkController serves /links
type LinkController struct {
	links *repository.LinkRepository
}

func NewLinkController(m *repository.Manager) *LinkController {
	return &LinkController{links: m.Links()}
}

func (lc *LinkController) Register(r fiber.Router) {
	g := r.Group("/links")
	g.Get("/", lc.List)
	g.Post("/", lc.Create)
	g.Get("/:movie_id", lc.Get)
	g.Put("/:movie_id", lc.Update)
	g.Delete("/:movie_id", lc.Delete)
}

func (lc *LinkController) List(c *fiber.Ctx) error {
	limit, err := queryLimit(c, MaxLimit)
	if err != nil {
		return err
	}
	links, err := lc.links.List(c.UserContext(), 0, limit)
	if err != nil {
		return err
	}
	return c.JSON(links)
}

func (lc *LinkController) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "movie_id")
	if err != nil {
		return err
	}
	link, err := lc.links.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(link)
}

// LinkCreateRequest payload
type LinkCreateRequest struct {
	MovieID *int64  `json:"movie_id"`
	IMDBID  string  `json:"imdb_id"`
	TMDBID  *string `json:"tmdb_id"`
}

func (r LinkCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MovieID, validation.NotNil),
		validation.Field(&r.IMDBID, validation.Required),
	)
}

func (lc *LinkController) Create(c *fiber.Ctx) error {
	payload := new(LinkCreateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	link, err := lc.links.Create(c.UserContext(), &repository.Link{
		MovieID: *payload.MovieID,
		IMDBID:  payload.IMDBID,
		TMDBID:  payload.TMDBID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// LinkUpdateRequest payload, absent fields are left unchanged
type LinkUpdateRequest struct {
	repository.LinkUpdate
}

func (r LinkUpdateRequest) Validate() error {
	if r.IMDBID != nil && *r.IMDBID == "" {
		return validation.Errors{"imdb_id": errBlank}
	}
	return nil
}

func (lc *LinkController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "movie_id")
	if err != nil {
		return err
	}
	payload := new(LinkUpdateRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	link, err := lc.links.Update(c.UserContext(), id, payload.LinkUpdate)
	if err != nil {
		return err
	}
	return c.JSON(link)
}

func (lc *LinkController) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "movie_id")
	if err != nil {
		return err
	}
	if err := lc.links.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
