package api

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/analysis"
)

// ImageAnalyzer is implemented by analysis.Service
type ImageAnalyzer interface {
	Submit(ctx context.Context, url string) (string, error)
	Result(ctx context.Context, requestID string) (*analysis.Outcome, error)
}

// AnalysisController serves /analyze_img and /result/:request_id
type AnalysisController struct {
	analyzer ImageAnalyzer
}

func NewAnalysisController(analyzer ImageAnalyzer) *AnalysisController {
	if analyzer == nil {
		panic("Missing ImageAnalyzer in analysis controller...")
	}
	return &AnalysisController{analyzer: analyzer}
}

func (ac *AnalysisController) Register(r fiber.Router) {
	r.Post("/analyze_img", ac.Analyze)
	r.Get("/result/:request_id", ac.Result)
}

// ImageRequest payload
type ImageRequest struct {
	URL string `json:"url"`
}

func (r ImageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required, is.URL),
	)
}

func (ac *AnalysisController) Analyze(c *fiber.Ctx) error {
	payload := new(ImageRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	id, err := ac.analyzer.Submit(c.UserContext(), payload.URL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request_id": id})
}

func (ac *AnalysisController) Result(c *fiber.Ctx) error {
	out, err := ac.analyzer.Result(c.UserContext(), c.Params("request_id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}
