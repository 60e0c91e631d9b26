package api

import (
	stderrors "errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/auth"
)

// ErrorResponse is the body of every non 2xx response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

const internalDetail = "Internal server error"

// StatusOf resolves the HTTP status an error renders with
func StatusOf(err error) int {
	status, _ := resolve(err)
	return status
}

func resolve(err error) (int, string) {
	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, verrs.Error()
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		status := rich.Code
		if status == 0 {
			status = statusForCategory(rich.Category)
		}
		if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
			return status, internalDetail
		}
		return status, rich.Message
	}

	return http.StatusInternalServerError, internalDetail
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusUnprocessableEntity
	case errors.CategoryConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorHandler renders errors as {"detail": ...} and logs server faults
func NewErrorHandler(logger auth.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = auth.NopLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		status, detail := resolve(err)

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
		}

		return c.Status(status).JSON(ErrorResponse{Detail: detail})
	}
}

func unprocessable(msg string) error {
	return fiber.NewError(http.StatusUnprocessableEntity, msg)
}
