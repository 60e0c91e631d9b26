package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	// MaxLimit caps every list endpoint
	MaxLimit = 1_000_000
	// DefaultLimit applies to ratings and tags
	DefaultLimit = 1000

	maxInt = int(^uint(0) >> 1)
)

// queryLimit reads ?limit. A missing value yields def, anything outside
// 1..MaxLimit is a validation error.
func queryLimit(c *fiber.Ctx, def int) (int, error) {
	return queryInt(c, "limit", def, 1, MaxLimit)
}

func queryInt(c *fiber.Ctx, name string, def, lo, hi int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, unprocessable(fmt.Sprintf("%s: must be an integer", name))
	}
	if v < lo || v > hi {
		return 0, unprocessable(fmt.Sprintf("%s: must be between %d and %d", name, lo, hi))
	}
	return v, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, unprocessable(fmt.Sprintf("%s: must be an integer", name))
	}
	return id, nil
}

// bind decodes a JSON body and runs its Validate method
func bind(c *fiber.Ctx, payload interface{ Validate() error }) error {
	if err := c.BodyParser(payload); err != nil {
		return unprocessable("Invalid request body")
	}
	return payload.Validate()
}
