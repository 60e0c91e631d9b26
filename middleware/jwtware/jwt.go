// Package jwtware is a fiber middleware that gates routes on a bearer token
// verified by the auth core.
package jwtware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/auth"
)

const (
	DefaultContextKey  = "user"
	defaultTokenLookup = "header:" + fiber.HeaderAuthorization
)

// ValidationListener is invoked after a token has been validated but before
// the role check.
type ValidationListener func(c *fiber.Ctx, claims *auth.Claims) error

type Config struct {
	// Filter skips the middleware when it returns true
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	// ErrorHandler defaults to returning the error so the app error handler
	// renders it
	ErrorHandler fiber.ErrorHandler
	ContextKey   string
	// TokenLookup is a comma separated list of source:name pairs, for example
	// "header:Authorization,cookie:jwt". Cookie and query values carry the
	// token alone and get AuthScheme prepended.
	TokenLookup string
	AuthScheme  string

	// Verifier is required
	Verifier auth.TokenVerifier

	// RequiredRole specifies an exact role that must be present
	RequiredRole auth.Role

	// ActivitySink receives a verified or rejected event per request
	ActivitySink auth.ActivitySink

	ValidationListeners []ValidationListener

	Clock auth.Clock
}

// New builds the middleware
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()
	gate := auth.NewGate(cfg.Verifier)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		claims, err := gate.Authorize(
			ExtractRawHeader(c, extractors),
			cfg.RequiredRole,
			func(claims *auth.Claims) error {
				return cfg.runValidationListeners(c, claims)
			},
		)

		cfg.record(c, claims, err)

		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)
		c.SetUserContext(auth.WithClaimsContext(c.UserContext(), claims))

		return cfg.SuccessHandler(c)
	}
}

// GetClaims returns the claims the middleware stored under key, or under
// DefaultContextKey when key is omitted
func GetClaims(c *fiber.Ctx, key ...string) (*auth.Claims, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	claims, ok := c.Locals(k).(*auth.Claims)
	return claims, ok && claims != nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic("AUTH: JWT middleware configuration: Verifier is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = strings.TrimSpace(auth.BearerPrefix)
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return cfg
}

func (cfg *Config) getExtractors() []Extractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, claims *auth.Claims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Config) record(c *fiber.Ctx, claims *auth.Claims, err error) {
	if cfg.ActivitySink == nil {
		return
	}

	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventVerified,
		Reason:     auth.ReasonFor(err),
		OccurredAt: cfg.Clock(),
		Metadata:   map[string]any{"path": c.Path()},
	}
	if err != nil {
		event.EventType = auth.ActivityEventRejected
	}
	if claims != nil {
		event.Subject = claims.Subject
	}
	_ = cfg.ActivitySink.Record(c.UserContext(), event)
}

// Extractor pulls a raw Authorization style value out of a request
type Extractor func(c *fiber.Ctx) string

// ExtractRawHeader returns the first non empty value any extractor finds
func ExtractRawHeader(c *fiber.Ctx, extractors []Extractor) string {
	for _, extractor := range extractors {
		if raw := extractor(c); raw != "" {
			return raw
		}
	}
	return ""
}

func GetExtractors(tokenLookup string, authScheme string) []Extractor {
	extractors := make([]Extractor, 0)

	// header:Authorization,cookie:jwt,query:auth_token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, fromHeader(name))
		case "query":
			extractors = append(extractors, withScheme(authScheme, func(c *fiber.Ctx) string {
				return c.Query(name)
			}))
		case "cookie":
			extractors = append(extractors, withScheme(authScheme, func(c *fiber.Ctx) string {
				return c.Cookies(name)
			}))
		}
	}

	return extractors
}

// fromHeader passes the header through untouched, the verifier owns its format
func fromHeader(header string) Extractor {
	return func(c *fiber.Ctx) string {
		return c.Get(header)
	}
}

func withScheme(scheme string, get func(c *fiber.Ctx) string) Extractor {
	return func(c *fiber.Ctx) string {
		token := get(c)
		if token == "" {
			return ""
		}
		return scheme + " " + token
	}
}
