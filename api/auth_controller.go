package api

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-movielens/auth"
	"github.com/goliatone/go-movielens/middleware/jwtware"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes holds the paths the controller mounts
type AuthControllerRoutes struct {
	Login   string
	Users   string
	UserJWT string
}

type AuthController struct {
	Debug        bool
	Logger       auth.Logger
	Auther       auth.Authenticator
	Users        auth.Users
	CreateUser   *auth.CreateUserHandler
	Routes       *AuthControllerRoutes
	ActivitySink auth.ActivitySink
}

type AuthControllerOption func(*AuthController) *AuthController

func WithAuthLogger(l auth.Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Logger = l
		return a
	}
}

func WithAuthenticator(auther auth.Authenticator) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Auther = auther
		return a
	}
}

func WithUsers(users auth.Users, create *auth.CreateUserHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Users = users
		a.CreateUser = create
		return a
	}
}

func WithAuthActivitySink(sink auth.ActivitySink) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.ActivitySink = sink
		return a
	}
}

func WithAuthDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: auth.NopLogger{},
		Routes: &AuthControllerRoutes{
			Login:   "/login",
			Users:   "/users",
			UserJWT: "/user_jwt",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Users == nil || c.CreateUser == nil {
		panic("Missing Users in auth controller...")
	}

	return c
}

// Register mounts the routes. authenticated accepts any valid token and
// admin additionally requires ROLE_ADMIN.
func (a *AuthController) Register(r fiber.Router, authenticated, admin fiber.Handler) {
	r.Post(a.Routes.Login, a.Login)
	r.Get(a.Routes.Users, authenticated, a.ListUsers)
	r.Post(a.Routes.Users, admin, a.CreateUserPost)
	r.Get(a.Routes.UserJWT, authenticated, a.UserJWT)
}

// LoginRequest payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse carries the session token
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	username := strings.TrimSpace(payload.Username)
	token, err := a.Auther.Login(c.UserContext(), username, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(LoginResponse{AccessToken: token, TokenType: "bearer"})
}

// UserResponse is the public view of an identity
type UserResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func toUserResponse(u *auth.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles.Strings(),
	}
}

func (a *AuthController) ListUsers(c *fiber.Ctx) error {
	users, err := a.Users.List(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(out)
}

// CreateUserRequest payload
type CreateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// Validate will run validation rules. Username and email are checked the way
// they will be stored, without surrounding whitespace.
func (r CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.Email, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required, validation.By(secretFits)),
		validation.Field(&r.Roles, validation.By(knownRoles)),
	)
}

func secretFits(value any) error {
	secret, _ := value.(string)
	if len(secret) > auth.MaxSecretBytes {
		return auth.ErrPasswordTooLong
	}
	return nil
}

func knownRoles(value any) error {
	labels, _ := value.([]string)
	_, err := auth.ParseRoles(labels)
	return err
}

func (a *AuthController) CreateUserPost(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	if a.Debug {
		redacted := *payload
		redacted.Password = "********"
		a.Logger.Debug("create user", "payload", print.MaybePrettyJSON(redacted))
	}

	user, err := a.CreateUser.Execute(c.UserContext(), auth.CreateUserMessage{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Roles:    payload.Roles,
	})
	if err != nil {
		return err
	}

	a.Logger.Info("user created", "username", user.Username, "roles", user.Roles.String())
	if a.ActivitySink != nil {
		event := auth.ActivityEvent{
			EventType:  auth.ActivityEventUserCreated,
			Subject:    user.Username,
			Reason:     "ok",
			OccurredAt: time.Now(),
		}
		if claims, ok := jwtware.GetClaims(c); ok {
			event.Metadata = map[string]any{"created_by": claims.Subject}
		}
		_ = a.ActivitySink.Record(c.UserContext(), event)
	}

	return c.JSON(toUserResponse(user))
}

// UserJWTResponse echoes the verified token
type UserJWTResponse struct {
	Username string    `json:"username"`
	Roles    []string  `json:"roles"`
	IssuedAt time.Time `json:"iat"`
	Expires  time.Time `json:"exp"`
}

func (a *AuthController) UserJWT(c *fiber.Ctx) error {
	claims, ok := jwtware.GetClaims(c)
	if !ok {
		return auth.ErrInvalidToken
	}

	return c.JSON(UserJWTResponse{
		Username: claims.Subject,
		Roles:    claims.Roles.Strings(),
		IssuedAt: claims.IssuedAt.UTC(),
		Expires:  claims.ExpiresAt.UTC(),
	})
}
