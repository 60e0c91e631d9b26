package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted identity
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Roles         Roles      `bun:"roles,notnull" json:"roles"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

func prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Roles == nil {
		user.Roles = Roles{}
	}
	if user.CreatedAt == nil {
		now := time.Now().UTC()
		user.CreatedAt = &now
	}
}

type authIdentity struct {
	id       string
	username string
	email    string
	roles    Roles
}

var _ Identity = authIdentity{}

func (a authIdentity) ID() string       { return a.id }
func (a authIdentity) Username() string { return a.username }
func (a authIdentity) Email() string    { return a.email }
func (a authIdentity) Roles() Roles     { return a.roles }

// IdentityFromUser exposes a stored user through the Identity contract
func IdentityFromUser(user *User) Identity {
	return authIdentity{
		id:       user.ID.String(),
		username: user.Username,
		email:    user.Email,
		roles:    append(Roles{}, user.Roles...),
	}
}
