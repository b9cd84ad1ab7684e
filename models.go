package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	AvatarID      string     `bun:"avatar_id" json:"avatar_id,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Verified      bool       `bun:"is_verified" json:"is_verified,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether the account can be authenticated with a
// password. Social-auth accounts never set one.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// Identity adapts the record to the Identity interface.
func (u *User) Identity() Identity {
	return userIdentity{
		id:    u.ID.String(),
		name:  u.Name,
		email: u.Email,
		role:  string(u.Role),
	}
}

// Snapshot builds the cacheable session view of the record. The password
// hash never crosses into the cache.
func (u *User) Snapshot() *SessionSnapshot {
	return &SessionSnapshot{
		UserID:    u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		Verified:  u.Verified,
	}
}

type userIdentity struct {
	id    string
	name  string
	email string
	role  string
}

func (a userIdentity) ID() string    { return a.id }
func (a userIdentity) Name() string  { return a.name }
func (a userIdentity) Email() string { return a.email }
func (a userIdentity) Role() string  { return a.role }

var _ Identity = userIdentity{}
