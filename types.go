package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is a leveled key/value logger: a message followed by
// alternating key/value pairs, zap sugar style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// Authenticator issues, rotates, and revokes credential pairs
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	SocialAuth(ctx context.Context, profile SocialProfile) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Authenticate(ctx context.Context, accessToken string) (*SessionSnapshot, error)
	Logout(ctx context.Context, accessToken string) error
}

// TokenPair is an access+refresh pair, always minted together.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult is the outcome of login, social auth, and refresh.
type LoginResult struct {
	Pair TokenPair
	User *SessionSnapshot
}

// SocialProfile is an already-verified identity handed to us by the host
// application after it completed the provider handshake.
type SocialProfile struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// UserStore is the persistence collaborator. The bun repository in this
// module implements it; hosts may supply their own.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
}

// LoginTracker is an optional UserStore capability. Stores that implement
// it get the login timestamp recorded on every successful login.
type LoginTracker interface {
	TrackLogin(ctx context.Context, user *User) error
}

// SessionStore maps user id to a serialized session snapshot with a TTL.
// Snapshot absence is the revocation signal.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*SessionSnapshot, error)
	Set(ctx context.Context, snapshot *SessionSnapshot) error
	Delete(ctx context.Context, userID string) error
}

// Message is an outbound notification.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
	HTML     string
}

// Sender delivers notifications. Delivery failures abort registration.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Asset is a stored binary asset reference.
type Asset struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// UploadOptions narrow the asset store contract to what avatars need.
type UploadOptions struct {
	Folder string
	Width  int
}

// AssetStore stores binary assets such as avatars.
type AssetStore interface {
	Upload(ctx context.Context, data string, opts UploadOptions) (*Asset, error)
	Destroy(ctx context.Context, id string) error
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetActivationSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetActivationTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetCookieSecure() bool
	GetSessionKeyPrefix() string
}

// SimpleConfig is a plain struct implementation of Config for hosts that
// do not carry their own configuration layer.
type SimpleConfig struct {
	AccessSigningKey     string
	RefreshSigningKey    string
	ActivationSigningKey string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	ActivationTokenTTL   time.Duration
	Issuer               string
	Audience             []string
	AccessCookieName     string
	RefreshCookieName    string
	CookieSecure         bool
	SessionKeyPrefix     string
}

const (
	// DefaultAccessTokenTTL keeps access tokens short lived.
	DefaultAccessTokenTTL = 5 * time.Minute
	// DefaultRefreshTokenTTL bounds how long a session can go unrefreshed.
	DefaultRefreshTokenTTL = 5 * 24 * time.Hour
	// DefaultActivationTokenTTL is the registration window.
	DefaultActivationTokenTTL = 24 * time.Hour
	// DefaultAccessCookieName carries the access token.
	DefaultAccessCookieName = "access_token"
	// DefaultRefreshCookieName carries the refresh token.
	DefaultRefreshCookieName = "refresh_token"
)

func (c SimpleConfig) GetAccessSigningKey() string     { return c.AccessSigningKey }
func (c SimpleConfig) GetRefreshSigningKey() string    { return c.RefreshSigningKey }
func (c SimpleConfig) GetActivationSigningKey() string { return c.ActivationSigningKey }

func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c SimpleConfig) GetActivationTokenTTL() time.Duration {
	if c.ActivationTokenTTL <= 0 {
		return DefaultActivationTokenTTL
	}
	return c.ActivationTokenTTL
}

func (c SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetAccessCookieName() string {
	if c.AccessCookieName == "" {
		return DefaultAccessCookieName
	}
	return c.AccessCookieName
}

func (c SimpleConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return DefaultRefreshCookieName
	}
	return c.RefreshCookieName
}

func (c SimpleConfig) GetCookieSecure() bool       { return c.CookieSecure }
func (c SimpleConfig) GetSessionKeyPrefix() string { return c.SessionKeyPrefix }

var _ Config = SimpleConfig{}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { fmt.Println(logLine("ERR", msg, args)) }
func (d defLogger) Warn(msg string, args ...any)  { fmt.Println(logLine("WRN", msg, args)) }
func (d defLogger) Info(msg string, args ...any)  { fmt.Println(logLine("INF", msg, args)) }
func (d defLogger) Debug(msg string, args ...any) { fmt.Println(logLine("DBG", msg, args)) }

// logLine renders the message with its key/value pairs appended. A
// dangling key is rendered bare rather than dropped.
func logLine(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTH " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}
