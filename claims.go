package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose tags each signed token with its class. Verification rejects
// a purpose mismatch so a refresh token can never stand in for an access
// token, nor an activation token for either.
type TokenPurpose string

const (
	// PurposeAccess is the short-lived request credential
	PurposeAccess TokenPurpose = "access"
	// PurposeRefresh is the long-lived rotation credential
	PurposeRefresh TokenPurpose = "refresh"
	// PurposeActivation is the registration credential
	PurposeActivation TokenPurpose = "activation"
)

// SessionClaims are the claims carried by access and refresh tokens. The
// payload is deliberately minimal: the user id plus the purpose tag. Role
// and profile data live in the session cache, never in the token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID     string       `json:"uid"`
	Purpose TokenPurpose `json:"purpose"`
}

// UserID returns the embedded user id, falling back to the subject.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Candidate is the unverified profile embedded in an activation token. It
// is the only persistence the registration flow has until activation.
type Candidate struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ActivationClaims are the claims carried by activation tokens.
type ActivationClaims struct {
	jwt.RegisteredClaims
	User    Candidate    `json:"user"`
	Code    string       `json:"activation_code"`
	Purpose TokenPurpose `json:"purpose"`
}

// Expires returns the expiration time
func (c *ActivationClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
