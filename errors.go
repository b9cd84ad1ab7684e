package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes exposed in structured failure responses.
const (
	TextCodeInvalidInput       = "INVALID_INPUT"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenPurpose       = "TOKEN_PURPOSE_MISMATCH"
	TextCodeInvalidActivation  = "INVALID_ACTIVATION_CODE"
	TextCodeUserExists         = "USER_ALREADY_EXISTS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeSessionRevoked     = "SESSION_REVOKED"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeDeliveryFailed     = "DELIVERY_FAILED"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
)

// ErrInvalidCredentials covers both unknown email and password mismatch so
// callers cannot tell which one failed.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is a cryptographically valid token past its expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is a token that failed signature or structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenPurposeMismatch is a valid token of one class presented as another.
var ErrTokenPurposeMismatch = goerrors.New("token purpose mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenPurpose).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidActivationCode is a code that does not match the one embedded
// in the activation token.
var ErrInvalidActivationCode = goerrors.New("invalid activation code", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidActivation).
	WithCode(goerrors.CodeBadRequest)

// ErrUserAlreadyExists guards duplicate registrations and email changes.
var ErrUserAlreadyExists = goerrors.New("user already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(goerrors.CodeConflict)

// ErrUserNotFound is returned when an id or email resolves to nothing.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSessionRevoked means the refresh token is still valid but its session
// snapshot is gone from the cache, typically after logout.
var ErrSessionRevoked = goerrors.New("session has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is the single classification the gate exposes for a
// missing, forged, expired, or revoked access token.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden means the authenticated user's role is not in the allowed set.
var ErrForbidden = goerrors.New("role is not allowed to access this resource", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrDeliveryFailed aborts registration when the activation mail cannot be sent.
var ErrDeliveryFailed = goerrors.New("failed to deliver activation email", goerrors.CategoryOperation).
	WithTextCode(TextCodeDeliveryFailed).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUnableToDecodeSession is a snapshot that could not be deserialized.
var ErrUnableToDecodeSession = goerrors.New("unable to decode session snapshot", goerrors.CategoryInternal).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(goerrors.CodeInternal)

// IsTokenExpiredError checks for expired tokens, including legacy string
// matches from jwt wrappers.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError checks for forged or structurally invalid tokens.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// wrapUpstream tags collaborator I/O failures so the boundary can report
// them without leaking internals.
func wrapUpstream(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
