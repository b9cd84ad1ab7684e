package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// ActivationCodeLength fixes the code to exactly six digits. The upstream
// behavior of deriving the code from an unbounded random range produced
// variable-length codes; a fixed length is what the mail template and the
// client input expect.
const ActivationCodeLength = 6

// ActivationIssue is the outcome of starting a registration.
type ActivationIssue struct {
	Token     string    `json:"activation_token"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Activation runs the registration flow: it issues time-boxed activation
// tokens embedding a one-time code, and turns a verified token+code pair
// into a persistent user record. The token is the only persistence the
// flow has; correctness rests on signature integrity and expiry.
type Activation struct {
	tokens TokenService
	users  UserStore
	mailer *ActivationMailer
	logger Logger
}

// NewActivation creates the registration flow.
func NewActivation(tokens TokenService, users UserStore, mailer *ActivationMailer) *Activation {
	return &Activation{
		tokens: tokens,
		users:  users,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (a *Activation) WithLogger(logger Logger) *Activation {
	a.logger = logger
	return a
}

// Validate runs validation rules on the candidate profile.
func (c Candidate) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Name,
			validation.Required,
		),
		validation.Field(
			&c.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&c.Password,
			validation.Required,
			validation.Length(6, 0),
		),
	)
}

// Start validates the candidate, issues the activation token, and sends
// the activation mail. A delivery failure aborts the flow: a user who
// never receives the code cannot activate, so the token is discarded and
// the registration reported as failed.
func (a *Activation) Start(ctx context.Context, candidate Candidate) (*ActivationIssue, error) {
	if err := candidate.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithTextCode(TextCodeInvalidInput).
			WithCode(goerrors.CodeBadRequest)
	}

	existing, err := a.users.FindByEmail(ctx, candidate.Email)
	if err != nil && !goerrors.IsNotFound(err) {
		return nil, wrapUpstream(err, "failed to check for existing user")
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	code, err := GenerateActivationCode()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
	}

	token, expiresAt, err := a.tokens.SignActivation(candidate, code)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue activation token")
	}

	if err := a.mailer.SendActivation(ctx, candidate, code); err != nil {
		a.logger.Error("activation mail delivery failed", "email", candidate.Email, "error", err)
		return nil, goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode)
	}

	a.logger.Info("activation issued", "email", candidate.Email)

	return &ActivationIssue{
		Token:     token,
		Code:      code,
		ExpiresAt: expiresAt,
	}, nil
}

// Finish verifies the token, matches the supplied code against the
// embedded one, and creates the user. The email is re-checked right
// before creation to guard the race where two activations for the same
// address land concurrently.
func (a *Activation) Finish(ctx context.Context, token, suppliedCode string) (*User, error) {
	claims, err := a.tokens.VerifyActivation(token)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(claims.Code), []byte(suppliedCode)) != 1 {
		return nil, ErrInvalidActivationCode
	}

	candidate := claims.User

	existing, err := a.users.FindByEmail(ctx, candidate.Email)
	if err != nil && !goerrors.IsNotFound(err) {
		return nil, wrapUpstream(err, "failed to check for existing user")
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := HashPassword(candidate.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           newUserID(candidate.Email),
		Name:         candidate.Name,
		Email:        candidate.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		Verified:     true,
	}

	created, err := a.users.Create(ctx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	a.logger.Info("user activated", "user_id", created.ID.String())

	return created, nil
}

// GenerateActivationCode returns a fixed-length numeric code generated
// with crypto/rand.
func GenerateActivationCode() (string, error) {
	digits := make([]byte, ActivationCodeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// newUserID derives a deterministic UUID from the email so repeated
// creates for the same address collide instead of multiplying.
func newUserID(email string) uuid.UUID {
	if id, err := hashid.NewUUID(email); err == nil {
		return id
	}
	return uuid.New()
}
