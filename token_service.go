package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and verifies the three token classes. Each class has
// its own secret and TTL so compromising one cannot forge another.
type TokenService interface {
	SignSession(purpose TokenPurpose, userID string) (string, time.Time, error)
	VerifySession(purpose TokenPurpose, token string) (*SessionClaims, error)
	SignActivation(candidate Candidate, code string) (string, time.Time, error)
	VerifyActivation(token string) (*ActivationClaims, error)
}

type tokenClass struct {
	key []byte
	ttl time.Duration
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	classes  map[TokenPurpose]tokenClass
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	return &TokenServiceImpl{
		classes: map[TokenPurpose]tokenClass{
			PurposeAccess:     {key: []byte(cfg.GetAccessSigningKey()), ttl: cfg.GetAccessTokenTTL()},
			PurposeRefresh:    {key: []byte(cfg.GetRefreshSigningKey()), ttl: cfg.GetRefreshTokenTTL()},
			PurposeActivation: {key: []byte(cfg.GetActivationSigningKey()), ttl: cfg.GetActivationTokenTTL()},
		},
		issuer:   cfg.GetIssuer(),
		audience: cfg.GetAudience(),
		logger:   logger,
	}
}

// SignSession mints an access or refresh token carrying only the user id.
func (ts *TokenServiceImpl) SignSession(purpose TokenPurpose, userID string) (string, time.Time, error) {
	if purpose != PurposeAccess && purpose != PurposeRefresh {
		return "", time.Time{}, goerrors.New("unsupported session token purpose", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}

	class := ts.classes[purpose]
	now := time.Now()
	expiresAt := now.Add(class.ttl)

	claims := &SessionClaims{
		RegisteredClaims: ts.registered(userID, now, expiresAt),
		UID:              userID,
		Purpose:          purpose,
	}

	token, err := ts.sign(claims, class.key)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// VerifySession parses and validates an access or refresh token. Expired
// and malformed tokens surface as distinct errors; a token of the wrong
// class fails even when its signature checks out.
func (ts *TokenServiceImpl) VerifySession(purpose TokenPurpose, token string) (*SessionClaims, error) {
	class, ok := ts.classes[purpose]
	if !ok || purpose == PurposeActivation {
		return nil, goerrors.New("unsupported session token purpose", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}

	claims := &SessionClaims{}
	if err := ts.verify(token, claims, class.key); err != nil {
		return nil, err
	}

	if claims.Purpose != purpose {
		ts.logger.Warn("TokenService verify purpose mismatch", "want", purpose, "got", claims.Purpose)
		return nil, ErrTokenPurposeMismatch
	}

	return claims, nil
}

// SignActivation mints a registration token embedding the candidate
// profile and the one-time numeric code.
func (ts *TokenServiceImpl) SignActivation(candidate Candidate, code string) (string, time.Time, error) {
	class := ts.classes[PurposeActivation]
	now := time.Now()
	expiresAt := now.Add(class.ttl)

	claims := &ActivationClaims{
		RegisteredClaims: ts.registered(candidate.Email, now, expiresAt),
		User:             candidate,
		Code:             code,
		Purpose:          PurposeActivation,
	}

	token, err := ts.sign(claims, class.key)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// VerifyActivation parses and validates an activation token.
func (ts *TokenServiceImpl) VerifyActivation(token string) (*ActivationClaims, error) {
	class := ts.classes[PurposeActivation]

	claims := &ActivationClaims{}
	if err := ts.verify(token, claims, class.key); err != nil {
		return nil, err
	}

	if claims.Purpose != PurposeActivation {
		ts.logger.Warn("TokenService verify purpose mismatch", "want", PurposeActivation, "got", claims.Purpose)
		return nil, ErrTokenPurposeMismatch
	}

	return claims, nil
}

func (ts *TokenServiceImpl) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    ts.issuer,
		Subject:   subject,
		Audience:  aud,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) verify(tokenString string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService verify could not validate claims")
		return ErrTokenMalformed
	}

	return nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
