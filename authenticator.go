package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Auther mints credential pairs on login and social auth, rotates them on
// refresh, and revokes them by deleting the session snapshot. It owns no
// mutable state beyond its collaborators; every operation is a single
// pass over token service, user store, and session cache.
type Auther struct {
	users    UserStore
	sessions SessionStore
	tokens   TokenService
	logger   Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserStore, sessions SessionStore, tokens TokenService) *Auther {
	return &Auther{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the password and issues a fresh credential pair. Unknown
// email and wrong password are indistinguishable to the caller, and no
// session snapshot is written on failure.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapUpstream(err, "failed to retrieve user during login")
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Info("login rejected", "email", email)
		return nil, ErrInvalidCredentials
	}

	s.trackLogin(ctx, user)

	return s.issue(ctx, user.Snapshot())
}

// SocialAuth accepts an already-verified identity from the host's social
// login handshake. Absence of the user triggers creation, never failure;
// created accounts carry no password hash and can never be logged into
// with a password.
func (s *Auther) SocialAuth(ctx context.Context, profile SocialProfile) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, profile.Email)
	if err != nil && !goerrors.IsNotFound(err) {
		return nil, wrapUpstream(err, "failed to retrieve user during social auth")
	}

	if user == nil {
		user, err = s.users.Create(ctx, &User{
			ID:        newUserID(profile.Email),
			Name:      profile.Name,
			Email:     profile.Email,
			AvatarURL: profile.AvatarURL,
			Role:      RoleUser,
			Verified:  true,
		})
		if err != nil {
			return nil, wrapUpstream(err, "failed to create user during social auth")
		}
		s.logger.Info("social auth created user", "user_id", user.ID.String())
	}

	s.trackLogin(ctx, user)

	return s.issue(ctx, user.Snapshot())
}

// Refresh rotates a credential pair. The refresh token must verify
// against the refresh secret AND the session snapshot must still be in
// the cache; the latter is how logout invalidates unexpired refresh
// tokens. The new pair always carries the same user id as the input.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokens.VerifySession(PurposeRefresh, refreshToken)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.sessions.Get(ctx, claims.UserID())
	if err != nil {
		return nil, wrapUpstream(err, "failed to read session during refresh")
	}
	if snapshot == nil {
		return nil, ErrSessionRevoked
	}

	// re-writing the snapshot slides its TTL alongside the new pair
	return s.issue(ctx, snapshot)
}

// Authenticate validates an inbound access token and confirms the session
// is still live. Forged, expired, and revoked all collapse into
// ErrUnauthenticated so the gate leaks nothing about which check failed.
func (s *Auther) Authenticate(ctx context.Context, accessToken string) (*SessionSnapshot, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.tokens.VerifySession(PurposeAccess, accessToken)
	if err != nil {
		s.logger.Debug("access token rejected", "error", err)
		return nil, ErrUnauthenticated
	}

	snapshot, err := s.sessions.Get(ctx, claims.UserID())
	if err != nil {
		return nil, wrapUpstream(err, "failed to read session during authentication")
	}
	if snapshot == nil {
		return nil, ErrUnauthenticated
	}

	return snapshot, nil
}

// Logout deletes the session snapshot for the token's user. Deleting the
// snapshot is the actual revocation; clearing cookies at the transport
// boundary is advisory.
func (s *Auther) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.VerifySession(PurposeAccess, accessToken)
	if err != nil {
		return ErrUnauthenticated
	}

	if err := s.sessions.Delete(ctx, claims.UserID()); err != nil {
		return wrapUpstream(err, "failed to delete session during logout")
	}

	s.logger.Info("session revoked", "user_id", claims.UserID())

	return nil
}

// trackLogin stamps loggedin_at when the store supports it. Best effort:
// a failed timestamp write never blocks the login.
func (s *Auther) trackLogin(ctx context.Context, user *User) {
	tracker, ok := s.users.(LoginTracker)
	if !ok {
		return
	}

	if err := tracker.TrackLogin(ctx, user); err != nil {
		s.logger.Warn("failed to track login", "user_id", user.ID.String(), "error", err)
	}
}

// issue mints an access+refresh pair and writes the snapshot. The cache
// write happens before the pair is returned so a caller can never hold
// tokens for a session the cache does not know about.
func (s *Auther) issue(ctx context.Context, snapshot *SessionSnapshot) (*LoginResult, error) {
	access, accessExp, err := s.tokens.SignSession(PurposeAccess, snapshot.UserID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	refresh, refreshExp, err := s.tokens.SignSession(PurposeRefresh, snapshot.UserID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign refresh token")
	}

	if err := s.sessions.Set(ctx, snapshot); err != nil {
		return nil, wrapUpstream(err, "failed to write session snapshot")
	}

	return &LoginResult{
		Pair: TokenPair{
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     refresh,
			RefreshExpiresAt: refreshExp,
		},
		User: snapshot,
	}, nil
}

var _ Authenticator = (*Auther)(nil)
