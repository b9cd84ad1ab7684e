package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-credentials"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gateFixture struct {
	*authFixture
	cfg  auth.SimpleConfig
	gate *auth.Gate
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	f := newAuthFixture(t)
	cfg := testConfig()

	return &gateFixture{
		authFixture: f,
		cfg:         cfg,
		gate:        auth.NewGate(f.auther, cfg),
	}
}

func (f *gateFixture) login(t *testing.T, email, password string) *auth.LoginResult {
	t.Helper()

	result, err := f.auther.Login(context.Background(), email, password)
	require.NoError(t, err)
	return result
}

// protectedContext builds a request context carrying the access token in
// the configured cookie, with the expectations the gate needs to attach
// the session on success.
func protectedContext(cfg auth.Config, token string) *router.MockContext {
	ctx := router.NewMockContext()
	if token != "" {
		ctx.CookiesM[cfg.GetAccessCookieName()] = token
	}
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("GetString", router.HeaderAuthorization, "").Return("").Maybe()
	ctx.On("Locals", auth.SessionContextKey, mock.AnythingOfType("*auth.SessionSnapshot")).Return(nil).Maybe()
	ctx.On("SetContext", mock.Anything).Return().Maybe()
	return ctx
}

type jsonResponse struct {
	status  int
	payload map[string]any
}

func captureJSON(ctx *router.MockContext) *jsonResponse {
	out := &jsonResponse{}
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out.status = args.Int(0)
		out.payload = args.Get(1).(map[string]any)
	}).Return(nil)
	return out
}

func (r *jsonResponse) errorField(t *testing.T, key string) any {
	t.Helper()

	errMap, ok := r.payload["error"].(map[string]any)
	require.True(t, ok, "expected an error object in the response body")
	return errMap[key]
}

func TestGateRequireAuthenticated(t *testing.T) {
	t.Run("valid cookie token reaches the handler with the session attached", func(t *testing.T) {
		f := newGateFixture(t)
		user := f.seedUser(t, "test@example.com", "password123", auth.RoleUser)
		result := f.login(t, "test@example.com", "password123")

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)

		handled := false
		handler := f.gate.RequireAuthenticated()(func(c router.Context) error {
			snapshot, ok := auth.RouterSession(c)
			require.True(t, ok)
			assert.Equal(t, user.ID.String(), snapshot.UserID)
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handled)
	})

	t.Run("bearer header is the fallback when the cookie is absent", func(t *testing.T) {
		f := newGateFixture(t)
		f.seedUser(t, "test@example.com", "password123", auth.RoleUser)
		result := f.login(t, "test@example.com", "password123")

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background()).Maybe()
		ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer " + result.Pair.AccessToken)
		ctx.On("Locals", auth.SessionContextKey, mock.AnythingOfType("*auth.SessionSnapshot")).Return(nil).Maybe()
		ctx.On("SetContext", mock.Anything).Return().Maybe()

		handled := false
		handler := f.gate.RequireAuthenticated()(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handled)
	})

	t.Run("missing token is rejected with a 401", func(t *testing.T) {
		f := newGateFixture(t)

		ctx := protectedContext(f.cfg, "")
		got := captureJSON(ctx)

		handled := false
		handler := f.gate.RequireAuthenticated()(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.False(t, handled)
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, false, got.payload["success"])
		assert.Equal(t, auth.TextCodeUnauthenticated, got.errorField(t, "text_code"))
	})

	t.Run("garbage token is rejected with a 401", func(t *testing.T) {
		f := newGateFixture(t)

		ctx := protectedContext(f.cfg, "not.a.token")
		got := captureJSON(ctx)

		handled := false
		handler := f.gate.RequireAuthenticated()(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.False(t, handled)
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, auth.TextCodeUnauthenticated, got.errorField(t, "text_code"))
	})

	t.Run("expired access token is rejected with a 401", func(t *testing.T) {
		f := newGateFixture(t)
		user := f.seedUser(t, "test@example.com", "password123", auth.RoleUser)

		shortCfg := testConfig()
		shortCfg.AccessTokenTTL = time.Nanosecond
		shortTokens := auth.NewTokenService(shortCfg, nil)

		token, _, err := shortTokens.SignSession(auth.PurposeAccess, user.ID.String())
		require.NoError(t, err)
		require.NoError(t, f.sessions.Set(context.Background(), user.Snapshot()))

		time.Sleep(10 * time.Millisecond)

		ctx := protectedContext(f.cfg, token)
		got := captureJSON(ctx)

		handler := f.gate.RequireAuthenticated()(func(c router.Context) error {
			t.Fatal("handler should not run for an expired token")
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, auth.TextCodeUnauthenticated, got.errorField(t, "text_code"))
	})

	t.Run("revoked session is rejected even with a valid token", func(t *testing.T) {
		f := newGateFixture(t)
		user := f.seedUser(t, "test@example.com", "password123", auth.RoleUser)
		result := f.login(t, "test@example.com", "password123")

		require.NoError(t, f.sessions.Delete(context.Background(), user.ID.String()))

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)
		got := captureJSON(ctx)

		handler := f.gate.RequireAuthenticated()(func(c router.Context) error {
			t.Fatal("handler should not run for a revoked session")
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, auth.TextCodeUnauthenticated, got.errorField(t, "text_code"))
	})
}

func TestGateRequireRoles(t *testing.T) {
	t.Run("user role is rejected for admin-only routes", func(t *testing.T) {
		f := newGateFixture(t)
		f.seedUser(t, "user@example.com", "password123", auth.RoleUser)
		result := f.login(t, "user@example.com", "password123")

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)
		got := captureJSON(ctx)

		handled := false
		handler := f.gate.RequireRoles(auth.RoleAdmin)(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.False(t, handled)
		assert.Equal(t, router.StatusForbidden, got.status)
		assert.Equal(t, auth.TextCodeForbidden, got.errorField(t, "text_code"))
	})

	t.Run("admin role is accepted for admin-only routes", func(t *testing.T) {
		f := newGateFixture(t)
		f.seedUser(t, "admin@example.com", "password123", auth.RoleAdmin)
		result := f.login(t, "admin@example.com", "password123")

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)

		handled := false
		handler := f.gate.RequireRoles(auth.RoleAdmin)(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handled)
	})

	t.Run("admin passes a multi-role gate", func(t *testing.T) {
		f := newGateFixture(t)
		f.seedUser(t, "admin@example.com", "password123", auth.RoleAdmin)
		result := f.login(t, "admin@example.com", "password123")

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)

		handled := false
		handler := f.gate.RequireRoles(auth.RoleUser, auth.RoleAdmin)(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handled)
	})

	t.Run("reuses the snapshot attached upstream without re-authenticating", func(t *testing.T) {
		f := newGateFixture(t)

		ctx := router.NewMockContext()
		ctx.LocalsMock[auth.SessionContextKey] = &auth.SessionSnapshot{
			UserID: newTestUUID("admin@example.com").String(),
			Role:   auth.RoleAdmin,
		}

		handled := false
		handler := f.gate.RequireRoles(auth.RoleAdmin)(func(c router.Context) error {
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handled)
	})

	t.Run("role comes from the cache, so a demotion applies mid-session", func(t *testing.T) {
		f := newGateFixture(t)
		user := f.seedUser(t, "admin@example.com", "password123", auth.RoleAdmin)
		result := f.login(t, "admin@example.com", "password123")

		demoted := user.Snapshot()
		demoted.Role = auth.RoleUser
		require.NoError(t, f.sessions.Set(context.Background(), demoted))

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)
		got := captureJSON(ctx)

		handler := f.gate.RequireRoles(auth.RoleAdmin)(func(c router.Context) error {
			t.Fatal("handler should not run after a demotion")
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.Equal(t, router.StatusForbidden, got.status)
	})

	t.Run("authenticates on its own when it runs standalone", func(t *testing.T) {
		f := newGateFixture(t)
		user := f.seedUser(t, "user@example.com", "password123", auth.RoleUser)
		result := f.login(t, "user@example.com", "password123")

		ctx := protectedContext(f.cfg, result.Pair.AccessToken)

		handled := false
		handler := f.gate.RequireRoles(auth.RoleUser)(func(c router.Context) error {
			snapshot, ok := auth.RouterSession(c)
			require.True(t, ok)
			assert.Equal(t, user.ID.String(), snapshot.UserID)
			handled = true
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.True(t, handled)
	})

	t.Run("unauthenticated request is a 401, not a 403", func(t *testing.T) {
		f := newGateFixture(t)

		ctx := protectedContext(f.cfg, "")
		got := captureJSON(ctx)

		handler := f.gate.RequireRoles(auth.RoleAdmin)(func(c router.Context) error {
			t.Fatal("handler should not run without credentials")
			return nil
		})

		require.NoError(t, handler(ctx))
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, auth.TextCodeUnauthenticated, got.errorField(t, "text_code"))
	})
}

func TestExtractAccessToken(t *testing.T) {
	cfg := testConfig()

	t.Run("cookie wins over the header", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.CookiesM[cfg.GetAccessCookieName()] = "cookie-token"
		ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer header-token").Maybe()

		assert.Equal(t, "cookie-token", auth.ExtractAccessToken(ctx, cfg))
	})

	t.Run("falls back to the bearer header", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer header-token")

		assert.Equal(t, "header-token", auth.ExtractAccessToken(ctx, cfg))
	})

	t.Run("non-bearer schemes are ignored", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", router.HeaderAuthorization, "").Return("Basic dXNlcjpwYXNz")

		assert.Empty(t, auth.ExtractAccessToken(ctx, cfg))
	})

	t.Run("no credentials yields empty", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", router.HeaderAuthorization, "").Return("")

		assert.Empty(t, auth.ExtractAccessToken(ctx, cfg))
	})
}
