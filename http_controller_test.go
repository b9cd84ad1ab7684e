package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-credentials"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	*gateFixture
	controller *auth.Controller
	sender     *captureSender
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	f := newGateFixture(t)
	sender := &captureSender{}

	controller := auth.NewController(
		auth.WithAuther(f.auther),
		auth.WithActivation(auth.NewActivation(f.tokens, f.users, auth.NewActivationMailer(sender))),
		auth.WithProfiles(auth.NewProfiles(f.users, f.sessions)),
		auth.WithCredentialWriter(auth.NewCredentialWriter(f.cfg)),
		auth.WithGate(f.gate),
	)

	return &controllerFixture{
		gateFixture: f,
		controller:  controller,
		sender:      sender,
	}
}

// bindContext builds a request context whose Bind call fills the payload
// via the given function.
func bindContext(fill func(any)) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		fill(args.Get(0))
	}).Return(nil)
	return ctx
}

func TestControllerLogin(t *testing.T) {
	t.Run("sets both credential cookies and returns the pair", func(t *testing.T) {
		f := newControllerFixture(t)
		user := f.seedUser(t, "test@example.com", "password123", auth.RoleUser)

		ctx := bindContext(func(v any) {
			payload := v.(*auth.LoginRequest)
			payload.Email = "test@example.com"
			payload.Password = "password123"
		})
		cookies := captureCookies(ctx)
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Login(ctx))

		assert.Equal(t, router.StatusOK, got.status)
		assert.Equal(t, true, got.payload["success"])
		assert.NotNil(t, got.payload["tokens"])

		require.Len(t, *cookies, 2)
		access, refresh := (*cookies)[0], (*cookies)[1]
		assert.Equal(t, f.cfg.GetAccessCookieName(), access.Name)
		assert.NotEmpty(t, access.Value)
		assert.Equal(t, f.cfg.GetRefreshCookieName(), refresh.Name)
		assert.NotEmpty(t, refresh.Value)

		snapshot, err := f.auther.Authenticate(context.Background(), access.Value)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), snapshot.UserID)
	})

	t.Run("malformed email is a 400 before any lookup", func(t *testing.T) {
		f := newControllerFixture(t)

		ctx := bindContext(func(v any) {
			payload := v.(*auth.LoginRequest)
			payload.Email = "not-an-email"
			payload.Password = "password123"
		})
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Login(ctx))
		assert.Equal(t, router.StatusBadRequest, got.status)
		assert.Equal(t, auth.TextCodeInvalidInput, got.errorField(t, "text_code"))
	})

	t.Run("wrong password is a 401 with no cookies written", func(t *testing.T) {
		f := newControllerFixture(t)
		f.seedUser(t, "test@example.com", "password123", auth.RoleUser)

		ctx := bindContext(func(v any) {
			payload := v.(*auth.LoginRequest)
			payload.Email = "test@example.com"
			payload.Password = "wrong-password"
		})
		cookies := captureCookies(ctx)
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Login(ctx))
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, auth.TextCodeInvalidCreds, got.errorField(t, "text_code"))
		assert.Empty(t, *cookies)
	})
}

func TestControllerRegisterAndActivate(t *testing.T) {
	f := newControllerFixture(t)

	registerCtx := bindContext(func(v any) {
		payload := v.(*auth.RegisterRequest)
		payload.Name = "Test User"
		payload.Email = "test@example.com"
		payload.Password = "password123"
	})
	registered := captureJSON(registerCtx)

	require.NoError(t, f.controller.Register(registerCtx))
	require.Equal(t, router.StatusOK, registered.status)

	token, ok := registered.payload["activation_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	msg, ok := f.sender.last()
	require.True(t, ok)
	code, ok := msg.Data["activation_code"].(string)
	require.True(t, ok)

	activateCtx := bindContext(func(v any) {
		payload := v.(*auth.ActivateRequest)
		payload.Token = token
		payload.Code = code
	})
	activated := captureJSON(activateCtx)

	require.NoError(t, f.controller.Activate(activateCtx))
	assert.Equal(t, router.StatusCreated, activated.status)
	assert.Equal(t, true, activated.payload["success"])

	user, err := f.users.FindByEmail(context.Background(), "test@example.com")
	require.NoError(t, err)
	assert.True(t, user.Verified)
}

func TestControllerRegisterRejectsInvalidPayload(t *testing.T) {
	f := newControllerFixture(t)

	ctx := bindContext(func(v any) {
		payload := v.(*auth.RegisterRequest)
		payload.Name = "Test User"
		payload.Email = "not-an-email"
		payload.Password = "password123"
	})
	got := captureJSON(ctx)

	require.NoError(t, f.controller.Register(ctx))
	assert.Equal(t, router.StatusBadRequest, got.status)
	assert.Equal(t, auth.TextCodeInvalidInput, got.errorField(t, "text_code"))

	_, sent := f.sender.last()
	assert.False(t, sent)
}

func TestControllerRefresh(t *testing.T) {
	t.Run("rotates the pair carried by the refresh cookie", func(t *testing.T) {
		f := newControllerFixture(t)
		f.seedUser(t, "test@example.com", "password123", auth.RoleUser)
		result := f.login(t, "test@example.com", "password123")

		ctx := router.NewMockContext()
		ctx.CookiesM[f.cfg.GetRefreshCookieName()] = result.Pair.RefreshToken
		ctx.On("Context").Return(context.Background()).Maybe()
		cookies := captureCookies(ctx)
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Refresh(ctx))
		assert.Equal(t, router.StatusOK, got.status)
		require.Len(t, *cookies, 2)
		assert.NotEmpty(t, (*cookies)[0].Value)
	})

	t.Run("missing refresh cookie is a 401", func(t *testing.T) {
		f := newControllerFixture(t)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background()).Maybe()
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Refresh(ctx))
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Equal(t, auth.TextCodeUnauthenticated, got.errorField(t, "text_code"))
	})
}

func TestControllerLogout(t *testing.T) {
	t.Run("revokes the session and expires both cookies", func(t *testing.T) {
		f := newControllerFixture(t)
		user := f.seedUser(t, "test@example.com", "password123", auth.RoleUser)
		result := f.login(t, "test@example.com", "password123")

		ctx := router.NewMockContext()
		ctx.CookiesM[f.cfg.GetAccessCookieName()] = result.Pair.AccessToken
		ctx.On("Context").Return(context.Background()).Maybe()
		ctx.On("GetString", router.HeaderAuthorization, "").Return("").Maybe()
		cookies := captureCookies(ctx)
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Logout(ctx))
		assert.Equal(t, router.StatusOK, got.status)
		assert.Equal(t, true, got.payload["success"])

		require.Len(t, *cookies, 2)
		for _, cookie := range *cookies {
			assert.Empty(t, cookie.Value)
			assert.Negative(t, cookie.MaxAge)
		}

		cached, err := f.sessions.Get(context.Background(), user.ID.String())
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("invalid token is rejected and no cookies are cleared", func(t *testing.T) {
		f := newControllerFixture(t)

		ctx := router.NewMockContext()
		ctx.CookiesM[f.cfg.GetAccessCookieName()] = "not.a.token"
		ctx.On("Context").Return(context.Background()).Maybe()
		ctx.On("GetString", router.HeaderAuthorization, "").Return("").Maybe()
		cookies := captureCookies(ctx)
		got := captureJSON(ctx)

		require.NoError(t, f.controller.Logout(ctx))
		assert.Equal(t, router.StatusUnauthorized, got.status)
		assert.Empty(t, *cookies)
	})
}

func TestControllerMe(t *testing.T) {
	f := newControllerFixture(t)

	snapshot := &auth.SessionSnapshot{
		UserID: newTestUUID("test@example.com").String(),
		Email:  "test@example.com",
		Role:   auth.RoleUser,
	}

	ctx := router.NewMockContext()
	ctx.LocalsMock[auth.SessionContextKey] = snapshot
	got := captureJSON(ctx)

	require.NoError(t, f.controller.Me(ctx))
	assert.Equal(t, router.StatusOK, got.status)
	assert.Equal(t, true, got.payload["success"])
	assert.Equal(t, snapshot, got.payload["user"])
}
