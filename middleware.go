package auth

import (
	"strings"

	"github.com/goliatone/go-router"
)

// Gate guards protected routes. Unlike a pure JWT middleware it consults
// the session cache on every request, so tokens stay revocable mid-TTL
// and role changes take effect without re-login.
type Gate struct {
	auther       Authenticator
	cfg          Config
	logger       Logger
	ErrorHandler router.ErrorHandler
}

// NewGate creates an authorization gate on the given authenticator.
func NewGate(auther Authenticator, cfg Config) *Gate {
	g := &Gate{
		auther: auther,
		cfg:    cfg,
		logger: defLogger{},
	}
	g.ErrorHandler = g.defaultErrorHandler
	return g
}

func (g *Gate) WithLogger(logger Logger) *Gate {
	g.logger = logger
	return g
}

// RequireAuthenticated validates the inbound access token and confirms
// the session is still live. On success the snapshot is attached to the
// router locals and the request context for downstream handlers.
func (g *Gate) RequireAuthenticated() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			snapshot, err := g.authenticate(ctx)
			if err != nil {
				return g.ErrorHandler(ctx, err)
			}

			g.attach(ctx, snapshot)

			return hf(ctx)
		}
	}
}

// RequireRoles authorizes by role membership. The role is re-derived from
// the cached snapshot, never from the access token, so demotions and
// promotions apply immediately. It authenticates on its own when it runs
// without RequireAuthenticated in front.
func (g *Gate) RequireRoles(allowed ...UserRole) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			snapshot, ok := RouterSession(ctx)
			if !ok {
				var err error
				snapshot, err = g.authenticate(ctx)
				if err != nil {
					return g.ErrorHandler(ctx, err)
				}
				g.attach(ctx, snapshot)
			}

			if !RoleAllowed(snapshot.Role, allowed...) {
				g.logger.Info("role rejected", "role", snapshot.Role, "user_id", snapshot.UserID)
				return g.ErrorHandler(ctx, ErrForbidden.Clone().WithMetadata(map[string]any{
					"role": string(snapshot.Role),
				}))
			}

			return hf(ctx)
		}
	}
}

func (g *Gate) authenticate(ctx router.Context) (*SessionSnapshot, error) {
	token := ExtractAccessToken(ctx, g.cfg)
	return g.auther.Authenticate(ctx.Context(), token)
}

func (g *Gate) attach(ctx router.Context, snapshot *SessionSnapshot) {
	ctx.Locals(SessionContextKey, snapshot)
	ctx.SetContext(WithSessionContext(ctx.Context(), snapshot))
}

func (g *Gate) defaultErrorHandler(ctx router.Context, err error) error {
	return WriteError(ctx, err)
}

// ExtractAccessToken pulls the access token from the configured cookie,
// falling back to a bearer Authorization header.
func ExtractAccessToken(ctx router.Context, cfg Config) string {
	if token := ctx.Cookies(cfg.GetAccessCookieName()); token != "" {
		return token
	}

	header := ctx.GetString(router.HeaderAuthorization, "")
	const scheme = "Bearer"
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}

	return ""
}
