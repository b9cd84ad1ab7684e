package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// CredentialWriter moves token pairs between the transport boundary and
// the HTTP response: both tokens travel as named cookies whose max-ages
// match their TTLs.
type CredentialWriter struct {
	cfg    Config
	logger Logger
}

// NewCredentialWriter creates a writer for the configured cookie names.
func NewCredentialWriter(cfg Config) *CredentialWriter {
	return &CredentialWriter{
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (w *CredentialWriter) WithLogger(logger Logger) *CredentialWriter {
	w.logger = logger
	return w
}

// SetPair writes both credential cookies. The pair is always delivered
// together; individual reissue is not a thing.
func (w *CredentialWriter) SetPair(ctx router.Context, pair TokenPair) {
	w.setCookie(ctx, w.cfg.GetAccessCookieName(), pair.AccessToken, pair.AccessExpiresAt)
	w.setCookie(ctx, w.cfg.GetRefreshCookieName(), pair.RefreshToken, pair.RefreshExpiresAt)
}

// Clear expires both credential cookies. This is advisory: the session
// snapshot deletion is the actual revocation.
func (w *CredentialWriter) Clear(ctx router.Context) {
	w.expireCookie(ctx, w.cfg.GetAccessCookieName())
	w.expireCookie(ctx, w.cfg.GetRefreshCookieName())
}

// AccessToken reads the access credential from the request.
func (w *CredentialWriter) AccessToken(ctx router.Context) string {
	return ExtractAccessToken(ctx, w.cfg)
}

// RefreshToken reads the refresh credential from the request.
func (w *CredentialWriter) RefreshToken(ctx router.Context) string {
	return ctx.Cookies(w.cfg.GetRefreshCookieName())
}

func (w *CredentialWriter) setCookie(ctx router.Context, name, val string, expires time.Time) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HTTPOnly: true,
		Secure:   w.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (w *CredentialWriter) expireCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   w.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

// WriteError recovers any error into the structured JSON failure body.
// Forged and expired tokens are deliberately collapsed into the same
// response so the distinction never reaches a caller.
func WriteError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	message := richErr.Message
	textCode := richErr.TextCode
	if IsTokenExpiredError(richErr) || IsMalformedError(richErr) {
		message = "invalid or expired token"
		textCode = TextCodeUnauthenticated
	}

	return ctx.JSON(status, map[string]any{
		"success": false,
		"error": map[string]any{
			"message":   message,
			"text_code": textCode,
		},
	})
}
