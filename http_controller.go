package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ControllerRoutes holds the route paths the controller mounts.
type ControllerRoutes struct {
	Register   string
	Activate   string
	Login      string
	SocialAuth string
	Refresh    string
	Logout     string
	Me         string
	Profile    string
	Password   string
	Avatar     string
}

// Controller exposes the credential flows as a JSON API.
type Controller struct {
	Debug        bool
	Logger       Logger
	Auther       Authenticator
	Activation   *Activation
	Profiles     *Profiles
	Verifier     *SocialVerifier
	Writer       *CredentialWriter
	Gate         *Gate
	Routes       *ControllerRoutes
	ErrorHandler router.ErrorHandler
}

type ControllerOption func(*Controller) *Controller

func WithAuther(auther Authenticator) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = auther
		return c
	}
}

func WithActivation(activation *Activation) ControllerOption {
	return func(c *Controller) *Controller {
		c.Activation = activation
		return c
	}
}

func WithProfiles(profiles *Profiles) ControllerOption {
	return func(c *Controller) *Controller {
		c.Profiles = profiles
		return c
	}
}

func WithSocialVerifier(verifier *SocialVerifier) ControllerOption {
	return func(c *Controller) *Controller {
		c.Verifier = verifier
		return c
	}
}

func WithCredentialWriter(writer *CredentialWriter) ControllerOption {
	return func(c *Controller) *Controller {
		c.Writer = writer
		return c
	}
}

func WithGate(gate *Gate) ControllerOption {
	return func(c *Controller) *Controller {
		c.Gate = gate
		return c
	}
}

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = logger
		return c
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		Routes: &ControllerRoutes{
			Register:   "/register",
			Activate:   "/activate",
			Login:      "/login",
			SocialAuth: "/social-auth",
			Refresh:    "/refresh",
			Logout:     "/logout",
			Me:         "/me",
			Profile:    "/profile",
			Password:   "/password",
			Avatar:     "/avatar",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Activation == nil {
		panic("Missing Activation in auth controller...")
	}

	if c.Writer == nil {
		panic("Missing CredentialWriter in auth controller...")
	}

	if c.Gate == nil {
		panic("Missing Gate in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the credential API on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...ControllerOption) *Controller {
	controller := NewController(opts...)

	authenticated := controller.Gate.RequireAuthenticated()

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")
	app.Post(controller.Routes.Activate, controller.Activate).
		SetName("auth.activate")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")
	app.Post(controller.Routes.SocialAuth, controller.SocialAuth).
		SetName("auth.social")
	app.Get(controller.Routes.Refresh, controller.Refresh).
		SetName("auth.refresh")
	app.Get(controller.Routes.Logout, controller.Logout).
		SetName("auth.logout")

	app.Get(controller.Routes.Me, authenticated(controller.Me)).
		SetName("auth.me")
	app.Put(controller.Routes.Profile, authenticated(controller.UpdateProfile)).
		SetName("auth.profile")
	app.Put(controller.Routes.Password, authenticated(controller.UpdatePassword)).
		SetName("auth.password")
	app.Put(controller.Routes.Avatar, authenticated(controller.UpdateAvatar)).
		SetName("auth.avatar")

	return controller
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

// Register starts the activation flow: the candidate is packed into a
// signed activation token and the code is mailed. Nothing is persisted.
func (a *Controller) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	issue, err := a.Activation.Start(ctx.Context(), Candidate{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("registration failed", "email", payload.Email, "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":          true,
		"activation_token": issue.Token,
		"expires_at":       issue.ExpiresAt,
	})
}

// ActivateRequest payload
type ActivateRequest struct {
	Token string `form:"token" json:"token"`
	Code  string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r ActivateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Code, validation.Required, validation.Length(ActivationCodeLength, ActivationCodeLength), is.Digit),
	)
}

// Activate finishes the activation flow and creates the account.
func (a *Controller) Activate(ctx router.Context) error {
	payload := new(ActivateRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	user, err := a.Activation.Finish(ctx.Context(), payload.Token, payload.Code)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"success": true,
		"user":    user.Snapshot(),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login verifies the password and delivers a fresh credential pair.
func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.writeLoginResult(ctx, result)
}

// SocialAuthRequest payload
type SocialAuthRequest struct {
	IDToken string `form:"id_token" json:"id_token"`
}

// Validate will run validation rules
func (r SocialAuthRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
	)
}

// SocialAuth exchanges a verified provider ID token for a credential
// pair, creating the account on first contact.
func (a *Controller) SocialAuth(ctx router.Context) error {
	if a.Verifier == nil {
		return a.ErrorHandler(ctx, goerrors.New("social auth is not configured", goerrors.CategoryInternal))
	}

	payload := new(SocialAuthRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	profile, err := a.Verifier.Verify(payload.IDToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Auther.SocialAuth(ctx.Context(), *profile)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.writeLoginResult(ctx, result)
}

// Refresh rotates the credential pair carried by the refresh cookie.
func (a *Controller) Refresh(ctx router.Context) error {
	refreshToken := a.Writer.RefreshToken(ctx)
	if refreshToken == "" {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	result, err := a.Auther.Refresh(ctx.Context(), refreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return a.writeLoginResult(ctx, result)
}

// Logout revokes the session and expires the credential cookies.
func (a *Controller) Logout(ctx router.Context) error {
	token := a.Writer.AccessToken(ctx)

	if err := a.Auther.Logout(ctx.Context(), token); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Writer.Clear(ctx)

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

// Me returns the cached snapshot for the authenticated session.
func (a *Controller) Me(ctx router.Context) error {
	snapshot, ok := RouterSession(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"user":    snapshot,
	})
}

// UpdateProfile applies name, email, and phone changes.
func (a *Controller) UpdateProfile(ctx router.Context) error {
	snapshot, ok := RouterSession(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	payload := new(ProfileChanges)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	user, err := a.Profiles.UpdateInfo(ctx.Context(), snapshot.UserID, *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"user":    user.Snapshot(),
	})
}

// PasswordChangeRequest payload
type PasswordChangeRequest struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r PasswordChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

// UpdatePassword rotates the password after re-checking the old one.
func (a *Controller) UpdatePassword(ctx router.Context) error {
	snapshot, ok := RouterSession(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	payload := new(PasswordChangeRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if _, err := a.Profiles.UpdatePassword(ctx.Context(), snapshot.UserID, payload.OldPassword, payload.NewPassword); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

// AvatarRequest payload
type AvatarRequest struct {
	Data string `form:"data" json:"data"`
}

// Validate will run validation rules
func (r AvatarRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data, validation.Required),
	)
}

// UpdateAvatar replaces the stored avatar.
func (a *Controller) UpdateAvatar(ctx router.Context) error {
	snapshot, ok := RouterSession(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToDecodeSession)
	}

	payload := new(AvatarRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	user, err := a.Profiles.UpdateAvatar(ctx.Context(), snapshot.UserID, payload.Data)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"user":    user.Snapshot(),
	})
}

func (a *Controller) writeLoginResult(ctx router.Context, result *LoginResult) error {
	a.Writer.SetPair(ctx, result.Pair)

	if a.Debug {
		fmt.Println("======= AUTH RESULT ======")
		fmt.Println(print.MaybePrettyJSON(result.User))
		fmt.Println("==========================")
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"user":    result.User,
		"tokens":  result.Pair,
	})
}

func bindError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithTextCode(TextCodeInvalidInput).
		WithCode(goerrors.CodeBadRequest)
}

func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
		WithTextCode(TextCodeInvalidInput).
		WithCode(goerrors.CodeBadRequest)
}
