package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ajira/core"
	"github.com/trezcool/ajira/core/account"
	"github.com/trezcool/ajira/core/profile"
	"github.com/trezcool/ajira/core/session"
)

type authApi struct {
	deps ServerDeps
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{deps: deps}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.POST("/exists", api.exists)
	ag.POST("/magic-link", api.requestMagicLink)
	ag.POST("/magic-link/consume", api.consumeMagicLink)
	ag.POST("/signup/teacher", api.signupTeacher)
	ag.POST("/signup/school", api.signupSchool)
	ag.POST("/confirm", api.confirm)
	ag.POST("/resend-confirmation", api.resendConfirmation)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	jg := ag.Group("", jwt)
	jg.GET("/whoami", api.whoami)
	jg.PUT("/password", api.updatePassword)
	jg.POST("/token-refresh", api.refreshToken)
}

// newSessionStore builds a fresh per-request session store; the sign-in flow
// runs through it so authentication and profile resolution settle as one
// step.
func (api *authApi) newSessionStore() *session.Store {
	return session.NewStore(api.deps.Resolver, api.deps.AccountSvc, api.deps.Conf, api.deps.Logger)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	store := api.newSessionStore()
	res, err := store.SignIn(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "signing in")
	}

	acct, err := api.deps.AccountSvc.GetByEmail(data.Email)
	if err != nil {
		return errors.Wrap(err, "finding account by email")
	}
	return api.respondAuthed(ctx, acct, res)
}

func (api *authApi) logout(ctx echo.Context) error {
	store := api.newSessionStore()
	redirect := store.SignOut(ctx.Request().Context())
	api.clearSessionCookie(ctx)
	return ctx.JSON(http.StatusOK, RedirectResponse{Redirect: redirect})
}

func (api *authApi) exists(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	exists, err := api.deps.AccountSvc.Exists(data.Email)
	if err != nil {
		return errors.Wrap(err, "checking account existence")
	}
	return ctx.JSON(http.StatusOK, ExistsResponse{Exists: exists})
}

func (api *authApi) requestMagicLink(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	store := api.newSessionStore()
	if err := store.SignInWithMagicLink(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "requesting magic link")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "A sign-in link is on its way to your inbox."})
}

func (api *authApi) consumeMagicLink(ctx echo.Context) error {
	var data TokenRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TokenRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	acct, err := api.deps.AccountSvc.ConsumeMagicLink(data.UID, data.Token)
	if err != nil {
		return errors.Wrap(err, "consuming magic link")
	}
	res, err := api.deps.Resolver.Resolve(ctx.Request().Context(), acct.ID)
	if err != nil {
		return errors.Wrap(err, "resolving profile")
	}
	return api.respondAuthed(ctx, acct, res)
}

func (api *authApi) signupTeacher(ctx echo.Context) error {
	var data TeacherSignupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeacherSignupRequest")
	}
	if err := data.Account.Validate(api.deps.Validate, api.deps.AccountSvc); err != nil {
		return err
	}
	if err := data.Profile.Validate(api.deps.Validate); err != nil {
		return err
	}

	acct, err := api.deps.AccountSvc.Create(data.Account)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	data.Profile.AccountID = acct.ID
	t, err := api.deps.ProfileSvc.CreateTeacher(data.Profile)
	if err != nil {
		return errors.Wrap(err, "creating teacher profile")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *authApi) signupSchool(ctx echo.Context) error {
	var data SchoolSignupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SchoolSignupRequest")
	}
	if err := data.Account.Validate(api.deps.Validate, api.deps.AccountSvc); err != nil {
		return err
	}
	if err := data.Profile.Validate(api.deps.Validate); err != nil {
		return err
	}

	acct, err := api.deps.AccountSvc.Create(data.Account)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	data.Profile.AccountID = acct.ID
	s, err := api.deps.ProfileSvc.CreateSchool(data.Profile)
	if err != nil {
		return errors.Wrap(err, "creating school profile")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *authApi) confirm(ctx echo.Context) error {
	var data TokenRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TokenRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.AccountSvc.Confirm(data.UID, data.Token); err != nil {
		return errors.Wrap(err, "confirming account")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Email address confirmed."})
}

func (api *authApi) resendConfirmation(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.AccountSvc.ResendConfirmation(data.Email); !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "resending confirmation"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"a new confirmation email will arrive in your inbox shortly.",
	})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	store := api.newSessionStore()
	if err := store.ResetPassword(data.Email); !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetAccountPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetAccountPassword")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.deps.AccountSvc.ResetPassword(data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

// whoami resolves the caller's profile afresh; exactly one portal key is
// present in the response.
func (api *authApi) whoami(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.deps.Resolver.Resolve(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "resolving profile")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *authApi) updatePassword(ctx echo.Context) error {
	var data UpdatePasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePasswordRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	acct, err := getContextAccount(ctx, api.deps.AccountSvc, claims)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if err = acct.CheckPassword(data.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "wrong password"})
	}

	if err := api.deps.AccountSvc.UpdatePassword(claims.Subject, data.NewPassword); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password updated."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	api.setSessionCookie(ctx, token)
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

// respondAuthed mints a JWT, sets the session cookie and returns the token
// with the resolved profile.
func (api *authApi) respondAuthed(ctx echo.Context, acct account.Account, res profile.Resolved) error {
	token, err := GenerateToken(GetClaims(acct, res))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.setSessionCookie(ctx, token)
	return ctx.JSON(http.StatusOK, AuthResponse{Token: token, Profile: res})
}

func (api *authApi) setSessionCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(api.deps.Conf.Server.JWTExpirationDelta),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (api *authApi) clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	TokenRequest struct {
		UID   string `json:"uid" validate:"required"`
		Token string `json:"token" validate:"required"`
	}

	UpdatePasswordRequest struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}

	TeacherSignupRequest struct {
		Account account.NewAccount `json:"account"`
		Profile profile.NewTeacher `json:"profile"`
	}

	SchoolSignupRequest struct {
		Account account.NewAccount `json:"account"`
		Profile profile.NewSchool  `json:"profile"`
	}

	AuthResponse struct {
		Token   string           `json:"token"`
		Profile profile.Resolved `json:"profile"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	ExistsResponse struct {
		Exists bool `json:"exists"`
	}

	RedirectResponse struct {
		Redirect string `json:"redirect"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

func (tr *TokenRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(tr)
}

func (up *UpdatePasswordRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}
