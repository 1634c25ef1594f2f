package echoapi

import (
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
)

var (
	errAccNotFoundInCtx  = errors.New("account object not found in echo.Context")
	errNoPermsToSetRoles = "not enough rights to set these roles"
)

type accountApi struct {
	auth     *authenticator
	svc      *account.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := accountApi{
		auth:     auth,
		svc:      svcs.Accounts,
		validate: svcs.Validate,
		logger:   svcs.Logger,
	}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	jg := ag.Group("", jwt)
	jg.POST("/token-refresh", api.refreshToken)
	jg.POST("/register", api.create, authorityMiddleware())
	jg.GET("", api.query, authorityMiddleware())
	jg.DELETE("", api.destroyMultiple, authorityMiddleware())
	jg.GET("/roles", api.queryRoles)

	// detail endpoints
	dg := jg.Group("/:id", api.ctxAccountOrAuthorityMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, authorityMiddleware())
}

// Handlers

func (api *accountApi) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := bind(ctx, &data, "NewAccount"); err != nil {
		return err
	}

	// ctxAccount cannot set a role > their own max role
	ctxAcc, err := api.auth.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if account.MaxRolePriority(data.Roles) > account.MaxRolePriority(ctxAcc.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	acc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bind(ctx, &data, "LoginRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := api.auth.token(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bind(ctx, &data, "PasswordResetRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetPassword
	if err := bind(ctx, &data, "ResetPassword"); err != nil {
		return err
	}
	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *accountApi) query(ctx echo.Context) error {
	filter := new(account.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accounts, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	return list(ctx, accounts)
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	acc, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAccNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountApi) update(ctx echo.Context) error {
	acc, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAccNotFoundInCtx, "retrieving object from context")
	}

	var data account.UpdateAccount
	if err := bind(ctx, &data, "UpdateAccount"); err != nil {
		return err
	}

	ctxAcc, err := api.auth.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if !ctxAcc.IsAuthority() {
		// `IsActive`, `Roles` and `Email` can only be changed by the authority
		if data.IsActive != nil || data.Roles != nil || data.Email != "" {
			return errHttpForbidden
		}
	}

	// ctxAccount cannot set a role > their own max role
	if account.MaxRolePriority(data.Roles) > account.MaxRolePriority(ctxAcc.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	acc, err = api.svc.Update(ctx.Request().Context(), acc, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountApi) destroy(ctx echo.Context) error {
	acc, ok := ctx.Get("object").(account.Account)
	if !ok {
		return errors.Wrap(errAccNotFoundInCtx, "retrieving object from context")
	}

	// ctxAccount cannot delete themselves
	ctxAcc, err := api.auth.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if acc.ID == ctxAcc.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), acc.ID); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxAccount cannot delete themselves
	ctxAcc, err := api.auth.contextAccount(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, ctxAcc.ID); i < len(query.IDs) && query.IDs[i] == ctxAcc.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, account.Roles)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) ctxAccountOrAuthorityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxAcc, err := api.auth.contextAccount(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context account")
		}

		if ctx.Param("id") == ctxAcc.ID || ctxAcc.IsAuthority() {
			if acc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
				ctx.Set("object", acc)
				return next(ctx)
			} else if !core.IsNotFound(err) {
				return errors.Wrap(err, "finding account by ID")
			}
		}
		return errHttpNotFound
	}
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
