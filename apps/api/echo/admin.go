package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
)

type adminApi struct {
	regSvc *registration.Service
	usrSvc *user.Service
}

func registerAdminAPI(g *echo.Group, auth *tokenAuth, regSvc *registration.Service, usrSvc *user.Service) {
	api := adminApi{
		regSvc: regSvc,
		usrSvc: usrSvc,
	}

	ag := g.Group("/admin", auth.required(), adminMiddleware())
	ag.GET("/registrations", api.queryRegistrations)
	ag.GET("/registrations/:id", api.retrieveRegistration)
	ag.GET("/users", api.queryUsers)
	ag.GET("/users/roles", api.queryRoles)
}

// Handlers

func (api *adminApi) queryRegistrations(ctx echo.Context) error {
	filter := new(registration.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errInvalidQueryArgs
	}

	regs, err := api.regSvc.ListRegistrations(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []registration.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *adminApi) retrieveRegistration(ctx echo.Context) error {
	reg, err := api.regSvc.GetRegistration(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.usrSvc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
