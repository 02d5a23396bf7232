package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
)

type registrationApi struct {
	svc    *registration.Service
	usrSvc *user.Service
}

func registerRegistrationAPI(g *echo.Group, auth *tokenAuth, svc *registration.Service, usrSvc *user.Service) {
	api := registrationApi{
		svc:    svc,
		usrSvc: usrSvc,
	}

	rg := g.Group("/registration")
	rg.GET("/questions", api.questions)
	rg.POST("/sessions", api.start, auth.optional())
	rg.GET("/sessions/:id", api.retrieve)
	rg.POST("/sessions/:id/input", api.input)
}

// Handlers

func (api *registrationApi) questions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Catalog().Questions())
}

// start binds the new session to the account of the bearer token, if any.
func (api *registrationApi) start(ctx echo.Context) error {
	var ident *registration.Identity
	if _, err := getContextClaims(ctx); err == nil {
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		ident = &registration.Identity{UserID: usr.ID, Email: usr.Email, Confirmed: usr.IsConfirmed()}
	}

	sess, reply, err := api.svc.Start(ctx.Request().Context(), "", ident)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusCreated, newSessionResponse(sess, reply))
}

func (api *registrationApi) retrieve(ctx echo.Context) error {
	sess, reply, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(sess, reply))
}

func (api *registrationApi) input(ctx echo.Context) error {
	var data InputRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InputRequest")
	}

	sess, reply, err := api.svc.Input(ctx.Request().Context(), ctx.Param("id"), data.Version, data.Text)
	if err != nil {
		return errors.Wrap(err, "applying input")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(sess, reply))
}

type (
	// InputRequest is one line typed by the user. Version 0 skips the concurrency check.
	InputRequest struct {
		Text    string `json:"text"`
		Version int64  `json:"version"`
	}

	SessionResponse struct {
		ID            string                 `json:"id"`
		Version       int64                  `json:"version"`
		Stage         registration.Stage     `json:"stage"`
		QuestionIndex int                    `json:"question_index"`
		Answers       registration.AnswerSet `json:"answers"`
		Reply         registration.Reply     `json:"reply"`
	}
)

func newSessionResponse(sess registration.Session, reply registration.Reply) SessionResponse {
	answers := sess.Answers
	if answers == nil {
		answers = registration.AnswerSet{}
	}
	if reply.Messages == nil {
		reply.Messages = []string{}
	}
	return SessionResponse{
		ID:            sess.ID,
		Version:       sess.Version,
		Stage:         sess.Stage,
		QuestionIndex: sess.QuestionIndex,
		Answers:       answers,
		Reply:         reply,
	}
}
