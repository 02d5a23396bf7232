package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired   = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound     = echo.NewHTTPError(http.StatusNotFound, "not found")
	errInvalidQueryArgs = echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")

	// status codes of the domain errors; the error text is the message
	errorCodes = []struct {
		err  error
		code int
	}{
		{user.ErrNotFound, http.StatusNotFound},
		{user.ErrAuthenticationFailed, http.StatusBadRequest},
		{user.ErrAccountDeactivated, http.StatusForbidden},
		{user.ErrAlreadyConfirmed, http.StatusBadRequest},
		{registration.ErrNotFound, http.StatusNotFound},
		{registration.ErrSessionNotFound, http.StatusNotFound},
		{registration.ErrVersionConflict, http.StatusConflict},
		{registration.ErrAlreadyRegistered, http.StatusConflict},
	}
)

func domainErrorCode(err error) (error, int, bool) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.err, ec.code, true
		}
	}
	return nil, 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if domainErr, c, ok := domainErrorCode(err); ok {
			code = c
			message = domainErr.Error()
		} else {
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs, _ := core.TranslateErrors(origErr, translator)
				code = http.StatusBadRequest
				message = core.ValidationError{Fields: fldErrs}.FieldMap()
			case *core.ValidationError:
				if m := origErr.FieldMap(); m != nil {
					message = m
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
