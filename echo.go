package rest

import (
	"fmt"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/karagenc/fj4echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/xompass/vsaas-joins/helpers"
	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/joins"
)

var echoLogLevels = map[helpers.LogLevel]log.Lvl{
	helpers.LogLevelDebug: log.DEBUG,
	helpers.LogLevelInfo:  log.INFO,
	helpers.LogLevelWarn:  log.WARN,
	helpers.LogLevelError: log.ERROR,
}

func NewEchoApp(app *RestApp) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())

	e.JSONSerializer = fj4echo.New()

	level := helpers.LogLevelInfo
	if app != nil {
		level = app.options.LogLevel
	}
	if lvl, ok := echoLogLevels[level]; ok {
		e.Logger.SetLevel(lvl)
	}

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		response := app.errorResponse(err)
		if response.Code >= http.StatusInternalServerError {
			app.Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(response.Code)
		} else {
			err = c.JSON(response.Code, response)
		}
		if err != nil {
			app.Errorf("Failed to send error response: %v", err)
		}
	}

	return e
}

// errorResponse maps any handler error to the body sent to the client.
// Stack traces are only exposed in development.
func (receiver *RestApp) errorResponse(err error) *http_errors.ErrorResponse {
	var (
		response    *http_errors.ErrorResponse
		paramErrors ParamErrors
		joinErr     *joins.Error
		httpErr     *echo.HTTPError
		stackErr    *errors.Error
	)

	switch {
	case errors.As(err, &response):
		return response
	case errors.As(err, &paramErrors):
		return http_errors.BadRequestError("Invalid parameters", []http_errors.ErrorResponse(paramErrors))
	case errors.As(err, &joinErr):
		return joinErrorResponse(joinErr)
	case errors.As(err, &httpErr):
		return http_errors.NewErrorResponse(httpErr.Code, fmt.Sprint(httpErr.Message))
	case errors.As(err, &stackErr):
		if receiver != nil && receiver.GetEnvironment() == "development" {
			return http_errors.InternalServerError(stackErr.Error(), stackErr.ErrorStack())
		}
		return http_errors.InternalServerError("Internal Server Error")
	}

	if err == nil || err.Error() == "" {
		return http_errors.InternalServerError("Internal Server Error")
	}
	return http_errors.InternalServerError(err.Error())
}
