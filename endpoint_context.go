package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/http_errors"
)

type EndpointContext struct {
	App         *RestApp
	EchoCtx     echo.Context
	Endpoint    *Endpoint
	ParsedBody  any
	ParsedQuery map[string]any
	ParsedPath  map[string]any
	IpAddress   string
	RequestID   string
	Principal   Principal
	Token       AuthToken
	context     context.Context
}

// newRequestID reuses the caller's X-Request-ID or generates one, and echoes
// it back on the response.
func newRequestID(c echo.Context) string {
	id := c.Request().Header.Get(echo.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}

func (eCtx *EndpointContext) Context() context.Context {
	if eCtx.context == nil {
		return context.Background()
	}
	return eCtx.context
}

func (eCtx *EndpointContext) ValidateStruct(v any) error {
	if v == nil {
		return nil
	}
	return eCtx.App.ValidatorInstance.Struct(v)
}

// GetFilterParam retrieves the filter query parameter.
func (eCtx *EndpointContext) GetFilterParam() (*database.FilterBuilder, error) {
	if filter, ok := eCtx.ParsedQuery["filter"]; ok {
		if filter == nil {
			return nil, nil
		}
		if filterBuilder, ok := filter.(*database.FilterBuilder); ok {
			return filterBuilder, nil
		}

		return nil, http_errors.BadRequestError("Invalid filter query parameter")
	}

	return nil, nil
}

// RespondAndLog sends response and hands it to the audit log handler when
// auditing is enabled. affectedModelId identifies the source document.
func (ctx *EndpointContext) RespondAndLog(response any, affectedModelId any, contentType ResponseType, statusCode ...int) error {
	if !ctx.Endpoint.AuditDisabled {
		audit := ctx.App.auditLogConfig
		if audit.Enabled && audit.Handler != nil {
			if err := audit.Handler(ctx, response, affectedModelId); err != nil {
				ctx.App.Errorf("[%s] Failed to log audit: %v", ctx.RequestID, err)
			}
		}
	}

	status := http.StatusOK
	if len(statusCode) > 0 {
		status = statusCode[0]
	}

	switch contentType {
	case ResponseTypeJSON:
		return ctx.EchoCtx.JSON(status, response)
	case ResponseTypeXML:
		return ctx.EchoCtx.XML(status, response)
	case ResponseTypeText:
		if str, ok := response.(string); ok {
			return ctx.EchoCtx.String(status, str)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "text response must be string")
	case ResponseTypeHTML:
		if str, ok := response.(string); ok {
			return ctx.EchoCtx.HTML(status, str)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "html response must be string")
	case ResponseTypeNoContent:
		return ctx.EchoCtx.NoContent(status)

	default:
		return echo.NewHTTPError(http.StatusNotAcceptable, "unsupported content type")
	}
}

// JSON sends a JSON response
func (ctx *EndpointContext) JSON(response any, statusCode ...int) error {
	status := http.StatusOK
	if len(statusCode) > 0 {
		status = statusCode[0]
	}

	return ctx.EchoCtx.JSON(status, response)
}

// Text sends a plain text response
func (ctx *EndpointContext) Text(response string, statusCode ...int) error {
	status := http.StatusOK
	if len(statusCode) > 0 {
		status = statusCode[0]
	}

	return ctx.EchoCtx.String(status, response)
}

// NoContent sends a 204 No Content response
func (ctx *EndpointContext) NoContent() error {
	return ctx.EchoCtx.NoContent(http.StatusNoContent)
}

func (ctx *EndpointContext) Get(key string) any {
	return ctx.EchoCtx.Get(key)
}

func (ctx *EndpointContext) Set(key string, value any) {
	ctx.EchoCtx.Set(key, value)
}
