package rest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/lbq"
)

func parseBody(e *Endpoint, ec *EndpointContext) error {
	if e.Method != MethodPOST && e.Method != MethodPUT && e.Method != MethodPATCH {
		return nil
	}

	if e.BodyParams == nil {
		return nil
	}

	form := e.BodyParams()
	if form == nil {
		return http_errors.BadRequestError("Request body cannot be nil")
	}

	if err := ec.EchoCtx.Bind(form); err != nil {
		ec.App.Debugf("[%s] cannot bind body: %v", ec.RequestID, err)
		return http_errors.BadRequestError("Failed to bind request body", fmt.Sprintf("Failed to bind request body: %s", err.Error()))
	}

	if err := form.Validate(ec); err != nil {
		var errResponse *http_errors.ErrorResponse
		if errors.As(err, &errResponse) {
			return errResponse
		}
		return http_errors.BadRequestError("Failed to validate request body", getFriendlyValidationErrors(err))
	}

	ec.ParsedBody = form
	return nil
}

type ParamErrors []http_errors.ErrorResponse

func (pe ParamErrors) Error() string {
	var messages []string
	for i := range pe {
		messages = append(messages, pe[i].Error())
	}
	return strings.Join(messages, "; ")
}

func parseAllParams(e *Endpoint, ec *EndpointContext) error {
	ec.ParsedQuery = make(map[string]any)
	ec.ParsedPath = make(map[string]any)

	var paramErrors ParamErrors

	for _, param := range e.Accepts {
		val, err := parseParam(ec, param)
		if err != nil {
			var errResponse *http_errors.ErrorResponse
			if !errors.As(err, &errResponse) {
				errResponse = http_errors.BadRequestError("Invalid parameter", fmt.Sprintf("Parameter %s: %s", param.name, err.Error()))
			}

			paramErrors = append(paramErrors, *errResponse)
			continue
		}

		switch param.in {
		case InQuery:
			ec.ParsedQuery[param.name] = val
		case InPath:
			ec.ParsedPath[param.name] = val
		}
	}

	if len(paramErrors) > 0 {
		return paramErrors
	}

	return nil
}

func parseParam(ctx *EndpointContext, param Param) (any, error) {
	if ctx == nil || ctx.EchoCtx == nil {
		return nil, http_errors.BadRequestError("Invalid context", "Endpoint context is required to get path parameters")
	}

	var raw string

	switch param.in {
	case InQuery:
		raw = ctx.EchoCtx.QueryParam(param.name)
	case InPath:
		raw = ctx.EchoCtx.Param(param.name)
	}

	if param.required && raw == "" {
		return nil, http_errors.BadRequestError("Missing parameter", fmt.Sprintf("Parameter %s is required", param.name))
	}

	if raw == "" {
		return nil, nil
	}

	switch param.paramType {
	case string(PathParamTypeString):
		return raw, nil
	case string(QueryParamTypeInt):
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, http_errors.BadRequestError("Invalid parameter", "Parameter "+param.name+" must be an integer")
		}

		return value, nil
	case string(QueryParamTypeFilter):
		filter, err := lbq.ParseFilter(raw)
		if err != nil {
			ctx.App.Debugf("[%s] cannot parse filter: %v", ctx.RequestID, err)
			return nil, http_errors.BadRequestError("Invalid filter", "Parameter "+param.name+" must be a valid filter: "+err.Error())
		}

		filterBuilder := database.NewFilter()

		if filter != nil {
			filterBuilder = filterBuilder.FromLBFilter(filter)
		}

		return filterBuilder, nil

	case string(QueryParamTypeWhere):
		where, err := lbq.ParseWhere(raw)
		if err != nil {
			return nil, http_errors.BadRequestError("Invalid where clause", "Parameter "+param.name+" must be a valid where clause: "+err.Error())
		}
		if len(where) == 0 {
			return nil, nil
		}

		return database.NewWhere().Raw(where), nil
	default:
		return nil, http_errors.BadRequestError("Invalid parameter type", "Parameter "+param.name+" has an invalid type")
	}
}

func getFriendlyValidationErrors(err error) map[string]string {
	friendlyErrors := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, e := range ve {
			message := getErrorMessage(e.Tag(), e.Kind().String(), e.Param())
			if message == "" {
				message = "This field is invalid"
			}
			friendlyErrors[e.Field()] = message
		}
	} else {
		friendlyErrors["error"] = err.Error()
	}

	return friendlyErrors
}

func getErrorMessage(tag string, kind string, param string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "max":
		if kind == "String" || kind == "Slice" || kind == "Array" {
			return "This field must have a maximum length of " + param
		}
		return "This field must be less than " + param
	case "min":
		if kind == "String" || kind == "Slice" || kind == "Array" {
			return "This field must have a minimum length of " + param
		}
		return "This field must be greater than " + param
	case "eq":
		return "This field must be equal to " + param
	case "lt":
		return "This field must be less than " + param
	case "lte":
		return "This field must be less than or equal to " + param
	case "gt":
		return "This field must be greater than " + param
	case "gte":
		return "This field must be greater than or equal to " + param
	case "ne", "ne_ignore_case":
		return "This field must not be equal to " + param
	case "email":
		return "This field must be a valid email"
	case "len":
		return "This field must have a length of " + param
	case "oneof":
		return "This field must be one of: " + param
	case "unique":
		return "This field must be unique"
	default:
		return ""
	}
}
