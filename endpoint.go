package rest

import (
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/http_errors"
)

type RateLimit struct {
	Max    int
	Window time.Duration
	Key    string
}

type Validable interface {
	Validate(ctx *EndpointContext) error
}

type EndpointRole interface {
	RoleName() string
}

// Role is a plain named role.
type Role string

func (r Role) RoleName() string { return string(r) }

// AnyRole keys the includes allowed to every caller of an endpoint.
const AnyRole Role = "*"

type Param struct {
	in        ParamLocation
	name      string
	paramType string
	required  bool
}

func NewQueryParam(name string, paramType QueryParamType, required ...bool) Param {
	return Param{
		in:        InQuery,
		name:      name,
		paramType: string(paramType),
		required:  len(required) > 0 && required[0],
	}
}

func NewPathParam(name string, paramType PathParamType, required ...bool) Param {
	return Param{
		in:        InPath,
		name:      name,
		paramType: string(paramType),
		required:  len(required) > 0 && required[0],
	}
}

type Endpoint struct {
	Name        string
	Method      EndpointMethod
	Path        string
	Handler     func(c *EndpointContext) error
	Disabled    bool             // If true, the endpoint is disabled and answers 404.
	BodyParams  func() Validable // Returns the struct the JSON body is bound to and validated with.
	RateLimiter func(*EndpointContext) RateLimit
	Public      bool // If true, the endpoint is reachable without credentials.
	// AllowedIncludes restricts the filter includes per role. AnyRole applies
	// to everyone. A nil map allows every include.
	AllowedIncludes map[EndpointRole][]string
	ActionType      ActionType
	Model           string // The source model, used for logging.
	app             *RestApp
	Accepts         []Param
	AuditDisabled   bool
	MetaData        map[string]any
}

func (ep *Endpoint) run(c echo.Context) error {
	if ep.Disabled {
		return http_errors.NotFoundError("Endpoint not found")
	}

	ctx := &EndpointContext{
		EchoCtx:   c,
		Endpoint:  ep,
		App:       ep.app,
		IpAddress: c.RealIP(),
		RequestID: newRequestID(c),
		context:   c.Request().Context(),
	}

	err := parseBody(ep, ctx)
	if err != nil {
		return err
	}

	err = parseAllParams(ep, ctx)
	if err != nil {
		return err
	}

	filter, err := ctx.GetFilterParam()
	if err != nil {
		return err
	}

	err = ep.app.Authorize(ctx)
	if err != nil {
		return err
	}

	err = ep.validateIncludes(ctx, filter)
	if err != nil {
		return err
	}

	err = checkRateLimit(ctx)
	if err != nil {
		return err
	}

	ep.app.Debugf("[%s] %s %s by %s", ctx.RequestID, ep.ActionType, ep.Name, ctx.IpAddress)

	return ep.Handler(ctx)
}

func (ep *Endpoint) validateIncludes(ctx *EndpointContext, filter *database.FilterBuilder) error {
	if ep.AllowedIncludes == nil || filter == nil {
		return nil
	}

	built, err := filter.Build()
	if err != nil {
		return http_errors.BadRequestError("Invalid filter", err.Error())
	}

	allowed := ep.allowedIncludesFor(ctx.Principal)
	for _, include := range built.Include {
		if !slices.Contains(allowed, include.Relation) {
			return http_errors.ForbiddenErrorWithCode(ErrorCodeIncludeDenied, "Include not allowed", include.Relation)
		}
	}
	return nil
}

func (ep *Endpoint) allowedIncludesFor(principal Principal) []string {
	var allowed []string
	for role, includes := range ep.AllowedIncludes {
		if role.RoleName() == AnyRole.RoleName() ||
			(principal != nil && role.RoleName() == principal.GetPrincipalRole()) {
			allowed = append(allowed, includes...)
		}
	}
	return allowed
}
