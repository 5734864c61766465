package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/helpers"
	"github.com/xompass/vsaas-joins/joins"
)

// DefaultMaxJoinLimit caps the documents returned by a multiple join over HTTP.
const DefaultMaxJoinLimit uint = 100

type AuditLogConfig struct {
	Enabled bool
	Handler func(ctx *EndpointContext, response any, affectedModelId any) error
}

type RestAppOptions struct {
	Name       string
	Port       uint16
	Datasource *database.Datasource
	// Catalog holds the joins served by RegisterJoinEndpoints.
	Catalog *joins.Catalog
	// Lookup loads the source documents of followed joins. Defaults to the
	// datasource.
	Lookup            joins.Lookup
	LogLevel          helpers.LogLevel
	EnableRateLimiter bool
	Authorizer        Authorizer
	AuditLogConfig    *AuditLogConfig
	MaxJoinLimit      uint
	// JoinRateLimit applies to every join endpoint when the rate limiter is
	// enabled.
	JoinRateLimit *RateLimit
}

type RestApp struct {
	EchoApp           *echo.Echo
	Datasource        *database.Datasource
	Catalog           *joins.Catalog
	Logger            *helpers.Logger
	redisClient       *redis.Client
	lookup            joins.Lookup
	options           RestAppOptions
	ValidatorInstance *validator.Validate
	environment       string
	authorizer        Authorizer
	auditLogConfig    AuditLogConfig
}

func (receiver *RestApp) GetEnvironment() string {
	if receiver.environment == "" {
		receiver.environment = strings.ToLower(helpers.GetEnv("APP_ENV", "development"))
	}

	return receiver.environment
}

func (receiver *RestApp) Debugf(format string, args ...any) {
	receiver.logger().Debugf(format, args...)
}

func (receiver *RestApp) Infof(format string, args ...any) {
	receiver.logger().Infof(format, args...)
}

func (receiver *RestApp) Warnf(format string, args ...any) {
	receiver.logger().Warnf(format, args...)
}

func (receiver *RestApp) Errorf(format string, args ...any) {
	receiver.logger().Errorf(format, args...)
}

func (receiver *RestApp) logger() *helpers.Logger {
	if receiver == nil {
		return nil
	}
	return receiver.Logger
}

func (receiver *RestApp) Authorize(ctx *EndpointContext) error {
	if receiver.authorizer == nil {
		receiver.Warnf("No authorizer configured for the application")
		return nil
	}
	principal, token, err := receiver.authorizer(ctx)
	if err != nil {
		receiver.Errorf("Authorization error: %v", err)
		return err
	}
	if principal == nil {
		return nil
	}

	ctx.Principal = principal
	ctx.Token = token
	return nil
}

func NewRestApp(appOptions RestAppOptions) *RestApp {
	validate := validator.New()

	// Field names in validation errors come from the json tags
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	app := &RestApp{
		Datasource:        appOptions.Datasource,
		Catalog:           appOptions.Catalog,
		Logger:            helpers.NewLogger(appOptions.LogLevel, appOptions.Name),
		options:           appOptions,
		ValidatorInstance: validate,
	}
	app.EchoApp = NewEchoApp(app)

	if appOptions.MaxJoinLimit == 0 {
		app.options.MaxJoinLimit = DefaultMaxJoinLimit
	}

	switch {
	case appOptions.Lookup != nil:
		app.lookup = appOptions.Lookup
	case appOptions.Datasource != nil:
		app.lookup = appOptions.Datasource
	}

	if appOptions.Authorizer != nil {
		app.authorizer = appOptions.Authorizer
	}

	if appOptions.EnableRateLimiter {
		app.redisClient = newRedisClient(app.Logger)
	}

	if appOptions.AuditLogConfig != nil {
		app.auditLogConfig = *appOptions.AuditLogConfig
	}

	return app
}

func (receiver *RestApp) Destroy(ctx context.Context) error {
	if receiver == nil {
		return nil
	}
	if receiver.Datasource != nil {
		receiver.Datasource.Destroy(ctx)
	}

	if receiver.redisClient != nil {
		return receiver.redisClient.Close()
	}

	return nil
}

// Test serves req in memory and returns the recorded response.
func (receiver *RestApp) Test(req *http.Request) *http.Response {
	recorder := httptest.NewRecorder()
	receiver.EchoApp.ServeHTTP(recorder, req)
	return recorder.Result()
}

func (receiver *RestApp) Start() error {
	receiver.Infof("Listening on port %d", receiver.options.Port)
	return receiver.EchoApp.Start(fmt.Sprint(":", receiver.options.Port))
}

func (receiver *RestApp) Shutdown(ctx context.Context) error {
	return receiver.EchoApp.Shutdown(ctx)
}

func (receiver *RestApp) Group(path string, m ...echo.MiddlewareFunc) *echo.Group {
	g := receiver.EchoApp.Group(path)
	for _, handler := range m {
		g.Use(handler)
	}
	return g
}

func (receiver *RestApp) RegisterEndpoint(ep *Endpoint, r *echo.Group) error {
	if ep == nil {
		return nil
	}

	var executor func(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	switch ep.Method {
	case MethodGET:
		executor = r.GET
	case MethodHEAD:
		executor = r.HEAD
	case MethodPOST:
		executor = r.POST
	case MethodPUT:
		executor = r.PUT
	case MethodPATCH:
		executor = r.PATCH
	case MethodDELETE:
		executor = r.DELETE
	}

	if executor == nil {
		receiver.Errorf("Unsupported HTTP method %s for endpoint %s", ep.Method, ep.Name)
		return errors.Errorf("unsupported HTTP method %s for endpoint %s", ep.Method, ep.Name)
	}

	ep.app = receiver
	executor(ep.Path, ep.run)
	receiver.Debugf("Registered %s %s (%s)", ep.Method, ep.Path, ep.Name)
	return nil
}

func (receiver *RestApp) RegisterEndpoints(endpoints []*Endpoint, r *echo.Group) error {
	for _, ep := range endpoints {
		if ep == nil {
			continue
		}
		if err := receiver.RegisterEndpoint(ep, r); err != nil {
			return err
		}
	}
	return nil
}
