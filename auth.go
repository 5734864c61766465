package rest

import (
	"crypto/subtle"
	"strings"

	"github.com/xompass/vsaas-joins/http_errors"
)

type Principal interface {
	GetPrincipalID() string
	GetPrincipalRole() string
}

type Authorizer func(*EndpointContext) (Principal, AuthToken, error)

type AuthToken interface {
	IsValid() bool
	GetUserId() string
	GetUserType() string
	GetToken() string
	GetExpiresAt() int64
}

// StaticPrincipal is the principal of a request carrying the shared API token.
type StaticPrincipal struct {
	ID   string
	Role string
}

func (p StaticPrincipal) GetPrincipalID() string   { return p.ID }
func (p StaticPrincipal) GetPrincipalRole() string { return p.Role }

type staticToken struct {
	principal StaticPrincipal
	token     string
}

func (t staticToken) IsValid() bool       { return t.token != "" }
func (t staticToken) GetUserId() string   { return t.principal.ID }
func (t staticToken) GetUserType() string { return t.principal.Role }
func (t staticToken) GetToken() string    { return t.token }
func (t staticToken) GetExpiresAt() int64 { return 0 }

// StaticTokenAuthorizer accepts requests whose bearer token equals token and
// attaches principal to them. Public endpoints pass without a token.
func StaticTokenAuthorizer(token string, principal StaticPrincipal) Authorizer {
	return func(ctx *EndpointContext) (Principal, AuthToken, error) {
		provided := bearerToken(ctx.EchoCtx.Request().Header.Get("Authorization"))
		if provided == "" {
			if ctx.Endpoint.Public {
				return nil, nil, nil
			}
			return nil, nil, http_errors.UnauthorizedError("Missing access token")
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return nil, nil, http_errors.UnauthorizedError("Invalid access token")
		}

		return principal, staticToken{principal: principal, token: provided}, nil
	}
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
