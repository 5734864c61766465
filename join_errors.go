package rest

import (
	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/joins"
)

type joinErrorDetails struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Detail string `json:"detail"`
}

// joinErrorResponse maps a join failure to its HTTP form. An undeclared
// join is a missing resource and a violated constraint is a conflict with
// the stored data. Everything else is a server side misconfiguration.
func joinErrorResponse(err *joins.Error) *http_errors.ErrorResponse {
	details := joinErrorDetails{Kind: err.Kind.String(), Path: err.Path, Detail: err.Detail}

	switch err.Kind {
	case joins.KindJoin:
		if err.Detail == joins.DetailNoSuchJoin {
			return http_errors.NotFoundErrorWithCode(ErrorCodeJoinNotDeclared, err.Error(), details)
		}
		return http_errors.InternalServerErrorWithCode(ErrorCodeJoinDeclaration, err.Error(), details)
	case joins.KindConstraint:
		return http_errors.ConflictErrorWithCode(ErrorCodeJoinConstraint, err.Error(), details)
	case joins.KindCascade:
		return http_errors.InternalServerErrorWithCode(ErrorCodeJoinCascade, err.Error(), details)
	default:
		return http_errors.InternalServerErrorWithCode(ErrorCodeJoinFollower, err.Error(), details)
	}
}
