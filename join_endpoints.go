package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-errors/errors"
	"github.com/labstack/echo/v4"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/joins"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FollowRequest names a document and one of its joins.
type FollowRequest struct {
	Model string `json:"model" validate:"required"`
	ID    string `json:"id" validate:"required"`
	Path  string `json:"path" validate:"required"`
} // @name FollowRequest

func (r *FollowRequest) Validate(ctx *EndpointContext) error {
	return ctx.ValidateStruct(r)
}

// RegisterJoinEndpoints mounts the endpoints of the catalog's joins on g:
//
//	GET  /joins                 every declared join
//	POST /joins/follow          follows the join named in the body
//	GET  /{route}/:id/{path}    follows one join of a document
//	GET  /{route}/:id/{path}/count
//	GET  /{route}/:id/{path}/exists
//
// route is the collection of the source model, or its name when the
// collection is unknown.
func (receiver *RestApp) RegisterJoinEndpoints(g *echo.Group) error {
	if receiver.Catalog == nil {
		return errors.New("no join catalog configured")
	}
	return receiver.RegisterEndpoints(receiver.JoinEndpoints(), g)
}

// JoinEndpoints builds the endpoints served by RegisterJoinEndpoints, in
// model and path order.
func (receiver *RestApp) JoinEndpoints() []*Endpoint {
	endpoints := []*Endpoint{
		{
			Name:          "Joins.describe",
			Method:        MethodGET,
			Path:          "/joins",
			ActionType:    ActionTypeDescribe,
			AuditDisabled: true,
			Handler: func(ctx *EndpointContext) error {
				return ctx.JSON(receiver.Catalog.Describe())
			},
		},
		{
			Name:       "Joins.follow",
			Method:     MethodPOST,
			Path:       "/joins/follow",
			ActionType: ActionTypeFollow,
			BodyParams: func() Validable { return &FollowRequest{} },
			Accepts:    []Param{NewQueryParam("filter", QueryParamTypeFilter)},
			Handler: func(ctx *EndpointContext) error {
				request := ctx.ParsedBody.(*FollowRequest)
				filter, err := ctx.GetFilterParam()
				if err != nil {
					return err
				}

				response, err := receiver.FollowJoin(ctx.Context(), request.Model, request.ID, request.Path, filter)
				if err != nil {
					return err
				}
				return ctx.RespondAndLog(response, response.ID, ResponseTypeJSON)
			},
		},
	}

	for _, model := range receiver.Catalog.Models() {
		schema, _ := receiver.Catalog.SchemaOf(model)
		for _, path := range schema.Paths() {
			endpoints = append(endpoints, receiver.joinEndpoints(schema, path)...)
		}
	}

	return endpoints
}

func (receiver *RestApp) joinEndpoints(schema *joins.Schema, path string) []*Endpoint {
	model := schema.Model()
	route := schema.Collection()
	if route == "" {
		route = model
	}
	base := "/" + route + "/:id/" + path
	id := NewPathParam("id", PathParamTypeString, true)
	filter := NewQueryParam("filter", QueryParamTypeFilter)
	allowed := map[EndpointRole][]string{AnyRole: receiver.targetPaths(schema.Join(path))}
	limiter := receiver.joinRateLimiter()

	count := func(ctx *EndpointContext) (int64, error) {
		scope, err := countScope(ctx)
		if err != nil {
			return 0, err
		}
		sourceID, _ := ctx.ParsedPath["id"].(string)
		return receiver.countJoin(ctx.Context(), model, sourceID, path, scope)
	}

	return []*Endpoint{
		{
			Name:            model + "." + path,
			Method:          MethodGET,
			Path:            base,
			Model:           model,
			ActionType:      ActionTypeFollow,
			Accepts:         []Param{id, filter, NewQueryParam("limit", QueryParamTypeInt)},
			RateLimiter:     limiter,
			AllowedIncludes: allowed,
			Handler: func(ctx *EndpointContext) error {
				scope, err := ctx.GetFilterParam()
				if err != nil {
					return err
				}
				limit, err := receiver.requestLimit(ctx)
				if err != nil {
					return err
				}

				sourceID, _ := ctx.ParsedPath["id"].(string)
				source, result, err := receiver.followJoin(ctx.Context(), model, sourceID, path, scope, limit)
				if err != nil {
					return err
				}
				return ctx.RespondAndLog(newFollowResponse(source, path, result), source.GetId(), ResponseTypeJSON)
			},
		},
		{
			Name:            model + "." + path + ".count",
			Method:          MethodGET,
			Path:            base + "/count",
			Model:           model,
			ActionType:      ActionTypeCount,
			Accepts:         []Param{id, filter, NewQueryParam("where", QueryParamTypeWhere)},
			RateLimiter:     limiter,
			AllowedIncludes: allowed,
			AuditDisabled:   true,
			Handler: func(ctx *EndpointContext) error {
				n, err := count(ctx)
				if err != nil {
					return err
				}
				return ctx.JSON(Count{Count: n})
			},
		},
		{
			Name:            model + "." + path + ".exists",
			Method:          MethodGET,
			Path:            base + "/exists",
			Model:           model,
			ActionType:      ActionTypeExists,
			Accepts:         []Param{id, filter, NewQueryParam("where", QueryParamTypeWhere)},
			RateLimiter:     limiter,
			AllowedIncludes: allowed,
			AuditDisabled:   true,
			Handler: func(ctx *EndpointContext) error {
				n, err := count(ctx)
				if err != nil {
					return err
				}
				return ctx.JSON(Exists{Exists: n > 0})
			},
		},
	}
}

// requestLimit is the limit query param bounded by MaxJoinLimit.
func (receiver *RestApp) requestLimit(ctx *EndpointContext) (uint, error) {
	limit := receiver.options.MaxJoinLimit
	requested, ok := ctx.ParsedQuery["limit"].(int)
	if !ok {
		return limit, nil
	}
	if requested <= 0 {
		return 0, http_errors.BadRequestError("Invalid parameter", "Parameter limit must be positive")
	}
	if limit == 0 || uint(requested) < limit {
		limit = uint(requested)
	}
	return limit, nil
}

// countScope is the filter param and-ed with the where param.
func countScope(ctx *EndpointContext) (*database.FilterBuilder, error) {
	scope, err := ctx.GetFilterParam()
	if err != nil {
		return nil, err
	}
	where, ok := ctx.ParsedQuery["where"].(*database.WhereBuilder)
	if !ok {
		return scope, nil
	}
	return scope.MergeWith(database.NewFilter().WithWhere(where)), nil
}

func (receiver *RestApp) joinRateLimiter() func(*EndpointContext) RateLimit {
	if receiver.options.JoinRateLimit == nil {
		return nil
	}
	limit := *receiver.options.JoinRateLimit
	return func(*EndpointContext) RateLimit { return limit }
}

// targetPaths lists the joins of a declaration's target, the only includes
// that can be resolved on the documents it returns.
func (receiver *RestApp) targetPaths(declaration *joins.Declaration) []string {
	if declaration == nil {
		return []string{}
	}
	target, ok := receiver.Catalog.SchemaOf(declaration.Target())
	if !ok {
		return []string{}
	}
	return target.Paths()
}

// FollowJoin follows the join at path of the model document whose _id is
// id. Multiple joins return at most MaxJoinLimit documents.
func (receiver *RestApp) FollowJoin(ctx context.Context, model string, id string, path string, scope *database.FilterBuilder) (FollowResponse, error) {
	source, result, err := receiver.followJoin(ctx, model, id, path, scope, receiver.options.MaxJoinLimit)
	if err != nil {
		return FollowResponse{}, err
	}
	return newFollowResponse(source, path, result), nil
}

// followJoin loads the source document and follows its join at path. A
// positive limit caps the documents of a multiple join.
func (receiver *RestApp) followJoin(ctx context.Context, model string, id string, path string, scope *database.FilterBuilder, limit uint) (joins.Document, joins.Result, error) {
	source, binding, err := receiver.bindJoin(ctx, model, id, path)
	if err != nil {
		return nil, joins.Result{}, err
	}

	if binding.Declaration().Cardinality() == joins.Multiple {
		scope = limitScope(scope, limit)
	}

	result, err := binding.FollowScoped(ctx, scope)
	if err != nil {
		return nil, joins.Result{}, err
	}

	receiver.Debugf("Followed %s.%s of %v: %d document(s)", model, path, source.GetId(), result.Len())
	return source, result, nil
}

// countJoin counts the documents the join at path resolves to, without
// reading them.
func (receiver *RestApp) countJoin(ctx context.Context, model string, id string, path string, scope *database.FilterBuilder) (int64, error) {
	_, binding, err := receiver.bindJoin(ctx, model, id, path)
	if err != nil {
		return 0, err
	}
	return binding.Count(ctx, scope)
}

func (receiver *RestApp) bindJoin(ctx context.Context, model string, id string, path string) (joins.Document, *joins.Binding, error) {
	if receiver.Catalog == nil {
		return nil, nil, http_errors.InternalServerError("No join catalog configured")
	}

	schema, ok := receiver.Catalog.SchemaOf(model)
	if !ok || schema.Join(path) == nil {
		return nil, nil, joins.NewJoinError(path, joins.DetailNoSuchJoin)
	}

	source, err := receiver.loadSource(ctx, model, id)
	if err != nil {
		return nil, nil, err
	}

	binding, err := schema.Bind(source, path)
	if err != nil {
		return nil, nil, err
	}
	return source, binding, nil
}

func limitScope(scope *database.FilterBuilder, limit uint) *database.FilterBuilder {
	if limit == 0 {
		return scope
	}
	limited := database.NewFilter().Limit(limit)
	if scope == nil {
		return limited
	}
	return limited.MergeWith(scope, &database.MergeConfig{WhereOperator: "and", MaxLimit: &limit})
}

// loadSource finds the document of model whose _id is id, trying id as a
// string, an ObjectID and an integer.
func (receiver *RestApp) loadSource(ctx context.Context, model string, id string) (joins.Document, error) {
	if receiver.lookup == nil {
		return nil, http_errors.InternalServerError("No document lookup configured")
	}

	finder, err := receiver.lookup.GetDocumentFinder(model)
	if err != nil {
		return nil, errors.WrapPrefix(err, "source "+model, 0)
	}

	doc, err := finder.FindDocument(ctx, bson.M{"_id": bson.M{"$in": idCandidates(id)}}, nil)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, http_errors.NewErrorResponseWithCode(http.StatusNotFound, ErrorCodeSourceNotFound, "Source document not found", map[string]string{"model": model, "id": id})
	}
	return doc, nil
}

func idCandidates(id string) bson.A {
	candidates := bson.A{id}
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		candidates = append(candidates, oid)
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		candidates = append(candidates, n)
	}
	return candidates
}
