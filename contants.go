package rest

type ResponseType string

const (
	ResponseTypeJSON      ResponseType = "json"
	ResponseTypeXML       ResponseType = "xml"
	ResponseTypeText      ResponseType = "text"
	ResponseTypeHTML      ResponseType = "html"
	ResponseTypeNoContent ResponseType = "no_content"
)

type EndpointMethod string

const (
	MethodHEAD   EndpointMethod = "Head"
	MethodGET    EndpointMethod = "Get"
	MethodPOST   EndpointMethod = "Post"
	MethodPUT    EndpointMethod = "Put"
	MethodPATCH  EndpointMethod = "Patch"
	MethodDELETE EndpointMethod = "Delete"
)

type ParamLocation string

const (
	InQuery ParamLocation = "query"
	InPath  ParamLocation = "path"
)

type PathParamType string

const (
	PathParamTypeString PathParamType = "string"
)

type QueryParamType string

const (
	QueryParamTypeInt    QueryParamType = "int"
	QueryParamTypeFilter QueryParamType = "filter"
	QueryParamTypeWhere  QueryParamType = "where"
)

type ActionType string

const (
	ActionTypeRead     ActionType = "read"
	ActionTypeFollow   ActionType = "follow"
	ActionTypeCount    ActionType = "count"
	ActionTypeExists   ActionType = "exists"
	ActionTypeDescribe ActionType = "describe"
)

// Machine readable codes of the errors raised by the join endpoints.
const (
	ErrorCodeJoinNotDeclared = "JOIN_NOT_DECLARED"
	ErrorCodeJoinDeclaration = "JOIN_DECLARATION"
	ErrorCodeJoinFollower    = "JOIN_FOLLOWER"
	ErrorCodeJoinConstraint  = "JOIN_CONSTRAINT"
	ErrorCodeJoinCascade     = "JOIN_CASCADE"
	ErrorCodeSourceNotFound  = "SOURCE_NOT_FOUND"
	ErrorCodeIncludeDenied   = "INCLUDE_NOT_ALLOWED"
	ErrorCodeRateLimited     = "RATE_LIMITED"
)
