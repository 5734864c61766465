package database

import (
	"context"
	"errors"

	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/lbq"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	ID           = "id"
	AND          = "$and"
	DELETED      = "deleted"
	TYPE         = "$type"
	NO_DOCUMENTS = "no documents founds"
)

// Error codes for mongo_repository
const (
	MONGO_CONNECTOR_TYPE_MISMATCH = "MONGO_CONNECTOR_TYPE_MISMATCH"
	MONGO_CONNECTOR_NIL           = "MONGO_CONNECTOR_NIL"
	MONGO_CLIENT_NOT_INITIALIZED  = "MONGO_CLIENT_NOT_INITIALIZED"
	MONGO_DATABASE_NAME_REQUIRED  = "MONGO_DATABASE_NAME_REQUIRED"
	MONGO_ID_CANNOT_BE_NIL        = "MONGO_ID_CANNOT_BE_NIL"
	MONGO_NO_DOCUMENTS_FOUND      = "MONGO_NO_DOCUMENTS_FOUND"
	MONGO_DUPLICATE_KEY           = "MONGO_DUPLICATE_KEY"
	MONGO_OPERATION_FAILED        = "MONGO_OPERATION_FAILED"
	MONGO_CONNECTION_ERROR        = "MONGO_CONNECTION_ERROR"
	MONGO_VALIDATION_ERROR        = "MONGO_VALIDATION_ERROR"
)

// mapMongoError maps MongoDB errors to standardized http_errors
func mapMongoError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return http_errors.NotFoundErrorWithCode(MONGO_NO_DOCUMENTS_FOUND, "document not found")
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) && len(writeErr.WriteErrors) > 0 {
		return mapServerError(writeErr.WriteErrors[0].Code, "write operation failed: ", writeErr.WriteErrors[0].Message)
	}

	var commandErr mongo.CommandError
	if errors.As(err, &commandErr) {
		return mapServerError(int(commandErr.Code), "command failed: ", commandErr.Message)
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return http_errors.InternalServerErrorWithCode(MONGO_CONNECTION_ERROR, "database connection error")
	}

	return http_errors.InternalServerErrorWithCode(MONGO_OPERATION_FAILED, "database operation failed: "+err.Error())
}

func mapServerError(code int, prefix string, message string) error {
	switch code {
	case 11000, 11001: // duplicate key
		return http_errors.ConflictErrorWithCode(MONGO_DUPLICATE_KEY, "duplicate key error: "+message)
	case 121: // document validation failure
		return http_errors.BadRequestErrorWithCode(MONGO_VALIDATION_ERROR, "validation error: "+message)
	default:
		return http_errors.BadRequestErrorWithCode(MONGO_OPERATION_FAILED, prefix+message)
	}
}

// MongoRepository stores models of type T in the collection named by
// T.GetTableName().
type MongoRepository[T IModel] struct {
	*mongoStore
}

func NewMongoRepository[T IModel](ds *Datasource, options RepositoryOptions) (Repository[T], error) {
	var instance T

	store, err := newMongoStore(ds, instance, NewSchema(instance), options)
	if err != nil {
		return nil, err
	}

	repository := &MongoRepository[T]{mongoStore: store}

	if err := RegisterDatasourceRepository(ds, instance, repository); err != nil {
		return nil, err
	}

	return repository, nil
}

func (repository *MongoRepository[T]) Find(ctx context.Context, filterBuilder *FilterBuilder) ([]T, error) {
	query, parsedFilter, filter, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return nil, err
	}

	return repository.find(ctx, query, parsedFilter, filter.Include)
}

func (repository *MongoRepository[T]) FindOne(ctx context.Context, filterBuilder *FilterBuilder) (*T, error) {
	query, parsedFilter, filter, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return nil, err
	}

	return repository.findOne(ctx, query, parsedFilter, filter.Include)
}

func (repository *MongoRepository[T]) FindById(ctx context.Context, id any, filterBuilder *FilterBuilder) (*T, error) {
	if id == nil {
		return nil, http_errors.BadRequestErrorWithCode(MONGO_ID_CANNOT_BE_NIL, "id cannot be nil")
	}

	var filterClone *FilterBuilder
	if filterBuilder == nil {
		filterClone = NewFilter()
	} else {
		filterClone = filterBuilder.Clone()
	}

	filterClone.WithWhere(NewWhere().Eq(ID, id))

	return repository.FindOne(ctx, filterClone)
}

func (repository *MongoRepository[T]) FindDocument(ctx context.Context, query bson.M, scope *FilterBuilder) (IModel, error) {
	fullQuery, parsedFilter, filter, err := repository.scopedQuery(query, scope)
	if err != nil {
		return nil, err
	}

	doc, err := repository.findOne(ctx, fullQuery, parsedFilter, filter.Include)
	if err != nil || doc == nil {
		return nil, err
	}

	return asModel(doc), nil
}

func (repository *MongoRepository[T]) FindDocuments(ctx context.Context, query bson.M, scope *FilterBuilder) ([]IModel, error) {
	fullQuery, parsedFilter, filter, err := repository.scopedQuery(query, scope)
	if err != nil {
		return nil, err
	}

	docs, err := repository.find(ctx, fullQuery, parsedFilter, filter.Include)
	if err != nil {
		return nil, err
	}

	return modelsOf(docs), nil
}

func (repository *MongoRepository[T]) find(ctx context.Context, query bson.M, parsedFilter MongoFilter, includes []lbq.Include) ([]T, error) {
	cursor, err := repository.collection.Find(ctx, query, findOptions(parsedFilter))
	if err != nil {
		return nil, mapMongoError(err)
	}

	var receiver []T
	if err = cursor.All(ctx, &receiver); err != nil {
		return nil, mapMongoError(err)
	}

	if receiver == nil {
		return []T{}, nil
	}

	if err := resolveIncludes(ctx, repository.datasource, modelsOf(receiver), includes); err != nil {
		return nil, err
	}

	return receiver, nil
}

func (repository *MongoRepository[T]) findOne(ctx context.Context, query bson.M, parsedFilter MongoFilter, includes []lbq.Include) (*T, error) {
	result := repository.collection.FindOne(ctx, query, findOneOptions(parsedFilter))
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, mapMongoError(err)
	}

	receiver := new(T)
	if err := result.Decode(receiver); err != nil {
		return nil, mapMongoError(err)
	}

	if err := resolveIncludes(ctx, repository.datasource, []IModel{asModel(receiver)}, includes); err != nil {
		return nil, err
	}

	return receiver, nil
}

// modelsOf boxes every element by pointer, so writes through the returned
// models land in docs.
func modelsOf[T IModel](docs []T) []IModel {
	models := make([]IModel, len(docs))
	for i := range docs {
		models[i] = asModel(&docs[i])
	}
	return models
}
