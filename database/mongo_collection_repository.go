package database

import (
	"context"
	"errors"

	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/lbq"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoCollectionRepository reads schema-less documents from a collection,
// so any collection named in configuration can take part in joins without a
// Go model.
type MongoCollectionRepository struct {
	*mongoStore
	model string
}

func NewMongoCollectionRepository(ds *Datasource, model string, collection string, options RepositoryOptions) (*MongoCollectionRepository, error) {
	prototype := NewDocument(model, collection, nil)

	store, err := newMongoStore(ds, prototype, NewDynamicSchema(model, collection), options)
	if err != nil {
		return nil, err
	}

	repository := &MongoCollectionRepository{mongoStore: store, model: model}

	if err := ds.RegisterDocumentFinder(model, repository); err != nil {
		return nil, err
	}

	return repository, nil
}

func (repository *MongoCollectionRepository) Find(ctx context.Context, filterBuilder *FilterBuilder) ([]*Document, error) {
	query, parsedFilter, filter, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return nil, err
	}

	return repository.find(ctx, query, parsedFilter, filter.Include)
}

func (repository *MongoCollectionRepository) FindOne(ctx context.Context, filterBuilder *FilterBuilder) (*Document, error) {
	query, parsedFilter, filter, err := repository.buildQuery(filterBuilder)
	if err != nil {
		return nil, err
	}

	return repository.findOne(ctx, query, parsedFilter, filter.Include)
}

func (repository *MongoCollectionRepository) FindById(ctx context.Context, id any, filterBuilder *FilterBuilder) (*Document, error) {
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

func (repository *MongoCollectionRepository) FindDocument(ctx context.Context, query bson.M, scope *FilterBuilder) (IModel, error) {
	fullQuery, parsedFilter, filter, err := repository.scopedQuery(query, scope)
	if err != nil {
		return nil, err
	}

	doc, err := repository.findOne(ctx, fullQuery, parsedFilter, filter.Include)
	if err != nil || doc == nil {
		return nil, err
	}

	return doc, nil
}

func (repository *MongoCollectionRepository) FindDocuments(ctx context.Context, query bson.M, scope *FilterBuilder) ([]IModel, error) {
	fullQuery, parsedFilter, filter, err := repository.scopedQuery(query, scope)
	if err != nil {
		return nil, err
	}

	docs, err := repository.find(ctx, fullQuery, parsedFilter, filter.Include)
	if err != nil {
		return nil, err
	}

	models := make([]IModel, len(docs))
	for i, doc := range docs {
		models[i] = doc
	}
	return models, nil
}

func (repository *MongoCollectionRepository) find(ctx context.Context, query bson.M, parsedFilter MongoFilter, includes []lbq.Include) ([]*Document, error) {
	cursor, err := repository.collection.Find(ctx, query, findOptions(parsedFilter))
	if err != nil {
		return nil, mapMongoError(err)
	}

	var rows []bson.M
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, mapMongoError(err)
	}

	docs := make([]*Document, len(rows))
	models := make([]IModel, len(rows))
	for i, row := range rows {
		docs[i] = repository.wrap(row)
		models[i] = docs[i]
	}

	if err := resolveIncludes(ctx, repository.datasource, models, includes); err != nil {
		return nil, err
	}

	return docs, nil
}

func (repository *MongoCollectionRepository) findOne(ctx context.Context, query bson.M, parsedFilter MongoFilter, includes []lbq.Include) (*Document, error) {
	result := repository.collection.FindOne(ctx, query, findOneOptions(parsedFilter))
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, mapMongoError(err)
	}

	var row bson.M
	if err := result.Decode(&row); err != nil {
		return nil, mapMongoError(err)
	}

	doc := repository.wrap(row)
	if err := resolveIncludes(ctx, repository.datasource, []IModel{doc}, includes); err != nil {
		return nil, err
	}

	return doc, nil
}

func (repository *MongoCollectionRepository) wrap(row bson.M) *Document {
	doc := NewDocument(repository.model, repository.collection.Name(), row)
	doc.Connector = repository.connector.GetName()
	return doc
}
