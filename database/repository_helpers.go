package database

import (
	"context"

	"github.com/xompass/vsaas-joins/http_errors"
	"github.com/xompass/vsaas-joins/lbq"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoStore holds what the typed and the schema-less repositories share.
type mongoStore struct {
	Options    RepositoryOptions
	collection *mongo.Collection
	schema     *Schema
	connector  *MongoConnector
	datasource *Datasource
}

func newMongoStore(ds *Datasource, model IModel, schema *Schema, options RepositoryOptions) (*mongoStore, error) {
	if err := ds.RegisterModel(model); err != nil {
		return nil, err
	}

	tmp, err := ds.GetModelConnector(model)
	if err != nil {
		return nil, err
	}

	connector, ok := tmp.(*MongoConnector)
	if !ok {
		return nil, http_errors.InternalServerErrorWithCode(MONGO_CONNECTOR_TYPE_MISMATCH, "the connector for model "+model.GetModelName()+" is not a MongoConnector")
	}

	if connector == nil {
		return nil, http_errors.InternalServerErrorWithCode(MONGO_CONNECTOR_NIL, "connector is nil")
	}

	collection, err := connector.Collection(model.GetTableName())
	if err != nil {
		return nil, err
	}

	return &mongoStore{
		Options:    options,
		collection: collection,
		schema:     schema,
		connector:  connector,
		datasource: ds,
	}, nil
}

func (store *mongoStore) GetCollection() *mongo.Collection {
	return store.collection
}

func (store *mongoStore) GetCollectionName() string {
	return store.collection.Name()
}

func (store *mongoStore) GetSchema() *Schema {
	return store.schema
}

func (store *mongoStore) GetConnector() Connector {
	return store.connector
}

func (store *mongoStore) fixQuery(query bson.M) bson.M {
	if store.Options.Deleted {
		query = getSoftDeleteQuery(query)
	}

	return query
}

func (store *mongoStore) buildQuery(filterBuilder *FilterBuilder) (bson.M, MongoFilter, *lbq.Filter, error) {
	return store.scopedQuery(nil, filterBuilder)
}

// scopedQuery AND-merges a raw store query with a loopback filter and applies
// the soft delete condition. The filter's options (sort, limit, skip, fields)
// are returned alongside.
func (store *mongoStore) scopedQuery(query bson.M, filterBuilder *FilterBuilder) (bson.M, MongoFilter, *lbq.Filter, error) {
	if filterBuilder == nil {
		filterBuilder = NewFilter()
	}

	filter, err := filterBuilder.Build()
	if err != nil {
		return nil, MongoFilter{}, nil, err
	}

	parsedFilter, err := adaptLoopbackFilter(*filter, store.schema)
	if err != nil {
		return nil, MongoFilter{}, nil, err
	}

	merged := store.fixQuery(mergeQueries(query, parsedFilter.Where))

	return merged, parsedFilter, filter, nil
}

func (store *mongoStore) Count(ctx context.Context, filterBuilder *FilterBuilder) (int64, error) {
	return store.CountDocuments(ctx, nil, filterBuilder)
}

func (store *mongoStore) CountDocuments(ctx context.Context, query bson.M, scope *FilterBuilder) (int64, error) {
	fullQuery, _, _, err := store.scopedQuery(query, scope)
	if err != nil {
		return 0, err
	}

	count, err := store.collection.CountDocuments(ctx, fullQuery)
	if err != nil {
		return 0, mapMongoError(err)
	}
	return count, nil
}

func mergeQueries(queries ...bson.M) bson.M {
	var parts []any
	var last bson.M
	for _, query := range queries {
		if len(query) > 0 {
			parts = append(parts, query)
			last = query
		}
	}

	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return last
	default:
		return bson.M{AND: parts}
	}
}

func getSoftDeleteQuery(query bson.M) bson.M {
	return bson.M{
		AND: []any{
			query,
			bson.M{DELETED: bson.M{TYPE: 10}},
		},
	}
}

func findOptions(parsedFilter MongoFilter) *options.FindOptionsBuilder {
	findOpts := options.Find()
	if len(parsedFilter.Options.Sort) > 0 {
		findOpts.SetSort(parsedFilter.Options.Sort)
	}
	if parsedFilter.Options.Limit != nil {
		findOpts.SetLimit(int64(*parsedFilter.Options.Limit))
	}
	if parsedFilter.Options.Skip != nil {
		findOpts.SetSkip(int64(*parsedFilter.Options.Skip))
	}
	if parsedFilter.Options.Fields != nil {
		findOpts.SetProjection(parsedFilter.Options.Fields)
	}
	return findOpts
}

func findOneOptions(parsedFilter MongoFilter) *options.FindOneOptionsBuilder {
	findOneOpts := options.FindOne()
	if len(parsedFilter.Options.Sort) > 0 {
		findOneOpts.SetSort(parsedFilter.Options.Sort)
	}
	if parsedFilter.Options.Skip != nil {
		findOneOpts.SetSkip(int64(*parsedFilter.Options.Skip))
	}
	if parsedFilter.Options.Fields != nil {
		findOneOpts.SetProjection(parsedFilter.Options.Fields)
	}
	return findOneOpts
}

// asModel boxes a decoded document as an IModel, preferring the pointer so
// relation setters write into the returned value.
func asModel[T IModel](doc *T) IModel {
	if model, ok := any(doc).(IModel); ok {
		return model
	}
	return *doc
}
