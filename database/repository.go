package database

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DocumentFinder runs raw store queries against one collection. Joins use it
// to reach a target collection without knowing the Go type stored there.
type DocumentFinder interface {
	// GetCollectionName returns the name of the collection queried.
	GetCollectionName() string

	// FindDocument returns the first document matching query, or nil when
	// nothing matches. The optional scope narrows and orders the match.
	FindDocument(ctx context.Context, query bson.M, scope *FilterBuilder) (IModel, error)

	// FindDocuments returns every document matching query, in store order
	// unless the scope sets an order. Never nil on success.
	FindDocuments(ctx context.Context, query bson.M, scope *FilterBuilder) ([]IModel, error)

	// CountDocuments counts the documents matching query and the where of
	// scope. Limit, skip and includes of the scope are ignored.
	CountDocuments(ctx context.Context, query bson.M, scope *FilterBuilder) (int64, error)
}

type Repository[T IModel] interface {
	DocumentFinder

	// GetSchema returns the schema of the model used by this repository.
	GetSchema() *Schema

	// GetConnector returns the connector used by this repository.
	GetConnector() Connector

	// Find retrieves all documents matching the filter.
	// If no documents match, it returns an empty slice.
	Find(ctx context.Context, filter *FilterBuilder) ([]T, error)

	// FindOne retrieves a single document matching the filter.
	// If no documents match, it returns nil without error.
	FindOne(ctx context.Context, filter *FilterBuilder) (*T, error)

	// FindById retrieves a single document by its ID.
	FindById(ctx context.Context, id any, filter *FilterBuilder) (*T, error)

	// Count returns the number of documents matching the where of the filter.
	Count(ctx context.Context, filter *FilterBuilder) (int64, error)
}
