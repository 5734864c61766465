package database

import "context"

// IndexField represents a field in an index
type IndexField struct {
	Name  string // Field name
	Order int    // 1 for ascending, -1 for descending
}

// IndexDefinition is a generic, database-agnostic representation of an index
type IndexDefinition struct {
	Name   string       // Index name
	Fields []IndexField // Fields that compose the index
	Unique bool         // Whether the index is unique
	Sparse bool         // Only index documents that have the indexed fields
}

// IndexManager creates and inspects indexes on a collection
type IndexManager interface {
	// EnsureIndexes creates the given indexes and returns their names
	EnsureIndexes(ctx context.Context, collection string, indexes []IndexDefinition) ([]string, error)

	// ListIndexes returns the names of all indexes on the collection
	ListIndexes(ctx context.Context, collection string) ([]string, error)

	// CompareIndexes compares defined indexes vs existing ones and returns warnings
	CompareIndexes(ctx context.Context, collection string, indexes []IndexDefinition) ([]IndexWarning, error)
}

// IndexWarning represents a discrepancy between defined and actual indexes
type IndexWarning struct {
	Type    IndexWarningType
	Message string
	Details map[string]any
}

type IndexWarningType string

const (
	IndexWarningMissingInCode IndexWarningType = "missing_in_code" // Index exists in DB but not in code
	IndexWarningMissingInDB   IndexWarningType = "missing_in_db"   // Index defined in code but not in DB
	IndexWarningDifferent     IndexWarningType = "different"       // Index exists in both but with different options
)
