package database

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/go-errors/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoIndexManager manages indexes for MongoDB collections
type MongoIndexManager struct {
	connector *MongoConnector
}

func NewMongoIndexManager(connector *MongoConnector) *MongoIndexManager {
	return &MongoIndexManager{connector: connector}
}

// EnsureIndexes creates the indexes on the collection, logging how they
// differ from what already exists first.
func (m *MongoIndexManager) EnsureIndexes(ctx context.Context, collectionName string, indexes []IndexDefinition) ([]string, error) {
	if len(indexes) == 0 {
		return nil, nil
	}

	collection, err := m.connector.Collection(collectionName)
	if err != nil {
		return nil, err
	}

	warnings, err := m.CompareIndexes(ctx, collectionName, indexes)
	if err != nil {
		log.Printf("[WARN] could not compare indexes for %s: %v", collectionName, err)
	}
	for _, warning := range warnings {
		log.Printf("[WARN] index %s: [%s] %s", collectionName, warning.Type, warning.Message)
	}

	indexModels := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		indexModels = append(indexModels, convertToMongoIndexModel(idx))
	}

	names, err := collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return nil, errors.Errorf("failed to create indexes for %s: %v", collectionName, err)
	}

	return names, nil
}

func (m *MongoIndexManager) ListIndexes(ctx context.Context, collectionName string) ([]string, error) {
	existing, err := m.existingIndexes(ctx, collectionName)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(existing))
	for name := range existing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MongoIndexManager) CompareIndexes(ctx context.Context, collectionName string, indexes []IndexDefinition) ([]IndexWarning, error) {
	existing, err := m.existingIndexes(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	return compareIndexes(indexes, existing), nil
}

func (m *MongoIndexManager) existingIndexes(ctx context.Context, collectionName string) (map[string]bson.M, error) {
	collection, err := m.connector.Collection(collectionName)
	if err != nil {
		return nil, err
	}

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return nil, errors.Errorf("failed to list indexes: %v", err)
	}
	defer cursor.Close(ctx)

	existing := make(map[string]bson.M)
	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			return nil, errors.Errorf("failed to decode index: %v", err)
		}

		if name, ok := index["name"].(string); ok {
			existing[name] = index
		}
	}

	if err := cursor.Err(); err != nil {
		return nil, errors.Errorf("cursor error: %v", err)
	}

	return existing, nil
}

// compareIndexes lists the differences between defined indexes and the
// index documents returned by the server, keyed by index name.
func compareIndexes(defined []IndexDefinition, existing map[string]bson.M) []IndexWarning {
	var warnings []IndexWarning

	definedByName := make(map[string]IndexDefinition, len(defined))
	for _, idx := range defined {
		definedByName[idx.Name] = idx
	}

	existingNames := make([]string, 0, len(existing))
	for name := range existing {
		existingNames = append(existingNames, name)
	}
	sort.Strings(existingNames)

	for _, name := range existingNames {
		if name == "_id_" {
			continue
		}

		if _, ok := definedByName[name]; !ok {
			warnings = append(warnings, IndexWarning{
				Type:    IndexWarningMissingInCode,
				Message: fmt.Sprintf("Index '%s' exists in database but is not defined in code", name),
				Details: map[string]any{"indexName": name, "dbIndex": existing[name]},
			})
		}
	}

	for _, idx := range defined {
		dbIndex, ok := existing[idx.Name]
		if !ok {
			warnings = append(warnings, IndexWarning{
				Type:    IndexWarningMissingInDB,
				Message: fmt.Sprintf("Index '%s' is defined in code but does not exist in database", idx.Name),
				Details: map[string]any{"indexName": idx.Name, "definition": idx},
			})
			continue
		}

		if diff := compareIndexDetails(idx, dbIndex); diff != "" {
			warnings = append(warnings, IndexWarning{
				Type:    IndexWarningDifferent,
				Message: fmt.Sprintf("Index '%s' differs: %s", idx.Name, diff),
				Details: map[string]any{"indexName": idx.Name, "difference": diff, "defined": idx, "existing": dbIndex},
			})
		}
	}

	return warnings
}

func convertToMongoIndexModel(idx IndexDefinition) mongo.IndexModel {
	keys := bson.D{}
	for _, field := range idx.Fields {
		keys = append(keys, bson.E{Key: field.Name, Value: field.Order})
	}

	opts := options.Index().SetName(idx.Name)
	if idx.Unique {
		opts.SetUnique(true)
	}
	if idx.Sparse {
		opts.SetSparse(true)
	}

	return mongo.IndexModel{
		Keys:    keys,
		Options: opts,
	}
}

func compareIndexDetails(defined IndexDefinition, existing bson.M) string {
	var differences []string

	var existingKeys bson.D
	switch keys := existing["key"].(type) {
	case bson.D:
		existingKeys = keys
	case bson.M:
		for name, value := range keys {
			existingKeys = append(existingKeys, bson.E{Key: name, Value: value})
		}
	}

	if existingKeys != nil {
		if len(existingKeys) != len(defined.Fields) {
			differences = append(differences, "different number of fields")
		} else {
			definedKeys := make(map[string]int, len(defined.Fields))
			for _, field := range defined.Fields {
				definedKeys[field.Name] = field.Order
			}

			for _, key := range existingKeys {
				if order, exists := definedKeys[key.Key]; !exists || order != indexOrder(key.Value) {
					differences = append(differences, fmt.Sprintf("field '%s' order mismatch", key.Key))
				}
			}
		}
	}

	unique, _ := existing["unique"].(bool)
	if unique != defined.Unique {
		differences = append(differences, "unique constraint differs")
	}

	sparse, _ := existing["sparse"].(bool)
	if sparse != defined.Sparse {
		differences = append(differences, "sparse option differs")
	}

	if len(differences) == 0 {
		return ""
	}

	sort.Strings(differences)
	return strings.Join(differences, ", ")
}

func indexOrder(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
