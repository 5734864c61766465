package joins

import (
	"github.com/xompass/vsaas-joins/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	PredicateJoinType = "PredicateJoin"
	QueryJoinAlias    = "QueryJoin"
)

// Predicate builds the target query of a predicate join. The result must be
// a bson.M, a bson.D or a map[string]any.
type Predicate func(doc Document) any

// PredicateJoin resolves joins whose target query is computed by a
// Predicate.
var PredicateJoin Strategy = StrategyFunc(PredicateJoinType, compilePredicate)

func compilePredicate(path string, mapping any) (*Plan, error) {
	var predicate Predicate

	switch fn := mapping.(type) {
	case Predicate:
		predicate = fn
	case func(Document) any:
		predicate = fn
	case func(Document) bson.M:
		if fn != nil {
			predicate = func(doc Document) any { return fn(doc) }
		}
	}

	if predicate == nil {
		return nil, NewJoinError(path, DetailMappingNotFactory)
	}

	return &Plan{
		Mapping:          predicate,
		SupportsMultiple: true,
		Derive: func(doc Document) (Derivation, error) {
			query, ok := asQuery(predicate(doc))
			if !ok {
				return Derivation{}, NewFollowerError(path, DetailQueryNotDefined)
			}
			return Derivation{Query: query}, nil
		},
	}, nil
}

func asQuery(value any) (bson.M, bool) {
	switch q := value.(type) {
	case bson.M:
		return q, q != nil
	case map[string]any:
		return bson.M(q), q != nil
	case bson.D:
		return database.DToM(q), q != nil
	default:
		return nil, false
	}
}
