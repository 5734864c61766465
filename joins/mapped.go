package joins

import "go.mongodb.org/mongo-driver/v2/bson"

const (
	MappedFieldsJoinType = "MappedFieldsJoin"
	MappedJoinAlias      = "MappedJoin"
)

// MappedFieldsJoin matches target documents field by field against the
// source. Unset source fields are matched as null.
var MappedFieldsJoin Strategy = StrategyFunc(MappedFieldsJoinType, compileMappedFields)

func compileMappedFields(path string, mapping any) (*Plan, error) {
	m, err := fieldsMapping(path, mapping)
	if err != nil {
		return nil, err
	}

	to, from := m.To, m.From
	return &Plan{
		Mapping:          m,
		SupportsMultiple: true,
		TargetFields:     to,
		Derive: func(doc Document) (Derivation, error) {
			query := make(bson.M, len(to))
			for i, field := range to {
				query[field] = fieldValue(doc, from[i])
			}
			return Derivation{Query: query}, nil
		},
	}, nil
}
