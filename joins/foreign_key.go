package joins

import "go.mongodb.org/mongo-driver/v2/bson"

const (
	ForeignKeyJoinType = "ForeignKeyJoin"
	FkJoinAlias        = "FkJoin"
)

// ForeignKeyJoin resolves joins stored as bare ids. Mapped-to, the target's
// To field holds the source id. Mapped-from, the source's From field holds
// the target id.
var ForeignKeyJoin Strategy = StrategyFunc(ForeignKeyJoinType, compileForeignKey)

func compileForeignKey(path string, mapping any) (*Plan, error) {
	m, err := fieldMapping(path, mapping)
	if err != nil {
		return nil, err
	}

	if m.MappedTo() {
		to := m.To
		return &Plan{
			Mapping:          m,
			SupportsMultiple: true,
			TargetFields:     []string{to},
			Derive: func(doc Document) (Derivation, error) {
				id := doc.GetId()
				if absent(id) {
					return Derivation{Absent: true}, nil
				}
				return Derivation{Query: bson.M{to: id}}, nil
			},
		}, nil
	}

	from := m.From
	return &Plan{
		Mapping: m,
		Derive: func(doc Document) (Derivation, error) {
			value := fieldValue(doc, from)
			if absent(value) {
				return Derivation{Absent: true}, nil
			}
			return Derivation{Query: bson.M{"_id": value}}, nil
		},
	}, nil
}
