package joins

import "go.mongodb.org/mongo-driver/v2/bson"

const (
	ReferenceJoinType = "ReferenceJoin"
	DBRefJoinAlias    = "DBRefJoin"
)

// ReferenceJoin resolves joins stored as DBRefs.
//
// Mapped-to, the target stores a DBRef to the source in To and the join may
// be multiple. Mapped-from, the source stores a DBRef to the target in From
// and the join can only ever yield one document.
var ReferenceJoin Strategy = StrategyFunc(ReferenceJoinType, compileReference)

func compileReference(path string, mapping any) (*Plan, error) {
	m, err := fieldMapping(path, mapping)
	if err != nil {
		return nil, err
	}

	if m.MappedTo() {
		refField, idField := m.To+".$ref", m.To+".$id"
		return &Plan{
			Mapping:          m,
			SupportsMultiple: true,
			TargetFields:     []string{refField, idField},
			Derive: func(doc Document) (Derivation, error) {
				id := doc.GetId()
				if absent(id) {
					return Derivation{Absent: true}, nil
				}
				return Derivation{Query: bson.M{refField: doc.GetTableName(), idField: id}}, nil
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

			// A value that is not a DBRef names no collection, so it can
			// never match the target's.
			ref, ok := RefFrom(value)
			if !ok {
				return Derivation{CheckNamespace: true}, nil
			}
			if absent(ref.ID) {
				return Derivation{Absent: true}, nil
			}

			return Derivation{
				Query:          bson.M{"_id": ref.ID},
				CheckNamespace: true,
				Namespace:      ref.Collection,
			}, nil
		},
	}, nil
}
