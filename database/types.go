package database

type IModel interface {
	GetTableName() string
	GetModelName() string
	GetConnectorName() string
	GetId() any
}

// FieldGetter lets a model expose its fields without reflection. Names are
// the stored (bson) names; dotted paths address nested values.
type FieldGetter interface {
	GetField(name string) (any, bool)
}

type ModelRelation struct {
	Name   string `json:"name"`
	IsList bool   `json:"isList"`

	Set func(value any) error
}

type IRelationalModel interface {
	Relations() map[string]ModelRelation
}
