package database

import (
	"strings"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const DefaultConnectorName = "mongodb"

// Document is a schema-less model: a raw bson.M tagged with the model and
// collection it was read from.
type Document struct {
	Model      string
	Collection string
	Connector  string
	Data       bson.M
}

func NewDocument(model string, collection string, data bson.M) *Document {
	if data == nil {
		data = bson.M{}
	}
	return &Document{
		Model:      model,
		Collection: collection,
		Connector:  DefaultConnectorName,
		Data:       data,
	}
}

func (d *Document) GetTableName() string {
	return d.Collection
}

func (d *Document) GetModelName() string {
	return d.Model
}

func (d *Document) GetConnectorName() string {
	if d.Connector == "" {
		return DefaultConnectorName
	}
	return d.Connector
}

func (d *Document) GetId() any {
	return d.Data["_id"]
}

func (d *Document) GetField(name string) (any, bool) {
	return lookupPath(d.Data, name)
}

// Set stores a value at a top level key; used to attach included relations.
func (d *Document) Set(name string, value any) {
	if d.Data == nil {
		d.Data = bson.M{}
	}
	d.Data[name] = value
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(plainValue(d.Data))
}

// plainValue turns ordered sub-documents into maps so they encode as JSON
// objects instead of key/value pairs.
func plainValue(value any) any {
	switch v := value.(type) {
	case bson.D:
		return plainValue(DToM(v))
	case bson.M:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = plainValue(item)
		}
		return out
	case map[string]any:
		return plainValue(bson.M(v))
	case bson.A:
		return plainValue([]any(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	default:
		return value
	}
}

func lookupPath(data map[string]any, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	value, ok := data[head]
	if !ok || !nested {
		return value, ok
	}

	switch inner := value.(type) {
	case bson.M:
		return lookupPath(inner, rest)
	case map[string]any:
		return lookupPath(inner, rest)
	case bson.D:
		return lookupPath(DToM(inner), rest)
	default:
		return FieldValue(inner, rest)
	}
}

// DToM flattens an ordered document into a map; later duplicate keys win.
func DToM(d bson.D) bson.M {
	m := make(bson.M, len(d))
	for _, elem := range d {
		m[elem.Key] = elem.Value
	}
	return m
}
