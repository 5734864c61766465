package joins

import (
	"reflect"

	"github.com/xompass/vsaas-joins/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is a source document. Besides its identity and collection, joins
// read its fields by stored name, json name or Go field name. Documents may
// implement database.FieldGetter to skip reflection.
type Document = database.IModel

// LookupSource is implemented by documents that know the connection they
// were read from. Their lookup wins over the schema default.
type LookupSource interface {
	JoinLookup() Lookup
}

// Lookup finds the store collection behind a model name.
// *database.Datasource implements it.
type Lookup interface {
	GetDocumentFinder(modelName string) (database.DocumentFinder, error)
}

// fieldValue reads a source field. Pointers are followed so queries hold
// the value itself; a nil pointer reads as nil.
func fieldValue(doc Document, name string) any {
	value, _ := database.FieldValue(doc, name)

	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// absent reports whether a source value is unset. Nil values, nil pointers,
// maps and slices, empty strings and zero structs or arrays (an unset
// ObjectID or time) are absent. Numbers and booleans are always present.
func absent(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return true
		}
		return absent(v.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	case reflect.String, reflect.Struct, reflect.Array:
		return v.IsZero()
	default:
		return false
	}
}

// Ref is a MongoDB DBRef: the collection and id of another document.
type Ref struct {
	Collection string `bson:"$ref" json:"$ref" yaml:"$ref"`
	ID         any    `bson:"$id" json:"$id" yaml:"$id"`
	Database   string `bson:"$db,omitempty" json:"$db,omitempty" yaml:"$db,omitempty"`
}

func NewRef(collection string, id any) Ref {
	return Ref{Collection: collection, ID: id}
}

// RefTo returns a reference pointing at doc.
func RefTo(doc database.IModel) Ref {
	return NewRef(doc.GetTableName(), doc.GetId())
}

// RefFrom reads a DBRef out of a stored value. Refs decoded into bson.M,
// bson.D or plain maps are recognised by their $ref and $id keys.
func RefFrom(value any) (Ref, bool) {
	switch v := value.(type) {
	case Ref:
		return v, v.Collection != ""
	case *Ref:
		if v == nil {
			return Ref{}, false
		}
		return *v, v.Collection != ""
	case bson.D:
		return refFromMap(database.DToM(v))
	case bson.M:
		return refFromMap(v)
	case map[string]any:
		return refFromMap(v)
	default:
		return Ref{}, false
	}
}

func refFromMap(m map[string]any) (Ref, bool) {
	collection, ok := m["$ref"].(string)
	if !ok || collection == "" {
		return Ref{}, false
	}

	id, ok := m["$id"]
	if !ok {
		return Ref{}, false
	}

	db, _ := m["$db"].(string)
	return Ref{Collection: collection, ID: id, Database: db}, true
}
