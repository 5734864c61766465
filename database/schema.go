package database

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type FieldTags struct {
	Name      string
	OmitEmpty bool
	MinSize   bool
	Truncate  bool
	Inline    bool
	Skip      bool
	Required  bool
}

type FieldsOptions string

const (
	FieldsAlways FieldsOptions = "always" // Always include the field
	FieldsNever  FieldsOptions = "never"  // Never include the field
)

type FilterTags struct {
	Fields FieldsOptions
}

type Field struct {
	FieldName         string
	BsonName          string
	JsonName          string
	DataType          string
	IsPointer         bool
	Index             []int // reflect index path from the model struct
	FieldType         reflect.Type
	IndirectFieldType reflect.Type
	FilterTags        FilterTags
}

// Schema describes how a model is stored. Dynamic schemas (schema-less
// documents) have no fields; filters against them pass keys through as-is.
type Schema struct {
	Name                 string
	CollectionName       string
	Dynamic              bool
	JSONFields           map[string]*Field
	BSONFields           map[string]*Field
	Fields               map[string]*Field
	RequiredFilterFields map[string]*Field
	BannedFields         map[string]*Field
}

var (
	objectIDType = reflect.TypeOf(bson.ObjectID{})
	timeType     = reflect.TypeOf(time.Time{})

	// schemas by struct type, shared by repositories and field access
	schemaCache sync.Map
)

func newEmptySchema(name string, collection string) *Schema {
	return &Schema{
		Name:                 name,
		CollectionName:       collection,
		JSONFields:           map[string]*Field{},
		BSONFields:           map[string]*Field{},
		Fields:               map[string]*Field{},
		RequiredFilterFields: map[string]*Field{},
		BannedFields:         map[string]*Field{},
	}
}

func NewSchema(model IModel) *Schema {
	if doc, ok := model.(*Document); ok {
		return NewDynamicSchema(doc.Model, doc.Collection)
	}

	t := indirectType(reflect.TypeOf(model))
	schema := newEmptySchema(model.GetModelName(), model.GetTableName())
	if t.Kind() == reflect.Struct {
		schema.initFields(t, nil, "", "")
	}
	return schema
}

func NewDynamicSchema(name string, collection string) *Schema {
	schema := newEmptySchema(name, collection)
	schema.Dynamic = true
	return schema
}

// FieldByName resolves a field by its json name, its bson name or its Go
// name, in that order.
func (s *Schema) FieldByName(name string) (*Field, bool) {
	if field, ok := s.JSONFields[name]; ok {
		return field, true
	}
	if field, ok := s.BSONFields[name]; ok {
		return field, true
	}
	field, ok := s.Fields[name]
	return field, ok
}

func schemaForType(t reflect.Type) *Schema {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*Schema)
	}

	schema := newEmptySchema(t.Name(), "")
	schema.initFields(t, nil, "", "")
	actual, _ := schemaCache.LoadOrStore(t, schema)
	return actual.(*Schema)
}

func (s *Schema) initFields(t reflect.Type, parentIndex []int, jsonParent string, bsonParent string) {
	for i := range t.NumField() {
		fieldStruct := t.Field(i)
		if !fieldStruct.IsExported() {
			continue
		}

		index := make([]int, len(parentIndex)+1)
		copy(index, parentIndex)
		index[len(parentIndex)] = i

		s.initField(fieldStruct, index, jsonParent, bsonParent)
	}
}

func (s *Schema) initField(fieldStruct reflect.StructField, index []int, jsonParent string, bsonParent string) {
	bsonTags := parseFieldTags(fieldStruct, "bson")
	if bsonTags.Skip {
		return
	}
	jsonTags := parseFieldTags(fieldStruct, "json")
	jsonName := ""
	if !jsonTags.Skip {
		jsonName = joinName(jsonParent, jsonTags.Name)
	}

	field := &Field{
		FieldName:         fieldStruct.Name,
		BsonName:          joinName(bsonParent, bsonTags.Name),
		JsonName:          jsonName,
		Index:             index,
		FieldType:         fieldStruct.Type,
		IndirectFieldType: indirectType(fieldStruct.Type),
		IsPointer:         fieldStruct.Type.Kind() == reflect.Ptr,
		FilterTags:        parseFilterTags(fieldStruct),
	}
	topLevel := jsonParent == "" && bsonParent == ""

	indirect := field.IndirectFieldType
	switch {
	case indirect == objectIDType:
		field.DataType = DtObjectID
	case indirect == timeType:
		field.DataType = DtDate
	case (indirect.Kind() == reflect.Slice || indirect.Kind() == reflect.Array) && indirect.Elem() == objectIDType:
		field.DataType = DtObjectID
	case indirect.Kind() == reflect.Struct && bsonTags.Inline:
		s.initFields(indirect, index, jsonParent, bsonParent)
		return
	case indirect.Kind() == reflect.Struct:
		field.DataType = indirect.Name()
		s.addField(field, topLevel)
		if !field.IsPointer {
			s.initFields(indirect, index, field.JsonName, field.BsonName)
		}
		return
	default:
		field.DataType = indirect.Name()
	}

	s.addField(field, topLevel)
}

func (s *Schema) addField(field *Field, topLevel bool) {
	if topLevel {
		s.Fields[field.FieldName] = field

		switch field.FilterTags.Fields {
		case FieldsNever:
			s.BannedFields[field.FieldName] = field
		case FieldsAlways:
			s.RequiredFilterFields[field.FieldName] = field
		}
	}

	if field.JsonName != "" {
		s.JSONFields[field.JsonName] = field
	}
	s.BSONFields[field.BsonName] = field
}

// FieldValue reads the value stored under name (bson, json or Go name; dotted
// paths descend into nested documents) from a struct model, a map document
// or a FieldGetter. The boolean reports whether the field exists at all.
func FieldValue(doc any, name string) (any, bool) {
	switch d := doc.(type) {
	case nil:
		return nil, false
	case FieldGetter:
		return d.GetField(name)
	case bson.M:
		return lookupPath(d, name)
	case map[string]any:
		return lookupPath(d, name)
	case bson.D:
		return lookupPath(DToM(d), name)
	}

	value := reflect.ValueOf(doc)
	for value.Kind() == reflect.Ptr || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return nil, false
		}
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		return nil, false
	}

	schema := schemaForType(value.Type())
	if field, ok := schema.FieldByName(name); ok {
		fieldValue, err := value.FieldByIndexErr(field.Index)
		if err != nil {
			return nil, false
		}
		return fieldValue.Interface(), true
	}

	head, rest, nested := strings.Cut(name, ".")
	if !nested {
		return nil, false
	}
	field, ok := schema.FieldByName(head)
	if !ok {
		return nil, false
	}
	fieldValue, err := value.FieldByIndexErr(field.Index)
	if err != nil {
		return nil, false
	}
	return FieldValue(fieldValue.Interface(), rest)
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func joinName(parent string, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func parseFieldTags(fieldStruct reflect.StructField, tagName string) FieldTags {
	key := strings.ToLower(fieldStruct.Name)
	tag, ok := fieldStruct.Tag.Lookup(tagName)

	if !ok && !strings.Contains(string(fieldStruct.Tag), ":") && len(fieldStruct.Tag) > 0 {
		tag = string(fieldStruct.Tag)
	}
	return parseXSONTags(key, tag)
}

func parseFilterTags(fieldStruct reflect.StructField) FilterTags {
	tags := FilterTags{}
	tag, ok := fieldStruct.Tag.Lookup("filter")
	if !ok {
		return tags
	}

	for _, option := range strings.Split(tag, ",") {
		prop, value, found := strings.Cut(option, "=")
		if found && prop == "fields" {
			tags.Fields = FieldsOptions(value)
		}
	}

	return tags
}

func parseXSONTags(key string, tag string) FieldTags {
	var st FieldTags
	if tag == "-" {
		st.Skip = true
		return st
	}

	for idx, str := range strings.Split(tag, ",") {
		if idx == 0 && str != "" {
			key = str
		}
		switch str {
		case "omitempty":
			st.OmitEmpty = true
		case "minsize":
			st.MinSize = true
		case "truncate":
			st.Truncate = true
		case "inline":
			st.Inline = true
		case "required":
			st.Required = true
		}
	}

	st.Name = key

	return st
}
