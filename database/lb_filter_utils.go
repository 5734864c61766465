package database

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/simplereach/timeutils"
	"github.com/xompass/vsaas-joins/lbq"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var Operators = map[string]string{
	"eq":     "$eq",
	"neq":    "$ne",
	"gt":     "$gt",
	"gte":    "$gte",
	"lt":     "$lt",
	"lte":    "$lte",
	"inq":    "$in",
	"nin":    "$nin",
	"and":    "$and",
	"or":     "$or",
	"exists": "$exists",
}

const (
	DtObjectID = "ObjectID"
	DtDate     = "Date"
)

type MongoFilterOptions struct {
	Limit  *uint
	Skip   *uint
	Sort   bson.D
	Fields map[string]bool
}

type MongoFilter struct {
	Where   bson.M
	Options MongoFilterOptions
}

func adaptLoopbackFilter(filter lbq.Filter, schema *Schema) (MongoFilter, error) {
	result := MongoFilter{}

	parsedWhere, err := buildWhere(filter.Where, "", schema)
	if err != nil {
		return result, err
	}

	if len(parsedWhere) == 0 && len(filter.Where) != 0 {
		return result, errors.New("invalid where parameter")
	}

	result.Where = parsedWhere
	result.Options.Sort = buildSort(filter.Order, schema)

	if filter.Limit != 0 {
		limit := filter.Limit
		result.Options.Limit = &limit
	}
	if filter.Skip != 0 {
		skip := filter.Skip
		result.Options.Skip = &skip
	}

	result.Options.Fields = buildProjection(filter.Fields, schema)

	return result, nil
}

func buildProjection(fields lbq.Fields, schema *Schema) map[string]bool {
	if len(fields) == 0 {
		if len(schema.BannedFields) == 0 {
			return nil
		}

		projection := map[string]bool{}
		for _, field := range schema.BannedFields {
			projection[field.BsonName] = false
		}
		return projection
	}

	projection := map[string]bool{}
	for key, val := range fields {
		if field, exists := lookupField(key, schema); exists {
			projection[field.BsonName] = val
		}
	}

	for _, field := range schema.RequiredFilterFields {
		projection[field.BsonName] = true
	}

	for _, field := range schema.BannedFields {
		delete(projection, field.BsonName)
	}

	if len(projection) == 0 {
		return map[string]bool{"_id": true}
	}
	return projection
}

func buildSort(order []lbq.Order, schema *Schema) bson.D {
	sort := bson.D{}
	for _, lbOrder := range order {
		name := lbOrder.Field
		if field, exists := lookupField(name, schema); exists {
			name = field.BsonName
		}

		direction := 1
		if lbOrder.Direction == "DESC" {
			direction = -1
		}
		sort = append(sort, bson.E{Key: name, Value: direction})
	}

	return sort
}

// lookupField resolves a filter key against the schema. Dynamic schemas
// accept every key as stored, with "id" standing for "_id".
func lookupField(name string, schema *Schema) (*Field, bool) {
	if schema.Dynamic {
		if name == ID {
			name = "_id"
		}
		return &Field{FieldName: name, BsonName: name, JsonName: name}, true
	}

	return getFieldIfExists(name, schema.JSONFields)
}

func buildWhere(where lbq.Where, parentField string, schema *Schema) (bson.M, error) {
	if where == nil {
		return bson.M{}, nil
	}

	if _, ok := where["$where"]; ok {
		return nil, errors.New("invalid where parameter. $where is not allowed")
	}

	query := bson.M{}

	like, hasLikeCond := where["like"]
	nLike, hasNLikeCond := where["nlike"]
	opts := where["options"]
	exists, hasExistsCond := where["exists"]

	switch {
	case hasExistsCond:
		if _, ok := exists.(bool); !ok {
			return nil, errors.New("invalid where parameter. exists must be boolean")
		}
		query["$exists"] = exists
		return query, nil
	case hasLikeCond:
		query["$regex"] = like
		if opts != nil {
			query["$options"] = opts
		}
		return query, nil
	case hasNLikeCond:
		regex := bson.M{"$regex": nLike}
		if opts != nil {
			regex["$options"] = opts
		}
		query["$not"] = regex
		return query, nil
	}

	for key, val := range where {
		if strings.HasPrefix(key, "$") {
			continue
		}

		mongoOp, isOperator := Operators[key]
		var field *Field
		var targetKey string

		if isOperator {
			targetKey = mongoOp
			if parentField != "" {
				field, _ = lookupField(parentField, schema)
			}
		} else {
			var exists bool
			field, exists = lookupField(key, schema)
			if !exists {
				continue
			}
			targetKey = field.BsonName
		}

		switch v := val.(type) {
		case lbq.AndOrCondition:
			barr := bson.A{}
			for _, el := range v {
				whr, err := buildWhere(el, parentField, schema)
				if err != nil {
					return nil, err
				}
				if len(whr) > 0 {
					barr = append(barr, whr)
				}
			}

			if len(barr) == 0 {
				return nil, errors.New("invalid and/or condition")
			}

			query[targetKey] = barr
		case lbq.Where:
			whr, err := buildWhere(v, key, schema)
			if err != nil {
				return nil, err
			}
			if len(whr) > 0 {
				query[targetKey] = whr
			}
		default:
			coerced, err := coerceValue(field, key, val)
			if err != nil {
				return nil, err
			}
			query[targetKey] = coerced
		}
	}

	return query, nil
}

// coerceValue converts request values (hex strings, date strings) into the
// stored representation of the field.
func coerceValue(field *Field, key string, val any) (any, error) {
	if field == nil || val == nil {
		return val, nil
	}

	list := key == "inq" || key == "nin"

	switch field.DataType {
	case DtObjectID:
		if list {
			return getObjectIdArray(val)
		}
		if field.IsPointer {
			return getObjectIdOrNil(val)
		}
		return getObjectId(val)
	case DtDate:
		if list {
			return getDateArray(val)
		}
		if field.IsPointer {
			return getDateOrNil(val)
		}
		return getDate(val)
	default:
		return val, nil
	}
}

func getObjectIdArray(val any) ([]bson.ObjectID, error) {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.New("invalid objectid collection")
	}

	arr := make([]bson.ObjectID, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		oid, err := getObjectId(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		arr = append(arr, oid)
	}

	return arr, nil
}

func getObjectIdOrNil(val any) (*bson.ObjectID, error) {
	if val == nil {
		return nil, nil
	}
	id, err := getObjectId(val)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func getObjectId(val any) (bson.ObjectID, error) {
	switch v := val.(type) {
	case string:
		return bson.ObjectIDFromHex(v)
	case *string:
		if v == nil {
			return bson.ObjectID{}, errors.New("invalid ObjectID")
		}
		return bson.ObjectIDFromHex(*v)
	case bson.ObjectID:
		return v, nil
	case *bson.ObjectID:
		if v == nil {
			return bson.ObjectID{}, errors.New("invalid ObjectID")
		}
		return *v, nil
	default:
		return bson.ObjectID{}, errors.New("invalid ObjectID")
	}
}

func getDateArray(val any) ([]time.Time, error) {
	valArr, ok := val.([]any)
	if !ok {
		return nil, errors.New("invalid date collection")
	}

	arr := make([]time.Time, 0, len(valArr))
	for _, s := range valArr {
		date, err := getDate(s)
		if err != nil {
			return nil, err
		}
		arr = append(arr, date)
	}
	return arr, nil
}

func getDateOrNil(val any) (*time.Time, error) {
	if val == nil {
		return nil, nil
	}

	value, err := getDate(val)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func getDate(val any) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, errors.New("invalid date")
		}
		return *v, nil
	case string:
		return timeutils.ParseDateString(v)
	case int64:
		return time.Unix(v, 0), nil
	case float64:
		return time.Unix(int64(v), 0), nil
	default:
		return time.Time{}, errors.New("invalid date format")
	}
}

// getFieldIfExists resolves name or, for dotted names below a declared
// ancestor (maps, untyped sub-documents), a field addressed through it.
func getFieldIfExists(fieldName string, fields map[string]*Field) (*Field, bool) {
	if field, exists := fields[fieldName]; exists {
		return field, true
	}

	parentField := fieldName
	for {
		lastDotIndex := strings.LastIndex(parentField, ".")
		if lastDotIndex == -1 {
			return nil, false
		}

		parentField = fieldName[0:lastDotIndex]
		if parent, exists := fields[parentField]; exists {
			rest := fieldName[lastDotIndex:]
			return &Field{
				FieldName: parent.FieldName + rest,
				BsonName:  parent.BsonName + rest,
				JsonName:  parent.JsonName + rest,
			}, true
		}
	}
}
