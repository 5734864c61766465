package lbq

import (
	"strings"

	"github.com/go-errors/errors"
	"github.com/valyala/fastjson"
)

var parserPool fastjson.ParserPool

var operators = map[string]bool{
	"eq":     true,
	"neq":    true,
	"gt":     true,
	"gte":    true,
	"lt":     true,
	"lte":    true,
	"inq":    true,
	"nin":    true,
	"and":    true,
	"or":     true,
	"like":   true,
	"nlike":  true,
	"exists": true,
} // @name Operator

type AndOrCondition []Where

type Where map[string]any // @name Where

type Fields map[string]bool // @name Fields

type Order struct {
	Field     string `json:"field,omitempty"`
	Direction string `json:"Direction,omitempty"`
} // @name Order

type Filter struct {
	Fields  Fields    `json:"fields,omitempty"`
	Limit   uint      `json:"limit,omitempty"`
	Order   []Order   `json:"order,omitempty"`
	Skip    uint      `json:"skip,omitempty"`
	Where   Where     `json:"where,omitempty"`
	Include []Include `json:"include,omitempty"`
} // @name Filter

// Include names a relation (a declared join) to resolve for every returned
// document, optionally narrowed by a scope filter on the target side.
type Include struct {
	Relation string  `json:"relation,omitempty"`
	Scope    *Filter `json:"scope,omitempty"`
} // @name Include

func IsOperator(key string) bool {
	return operators[key]
}

// parse runs fn over the parsed document and returns the parser to the pool
// only after fn is done with the values it owns.
func parse[T any](raw string, what string, fn func(*fastjson.Value) (T, error)) (T, error) {
	var zero T
	parser := parserPool.Get()
	defer parserPool.Put(parser)

	value, err := parser.Parse(raw)
	if err != nil {
		return zero, errors.Errorf("cannot parse %s", what)
	}
	return fn(value)
}

func ParseFilter(raw string) (*Filter, error) {
	return parse(raw, "filter", parseFilterValue)
}

func ParseWhere(raw string) (Where, error) {
	return parse(raw, "where query", parseWhereValue)
}

func ParseOrder(raw string) ([]Order, error) {
	return parse(raw, "order query", parseOrderValue)
}

func ParseFields(raw string) (Fields, error) {
	return parse(raw, "fields query", parseFieldsValue)
}

func ParseInclude(raw string) ([]Include, error) {
	return parse(raw, "includes", parseIncludeValue)
}

func parseFilterValue(value *fastjson.Value) (*Filter, error) {
	if value.Type() != fastjson.TypeObject {
		return nil, errors.New("invalid filter")
	}

	filter := &Filter{}
	var err error

	if where := value.Get("where"); where != nil {
		if filter.Where, err = parseWhereValue(where); err != nil {
			return nil, err
		}
	}

	if order := value.Get("order"); order != nil {
		if filter.Order, err = parseOrderValue(order); err != nil {
			return nil, err
		}
	}

	if fields := value.Get("fields"); fields != nil {
		if filter.Fields, err = parseFieldsValue(fields); err != nil {
			return nil, err
		}
	}

	if limit := value.Get("limit"); limit != nil {
		filter.Limit = limit.GetUint()
	}

	if skip := value.Get("skip"); skip != nil {
		filter.Skip = skip.GetUint()
	}

	if include := value.Get("include"); include != nil {
		if filter.Include, err = parseIncludeValue(include); err != nil {
			return nil, err
		}
	}

	return filter, nil
}

func parseWhereValue(value *fastjson.Value) (Where, error) {
	if value == nil {
		return nil, nil
	}

	obj, err := value.Object()
	if err != nil {
		return nil, errors.New("invalid where filter")
	}

	for _, pattern := range []string{"like", "nlike"} {
		if cond := obj.Get(pattern); cond != nil {
			return Where{
				pattern:   rawValue(cond),
				"options": rawValue(obj.Get("options")),
			}, nil
		}
	}

	result := Where{}
	var visitErr error
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}

		name := string(key)
		if strings.HasPrefix(name, "$") {
			visitErr = errors.Errorf("invalid use of operator or field: %s", name)
			return
		}

		switch {
		case name == "and" || name == "or":
			arr, err := v.Array()
			if err != nil {
				visitErr = errors.New("invalid query")
				return
			}
			conditions := make(AndOrCondition, 0, len(arr))
			for _, nested := range arr {
				cond, err := parseWhereValue(nested)
				if err != nil {
					visitErr = err
					return
				}
				conditions = append(conditions, cond)
			}
			result[name] = conditions
		case v.Type() == fastjson.TypeObject:
			nested, err := parseWhereValue(v)
			if err != nil {
				visitErr = err
				return
			}
			result[name] = nested
		case operators[name]:
			if (name == "inq" || name == "nin") && v.Type() != fastjson.TypeArray {
				visitErr = errors.New("invalid query")
				return
			}
			result[name] = rawValue(v)
		default:
			result[name] = Where{"eq": rawValue(v)}
		}
	})

	return result, visitErr
}

func rawValue(v *fastjson.Value) any {
	if v == nil {
		return nil
	}

	switch v.Type() { //nolint:exhaustive
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeArray:
		arr := v.GetArray()
		values := make([]any, 0, len(arr))
		for _, item := range arr {
			values = append(values, rawValue(item))
		}
		return values
	}

	return nil
}

func parseOrderValue(value *fastjson.Value) ([]Order, error) {
	var items []*fastjson.Value
	switch value.Type() { //nolint:exhaustive
	case fastjson.TypeString:
		items = []*fastjson.Value{value}
	case fastjson.TypeArray:
		items = value.GetArray()
	default:
		return nil, errors.New("invalid order param")
	}

	result := make([]Order, 0, len(items))
	for _, item := range items {
		if item.Type() != fastjson.TypeString {
			return nil, errors.New("invalid order param")
		}
		order, err := parseOrderStr(string(item.GetStringBytes()))
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, nil
}

func parseOrderStr(orderStr string) (Order, error) {
	parts := strings.Fields(orderStr)
	if len(parts) != 2 {
		return Order{}, errors.New("invalid order param")
	}

	direction := strings.ToUpper(parts[1])
	if direction != "ASC" && direction != "DESC" {
		return Order{}, errors.New("invalid order param")
	}

	return Order{Field: parts[0], Direction: direction}, nil
}

func parseFieldsValue(value *fastjson.Value) (Fields, error) {
	fields := Fields{}
	switch value.Type() { //nolint:exhaustive
	case fastjson.TypeArray:
		for _, item := range value.GetArray() {
			if item.Type() != fastjson.TypeString {
				return nil, errors.New("invalid fields param")
			}
			fields[string(item.GetStringBytes())] = true
		}
	case fastjson.TypeObject:
		value.GetObject().Visit(func(key []byte, v *fastjson.Value) {
			switch v.Type() { //nolint:exhaustive
			case fastjson.TypeTrue:
				fields[string(key)] = true
			case fastjson.TypeFalse:
				fields[string(key)] = false
			}
		})
	default:
		return nil, errors.New("invalid fields param")
	}
	return fields, nil
}

func parseIncludeValue(value *fastjson.Value) ([]Include, error) {
	if value == nil {
		return nil, nil
	}

	switch value.Type() { //nolint:exhaustive
	case fastjson.TypeString:
		var result []Include
		for _, relation := range strings.Split(string(value.GetStringBytes()), ",") {
			if relation = strings.TrimSpace(relation); relation != "" {
				result = append(result, Include{Relation: relation})
			}
		}
		return result, nil
	case fastjson.TypeObject:
		relation := value.Get("relation")
		if relation == nil || relation.Type() != fastjson.TypeString {
			return nil, errors.New("invalid relation name")
		}

		include := Include{Relation: string(relation.GetStringBytes())}
		if scope := value.Get("scope"); scope != nil {
			if scope.Type() != fastjson.TypeObject {
				return nil, errors.New("invalid relation scope")
			}
			filter, err := parseFilterValue(scope)
			if err != nil {
				return nil, err
			}
			include.Scope = filter
		}
		return []Include{include}, nil
	case fastjson.TypeArray:
		var result []Include
		for _, item := range value.GetArray() {
			includes, err := parseIncludeValue(item)
			if err != nil {
				return nil, err
			}
			result = append(result, includes...)
		}
		return result, nil
	}

	return nil, errors.New("invalid include param")
}
