package joins

import "go.mongodb.org/mongo-driver/v2/bson"

// FieldMapping is the mapping of reference and foreign key joins. To names
// the target field holding the source's reference (mapped-to); From names
// the source field holding the target's reference (mapped-from). Exactly
// one of them is set.
type FieldMapping struct {
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
	From string `json:"from,omitempty" yaml:"from,omitempty"`
}

func (m FieldMapping) MappedTo() bool {
	return m.To != ""
}

// FieldsMapping is the mapping of mapped fields joins: target field To[i]
// equals source field From[i].
type FieldsMapping struct {
	To   []string `json:"to" yaml:"to"`
	From []string `json:"from" yaml:"from"`
}

// fieldMapping normalizes a reference or foreign key mapping. A bare string
// is shorthand for a mapped-to join.
func fieldMapping(path string, mapping any) (FieldMapping, error) {
	var m FieldMapping

	switch v := mapping.(type) {
	case nil:
	case string:
		m.To = v
	case FieldMapping:
		m = v
	case *FieldMapping:
		if v != nil {
			m = *v
		}
	case map[string]string:
		m.To, m.From = v["to"], v["from"]
	case bson.M:
		m.To, _ = v["to"].(string)
		m.From, _ = v["from"].(string)
	case map[string]any:
		m.To, _ = v["to"].(string)
		m.From, _ = v["from"].(string)
	default:
		return m, NewJoinError(path, DetailNoToOrFrom)
	}

	if m.To == "" && m.From == "" {
		return m, NewJoinError(path, DetailNoToOrFrom)
	}
	if m.To != "" && m.From != "" {
		return m, NewJoinError(path, DetailOnlyToOrFrom)
	}
	return m, nil
}

// fieldsMapping normalizes a mapped fields mapping. A bare string maps a
// field to the field of the same name; each side may be a single name.
func fieldsMapping(path string, mapping any) (FieldsMapping, error) {
	var to, from any

	switch v := mapping.(type) {
	case string:
		return FieldsMapping{To: []string{v}, From: []string{v}}, nil
	case FieldsMapping:
		to, from = v.To, v.From
	case *FieldsMapping:
		if v != nil {
			to, from = v.To, v.From
		}
	case bson.M:
		to, from = v["to"], v["from"]
	case map[string]any:
		to, from = v["to"], v["from"]
	case map[string]string:
		to, from = stringOrNil(v, "to"), stringOrNil(v, "from")
	}

	toFields, ok := fieldList(to)
	if !ok {
		return FieldsMapping{}, NewJoinError(path, DetailNoTo)
	}

	fromFields, ok := fieldList(from)
	if !ok {
		return FieldsMapping{}, NewJoinError(path, DetailNoFrom)
	}

	if len(toFields) == 0 || len(toFields) != len(fromFields) {
		return FieldsMapping{}, NewJoinError(path, DetailToFromMismatch)
	}

	return FieldsMapping{To: toFields, From: fromFields}, nil
}

func stringOrNil(m map[string]string, key string) any {
	if value, ok := m[key]; ok {
		return value
	}
	return nil
}

// fieldList reads a field name or a list of field names. Nil and non string
// entries are rejected.
func fieldList(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, false
		}
		return []string{v}, true
	case []string:
		if v == nil {
			return nil, false
		}
		return v, allNamed(v)
	case bson.A:
		return fieldList([]any(v))
	case []any:
		if v == nil {
			return nil, false
		}
		names := make([]string, len(v))
		for i, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, false
			}
			names[i] = name
		}
		return names, allNamed(names)
	default:
		return nil, false
	}
}

func allNamed(names []string) bool {
	for _, name := range names {
		if name == "" {
			return false
		}
	}
	return true
}
