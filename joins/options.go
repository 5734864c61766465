package joins

import "github.com/xompass/vsaas-joins/database"

// Cardinality tells whether a join resolves to one document or to a set.
type Cardinality int

const (
	Single Cardinality = iota
	Multiple
)

func (c Cardinality) String() string {
	if c == Multiple {
		return "multiple"
	}
	return "single"
}

// Options configures a join declaration. Fields are applied in declaration
// order: Target, Multiple, Nullable, then Mapping.
type Options struct {
	// Target names the model the join resolves into. It may be a model name,
	// a database.IModel or a *database.Schema. It is only checked when the
	// join is followed.
	Target any

	// Multiple makes the join resolve to a set of documents.
	Multiple bool

	// Nullable defaults to true. Only an explicit false disables it.
	Nullable *bool

	// Mapping is handed to the join type, which validates and normalizes it.
	Mapping any
}

// Bool returns a pointer to b, for Options.Nullable.
func Bool(b bool) *bool {
	return &b
}

func targetName(path string, target any) (string, error) {
	switch t := target.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case *database.Schema:
		if t == nil {
			return "", nil
		}
		return t.Name, nil
	case database.IModel:
		return t.GetModelName(), nil
	default:
		return "", NewJoinError(path, DetailTargetNotInterpretable)
	}
}
