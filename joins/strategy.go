package joins

import "go.mongodb.org/mongo-driver/v2/bson"

// Strategy is a join type. It validates a mapping once, when a join is
// declared, and compiles it into the Plan used on every follow.
type Strategy interface {
	Name() string
	Compile(path string, mapping any) (*Plan, error)
}

// Plan is a compiled mapping.
type Plan struct {
	// Mapping is the normalized mapping, as reported by Declaration.Mapping.
	Mapping any

	// SupportsMultiple is false when the mapping can only ever match one
	// document, e.g. when the source stores the target's id.
	SupportsMultiple bool

	// TargetFields are the target fields the derived query matches on. They
	// back the supporting index of the join. Empty when the query matches on
	// _id or cannot be known ahead of time.
	TargetFields []string

	// Derive builds the target query from a source document.
	Derive func(doc Document) (Derivation, error)
}

// Derivation is the outcome of deriving a query from a source document.
type Derivation struct {
	Query bson.M

	// Absent is set when the source value the query depends on is unset. The
	// join resolves to null without querying the store.
	Absent bool

	// CheckNamespace requires the target collection to be named Namespace.
	CheckNamespace bool
	Namespace      string
}

type strategyFunc struct {
	name    string
	compile func(path string, mapping any) (*Plan, error)
}

// StrategyFunc adapts a compile function into a Strategy.
func StrategyFunc(name string, compile func(path string, mapping any) (*Plan, error)) Strategy {
	return strategyFunc{name: name, compile: compile}
}

func (s strategyFunc) Name() string {
	return s.name
}

func (s strategyFunc) Compile(path string, mapping any) (*Plan, error) {
	return s.compile(path, mapping)
}
