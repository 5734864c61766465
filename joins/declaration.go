package joins

import (
	"context"

	"github.com/xompass/vsaas-joins/database"
)

// Declaration is a join configured on a schema path. It is immutable once
// built: the mapping is validated and compiled into its plan up front and
// reused by every follow.
type Declaration struct {
	path        string
	typeName    string
	cardinality Cardinality
	nullable    bool
	target      string
	plan        *Plan
}

// NewDeclaration configures a join of the given type at path. Mapping errors
// are returned as join errors; nothing is declared on failure.
func NewDeclaration(path string, strategy Strategy, options Options) (*Declaration, error) {
	if path == "" {
		return nil, NewJoinError(path, DetailNoPath)
	}
	if strategy == nil {
		return nil, NewJoinError(path, DetailNoSuchType)
	}

	declaration := &Declaration{
		path:        path,
		typeName:    strategy.Name(),
		cardinality: Single,
		nullable:    true,
	}

	target, err := targetName(path, options.Target)
	if err != nil {
		return nil, err
	}
	declaration.target = target

	if options.Multiple {
		declaration.cardinality = Multiple
	}

	if options.Nullable != nil {
		declaration.nullable = *options.Nullable
	}

	plan, err := strategy.Compile(path, options.Mapping)
	if err != nil {
		return nil, err
	}
	declaration.plan = plan

	return declaration, nil
}

func (d *Declaration) Path() string {
	return d.path
}

// Type is the registered name of the join type.
func (d *Declaration) Type() string {
	return d.typeName
}

func (d *Declaration) Cardinality() Cardinality {
	return d.cardinality
}

func (d *Declaration) Nullable() bool {
	return d.nullable
}

// Target is the name of the model the join resolves into.
func (d *Declaration) Target() string {
	return d.target
}

// Mapping is the normalized mapping: a FieldMapping, a FieldsMapping or a
// Predicate.
func (d *Declaration) Mapping() any {
	if d.plan == nil {
		return nil
	}
	return d.plan.Mapping
}

// TargetFields lists the target fields the join queries on, if known.
func (d *Declaration) TargetFields() []string {
	if d.plan == nil {
		return nil
	}
	return d.plan.TargetFields
}

// Bind returns a binding of the join to doc. It has no side effects.
func (d *Declaration) Bind(doc Document, lookup Lookup) *Binding {
	return &Binding{declaration: d, document: doc, lookup: lookup}
}

// Follow resolves the join for doc.
func (d *Declaration) Follow(ctx context.Context, doc Document, lookup Lookup) (Result, error) {
	return d.follow(ctx, doc, lookup, nil)
}

// FollowScoped resolves the join for doc, narrowing the target query with
// scope.
func (d *Declaration) FollowScoped(ctx context.Context, doc Document, lookup Lookup, scope *database.FilterBuilder) (Result, error) {
	return d.follow(ctx, doc, lookup, scope)
}

// Count counts the documents the join resolves to for doc, without reading
// them. Only the where of scope applies.
func (d *Declaration) Count(ctx context.Context, doc Document, lookup Lookup, scope *database.FilterBuilder) (int64, error) {
	return d.count(ctx, doc, lookup, scope)
}
