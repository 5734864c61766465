package database

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-joins/lbq"
)

// IncludeResolver resolves a named relation of a fetched document. The
// returned value is an IModel, a []IModel or nil.
type IncludeResolver interface {
	ResolveInclude(ctx context.Context, doc IModel, relation string, scope *FilterBuilder) (any, error)
}

type relationSetter interface {
	Set(name string, value any)
}

func resolveIncludes(ctx context.Context, ds *Datasource, docs []IModel, includes []lbq.Include) error {
	if len(includes) == 0 || len(docs) == 0 {
		return nil
	}

	resolver := ds.GetIncludeResolver()
	if resolver == nil {
		return errors.Errorf("cannot include %s: no include resolver registered", includes[0].Relation)
	}

	for _, include := range includes {
		var scope *FilterBuilder
		if include.Scope != nil {
			scope = NewFilter().FromLBFilter(include.Scope)
		}

		for _, doc := range docs {
			value, err := resolver.ResolveInclude(ctx, doc, include.Relation, scope)
			if err != nil {
				return err
			}

			if err := setRelation(doc, include.Relation, value); err != nil {
				return err
			}
		}
	}

	return nil
}

func setRelation(doc IModel, name string, value any) error {
	if relational, ok := doc.(IRelationalModel); ok {
		relation, exists := relational.Relations()[name]
		if !exists || relation.Set == nil {
			return errors.Errorf("relation %s is not defined on model %s", name, doc.GetModelName())
		}
		return relation.Set(value)
	}

	if setter, ok := doc.(relationSetter); ok {
		setter.Set(name, value)
		return nil
	}

	return errors.Errorf("model %s cannot hold relation %s", doc.GetModelName(), name)
}
