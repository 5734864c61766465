package joins

import (
	"context"

	"github.com/xompass/vsaas-joins/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// follow runs the resolution shared by every join type: derive the query,
// find the target collection, run the query and apply the cardinality and
// nullability of the declaration to what comes back.
func (d *Declaration) follow(ctx context.Context, doc Document, lookup Lookup, scope *database.FilterBuilder) (Result, error) {
	if err := d.compiled(); err != nil {
		return Result{}, err
	}

	multiple := d.cardinality == Multiple
	empty := Result{Multiple: multiple}

	finder, query, err := d.prepare(doc, lookup)
	if err != nil {
		return empty, err
	}
	if finder == nil {
		return empty, d.null()
	}

	if multiple {
		docs, err := finder.FindDocuments(ctx, query, scope)
		if err != nil {
			return empty, err
		}
		if len(docs) == 0 {
			return empty, d.null()
		}
		return Result{Multiple: true, Documents: docs}, nil
	}

	found, err := finder.FindDocument(ctx, query, scope)
	if err != nil {
		return empty, err
	}
	if found == nil {
		return empty, d.null()
	}
	return Result{Document: found}, nil
}

// count resolves the join like follow but only counts the target documents.
// Only the where of scope applies. A single join counts at most one.
func (d *Declaration) count(ctx context.Context, doc Document, lookup Lookup, scope *database.FilterBuilder) (int64, error) {
	if err := d.compiled(); err != nil {
		return 0, err
	}

	finder, query, err := d.prepare(doc, lookup)
	if err != nil {
		return 0, err
	}
	if finder == nil {
		return 0, d.null()
	}

	n, err := finder.CountDocuments(ctx, query, scope)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, d.null()
	}
	if d.cardinality == Single && n > 1 {
		n = 1
	}
	return n, nil
}

func (d *Declaration) compiled() error {
	if d == nil {
		return NewFollowerError("", DetailNotImplemented)
	}
	if d.plan == nil || d.plan.Derive == nil {
		return NewFollowerError(d.path, DetailNotImplemented)
	}
	return nil
}

// prepare runs the checks that precede any store access and returns the
// target finder and query. Both are nil when the source value is absent.
func (d *Declaration) prepare(doc Document, lookup Lookup) (database.DocumentFinder, bson.M, error) {
	if d.cardinality == Multiple && !d.plan.SupportsMultiple {
		return nil, nil, NewFollowerError(d.path, DetailResultSetImpossible)
	}

	if doc == nil {
		return nil, nil, NewFollowerError(d.path, DetailNoDocument)
	}

	derivation, err := d.plan.Derive(doc)
	if err != nil {
		return nil, nil, err
	}

	if derivation.Absent {
		return nil, nil, nil
	}

	finder, err := d.targetFinder(lookup)
	if err != nil {
		return nil, nil, err
	}

	if derivation.CheckNamespace && derivation.Namespace != finder.GetCollectionName() {
		return nil, nil, NewFollowerError(d.path, DetailNamespaceMismatch)
	}

	if derivation.Query == nil {
		return nil, nil, NewFollowerError(d.path, DetailQueryNotDefined)
	}

	return finder, derivation.Query, nil
}

// null is the outcome of resolving to nothing: fine when nullable, a
// constraint violation otherwise.
func (d *Declaration) null() error {
	if d.nullable {
		return nil
	}
	return NewConstraintError(d.path, DetailIsNull)
}

func (d *Declaration) targetFinder(lookup Lookup) (database.DocumentFinder, error) {
	if d.target == "" || lookup == nil {
		return nil, NewFollowerError(d.path, DetailTargetMissing)
	}

	finder, err := lookup.GetDocumentFinder(d.target)
	if err != nil || finder == nil {
		return nil, NewFollowerError(d.path, DetailTargetMissing)
	}
	return finder, nil
}
