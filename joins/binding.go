package joins

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/helpers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xompass/vsaas-joins/joins"

var (
	attrPath        = attribute.Key("join.path")
	attrType        = attribute.Key("join.type")
	attrTarget      = attribute.Key("join.target")
	attrCardinality = attribute.Key("join.cardinality")
	attrCount       = attribute.Key("join.count")
)

// Binding is a join bound to one document. Bindings are cheap and are not
// meant to outlive the call that needs them.
type Binding struct {
	declaration *Declaration
	document    Document
	lookup      Lookup
	logger      *helpers.Logger
}

func (b *Binding) Declaration() *Declaration {
	return b.declaration
}

func (b *Binding) Document() Document {
	return b.document
}

// Follow resolves the join. Every call queries the store again.
func (b *Binding) Follow(ctx context.Context) (Result, error) {
	return b.FollowScoped(ctx, nil)
}

// FollowScoped resolves the join with the target query narrowed by scope.
// The scope's where is AND-ed with the join query; its order, limit, skip,
// fields and includes apply as given.
func (b *Binding) FollowScoped(ctx context.Context, scope *database.FilterBuilder) (Result, error) {
	d := b.declaration
	if d == nil {
		return Result{}, NewFollowerError("", DetailNotImplemented)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "joins.follow", trace.WithAttributes(
		attrPath.String(d.path),
		attrType.String(d.typeName),
		attrTarget.String(d.target),
		attrCardinality.String(d.cardinality.String()),
	))
	defer span.End()

	result, err := d.follow(ctx, b.document, b.lookup, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Debugf("join %s failed: %v", d.path, err)
		return result, err
	}

	span.SetAttributes(attrCount.Int(result.Len()))
	b.logger.Debugf("join %s resolved %d document(s) from %s", d.path, result.Len(), d.target)
	return result, nil
}

// Count counts the documents the join resolves to without reading them. Only
// the where of scope applies.
func (b *Binding) Count(ctx context.Context, scope *database.FilterBuilder) (int64, error) {
	d := b.declaration
	if d == nil {
		return 0, NewFollowerError("", DetailNotImplemented)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "joins.count", trace.WithAttributes(
		attrPath.String(d.path),
		attrType.String(d.typeName),
		attrTarget.String(d.target),
	))
	defer span.End()

	n, err := d.count(ctx, b.document, b.lookup, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return n, err
	}

	span.SetAttributes(attrCount.Int64(n))
	return n, nil
}

// Outcome is what FollowAsync delivers.
type Outcome struct {
	Result Result
	Err    error
}

// FollowAsync resolves the join in its own goroutine. Exactly one Outcome is
// sent before the channel is closed, errors and panics included.
func (b *Binding) FollowAsync(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)

	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				out <- Outcome{Err: errors.Wrap(r, 2)}
			}
		}()

		result, err := b.Follow(ctx)
		out <- Outcome{Result: result, Err: err}
	}()

	return out
}
