package database

import (
	"maps"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-joins/lbq"
)

const (
	FILTER_FIELD_EMPTY                    = "FILTER_FIELD_EMPTY"
	FILTER_INVALID_DIRECTION              = "FILTER_INVALID_DIRECTION"
	FILTER_WHERE_EMPTY                    = "FILTER_WHERE_EMPTY"
	FILTER_CANNOT_MIX_INCLUSION_EXCLUSION = "FILTER_CANNOT_MIX_INCLUSION_EXCLUSION"
	FILTER_WHERE_CANNOT_BE_NIL            = "FILTER_WHERE_CANNOT_BE_NIL"
)

// FilterBuilder accumulates a loopback style filter. Errors are deferred to
// Build so calls can be chained.
type FilterBuilder struct {
	where   []lbq.Where
	fields  lbq.Fields
	limit   *uint
	skip    *uint
	order   []lbq.Order
	include []lbq.Include
	err     error
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{
		where:  []lbq.Where{},
		fields: lbq.Fields{},
		order:  []lbq.Order{},
	}
}

func (b *FilterBuilder) Fields(fields map[string]bool) *FilterBuilder {
	maps.Copy(b.fields, fields)
	return b
}

func (b *FilterBuilder) Limit(limit uint) *FilterBuilder {
	b.limit = &limit
	return b
}

func (b *FilterBuilder) Skip(skip uint) *FilterBuilder {
	b.skip = &skip
	return b
}

func (b *FilterBuilder) orderBy(field string, direction string) *FilterBuilder {
	if strings.TrimSpace(field) == "" {
		b.err = errors.New(FILTER_FIELD_EMPTY)
		return b
	}
	direction = strings.ToUpper(direction)
	if direction != "ASC" && direction != "DESC" {
		b.err = errors.New(FILTER_INVALID_DIRECTION)
		return b
	}
	b.order = append(b.order, lbq.Order{Field: field, Direction: direction})
	return b
}

func (b *FilterBuilder) OrderByAsc(field string) *FilterBuilder {
	return b.orderBy(field, "ASC")
}

func (b *FilterBuilder) OrderByDesc(field string) *FilterBuilder {
	return b.orderBy(field, "DESC")
}

// Include asks the repository to resolve the named relation on every
// returned document.
func (b *FilterBuilder) Include(relation string, scope *lbq.Filter) *FilterBuilder {
	b.include = append(b.include, lbq.Include{Relation: relation, Scope: scope})
	return b
}

func (b *FilterBuilder) WithWhere(builder *WhereBuilder) *FilterBuilder {
	where, err := builder.Build()
	if err != nil {
		b.err = err
		return b
	}

	if len(where) == 0 {
		b.err = errors.New(FILTER_WHERE_EMPTY)
		return b
	}

	b.where = append(b.where, where)
	return b
}

func (b *FilterBuilder) Build() (*lbq.Filter, error) {
	if b.err != nil {
		return nil, b.err
	}

	if !isValidProjection(b.fields) {
		return nil, errors.New(FILTER_CANNOT_MIX_INCLUSION_EXCLUSION)
	}

	return &lbq.Filter{
		Where:   combineWhere(b.where),
		Fields:  b.fields,
		Order:   b.order,
		Limit:   derefUint(b.limit),
		Skip:    derefUint(b.skip),
		Include: b.include,
	}, nil
}

// FromLBFilter loads a parsed request filter. Zero limit and skip mean unset.
func (b *FilterBuilder) FromLBFilter(filter *lbq.Filter) *FilterBuilder {
	if filter == nil {
		return b
	}

	b.where = []lbq.Where{}
	if len(filter.Where) > 0 {
		b.where = append(b.where, filter.Where)
	}

	b.fields = lbq.Fields{}
	maps.Copy(b.fields, filter.Fields)
	b.order = append([]lbq.Order{}, filter.Order...)
	b.include = append([]lbq.Include{}, filter.Include...)
	b.limit = nil
	b.skip = nil

	if filter.Limit > 0 {
		b.Limit(filter.Limit)
	}
	if filter.Skip > 0 {
		b.Skip(filter.Skip)
	}

	if !isValidProjection(b.fields) {
		b.err = errors.New(FILTER_CANNOT_MIX_INCLUSION_EXCLUSION)
	}

	return b
}

func (b *FilterBuilder) Clone() *FilterBuilder {
	clone := &FilterBuilder{
		where:   append([]lbq.Where{}, b.where...),
		fields:  maps.Clone(b.fields),
		order:   append([]lbq.Order{}, b.order...),
		include: append([]lbq.Include{}, b.include...),
		err:     b.err,
	}

	if clone.fields == nil {
		clone.fields = lbq.Fields{}
	}
	if b.limit != nil {
		clone.Limit(*b.limit)
	}
	if b.skip != nil {
		clone.Skip(*b.skip)
	}

	return clone
}

func (b *FilterBuilder) Page(page, size uint) *FilterBuilder {
	if page > 0 && size > 0 {
		b.Skip((page - 1) * size)
		b.Limit(size)
	}
	return b
}

func (b *FilterBuilder) ToJSON() (string, error) {
	filter, err := b.Build()
	if err != nil {
		return "", errors.Errorf(`{"error": "%s"}`, err.Error())
	}
	data, err := sonic.MarshalIndent(filter, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MergeConfig defines options for merging FilterBuilders
type MergeConfig struct {
	// WhereOperator combines WHERE conditions: "and" (default) or "or"
	WhereOperator string
	// AllowFieldConflicts lets the other builder overwrite field projections
	AllowFieldConflicts bool
	// MaxLimit caps the merged limit
	MaxLimit *uint
}

// MergeWith returns a new builder combining b with other. Skip and order
// from other win; includes are concatenated.
func (b *FilterBuilder) MergeWith(other *FilterBuilder, config ...*MergeConfig) *FilterBuilder {
	if b == nil {
		if other == nil {
			return NewFilter()
		}
		return other.Clone()
	}
	if other == nil {
		return b.Clone()
	}

	if b.err != nil {
		return &FilterBuilder{err: b.err}
	}
	if other.err != nil {
		return &FilterBuilder{err: other.err}
	}

	mergeConfig := &MergeConfig{WhereOperator: "and"}
	if len(config) > 0 && config[0] != nil {
		mergeConfig = config[0]
	}

	result := b.Clone()

	if len(other.where) > 0 {
		if len(result.where) == 0 {
			result.where = append([]lbq.Where{}, other.where...)
		} else {
			operator := "and"
			if mergeConfig.WhereOperator == "or" {
				operator = "or"
			}
			result.where = []lbq.Where{{
				operator: lbq.AndOrCondition{combineWhere(result.where), combineWhere(other.where)},
			}}
		}
	}

	if len(other.fields) > 0 {
		if !mergeConfig.AllowFieldConflicts {
			for field, otherValue := range other.fields {
				if currentValue, exists := result.fields[field]; exists && currentValue != otherValue {
					result.err = errors.Errorf("field projection conflict for '%s': current=%v, other=%v", field, currentValue, otherValue)
					return result
				}
			}
		}

		maps.Copy(result.fields, other.fields)

		if !isValidProjection(result.fields) {
			result.err = errors.New(FILTER_CANNOT_MIX_INCLUSION_EXCLUSION)
			return result
		}
	}

	if other.limit != nil {
		result.Limit(*other.limit)
	}
	if mergeConfig.MaxLimit != nil && (result.limit == nil || *result.limit > *mergeConfig.MaxLimit) {
		result.Limit(*mergeConfig.MaxLimit)
	}

	if other.skip != nil {
		result.Skip(*other.skip)
	}

	if len(other.order) > 0 {
		result.order = append([]lbq.Order{}, other.order...)
	}

	result.include = append(result.include, other.include...)

	return result
}

func combineWhere(conditions []lbq.Where) lbq.Where {
	switch len(conditions) {
	case 0:
		return nil
	case 1:
		return conditions[0]
	default:
		return lbq.Where{"and": lbq.AndOrCondition(conditions)}
	}
}

/************************
 * Where Builder
 ************************/

type WhereBuilder struct {
	conditions []lbq.Where
	err        error
}

func NewWhere() *WhereBuilder {
	return &WhereBuilder{}
}

func (b *WhereBuilder) Eq(field string, value any) *WhereBuilder {
	if err := validateField(field); err != nil {
		b.err = err
		return b
	}
	return b.Raw(lbq.Where{field: value})
}

func (b *WhereBuilder) Neq(field string, value any) *WhereBuilder {
	return b.op(field, "neq", value)
}

func (b *WhereBuilder) In(field string, values any) *WhereBuilder {
	return b.op(field, "inq", values)
}

func (b *WhereBuilder) Nin(field string, values any) *WhereBuilder {
	return b.op(field, "nin", values)
}

func (b *WhereBuilder) Gt(field string, value any) *WhereBuilder {
	return b.op(field, "gt", value)
}

func (b *WhereBuilder) Gte(field string, value any) *WhereBuilder {
	return b.op(field, "gte", value)
}

func (b *WhereBuilder) Lt(field string, value any) *WhereBuilder {
	return b.op(field, "lt", value)
}

func (b *WhereBuilder) Lte(field string, value any) *WhereBuilder {
	return b.op(field, "lte", value)
}

func (b *WhereBuilder) Exists(field string, exists bool) *WhereBuilder {
	return b.op(field, "exists", exists)
}

func (b *WhereBuilder) Like(field string, pattern string, options ...string) *WhereBuilder {
	if err := validateField(field); err != nil {
		b.err = err
		return b
	}

	where := lbq.Where{"like": pattern}
	if len(options) > 0 {
		where["options"] = options[0]
	}

	return b.Raw(lbq.Where{field: where})
}

// op adds {field: {operator: value}}. A nil value is allowed, e.g. {"deleted": {"neq": null}}.
func (b *WhereBuilder) op(field string, operator string, value any) *WhereBuilder {
	if err := validateField(field); err != nil {
		b.err = err
		return b
	}
	return b.Raw(lbq.Where{field: lbq.Where{operator: value}})
}

func (b *WhereBuilder) Raw(w lbq.Where) *WhereBuilder {
	if b.err != nil {
		return b
	}
	if len(w) == 0 {
		b.err = errors.New("raw where condition cannot be empty")
		return b
	}
	b.conditions = append(b.conditions, w)
	return b
}

func (b *WhereBuilder) Or(builders ...*WhereBuilder) *WhereBuilder {
	var ors []lbq.Where
	for _, sub := range builders {
		w, err := sub.Build()
		if err != nil {
			b.err = err
			return b
		}
		if len(w) > 0 {
			ors = append(ors, w)
		}
	}
	if len(ors) > 0 {
		b.conditions = append(b.conditions, lbq.Where{"or": lbq.AndOrCondition(ors)})
	}
	return b
}

// And adds the conjunction of builders, flattening nested "and" groups.
func (b *WhereBuilder) And(builders ...*WhereBuilder) *WhereBuilder {
	var flat []lbq.Where

	for _, sub := range builders {
		w, err := sub.Build()
		if err != nil {
			b.err = err
			return b
		}

		if inner, ok := w["and"].(lbq.AndOrCondition); ok && len(w) == 1 {
			flat = append(flat, inner...)
			continue
		}

		if len(w) > 0 {
			flat = append(flat, w)
		}
	}

	if len(flat) > 0 {
		b.conditions = append(b.conditions, lbq.Where{"and": lbq.AndOrCondition(flat)})
	}
	return b
}

func (b *WhereBuilder) Build() (lbq.Where, error) {
	if b == nil {
		return nil, errors.New(FILTER_WHERE_CANNOT_BE_NIL)
	}

	if b.err != nil {
		return nil, b.err
	}

	if len(b.conditions) == 0 {
		return lbq.Where{}, nil
	}
	return combineWhere(b.conditions), nil
}

func derefUint(p *uint) uint {
	if p == nil {
		return 0
	}
	return *p
}

func isValidProjection(fields map[string]bool) bool {
	hasTrue := false
	hasFalse := false
	for key, val := range fields {
		if key == "_id" {
			continue
		}
		if val {
			hasTrue = true
		} else {
			hasFalse = true
		}
	}
	return !(hasTrue && hasFalse)
}

func validateField(field string) error {
	if strings.TrimSpace(field) == "" {
		return errors.New(FILTER_FIELD_EMPTY)
	}
	return nil
}
