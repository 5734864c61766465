package joins

import (
	"fmt"

	"github.com/go-errors/errors"
)

// Kind classifies a join failure.
type Kind int

const (
	// KindJoin is raised while declaring a join. The join is never installed.
	KindJoin Kind = iota + 1
	// KindFollower is raised while following a join because of its configuration.
	KindFollower
	// KindConstraint is raised when a non nullable join resolves to nothing.
	KindConstraint
	// KindCascade is reserved for write side cascades and never raised.
	KindCascade
)

func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "JoinError"
	case KindFollower:
		return "FollowerError"
	case KindConstraint:
		return "ConstraintError"
	case KindCascade:
		return "CascadeError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

const (
	DetailNoSuchType             = "no such join type registered"
	DetailNoPath                 = "no path defined"
	DetailNoSuchJoin             = "no such join declared"
	DetailNoToOrFrom             = "no 'to' or 'from' field defined"
	DetailOnlyToOrFrom           = "only 'to' or 'from' field allowed"
	DetailNoTo                   = "no 'to' field defined"
	DetailNoFrom                 = "no 'from' field defined"
	DetailToFromMismatch         = "'to' & 'from' mismatch"
	DetailMappingNotFactory      = "mapping not factory"
	DetailTargetNotInterpretable = "target not interpretable"
	DetailTargetMissing          = "target schema missing"
	DetailNamespaceMismatch      = "namespace mismatch"
	DetailResultSetImpossible    = "result set impossible"
	DetailQueryNotDefined        = "query not defined"
	DetailIsNull                 = "is null"
	DetailNotImplemented         = "not implemented"
	DetailNoDocument             = "no source document"
)

// Error is the single error type of the package: a kind, the path of the
// join that failed and a fixed detail message.
type Error struct {
	Kind   Kind
	Path   string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Path, e.Detail)
}

// Is matches another *Error of the same kind. Empty path and detail on the
// target act as wildcards, so errors.Is(err, &Error{Kind: KindConstraint})
// matches every constraint violation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind &&
		(t.Path == "" || t.Path == e.Path) &&
		(t.Detail == "" || t.Detail == e.Detail)
}

func NewJoinError(path string, detail string) *Error {
	return &Error{Kind: KindJoin, Path: path, Detail: detail}
}

func NewFollowerError(path string, detail string) *Error {
	return &Error{Kind: KindFollower, Path: path, Detail: detail}
}

func NewConstraintError(path string, detail string) *Error {
	return &Error{Kind: KindConstraint, Path: path, Detail: detail}
}

func NewCascadeError(path string, detail string) *Error {
	return &Error{Kind: KindCascade, Path: path, Detail: detail}
}

// AsError returns the join error wrapped anywhere in err's chain.
func AsError(err error) (*Error, bool) {
	var joinErr *Error
	if errors.As(err, &joinErr) {
		return joinErr, true
	}
	return nil, false
}

// KindOf returns the kind of the join error in err's chain.
func KindOf(err error) (Kind, bool) {
	joinErr, ok := AsError(err)
	if !ok {
		return 0, false
	}
	return joinErr.Kind, true
}

func IsJoinError(err error) bool       { return isKind(err, KindJoin) }
func IsFollowerError(err error) bool   { return isKind(err, KindFollower) }
func IsConstraintError(err error) bool { return isKind(err, KindConstraint) }
func IsCascadeError(err error) bool    { return isKind(err, KindCascade) }

func isKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
