package joins

import (
	"fmt"
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := NewConstraintError("author", DetailIsNull)
	assert.Equal(t, "ConstraintError author: is null", err.Error())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestError_KindsSurviveWrapping(t *testing.T) {
	wrapped := errors.WrapPrefix(NewFollowerError("camera", DetailNamespaceMismatch), "include Event", 0)
	stdWrapped := fmt.Errorf("following: %w", wrapped)

	kind, ok := KindOf(stdWrapped)
	require.True(t, ok)
	assert.Equal(t, KindFollower, kind)
	assert.True(t, IsFollowerError(stdWrapped))
	assert.False(t, IsConstraintError(stdWrapped))

	joinErr, ok := AsError(stdWrapped)
	require.True(t, ok)
	assert.Equal(t, "camera", joinErr.Path)

	_, ok = KindOf(assert.AnError)
	assert.False(t, ok)
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewJoinError("tags", DetailToFromMismatch))

	assert.ErrorIs(t, err, &Error{Kind: KindJoin})
	assert.ErrorIs(t, err, &Error{Kind: KindJoin, Path: "tags"})
	assert.ErrorIs(t, err, NewJoinError("tags", DetailToFromMismatch))
	assert.NotErrorIs(t, err, &Error{Kind: KindJoin, Path: "owner"})
	assert.NotErrorIs(t, err, &Error{Kind: KindFollower})

	assert.True(t, IsJoinError(err))
	assert.False(t, IsCascadeError(err))
	assert.True(t, IsCascadeError(NewCascadeError("events", DetailNotImplemented)))
}
