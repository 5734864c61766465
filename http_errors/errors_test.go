package http_errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorResponse_TakesFirstDetail(t *testing.T) {
	err := NewErrorResponse(http.StatusBadRequest, "bad", "first", "second")
	assert.Equal(t, "first", err.Details)
	assert.Equal(t, "bad", err.Error())
	assert.Empty(t, err.ErrorCode)
}

func TestWithCodeConstructors(t *testing.T) {
	cases := []struct {
		err  *ErrorResponse
		code int
	}{
		{BadRequestErrorWithCode("A", "a"), http.StatusBadRequest},
		{NotFoundErrorWithCode("B", "b"), http.StatusNotFound},
		{ConflictErrorWithCode("C", "c"), http.StatusConflict},
		{InternalServerErrorWithCode("D", "d"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.NotEmpty(t, tc.err.ErrorCode)
	}
}
