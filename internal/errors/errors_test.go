package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgupta1997/fanverse-live/internal/domain"
)

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    int
	}{
		{TypeValidation, 400},
		{TypeNotFound, 404},
		{TypeUnavailable, 503},
		{TypeExternal, 502},
		{TypeInternal, 500},
		{ErrorType("mystery"), 500},
	}
	for _, tt := range tests {
		e := &Error{Type: tt.errType, Message: "boom"}
		assert.Equal(t, tt.want, e.HTTPStatus(), "type %s", tt.errType)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := InternalError("wrapper", cause)

	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "root cause")
}

func TestError_WithContext(t *testing.T) {
	e := ValidationError("bad input").WithContext("match_id", "m1").WithContext("field", "inning")

	resp := e.ToResponse()
	assert.Equal(t, "bad input", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "m1", resp.Context["match_id"])
	assert.Equal(t, "inning", resp.Context["field"])
}

func TestFromDomain_SentinelMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantType ErrorType
	}{
		{domain.ErrInvalidMatchID, TypeValidation},
		{domain.ErrUnknownRole, TypeValidation},
		{domain.ErrMatchFull, TypeValidation},
		{domain.ErrUnknownMatch, TypeNotFound},
		{domain.ErrFetchFailed, TypeExternal},
		{domain.ErrEngineStopped, TypeUnavailable},
		{errors.New("anything else"), TypeInternal},
	}
	for _, tt := range tests {
		got := FromDomain(tt.err)
		require.NotNil(t, got)
		assert.Equal(t, tt.wantType, got.Type, "err %v", tt.err)
	}
}

func TestFromDomain_WrappedSentinel(t *testing.T) {
	wrapped := FromDomain(
		&Error{Type: TypeExternal, Message: "already structured"},
	)
	assert.Equal(t, TypeExternal, wrapped.Type)
	assert.Equal(t, "already structured", wrapped.Message)
}

func TestFromDomain_Nil(t *testing.T) {
	assert.Nil(t, FromDomain(nil))
}
