package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"", RoleGeneric},
		{"generic", RoleGeneric},
		{"chat", RoleChat},
		{"commentary", RoleCommentary},
		{"match-data", RoleMatchData},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseRole_Unknown(t *testing.T) {
	for _, in := range []string{"director", "GENERIC", "match_data", " chat"} {
		_, err := ParseRole(in)
		assert.ErrorIs(t, err, ErrUnknownRole, "input %q", in)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleCommentary.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("director").Valid())
}
