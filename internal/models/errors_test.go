package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CodeNotFound, ErrorCode(NewNotFoundError("User", "u1")))
	assert.Equal(t, CodeConflict, ErrorCode(fmt.Errorf("wrapped: %w", NewConflictError("dup"))))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.True(t, IsCode(NewForbiddenError("no"), CodeForbidden))
	assert.False(t, IsCode(nil, CodeForbidden))
}

func TestAppErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error: connection reset", err.Error())
}

func TestParseRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{" Leader ", RoleLeader, false},
		{"member", RoleMember, false},
		{"owner", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRole(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
