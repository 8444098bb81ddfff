package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patch struct {
	Username Optional[string] `json:"username"`
	Picture  Optional[string] `json:"profile_picture_url"`
}

func TestOptional_PresenceFlags(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		userSet     bool
		pictureSet  bool
		pictureNull bool
	}{
		{"empty object", `{}`, false, false, false},
		{"username only", `{"username":"bob"}`, true, false, false},
		{"explicit null picture", `{"profile_picture_url":null}`, false, true, true},
		{"picture value", `{"profile_picture_url":"/uploads/a.png"}`, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.userSet, p.Username.Set)
			assert.Equal(t, tt.pictureSet, p.Picture.Set)
			assert.Equal(t, tt.pictureNull, p.Picture.Null)
		})
	}
}

func TestOptional_RejectsWrongType(t *testing.T) {
	var p patch
	err := json.Unmarshal([]byte(`{"username":42}`), &p)
	assert.Error(t, err)
}

func TestAppError_Status(t *testing.T) {
	assert.Equal(t, 400, NewValidationError("x").Status())
	assert.Equal(t, 401, NewUnauthorizedError("x").Status())
	assert.Equal(t, 403, NewForbiddenError("x").Status())
	assert.Equal(t, 404, NewNotFoundError("Post", 1).Status())
	assert.Equal(t, 409, NewConflictError("x").Status())
	assert.Equal(t, 500, NewInternalError(assert.AnError).Status())
	assert.True(t, IsCode(NewConflictError("taken"), CodeConflict))
	assert.False(t, IsCode(assert.AnError, CodeConflict))
}
