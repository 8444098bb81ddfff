package service

import (
	"context"
	"testing"

	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.users, env.tokens)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@X.com", Password: "pw123"})
	require.NoError(t, err)
	assert.NotZero(t, reg.User.ID)
	assert.Equal(t, "alice@x.com", reg.User.Email)
	assert.NotEqual(t, "pw123", reg.User.Password)

	id, err := env.tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.UserID)

	for _, identifier := range []string{"alice", "alice@x.com"} {
		t.Run("login with "+identifier, func(t *testing.T) {
			res, err := svc.Login(ctx, LoginInput{Identifier: identifier, Password: "pw123"})
			require.NoError(t, err)

			id, err := env.tokens.Verify(res.Token)
			require.NoError(t, err)
			assert.Equal(t, reg.User.ID, id.UserID)
			assert.Equal(t, "alice", id.Username)
		})
	}

	_, err = svc.Login(ctx, LoginInput{Identifier: "alice", Password: "wrong"})
	assertUnauthorizedError(t, err)

	_, err = svc.Login(ctx, LoginInput{Identifier: "nobody", Password: "pw123"})
	assertUnauthorizedError(t, err)
}

func TestAuthService_RegisterDuplicateIsConflict(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.users, env.tokens)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "pw123"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"same username", RegisterInput{Username: "alice", Email: "other@x.com", Password: "pw123"}},
		{"same email", RegisterInput{Username: "other", Email: "ALICE@x.com", Password: "pw123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assertCode(t, err, models.CodeConflict)
		})
	}

	var n int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAuthService_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.users, env.tokens)
	ctx := context.Background()

	registers := []RegisterInput{
		{Username: "", Email: "a@x.com", Password: "pw"},
		{Username: "alice", Email: "", Password: "pw"},
		{Username: "alice", Email: "a@x.com", Password: ""},
		{Username: "al", Email: "a@x.com", Password: "pw"},
		{Username: "alice!", Email: "a@x.com", Password: "pw"},
		{Username: "alice", Email: "not-an-email", Password: "pw"},
	}
	for _, in := range registers {
		_, err := svc.Register(ctx, in)
		assertValidationError(t, err)
	}

	_, err := svc.Login(ctx, LoginInput{Identifier: "  ", Password: "pw"})
	assertValidationError(t, err)
	_, err = svc.Login(ctx, LoginInput{Identifier: "alice"})
	assertValidationError(t, err)
}
