package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"forum/internal/auth"
	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/repository"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingUserRepo overrides Update on top of a real repository.
type failingUserRepo struct {
	repository.UserRepository
	updateErr error
}

func (r *failingUserRepo) Update(context.Context, uint, map[string]any) error {
	return r.updateErr
}

type testEnv struct {
	db        *gorm.DB
	tokens    *auth.TokenService
	publisher *recordingPublisher
	users     repository.UserRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	ledger    repository.InteractionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &testEnv{
		db:        db,
		tokens:    auth.NewTokenService("test-secret-test-secret-test-secret", time.Hour),
		publisher: &recordingPublisher{},
		users:     repository.NewUserRepository(db, nil),
		posts:     repository.NewPostRepository(db),
		comments:  repository.NewCommentRepository(db),
		ledger:    repository.NewInteractionRepository(db),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}
