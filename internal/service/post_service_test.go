package service

import (
	"context"
	"strings"
	"testing"

	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{"empty title", CreatePostInput{UserID: 1, Title: "", Content: "World"}},
		{"blank title", CreatePostInput{UserID: 1, Title: "   ", Content: "World"}},
		{"empty content", CreatePostInput{UserID: 1, Title: "Hi", Content: ""}},
		{"blank content", CreatePostInput{UserID: 1, Title: "Hi", Content: "\n\t"}},
		{"title too long", CreatePostInput{UserID: 1, Title: strings.Repeat("a", 256), Content: "World"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreateAndList(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPostService(env.posts, env.publisher)
	ctx := context.Background()

	alice := testutil.CreateUser(t, env.db, "alice")

	post, err := svc.CreatePost(ctx, CreatePostInput{UserID: alice.ID, Title: " Hi ", Content: "World", ImageURL: "/uploads/post_images/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", post.Title)
	assert.Equal(t, "alice", post.User.Username)
	require.NotNil(t, post.ImageURL)
	assert.Equal(t, "/uploads/post_images/a.png", *post.ImageURL)
	assert.Zero(t, post.LikesCount)
	assert.Zero(t, post.CommentsCount)

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, notifications.EventPostCreated, env.publisher.events[0].Type)
	payload := env.publisher.events[0].Payload.(notifications.PostCreatedPayload)
	assert.Equal(t, post.ID, payload.PostID)
	assert.Equal(t, "alice", payload.Username)

	posts, err := svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	_, err = svc.ListPosts(ctx, ListPostsInput{Limit: -1})
	assertValidationError(t, err)

	_, err = svc.ListPosts(ctx, ListPostsInput{Offset: 1})
	assertValidationError(t, err)

	_, err = svc.GetPost(ctx, post.ID+1, 0)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_PublishFailureDoesNotFailCreate(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = assert.AnError
	svc := NewPostService(env.posts, env.publisher)

	alice := testutil.CreateUser(t, env.db, "alice")
	post, err := svc.CreatePost(context.Background(), CreatePostInput{UserID: alice.ID, Title: "Hi", Content: "World"})
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
}
