package repository

import (
	"context"
	"testing"

	"forum/internal/models"
	"forum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(posts []*models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestPostRepository_ListNewestFirstWithCounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ledger := NewInteractionRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	older := testutil.CreatePost(t, db, alice.ID, "older", "first post")
	newer := testutil.CreatePost(t, db, bob.ID, "newer", "second post")

	_, err := ledger.Toggle(ctx, models.RelationLike, older.ID, bob.ID)
	require.NoError(t, err)
	_, err = ledger.Toggle(ctx, models.RelationFavorite, older.ID, bob.ID)
	require.NoError(t, err)
	testutil.CreateComment(t, db, older.ID, bob.ID, "nice")
	testutil.CreateComment(t, db, older.ID, alice.ID, "thanks")

	posts, err := repo.List(ctx, PostListOptions{}, bob.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"newer", "older"}, titles(posts))

	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, int64(0), posts[0].LikesCount)
	assert.False(t, posts[0].Liked)

	got := posts[1]
	assert.Equal(t, int64(1), got.LikesCount)
	assert.Equal(t, int64(2), got.CommentsCount)
	assert.Equal(t, int64(1), got.FavoritesCount)
	assert.True(t, got.Liked)
	assert.True(t, got.Favorited)
	assert.Equal(t, "alice", got.User.Username)
	assert.Empty(t, got.User.Email)

	anon, err := repo.List(ctx, PostListOptions{}, 0)
	require.NoError(t, err)
	assert.False(t, anon[1].Liked)
	assert.Equal(t, int64(1), anon[1].LikesCount)
}

func TestPostRepository_SearchIsCaseInsensitiveAndLiteral(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreatePost(t, db, alice.ID, "Gopher Tips", "channels")
	testutil.CreatePost(t, db, alice.ID, "Other", "all about GOPHERS")
	testutil.CreatePost(t, db, alice.ID, "Discount", "100% off")
	testutil.CreatePost(t, db, alice.ID, "snake_case", "naming")
	testutil.CreatePost(t, db, alice.ID, "snakeXcase", "naming")

	tests := []struct {
		query string
		want  []string
	}{
		{"gopher", []string{"Other", "Gopher Tips"}},
		{"  GOPHER  ", []string{"Other", "Gopher Tips"}},
		{"100%", []string{"Discount"}},
		{"%", []string{"Discount"}},
		{"snake_case", []string{"snake_case"}},
		{"!", nil},
		{"missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			posts, err := repo.List(ctx, PostListOptions{Query: tt.query}, 0)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, posts)
				return
			}
			assert.Equal(t, tt.want, titles(posts))
		})
	}
}

func TestPostRepository_ListPagination(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	for _, title := range []string{"p1", "p2", "p3", "p4"} {
		testutil.CreatePost(t, db, alice.ID, title, "body")
	}

	page, err := repo.List(ctx, PostListOptions{Limit: 2, Offset: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2"}, titles(page))

	all, err := repo.List(ctx, PostListOptions{Offset: 3}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPostRepository_GetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "Hi", "World")

	got, err := repo.GetByID(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi", got.Title)
	assert.Equal(t, alice.ID, got.User.ID)

	_, err = repo.GetByID(ctx, post.ID+100, 0)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	ok, err := repo.Exists(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, post.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostRepository_UserListings(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ledger := NewInteractionRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	a1 := testutil.CreatePost(t, db, alice.ID, "a1", "x")
	a2 := testutil.CreatePost(t, db, alice.ID, "a2", "x")
	testutil.CreatePost(t, db, bob.ID, "b1", "x")

	mine, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, titles(mine))

	// favorite the older post last so favorite time and post time disagree
	_, err = ledger.Toggle(ctx, models.RelationFavorite, a2.ID, bob.ID)
	require.NoError(t, err)
	_, err = ledger.Toggle(ctx, models.RelationFavorite, a1.ID, bob.ID)
	require.NoError(t, err)

	favs, err := repo.ListFavoritedBy(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, titles(favs))
	for _, p := range favs {
		assert.True(t, p.Favorited)
	}

	none, err := repo.ListFavoritedBy(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostRepository_CreateUnknownAuthor(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)

	err := repo.Create(context.Background(), &models.Post{UserID: 77, Title: "t", Content: "c"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
