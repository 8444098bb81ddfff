// Package testutil holds database and fixture helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"forum/internal/auth"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB returns a migrated in-memory sqlite database private to the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBDSN:    database.SQLiteDSN(fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])),
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// CreateUser inserts a user whose password is "pw123".
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("pw123")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@x.com",
		Password: hash,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post authored by userID.
func CreatePost(t *testing.T, db *gorm.DB, userID uint, title, content string) *models.Post {
	t.Helper()

	post := &models.Post{UserID: userID, Title: title, Content: content}
	require.NoError(t, db.Create(post).Error)
	return post
}

// CreateComment inserts a comment on postID.
func CreateComment(t *testing.T, db *gorm.DB, postID, userID uint, content string) *models.Comment {
	t.Helper()

	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}
	require.NoError(t, db.Create(comment).Error)
	return comment
}
