// Package models contains data structures for the forum's domain models.
package models

import (
	"encoding/json"
	"time"
)

// Post represents a post in the forum.
type Post struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Title    string  `gorm:"size:255;not null" json:"title"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	ImageURL *string `gorm:"size:512" json:"image_url"`
	UserID   uint    `gorm:"not null;index" json:"user_id"`
	User     User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
	// FavoritesCount is not persisted; computed at query time
	FavoritesCount int64 `gorm:"->;-:migration" json:"favorites_count"`
	// Liked and Favorited describe the requesting user's ledger state (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	Favorited bool      `gorm:"->;-:migration" json:"favorited"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON renders the author as a UserSummary.
func (p Post) MarshalJSON() ([]byte, error) {
	type post Post
	return json.Marshal(struct {
		post
		User UserSummary `json:"user"`
	}{post(p), p.User.Summary()})
}
