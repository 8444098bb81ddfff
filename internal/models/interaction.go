package models

import (
	"fmt"
	"time"
)

// Relation names one of the per-(post, user) ledgers.
type Relation string

const (
	RelationLike     Relation = "like"
	RelationFavorite Relation = "favorite"
)

// Table returns the SQL table backing the relation.
func (r Relation) Table() string {
	switch r {
	case RelationLike:
		return "likes"
	case RelationFavorite:
		return "favorites"
	default:
		return ""
	}
}

// Validate rejects relations that have no backing table.
func (r Relation) Validate() error {
	if r.Table() == "" {
		return fmt.Errorf("unknown relation %q", string(r))
	}
	return nil
}

// Like records that a user liked a post. At most one row exists per pair.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user,priority:1" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user,priority:2;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite records that a user bookmarked a post. At most one row exists per pair.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_favorites_post_user,priority:1" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_post_user,priority:2;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Row returns a ledger row for the relation, ready for gorm Create or Delete.
func (r Relation) Row(postID, userID uint) any {
	switch r {
	case RelationLike:
		return &Like{PostID: postID, UserID: userID}
	case RelationFavorite:
		return &Favorite{PostID: postID, UserID: userID}
	default:
		return nil
	}
}
