package models

import "time"

// User is a registered forum account.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Username          string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email             string    `gorm:"size:254;uniqueIndex;not null" json:"email,omitempty"`
	Password          string    `gorm:"not null" json:"-"`
	ProfilePictureURL *string   `gorm:"size:512" json:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UserSummary is the author block embedded in posts and comments.
type UserSummary struct {
	ID                uint    `json:"id"`
	Username          string  `json:"username"`
	ProfilePictureURL *string `json:"profile_picture_url"`
}

// Summary returns the public author view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePictureURL: u.ProfilePictureURL}
}
