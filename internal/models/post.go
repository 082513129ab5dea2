package models

import "time"

// Post statuses recognised by the feed.
const (
	PostStatusLost     = "lost"
	PostStatusFound    = "found"
	PostStatusResolved = "resolved"
)

// Post represents a lost/found pet posting with its location and photos.
type Post struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	AuthorID    uint        `gorm:"index;not null" json:"author_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Species     string      `gorm:"size:64;index" json:"species"`
	Status      string      `gorm:"size:32;index;not null;default:lost" json:"status"`
	Address     string      `gorm:"size:255" json:"address"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Photos      []PostPhoto `json:"photos"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PostPhoto stores one uploaded photo attached to a post.
type PostPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a public remark left on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Favorite bookmarks a post for a user. One row per (post, user).
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"uniqueIndex:idx_favorites_post_user;not null" json:"post_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorites_post_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
