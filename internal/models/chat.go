package models

import "time"

// Chat is a two-party conversation scoped to one post. At most one chat
// exists per (post, participant pair); the unique index backs the
// get-or-create race resolution in the chat service.
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"uniqueIndex:idx_chats_post_pair;not null" json:"post_id"`
	User1ID   uint      `gorm:"uniqueIndex:idx_chats_post_pair;not null" json:"user1_id"`
	User2ID   uint      `gorm:"uniqueIndex:idx_chats_post_pair;not null" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMember tracks per-participant chat visibility. A member who deletes
// the chat stops seeing it in their list; the counterpart is unaffected.
type ChatMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	ChatID  uint `gorm:"uniqueIndex:idx_chat_members_chat_user;not null" json:"chat_id"`
	UserID  uint `gorm:"uniqueIndex:idx_chat_members_chat_user;not null" json:"user_id"`
	Deleted bool `gorm:"not null;default:false" json:"deleted"`
}

// Message is a single chat message. EditedAt is set only after an edit.
type Message struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ChatID    uint       `gorm:"index;not null" json:"chat_id"`
	SenderID  uint       `gorm:"index;not null" json:"sender_id"`
	Text      string     `gorm:"type:text;not null" json:"text"`
	Read      bool       `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	EditedAt  *time.Time `json:"edited_at"`
}
