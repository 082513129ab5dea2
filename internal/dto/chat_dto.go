package dto

import (
	"time"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

// MessageSendRequest is the payload to send a message over REST.
type MessageSendRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// MessageEditRequest updates the text of an existing message.
type MessageEditRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// MessageResponse is the serialized representation of a chat message.
type MessageResponse struct {
	ID        uint       `json:"id"`
	ChatID    uint       `json:"chat_id"`
	SenderID  uint       `json:"sender_id"`
	Text      string     `json:"text"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// ChatResponse describes a chat row returned after get-or-create.
type ChatResponse struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	User1ID   uint      `json:"user1_id"`
	User2ID   uint      `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is one entry in a user's chat list, joined with post
// context and the counterpart's id.
type ChatSummary struct {
	ID           uint      `json:"id"`
	PostID       uint      `json:"post_id"`
	PostStatus   string    `json:"post_status"`
	PostAddress  string    `json:"post_address"`
	OtherUserID  uint      `json:"other_user_id"`
	LastMessage  string    `json:"last_message,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:        message.ID,
		ChatID:    message.ChatID,
		SenderID:  message.SenderID,
		Text:      message.Text,
		Read:      message.Read,
		CreatedAt: message.CreatedAt,
		EditedAt:  message.EditedAt,
	}
}

// NewMessageResponseSlice converts a slice of messages into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// NewChatResponse converts a chat model into a DTO.
func NewChatResponse(chat models.Chat) ChatResponse {
	return ChatResponse{
		ID:        chat.ID,
		PostID:    chat.PostID,
		User1ID:   chat.User1ID,
		User2ID:   chat.User2ID,
		CreatedAt: chat.CreatedAt,
	}
}
