package dto

import (
	"time"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

// CommentCreateRequest creates a comment on a post.
type CommentCreateRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

// CommentResponse describes a serialized comment.
type CommentResponse struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCommentResponse converts a comment model to a DTO.
func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

// NewCommentResponseSlice converts comments to DTOs.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, NewCommentResponse(comment))
	}
	return out
}

// FavoriteToggleResponse reports the state after toggling a favorite.
type FavoriteToggleResponse struct {
	PostID    uint `json:"post_id"`
	Favorited bool `json:"favorited"`
}
