package dto

import (
	"time"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

// PostCreateRequest is the payload to publish a lost/found posting.
type PostCreateRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=255"`
	Description string  `json:"description" validate:"omitempty,max=5000"`
	Species     string  `json:"species" validate:"omitempty,max=64"`
	Status      string  `json:"status" validate:"required,oneof=lost found"`
	Address     string  `json:"address" validate:"omitempty,max=255"`
	Latitude    float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// PostUpdateRequest updates an existing posting. Nil fields are untouched.
type PostUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Species     *string  `json:"species" validate:"omitempty,max=64"`
	Status      *string  `json:"status" validate:"omitempty,oneof=lost found resolved"`
	Address     *string  `json:"address" validate:"omitempty,max=255"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// PostFeedQuery holds feed filters. The radius filter is a simple
// bounding box around (latitude, longitude) expressed in kilometres.
type PostFeedQuery struct {
	Status    string   `query:"status" validate:"omitempty,oneof=lost found resolved"`
	Species   string   `query:"species" validate:"omitempty,max=64"`
	Latitude  *float64 `query:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `query:"longitude" validate:"omitempty,min=-180,max=180"`
	RadiusKm  float64  `query:"radius_km" validate:"omitempty,min=0,max=500"`
	Limit     int      `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int      `query:"offset" validate:"omitempty,min=0"`
}

// PostPhotoResponse is the serialized representation of an attached photo.
type PostPhotoResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// PostResponse is the serialized representation of a posting.
type PostResponse struct {
	ID          uint                `json:"id"`
	AuthorID    uint                `json:"author_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Species     string              `json:"species"`
	Status      string              `json:"status"`
	Address     string              `json:"address"`
	Latitude    float64             `json:"latitude"`
	Longitude   float64             `json:"longitude"`
	Photos      []PostPhotoResponse `json:"photos"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewPostResponse converts a model into a DTO.
func NewPostResponse(post models.Post) PostResponse {
	photos := make([]PostPhotoResponse, 0, len(post.Photos))
	for _, photo := range post.Photos {
		photos = append(photos, PostPhotoResponse{ID: photo.ID, URL: photo.URL, CreatedAt: photo.CreatedAt})
	}
	return PostResponse{
		ID:          post.ID,
		AuthorID:    post.AuthorID,
		Title:       post.Title,
		Description: post.Description,
		Species:     post.Species,
		Status:      post.Status,
		Address:     post.Address,
		Latitude:    post.Latitude,
		Longitude:   post.Longitude,
		Photos:      photos,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
}

// NewPostResponseSlice converts a slice of models into DTOs.
func NewPostResponseSlice(posts []models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, NewPostResponse(post))
	}
	return out
}
