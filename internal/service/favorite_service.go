package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/repository"
)

// FavoriteService toggles and lists per-user post bookmarks.
type FavoriteService interface {
	Toggle(ctx context.Context, postID, userID uint) (dto.FavoriteToggleResponse, error)
	ListForUser(ctx context.Context, userID uint) ([]dto.PostResponse, error)
}

type favoriteService struct {
	repo   repository.FavoriteRepository
	posts  repository.PostRepository
	logger zerolog.Logger
}

// NewFavoriteService constructs a favorite service.
func NewFavoriteService(repo repository.FavoriteRepository, posts repository.PostRepository, logger zerolog.Logger) FavoriteService {
	return &favoriteService{
		repo:   repo,
		posts:  posts,
		logger: logger.With().Str("component", "favorite_service").Logger(),
	}
}

func (s *favoriteService) Toggle(ctx context.Context, postID, userID uint) (dto.FavoriteToggleResponse, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FavoriteToggleResponse{}, apperr.PostNotFound(postID)
		}
		return dto.FavoriteToggleResponse{}, err
	}

	favorited, err := s.repo.Toggle(ctx, postID, userID)
	if err != nil {
		return dto.FavoriteToggleResponse{}, err
	}

	return dto.FavoriteToggleResponse{PostID: postID, Favorited: favorited}, nil
}

func (s *favoriteService) ListForUser(ctx context.Context, userID uint) ([]dto.PostResponse, error) {
	posts, err := s.repo.ListPostsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponseSlice(posts), nil
}
