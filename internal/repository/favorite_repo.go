package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

// FavoriteRepository persists per-user post bookmarks.
type FavoriteRepository interface {
	// Toggle flips the favorite state for (postID, userID) and reports
	// whether the post is favorited afterwards.
	Toggle(ctx context.Context, postID, userID uint) (bool, error)
	ListPostsForUser(ctx context.Context, userID uint) ([]models.Post, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository constructs a GORM-backed favorite repository.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Toggle(ctx context.Context, postID, userID uint) (bool, error) {
	favorited := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Favorite
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		if err == nil {
			return tx.Delete(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		favorited = true
		return tx.Create(&models.Favorite{PostID: postID, UserID: userID}).Error
	})
	if err != nil {
		return false, err
	}

	return favorited, nil
}

func (r *favoriteRepository) ListPostsForUser(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.post_id = posts.id").
		Where("favorites.user_id = ?", userID).
		Preload("Photos").
		Order("favorites.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}
