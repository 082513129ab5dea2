package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

// PostFilter narrows the feed query. Zero values leave a dimension open.
type PostFilter struct {
	Status  string
	Species string
	// Bounding box; applied only when all four bounds are set.
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	HasBounds      bool
	Limit          int
	Offset         int
}

// PostRepository persists lost/found postings and their photos.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id uint) (models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	AddPhoto(ctx context.Context, photo *models.PostPhoto) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a GORM-backed post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) Get(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&post, id).Error
	if err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, int64, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Species != "" {
		query = query.Where("species = ?", filter.Species)
	}
	if filter.HasBounds {
		query = query.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			filter.MinLat, filter.MaxLat, filter.MinLng, filter.MaxLng)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query.
		Preload("Photos").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *postRepository) AddPhoto(ctx context.Context, photo *models.PostPhoto) error {
	return r.db.WithContext(ctx).Create(photo).Error
}
