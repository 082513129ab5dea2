package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

func setupPostTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return setupTestDB(t, &models.Post{}, &models.PostPhoto{}, &models.Comment{}, &models.Favorite{})
}

func TestPostRepositoryListFiltersStatusAndSpecies(t *testing.T) {
	db := setupPostTestDB(t)
	repo := NewPostRepository(db)

	lostDog := models.Post{AuthorID: 10, Title: "Lost beagle", Species: "dog", Status: models.PostStatusLost}
	foundCat := models.Post{AuthorID: 11, Title: "Found tabby", Species: "cat", Status: models.PostStatusFound}
	resolved := models.Post{AuthorID: 12, Title: "Home again", Species: "dog", Status: models.PostStatusResolved}
	require.NoError(t, repo.Create(context.Background(), &lostDog))
	require.NoError(t, repo.Create(context.Background(), &foundCat))
	require.NoError(t, repo.Create(context.Background(), &resolved))

	lost, total, err := repo.List(context.Background(), PostFilter{Status: models.PostStatusLost})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, lost, 1)
	require.Equal(t, "Lost beagle", lost[0].Title)

	dogs, total, err := repo.List(context.Background(), PostFilter{Species: "dog"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, dogs, 2)
}

func TestPostRepositoryListAppliesBoundingBox(t *testing.T) {
	db := setupPostTestDB(t)
	repo := NewPostRepository(db)

	inside := models.Post{AuthorID: 10, Title: "Near the park", Status: models.PostStatusLost, Latitude: 52.52, Longitude: 13.40}
	outside := models.Post{AuthorID: 11, Title: "Another city", Status: models.PostStatusLost, Latitude: 48.13, Longitude: 11.58}
	require.NoError(t, repo.Create(context.Background(), &inside))
	require.NoError(t, repo.Create(context.Background(), &outside))

	posts, total, err := repo.List(context.Background(), PostFilter{
		HasBounds: true,
		MinLat:    52.0, MaxLat: 53.0,
		MinLng: 13.0, MaxLng: 14.0,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	require.Equal(t, "Near the park", posts[0].Title)
}

func TestPostRepositoryListPaginates(t *testing.T) {
	db := setupPostTestDB(t)
	repo := NewPostRepository(db)

	for i := 0; i < 5; i++ {
		post := models.Post{AuthorID: 10, Title: "Posting", Status: models.PostStatusLost}
		require.NoError(t, repo.Create(context.Background(), &post))
	}

	page, total, err := repo.List(context.Background(), PostFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 1)
}

func TestPostRepositoryGetPreloadsPhotos(t *testing.T) {
	db := setupPostTestDB(t)
	repo := NewPostRepository(db)

	post := models.Post{AuthorID: 10, Title: "Lost beagle", Status: models.PostStatusLost}
	require.NoError(t, repo.Create(context.Background(), &post))
	require.NoError(t, repo.AddPhoto(context.Background(), &models.PostPhoto{PostID: post.ID, URL: "https://cdn.example.com/a.jpg"}))

	stored, err := repo.Get(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, stored.Photos, 1)
	require.Equal(t, "https://cdn.example.com/a.jpg", stored.Photos[0].URL)
}

func TestPostRepositoryDeleteCascades(t *testing.T) {
	db := setupPostTestDB(t)
	repo := NewPostRepository(db)

	post := models.Post{AuthorID: 10, Title: "Lost beagle", Status: models.PostStatusLost}
	require.NoError(t, repo.Create(context.Background(), &post))
	require.NoError(t, db.Create(&models.PostPhoto{PostID: post.ID, URL: "https://cdn.example.com/a.jpg"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: 20, Text: "seen him"}).Error)
	require.NoError(t, db.Create(&models.Favorite{PostID: post.ID, UserID: 20}).Error)

	require.NoError(t, repo.Delete(context.Background(), post.ID))

	for _, entity := range []interface{}{&models.PostPhoto{}, &models.Comment{}, &models.Favorite{}} {
		var count int64
		require.NoError(t, db.Model(entity).Where("post_id = ?", post.ID).Count(&count).Error)
		require.Zero(t, count)
	}

	err := repo.Delete(context.Background(), post.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFavoriteRepositoryToggleAndList(t *testing.T) {
	db := setupPostTestDB(t)
	posts := NewPostRepository(db)
	repo := NewFavoriteRepository(db)

	post := models.Post{AuthorID: 10, Title: "Lost beagle", Status: models.PostStatusLost}
	require.NoError(t, posts.Create(context.Background(), &post))

	favorited, err := repo.Toggle(context.Background(), post.ID, 20)
	require.NoError(t, err)
	require.True(t, favorited)

	listed, err := repo.ListPostsForUser(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, post.ID, listed[0].ID)

	favorited, err = repo.Toggle(context.Background(), post.ID, 20)
	require.NoError(t, err)
	require.False(t, favorited)

	empty, err := repo.ListPostsForUser(context.Background(), 20)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestCommentRepositoryListByPostOrdersOldestFirst(t *testing.T) {
	db := setupPostTestDB(t)
	repo := NewCommentRepository(db)

	first := models.Comment{PostID: 1, AuthorID: 10, Text: "first"}
	second := models.Comment{PostID: 1, AuthorID: 20, Text: "second"}
	other := models.Comment{PostID: 2, AuthorID: 10, Text: "elsewhere"}
	require.NoError(t, repo.Create(context.Background(), &first))
	require.NoError(t, repo.Create(context.Background(), &second))
	require.NoError(t, repo.Create(context.Background(), &other))

	comments, err := repo.ListByPost(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "first", comments[0].Text)
	require.Equal(t, "second", comments[1].Text)

	require.NoError(t, repo.Delete(context.Background(), first.ID))
	err = repo.Delete(context.Background(), first.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
