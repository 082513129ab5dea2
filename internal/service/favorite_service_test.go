package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/models"
)

type stubFavoriteRepo struct {
	posts     *stubPostRepo
	favorites map[[2]uint]bool
}

func newStubFavoriteRepo(posts *stubPostRepo) *stubFavoriteRepo {
	return &stubFavoriteRepo{posts: posts, favorites: make(map[[2]uint]bool)}
}

func (s *stubFavoriteRepo) Toggle(ctx context.Context, postID, userID uint) (bool, error) {
	key := [2]uint{postID, userID}
	if s.favorites[key] {
		delete(s.favorites, key)
		return false, nil
	}
	s.favorites[key] = true
	return true, nil
}

func (s *stubFavoriteRepo) ListPostsForUser(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	for key := range s.favorites {
		if key[1] != userID {
			continue
		}
		if post, ok := s.posts.posts[key[0]]; ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func TestFavoriteServiceToggleFlipsState(t *testing.T) {
	posts := newStubPostRepo(models.Post{ID: 1, AuthorID: 10, Title: "Missing beagle"})
	repo := newStubFavoriteRepo(posts)
	svc := NewFavoriteService(repo, posts, zerolog.Nop())

	on, err := svc.Toggle(context.Background(), 1, 20)
	require.NoError(t, err)
	require.True(t, on.Favorited)

	listed, err := svc.ListForUser(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "Missing beagle", listed[0].Title)

	off, err := svc.Toggle(context.Background(), 1, 20)
	require.NoError(t, err)
	require.False(t, off.Favorited)

	empty, err := svc.ListForUser(context.Background(), 20)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestFavoriteServiceToggleMissingPost(t *testing.T) {
	posts := newStubPostRepo()
	svc := NewFavoriteService(newStubFavoriteRepo(posts), posts, zerolog.Nop())

	_, err := svc.Toggle(context.Background(), 42, 20)
	require.True(t, apperr.Is(err, apperr.CodePostNotFound))
}
