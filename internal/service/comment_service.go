package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/models"
	"github.com/pawfinder/pawfinder-api/internal/repository"
)

// CommentService exposes the comment use-cases.
type CommentService interface {
	ListByPost(ctx context.Context, postID uint) ([]dto.CommentResponse, error)
	Create(ctx context.Context, postID, authorID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	Delete(ctx context.Context, commentID, authorID uint) error
}

type commentService struct {
	repo      repository.CommentRepository
	posts     repository.PostRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCommentService constructs a comment service.
func NewCommentService(repo repository.CommentRepository, posts repository.PostRepository, validate *validator.Validate, logger zerolog.Logger) CommentService {
	return &commentService{
		repo:      repo,
		posts:     posts,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "comment_service").Logger(),
	}
}

func (s *commentService) ListByPost(ctx context.Context, postID uint) ([]dto.CommentResponse, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.PostNotFound(postID)
		}
		return nil, err
	}

	comments, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return dto.NewCommentResponseSlice(comments), nil
}

func (s *commentService) Create(ctx context.Context, postID, authorID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, apperr.InvalidInput("%s", err.Error())
	}

	text := sanitizePlain(s.sanitizer, payload.Text)
	if text == "" {
		return dto.CommentResponse{}, apperr.InvalidInput("comment text must not be empty")
	}

	if _, err := s.posts.Get(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CommentResponse{}, apperr.PostNotFound(postID)
		}
		return dto.CommentResponse{}, err
	}

	comment := models.Comment{PostID: postID, AuthorID: authorID, Text: text}
	if err := s.repo.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) Delete(ctx context.Context, commentID, authorID uint) error {
	comment, err := s.repo.Get(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("comment %d not found", commentID)
		}
		return err
	}

	if comment.AuthorID != authorID {
		return apperr.NoPermission("only the author may delete a comment")
	}

	return s.repo.Delete(ctx, commentID)
}
