package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/models"
	"github.com/pawfinder/pawfinder-api/internal/observability"
	"github.com/pawfinder/pawfinder-api/internal/repository"
)

// kmPerDegreeLat approximates one degree of latitude in kilometres.
const kmPerDegreeLat = 111.0

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// FileStorage abstracts the photo storage backend.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Destroy(ctx context.Context, url string) error
}

// PostService exposes the lost/found posting use-cases.
type PostService interface {
	Create(ctx context.Context, authorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error)
	Get(ctx context.Context, id uint) (dto.PostResponse, error)
	Feed(ctx context.Context, query dto.PostFeedQuery) ([]dto.PostResponse, int64, error)
	Update(ctx context.Context, id, authorID uint, payload dto.PostUpdateRequest) (dto.PostResponse, error)
	Delete(ctx context.Context, id, authorID uint) error
	UploadPhoto(ctx context.Context, postID, authorID uint, file *multipart.FileHeader) (dto.PostPhotoResponse, error)
}

type postService struct {
	repo      repository.PostRepository
	storage   FileStorage
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	maxPhoto  int64
}

// NewPostService constructs a post service.
func NewPostService(repo repository.PostRepository, storage FileStorage, validate *validator.Validate, maxPhotoMB int, logger zerolog.Logger) PostService {
	if maxPhotoMB <= 0 {
		maxPhotoMB = 10
	}
	return &postService{
		repo:      repo,
		storage:   storage,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "post_service").Logger(),
		tracer:    otel.Tracer("github.com/pawfinder/pawfinder-api/internal/service/post"),
		maxPhoto:  int64(maxPhotoMB) * 1024 * 1024,
	}
}

func (s *postService) Create(ctx context.Context, authorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, apperr.InvalidInput("%s", err.Error())
	}

	title := sanitizePlain(s.sanitizer, payload.Title)
	if title == "" {
		return dto.PostResponse{}, apperr.InvalidInput("post title must not be empty")
	}

	post := models.Post{
		AuthorID:    authorID,
		Title:       title,
		Description: sanitizePlain(s.sanitizer, payload.Description),
		Species:     strings.ToLower(strings.TrimSpace(payload.Species)),
		Status:      payload.Status,
		Address:     strings.TrimSpace(payload.Address),
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
	}

	if err := s.repo.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	s.logger.Info().Uint("post_id", post.ID).Uint("author_id", authorID).Str("status", post.Status).Msg("post created")

	return dto.NewPostResponse(post), nil
}

func (s *postService) Get(ctx context.Context, id uint) (dto.PostResponse, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, apperr.PostNotFound(id)
		}
		return dto.PostResponse{}, err
	}
	return dto.NewPostResponse(post), nil
}

func (s *postService) Feed(ctx context.Context, query dto.PostFeedQuery) ([]dto.PostResponse, int64, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, apperr.InvalidInput("%s", err.Error())
	}

	filter := repository.PostFilter{
		Status:  query.Status,
		Species: strings.ToLower(strings.TrimSpace(query.Species)),
		Limit:   query.Limit,
		Offset:  query.Offset,
	}

	if query.Latitude != nil && query.Longitude != nil && query.RadiusKm > 0 {
		lat := *query.Latitude
		lng := *query.Longitude
		deltaLat := query.RadiusKm / kmPerDegreeLat
		deltaLng := query.RadiusKm / (kmPerDegreeLat * math.Max(math.Cos(lat*math.Pi/180), 0.01))

		filter.HasBounds = true
		filter.MinLat = lat - deltaLat
		filter.MaxLat = lat + deltaLat
		filter.MinLng = lng - deltaLng
		filter.MaxLng = lng + deltaLng
	}

	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewPostResponseSlice(posts), total, nil
}

func (s *postService) Update(ctx context.Context, id, authorID uint, payload dto.PostUpdateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, apperr.InvalidInput("%s", err.Error())
	}

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, apperr.PostNotFound(id)
		}
		return dto.PostResponse{}, err
	}

	if post.AuthorID != authorID {
		return dto.PostResponse{}, apperr.NoPermission("only the author may update a post")
	}

	if payload.Title != nil {
		title := sanitizePlain(s.sanitizer, *payload.Title)
		if title == "" {
			return dto.PostResponse{}, apperr.InvalidInput("post title must not be empty")
		}
		post.Title = title
	}
	if payload.Description != nil {
		post.Description = sanitizePlain(s.sanitizer, *payload.Description)
	}
	if payload.Species != nil {
		post.Species = strings.ToLower(strings.TrimSpace(*payload.Species))
	}
	if payload.Status != nil {
		post.Status = *payload.Status
	}
	if payload.Address != nil {
		post.Address = strings.TrimSpace(*payload.Address)
	}
	if payload.Latitude != nil {
		post.Latitude = *payload.Latitude
	}
	if payload.Longitude != nil {
		post.Longitude = *payload.Longitude
	}

	if err := s.repo.Update(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	return dto.NewPostResponse(post), nil
}

func (s *postService) Delete(ctx context.Context, id, authorID uint) error {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.PostNotFound(id)
		}
		return err
	}

	if post.AuthorID != authorID {
		return apperr.NoPermission("only the author may delete a post")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Remote photo cleanup is best effort; a storage failure must not
	// undo the completed delete.
	if s.storage != nil {
		for _, photo := range post.Photos {
			if err := s.storage.Destroy(ctx, photo.URL); err != nil {
				s.logger.Warn().Err(err).Str("url", photo.URL).Msg("failed to remove stored photo")
			}
		}
	}

	return nil
}

func (s *postService) UploadPhoto(ctx context.Context, postID, authorID uint, file *multipart.FileHeader) (dto.PostPhotoResponse, error) {
	ctx, span := s.tracer.Start(ctx, "post.photo_upload", trace.WithAttributes(
		attribute.Int("post.id", int(postID)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		return dto.PostPhotoResponse{}, apperr.InvalidInput("photo file required")
	}
	if file.Size > s.maxPhoto {
		return dto.PostPhotoResponse{}, apperr.InvalidInput("photo exceeds maximum allowed size")
	}

	post, err := s.repo.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostPhotoResponse{}, apperr.PostNotFound(postID)
		}
		return dto.PostPhotoResponse{}, err
	}
	if post.AuthorID != authorID {
		return dto.PostPhotoResponse{}, apperr.NoPermission("only the author may attach photos")
	}

	source, err := file.Open()
	if err != nil {
		return dto.PostPhotoResponse{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer source.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(source, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return dto.PostPhotoResponse{}, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if _, ok := allowedPhotoTypes[detected.String()]; !ok {
		return dto.PostPhotoResponse{}, apperr.InvalidInput("unsupported photo type %s", detected.String())
	}

	reader := io.MultiReader(bytes.NewReader(head), source)

	url, err := s.storage.Upload(ctx, file.Filename, reader)
	if err != nil {
		span.RecordError(err)
		return dto.PostPhotoResponse{}, fmt.Errorf("failed to store photo: %w", err)
	}

	photo := models.PostPhoto{PostID: postID, URL: url}
	if err := s.repo.AddPhoto(ctx, &photo); err != nil {
		return dto.PostPhotoResponse{}, err
	}

	return dto.PostPhotoResponse{ID: photo.ID, URL: photo.URL, CreatedAt: photo.CreatedAt}, nil
}

// sanitizePlain strips markup and undoes the entity escaping the policy
// applies, leaving trimmed plain text.
func sanitizePlain(policy *bluemonday.Policy, text string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(text)))
}
