package service

import (
	"context"
	"errors"
	"strings"
	"time"

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

const maxMessageLength = 1000

// ChatService implements the per-post two-party chat rules shared by the
// REST surface and the realtime hub.
type ChatService interface {
	GetOrCreateChat(ctx context.Context, requesterID, postID uint) (dto.ChatResponse, error)
	ListChats(ctx context.Context, userID uint) ([]dto.ChatSummary, error)
	SendMessage(ctx context.Context, senderID, chatID uint, text string) (dto.MessageResponse, error)
	GetMessages(ctx context.Context, chatID, requesterID uint) ([]dto.MessageResponse, error)
	MarkRead(ctx context.Context, chatID, userID uint) error
	DeleteChatForUser(ctx context.Context, userID, chatID uint) error
	DeleteMessage(ctx context.Context, userID, messageID uint) error
	EditMessage(ctx context.Context, userID, messageID uint, text string) (dto.MessageResponse, error)
	IsParticipant(ctx context.Context, chatID, userID uint) (bool, error)
}

type chatService struct {
	repo      repository.ChatRepository
	posts     repository.PostRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewChatService constructs the chat service.
func NewChatService(repo repository.ChatRepository, posts repository.PostRepository, validate *validator.Validate, logger zerolog.Logger) ChatService {
	return &chatService{
		repo:      repo,
		posts:     posts,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "chat_service").Logger(),
		tracer:    otel.Tracer("github.com/pawfinder/pawfinder-api/internal/service/chat"),
		now:       time.Now,
	}
}

func (s *chatService) GetOrCreateChat(ctx context.Context, requesterID, postID uint) (dto.ChatResponse, error) {
	if requesterID == 0 || postID == 0 {
		return dto.ChatResponse{}, apperr.InvalidInput("post id and user id must be positive")
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChatResponse{}, apperr.PostNotFound(postID)
		}
		return dto.ChatResponse{}, err
	}

	if post.AuthorID == requesterID {
		return dto.ChatResponse{}, apperr.InvalidInput("cannot open a chat with yourself")
	}

	chat, err := s.repo.FindChatByPostAndUsers(ctx, postID, post.AuthorID, requesterID)
	if err == nil {
		return dto.NewChatResponse(chat), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ChatResponse{}, err
	}

	chat = models.Chat{PostID: postID, User1ID: post.AuthorID, User2ID: requesterID}
	if err := s.repo.CreateChat(ctx, &chat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race; the winning row is the chat we want.
			existing, lookupErr := s.repo.FindChatByPostAndUsers(ctx, postID, post.AuthorID, requesterID)
			if lookupErr != nil {
				return dto.ChatResponse{}, lookupErr
			}
			return dto.NewChatResponse(existing), nil
		}
		return dto.ChatResponse{}, err
	}

	s.logger.Info().Uint("chat_id", chat.ID).Uint("post_id", postID).Msg("chat created")

	return dto.NewChatResponse(chat), nil
}

func (s *chatService) ListChats(ctx context.Context, userID uint) ([]dto.ChatSummary, error) {
	chats, err := s.repo.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := dto.ChatSummary{
			ID:           chat.ID,
			PostID:       chat.PostID,
			OtherUserID:  otherParticipant(chat, userID),
			CreatedAt:    chat.CreatedAt,
			LastActivity: chat.CreatedAt,
		}

		post, err := s.posts.Get(ctx, chat.PostID)
		if err == nil {
			summary.PostStatus = post.Status
			summary.PostAddress = post.Address
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		last, err := s.repo.LatestMessage(ctx, chat.ID)
		if err == nil {
			summary.LastMessage = last.Text
			summary.LastActivity = last.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *chatService) SendMessage(ctx context.Context, senderID, chatID uint, text string) (dto.MessageResponse, error) {
	clean, err := s.cleanText(text)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	if err := s.requireParticipant(ctx, chatID, senderID); err != nil {
		return dto.MessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.Int("chat.id", int(chatID)),
		attribute.Int("chat.sender_id", int(senderID)),
	))
	defer span.End()

	message := models.Message{ChatID: chatID, SenderID: senderID, Text: clean}
	if err := s.repo.CreateMessage(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	observability.ChatMessagesSent().WithLabelValues("sent").Inc()

	return dto.NewMessageResponse(message), nil
}

func (s *chatService) GetMessages(ctx context.Context, chatID, requesterID uint) ([]dto.MessageResponse, error) {
	if err := s.requireParticipant(ctx, chatID, requesterID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

func (s *chatService) MarkRead(ctx context.Context, chatID, userID uint) error {
	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return err
	}
	return s.repo.MarkMessagesRead(ctx, chatID, userID)
}

func (s *chatService) DeleteChatForUser(ctx context.Context, userID, chatID uint) error {
	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return err
	}
	return s.repo.SetMemberDeleted(ctx, chatID, userID, true)
}

func (s *chatService) DeleteMessage(ctx context.Context, userID, messageID uint) error {
	message, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("message %d not found", messageID)
		}
		return err
	}

	if message.SenderID != userID {
		return apperr.NoPermission("only the sender may delete a message")
	}

	chatDeleted, err := s.repo.DeleteMessageWithCleanup(ctx, messageID)
	if err != nil {
		return err
	}
	if chatDeleted {
		s.logger.Info().Uint("chat_id", message.ChatID).Msg("chat removed with its last message")
	}

	return nil
}

func (s *chatService) EditMessage(ctx context.Context, userID, messageID uint, text string) (dto.MessageResponse, error) {
	clean, err := s.cleanText(text)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	message, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MessageResponse{}, apperr.NotFound("message %d not found", messageID)
		}
		return dto.MessageResponse{}, err
	}

	if message.SenderID != userID {
		return dto.MessageResponse{}, apperr.NoPermission("only the sender may edit a message")
	}

	editedAt := s.now()
	message.Text = clean
	message.EditedAt = &editedAt

	if err := s.repo.UpdateMessage(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	return dto.NewMessageResponse(message), nil
}

func (s *chatService) IsParticipant(ctx context.Context, chatID, userID uint) (bool, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return chat.User1ID == userID || chat.User2ID == userID, nil
}

// requireParticipant resolves the chat and verifies membership. A missing
// chat and a non-participant caller produce the same permission error so
// chat ids cannot be probed.
func (s *chatService) requireParticipant(ctx context.Context, chatID, userID uint) error {
	ok, err := s.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NoPermission("user %d is not a participant of chat %d", userID, chatID)
	}
	return nil
}

// cleanText strips markup and enforces the length bound. The bound applies
// to the raw trimmed text, and sanitizer entity escaping is undone so the
// stored text stays plain.
func (s *chatService) cleanText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) > maxMessageLength {
		return "", apperr.InvalidInput("message text exceeds %d characters", maxMessageLength)
	}

	clean := sanitizePlain(s.sanitizer, trimmed)
	if clean == "" {
		return "", apperr.InvalidInput("message text must not be empty")
	}
	return clean, nil
}

func otherParticipant(chat models.Chat, userID uint) uint {
	if chat.User1ID == userID {
		return chat.User2ID
	}
	return chat.User1ID
}
