package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

// ChatRepository persists chats, per-member visibility rows, and messages.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id uint) (models.Chat, error)
	FindChatByPostAndUsers(ctx context.Context, postID, userA, userB uint) (models.Chat, error)
	ListChatsForUser(ctx context.Context, userID uint) ([]models.Chat, error)

	EnsureMember(ctx context.Context, chatID, userID uint) error
	SetMemberDeleted(ctx context.Context, chatID, userID uint, deleted bool) error

	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id uint) (models.Message, error)
	ListMessages(ctx context.Context, chatID uint) ([]models.Message, error)
	LatestMessage(ctx context.Context, chatID uint) (models.Message, error)
	UpdateMessage(ctx context.Context, message *models.Message) error
	MarkMessagesRead(ctx context.Context, chatID, readerID uint) error

	// DeleteMessageWithCleanup removes the message and, inside the same
	// transaction, hard-deletes the chat and its member rows when no
	// messages remain. Returns whether the chat was removed.
	DeleteMessageWithCleanup(ctx context.Context, messageID uint) (chatDeleted bool, err error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}

		members := []models.ChatMember{
			{ChatID: chat.ID, UserID: chat.User1ID},
			{ChatID: chat.ID, UserID: chat.User2ID},
		}
		return tx.Create(&members).Error
	})
}

func (r *chatRepository) GetChat(ctx context.Context, id uint) (models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, id).Error; err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (r *chatRepository) FindChatByPostAndUsers(ctx context.Context, postID, userA, userB uint) (models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND ((user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?))",
			postID, userA, userB, userB, userA).
		First(&chat).Error
	if err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (r *chatRepository) ListChatsForUser(ctx context.Context, userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_members ON chat_members.chat_id = chats.id").
		Where("chat_members.user_id = ? AND chat_members.deleted = ?", userID, false).
		Order("chats.created_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) EnsureMember(ctx context.Context, chatID, userID uint) error {
	var member models.ChatMember
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&member).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Backfill for chats created before member rows existed.
	return r.db.WithContext(ctx).Create(&models.ChatMember{ChatID: chatID, UserID: userID}).Error
}

func (r *chatRepository) SetMemberDeleted(ctx context.Context, chatID, userID uint, deleted bool) error {
	if err := r.EnsureMember(ctx, chatID, userID); err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("deleted", deleted).Error
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) LatestMessage(ctx context.Context, chatID uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *chatRepository) UpdateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Save(message).Error
}

func (r *chatRepository) MarkMessagesRead(ctx context.Context, chatID, readerID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND read = ?", chatID, readerID, false).
		Update("read", true).Error
}

func (r *chatRepository) DeleteMessageWithCleanup(ctx context.Context, messageID uint) (bool, error) {
	chatDeleted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.Message
		if err := tx.First(&message, messageID).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Message{}, messageID).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.Message{}).Where("chat_id = ?", message.ChatID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		if err := tx.Where("chat_id = ?", message.ChatID).Delete(&models.ChatMember{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Chat{}, message.ChatID).Error; err != nil {
			return err
		}

		chatDeleted = true
		return nil
	})

	return chatDeleted, err
}
