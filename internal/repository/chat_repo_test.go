package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/models"
)

func setupTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func setupChatTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return setupTestDB(t, &models.Chat{}, &models.ChatMember{}, &models.Message{})
}

func TestChatRepositoryCreateChatAddsMemberRows(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))
	require.NotZero(t, chat.ID)

	var members []models.ChatMember
	require.NoError(t, db.Where("chat_id = ?", chat.ID).Find(&members).Error)
	require.Len(t, members, 2)
}

func TestChatRepositoryDuplicatePairIsRejected(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	first := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &first))

	duplicate := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	err := repo.CreateChat(context.Background(), &duplicate)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestChatRepositoryFindChatMatchesEitherOrder(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))

	found, err := repo.FindChatByPostAndUsers(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	require.Equal(t, chat.ID, found.ID)

	reversed, err := repo.FindChatByPostAndUsers(context.Background(), 1, 20, 10)
	require.NoError(t, err)
	require.Equal(t, chat.ID, reversed.ID)

	_, err = repo.FindChatByPostAndUsers(context.Background(), 2, 10, 20)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChatRepositoryListChatsHonorsMemberDeletion(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))

	require.NoError(t, repo.SetMemberDeleted(context.Background(), chat.ID, 20, true))

	hidden, err := repo.ListChatsForUser(context.Background(), 20)
	require.NoError(t, err)
	require.Empty(t, hidden)

	visible, err := repo.ListChatsForUser(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestChatRepositoryListMessagesOrdersByCreationThenID(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))

	base := time.Now().Add(-time.Hour)
	older := models.Message{ChatID: chat.ID, SenderID: 10, Text: "older", CreatedAt: base}
	newer := models.Message{ChatID: chat.ID, SenderID: 20, Text: "newer", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&older).Error)

	messages, err := repo.ListMessages(context.Background(), chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "older", messages[0].Text)
	require.Equal(t, "newer", messages[1].Text)

	latest, err := repo.LatestMessage(context.Background(), chat.ID)
	require.NoError(t, err)
	require.Equal(t, "newer", latest.Text)
}

func TestChatRepositoryMarkMessagesReadSkipsOwnMessages(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))

	theirs := models.Message{ChatID: chat.ID, SenderID: 20, Text: "ping"}
	mine := models.Message{ChatID: chat.ID, SenderID: 10, Text: "pong"}
	require.NoError(t, repo.CreateMessage(context.Background(), &theirs))
	require.NoError(t, repo.CreateMessage(context.Background(), &mine))

	require.NoError(t, repo.MarkMessagesRead(context.Background(), chat.ID, 10))

	var stored models.Message
	require.NoError(t, db.First(&stored, theirs.ID).Error)
	require.True(t, stored.Read)
	stored = models.Message{}
	require.NoError(t, db.First(&stored, mine.ID).Error)
	require.False(t, stored.Read)
}

func TestChatRepositoryDeleteMessageKeepsChatWhileMessagesRemain(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))

	first := models.Message{ChatID: chat.ID, SenderID: 10, Text: "first"}
	second := models.Message{ChatID: chat.ID, SenderID: 20, Text: "second"}
	require.NoError(t, repo.CreateMessage(context.Background(), &first))
	require.NoError(t, repo.CreateMessage(context.Background(), &second))

	chatDeleted, err := repo.DeleteMessageWithCleanup(context.Background(), first.ID)
	require.NoError(t, err)
	require.False(t, chatDeleted)

	_, err = repo.GetChat(context.Background(), chat.ID)
	require.NoError(t, err)
}

func TestChatRepositoryDeleteLastMessageRemovesChatAndMembers(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, repo.CreateChat(context.Background(), &chat))

	only := models.Message{ChatID: chat.ID, SenderID: 10, Text: "only"}
	require.NoError(t, repo.CreateMessage(context.Background(), &only))

	chatDeleted, err := repo.DeleteMessageWithCleanup(context.Background(), only.ID)
	require.NoError(t, err)
	require.True(t, chatDeleted)

	_, err = repo.GetChat(context.Background(), chat.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var members int64
	require.NoError(t, db.Model(&models.ChatMember{}).Where("chat_id = ?", chat.ID).Count(&members).Error)
	require.Zero(t, members)
}

func TestChatRepositoryEnsureMemberBackfills(t *testing.T) {
	db := setupChatTestDB(t)
	repo := NewChatRepository(db)

	chat := models.Chat{PostID: 1, User1ID: 10, User2ID: 20}
	require.NoError(t, db.Create(&chat).Error)

	require.NoError(t, repo.EnsureMember(context.Background(), chat.ID, 10))
	require.NoError(t, repo.EnsureMember(context.Background(), chat.ID, 10))

	var members int64
	require.NoError(t, db.Model(&models.ChatMember{}).Where("chat_id = ?", chat.ID).Count(&members).Error)
	require.Equal(t, int64(1), members)
}
