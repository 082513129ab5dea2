package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/handler"
)

type mockChatService struct {
	chat     dto.ChatResponse
	message  dto.MessageResponse
	messages []dto.MessageResponse
	err      error

	lastSenderID uint
	lastChatID   uint
	lastText     string
}

func (m *mockChatService) GetOrCreateChat(_ context.Context, requesterID, postID uint) (dto.ChatResponse, error) {
	if m.err != nil {
		return dto.ChatResponse{}, m.err
	}
	return m.chat, nil
}

func (m *mockChatService) ListChats(_ context.Context, userID uint) ([]dto.ChatSummary, error) {
	return nil, m.err
}

func (m *mockChatService) SendMessage(_ context.Context, senderID, chatID uint, text string) (dto.MessageResponse, error) {
	m.lastSenderID = senderID
	m.lastChatID = chatID
	m.lastText = text
	if m.err != nil {
		return dto.MessageResponse{}, m.err
	}
	return m.message, nil
}

func (m *mockChatService) GetMessages(_ context.Context, chatID, requesterID uint) ([]dto.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.messages, nil
}

func (m *mockChatService) MarkRead(_ context.Context, chatID, userID uint) error {
	return m.err
}

func (m *mockChatService) DeleteChatForUser(_ context.Context, userID, chatID uint) error {
	return m.err
}

func (m *mockChatService) DeleteMessage(_ context.Context, userID, messageID uint) error {
	return m.err
}

func (m *mockChatService) EditMessage(_ context.Context, userID, messageID uint, text string) (dto.MessageResponse, error) {
	if m.err != nil {
		return dto.MessageResponse{}, m.err
	}
	return m.message, nil
}

func (m *mockChatService) IsParticipant(_ context.Context, chatID, userID uint) (bool, error) {
	return true, nil
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) apiEnvelope {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func newChatTestApp(svc *mockChatService, userID uint) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
		}
		return c.Next()
	})
	validate := validator.New(validator.WithRequiredStructEnabled())
	handler.NewChatHandler(svc, nil, validate, zerolog.Nop()).Register(group, nil)
	return app
}

func TestChatHandler_GetOrCreateChat(t *testing.T) {
	svc := &mockChatService{chat: dto.ChatResponse{ID: 3, PostID: 1, User1ID: 10, User2ID: 20}}
	app := newChatTestApp(svc, 20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/1/chat", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.True(t, envelope.Success)

	var chat dto.ChatResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &chat))
	require.Equal(t, uint(3), chat.ID)
}

func TestChatHandler_GetOrCreateChatMissingPost(t *testing.T) {
	svc := &mockChatService{err: apperr.PostNotFound(9)}
	app := newChatTestApp(svc, 20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/9/chat", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.False(t, envelope.Success)
	require.Equal(t, string(apperr.CodePostNotFound), envelope.Code)
}

func TestChatHandler_SendMessage(t *testing.T) {
	svc := &mockChatService{message: dto.MessageResponse{ID: 7, ChatID: 5, SenderID: 20, Text: "hello"}}
	app := newChatTestApp(svc, 20)

	body, err := json.Marshal(dto.MessageSendRequest{Text: "hello"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/5/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, uint(20), svc.lastSenderID)
	require.Equal(t, uint(5), svc.lastChatID)
	require.Equal(t, "hello", svc.lastText)
}

func TestChatHandler_SendMessageForbidden(t *testing.T) {
	svc := &mockChatService{err: apperr.NoPermission("user 20 is not a participant of chat 5")}
	app := newChatTestApp(svc, 20)

	body, err := json.Marshal(dto.MessageSendRequest{Text: "hello"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/5/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.Equal(t, string(apperr.CodeNoPermission), envelope.Code)
}

func TestChatHandler_DeleteMessageNotFound(t *testing.T) {
	svc := &mockChatService{err: apperr.NotFound("message 99 not found")}
	app := newChatTestApp(svc, 20)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/messages/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.Equal(t, string(apperr.CodeNotFound), envelope.Code)
}

func TestChatHandler_RequiresAuthentication(t *testing.T) {
	app := newChatTestApp(&mockChatService{}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestChatHandler_InvalidChatIDParam(t *testing.T) {
	app := newChatTestApp(&mockChatService{}, 20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/abc/messages", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
