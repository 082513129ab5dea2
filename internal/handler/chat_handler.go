package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/middleware"
	"github.com/pawfinder/pawfinder-api/internal/service"
	"github.com/pawfinder/pawfinder-api/internal/utils"
)

// ChatHandler wires the chat REST endpoints and the websocket upgrade.
type ChatHandler struct {
	service   service.ChatService
	hub       *service.ChatHub
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, hub *service.ChatHub, validator *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		validator: validator,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds the chat routes under the provided (authenticated) group.
// The limiter throttles message sends per user.
func (h *ChatHandler) Register(router fiber.Router, messageLimiter fiber.Handler) {
	if messageLimiter == nil {
		messageLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("/posts/:postId/chat", h.getOrCreateChat)
	router.Get("/chats", h.listChats)
	router.Get("/chats/:chatId/messages", h.getMessages)
	router.Post("/chats/:chatId/messages", messageLimiter, h.sendMessage)
	router.Post("/chats/:chatId/read", h.markRead)
	router.Delete("/chats/:chatId", h.deleteChatForUser)
	router.Delete("/messages/:messageId", h.deleteMessage)
	router.Put("/messages/:messageId", h.editMessage)

	router.Use("/chats/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/chats/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) getOrCreateChat(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	postID, err := parseUintParam(c, "postId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	chat, err := h.service.GetOrCreateChat(withRequestContext(c), userID, postID)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "chat", chat)
}

func (h *ChatHandler) listChats(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	chats, err := h.service.ListChats(withRequestContext(c), userID)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "chats", chats)
}

func (h *ChatHandler) getMessages(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	chatID, err := parseUintParam(c, "chatId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, err := h.service.GetMessages(withRequestContext(c), chatID, userID)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "messages", messages)
}

func (h *ChatHandler) sendMessage(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	chatID, err := parseUintParam(c, "chatId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ctx := withRequestContext(c)

	message, err := h.service.SendMessage(ctx, userID, chatID, payload.Text)
	if err != nil {
		return sendDomainError(c, err)
	}

	if h.hub != nil {
		h.hub.Dispatch(ctx, chatID, message)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	chatID, err := parseUintParam(c, "chatId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.MarkRead(withRequestContext(c), chatID, userID); err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "messages marked read", nil)
}

func (h *ChatHandler) deleteChatForUser(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	chatID, err := parseUintParam(c, "chatId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteChatForUser(withRequestContext(c), userID, chatID); err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "chat hidden", nil)
}

func (h *ChatHandler) deleteMessage(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	messageID, err := parseUintParam(c, "messageId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteMessage(withRequestContext(c), userID, messageID); err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "message deleted", nil)
}

func (h *ChatHandler) editMessage(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	messageID, err := parseUintParam(c, "messageId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MessageEditRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	message, err := h.service.EditMessage(withRequestContext(c), userID, messageID, payload.Text)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	h.logger.Info().Uint("user_id", userID).Msg("chat websocket connected")
	h.hub.ServeConnection(conn, userID, baseCtx)
	h.logger.Info().Uint("user_id", userID).Msg("chat websocket disconnected")
}

func websocketUserID(conn *websocket.Conn) uint {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case uint:
			return v
		case int:
			if v < 0 {
				return 0
			}
			return uint(v)
		case float64:
			if v < 0 {
				return 0
			}
			return uint(v)
		}
	}
	return 0
}
