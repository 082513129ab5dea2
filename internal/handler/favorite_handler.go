package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawfinder/pawfinder-api/internal/service"
	"github.com/pawfinder/pawfinder-api/internal/utils"
)

// FavoriteHandler provides HTTP endpoints for post bookmarks.
type FavoriteHandler struct {
	service service.FavoriteService
	logger  zerolog.Logger
}

// NewFavoriteHandler constructs a favorite handler instance.
func NewFavoriteHandler(service service.FavoriteService, logger zerolog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		service: service,
		logger:  logger.With().Str("component", "favorite_handler").Logger(),
	}
}

// Register binds the favorite routes. All require authentication.
func (h *FavoriteHandler) Register(router fiber.Router) {
	router.Post("/posts/:id/favorite", h.toggle)
	router.Get("/favorites", h.list)
}

func (h *FavoriteHandler) toggle(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	postID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Toggle(withRequestContext(c), postID, userID)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "favorite toggled", result)
}

func (h *FavoriteHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	posts, err := h.service.ListForUser(withRequestContext(c), userID)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "favorites", posts)
}
