package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/service"
	"github.com/pawfinder/pawfinder-api/internal/utils"
)

// CommentHandler provides HTTP endpoints for post comments.
type CommentHandler struct {
	service   service.CommentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCommentHandler constructs a comment handler instance.
func NewCommentHandler(service service.CommentService, validator *validator.Validate, logger zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "comment_handler").Logger(),
	}
}

// RegisterPublic binds the unauthenticated comment routes.
func (h *CommentHandler) RegisterPublic(router fiber.Router) {
	router.Get("/posts/:id/comments", h.listByPost)
}

// RegisterProtected binds the authenticated comment routes.
func (h *CommentHandler) RegisterProtected(router fiber.Router) {
	router.Post("/posts/:id/comments", h.create)
	router.Delete("/comments/:id", h.delete)
}

func (h *CommentHandler) listByPost(c *fiber.Ctx) error {
	postID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	comments, err := h.service.ListByPost(withRequestContext(c), postID)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "comments", comments)
}

func (h *CommentHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	postID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	comment, err := h.service.Create(withRequestContext(c), postID, userID, payload)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment created", comment)
}

func (h *CommentHandler) delete(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(withRequestContext(c), id, userID); err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "comment deleted", nil)
}
