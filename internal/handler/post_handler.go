package handler

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pawfinder/pawfinder-api/internal/dto"
	"github.com/pawfinder/pawfinder-api/internal/service"
	"github.com/pawfinder/pawfinder-api/internal/utils"
)

// PostHandler provides HTTP endpoints for lost/found postings.
type PostHandler struct {
	service   service.PostService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPostHandler constructs a post handler instance.
func NewPostHandler(service service.PostService, validator *validator.Validate, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "post_handler").Logger(),
	}
}

// RegisterPublic binds the unauthenticated feed routes.
func (h *PostHandler) RegisterPublic(router fiber.Router) {
	router.Get("/posts", h.feed)
	router.Get("/posts/:id", h.get)
}

// RegisterProtected binds the authenticated mutation routes. The limiter
// throttles photo uploads per user.
func (h *PostHandler) RegisterProtected(router fiber.Router, uploadLimiter fiber.Handler) {
	if uploadLimiter == nil {
		uploadLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("/posts", h.create)
	router.Put("/posts/:id", h.update)
	router.Delete("/posts/:id", h.delete)
	router.Post("/posts/:id/photos", uploadLimiter, h.uploadPhoto)
}

func (h *PostHandler) feed(c *fiber.Ctx) error {
	query := dto.PostFeedQuery{
		Status:   strings.TrimSpace(c.Query("status")),
		Species:  strings.TrimSpace(c.Query("species")),
		RadiusKm: 0,
	}

	if raw := c.Query("latitude"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid latitude")
		}
		query.Latitude = &parsed
	}
	if raw := c.Query("longitude"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid longitude")
		}
		query.Longitude = &parsed
	}
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid radius_km")
		}
		query.RadiusKm = parsed
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		query.Limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
		}
		query.Offset = parsed
	}

	posts, total, err := h.service.Feed(withRequestContext(c), query)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "feed", fiber.Map{"posts": posts, "total": total})
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	post, err := h.service.Get(withRequestContext(c), id)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "post", post)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.service.Create(withRequestContext(c), userID, payload)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PostUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.service.Update(withRequestContext(c), id, userID, payload)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccess(c, "post updated", post)
}

func (h *PostHandler) delete(c *fiber.Ctx) error {
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

	return utils.SendSuccess(c, "post deleted", nil)
}

func (h *PostHandler) uploadPhoto(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "photo file required")
	}

	photo, err := h.service.UploadPhoto(withRequestContext(c), id, userID, file)
	if err != nil {
		return sendDomainError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "photo uploaded", photo)
}
