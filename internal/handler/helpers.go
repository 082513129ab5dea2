package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pawfinder/pawfinder-api/internal/apperr"
	"github.com/pawfinder/pawfinder-api/internal/middleware"
	"github.com/pawfinder/pawfinder-api/internal/utils"
)

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		switch id := v.(type) {
		case uint:
			return id
		case int:
			if id < 0 {
				return 0
			}
			return uint(id)
		case float64:
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return 0, fmt.Errorf("%s required", key)
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

// sendDomainError translates a service error into the wrapped response,
// preserving the stable machine code.
func sendDomainError(c *fiber.Ctx, err error) error {
	domainErr := apperr.From(err)
	return utils.SendErrorCode(c, domainErr.Status, string(domainErr.Code), domainErr.Message)
}
