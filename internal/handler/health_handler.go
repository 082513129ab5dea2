package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pawfinder/pawfinder-api/internal/config"
	"github.com/pawfinder/pawfinder-api/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthResponse reports overall status plus per-dependency reachability.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck returns a handler that pings the database and, when
// configured, Redis. Any unreachable dependency degrades the status
// without failing the request.
func HealthCheck(cfg config.Config, db *gorm.DB, redisClient *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
		defer cancel()

		status := "ok"
		deps := make(map[string]string)

		deps["database"] = "ok"
		if db == nil {
			deps["database"] = "not configured"
			status = "degraded"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			deps["database"] = "unreachable"
			status = "degraded"
		}

		if redisClient != nil {
			deps["redis"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				deps["redis"] = "unreachable"
				status = "degraded"
			}
		}

		payload := HealthResponse{
			Status:       status,
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			Dependencies: deps,
		}

		return utils.SendSuccess(c, "health report", payload)
	}
}
