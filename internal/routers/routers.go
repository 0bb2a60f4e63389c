// Package routers wires the gateway routes onto the echo server
package routers

import (
	"database/sql"

	"solace-api/internal/chat"
	"solace-api/internal/database"
	"solace-api/internal/engine"
	"solace-api/internal/middleware"
	"solace-api/internal/ratelimit"
	"solace-api/internal/users"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ChatRouterConfig struct {
	EngineURL    string
	EngineAPIKey string
	Limiter      ratelimit.Config
	Gateway      chat.Config
}

// RegisterChatRoutes builds the gateway stack (store, upstream engine,
// throttles) and mounts the v1 chat routes. The returned shutdown stops the
// limiter's sweeper.
func RegisterChatRoutes(e *echo.Group, wdb *sql.DB, rdb *sql.DB, redisClient *redis.Client, log *zap.SugaredLogger, cfg ChatRouterConfig) (func(), error) {
	store := database.NewMySQL(wdb, rdb, log)
	eng := engine.NewHTTPEngine(cfg.EngineURL, cfg.EngineAPIKey, log)
	limiter := ratelimit.NewLimiter(cfg.Limiter)
	admission := ratelimit.NewAdmission()

	manager := chat.NewManager(store, eng, limiter, admission, log, cfg.Gateway)

	umw := middleware.NewUserMiddleware(users.NewManager(redisClient, rdb, log))

	v1 := e.Group("v1")
	requireUser := v1.Group("", umw.ExtractUser, umw.RequireUser)
	requireUser.POST("/chat/completions", manager.HandleChat)

	return limiter.Close, nil
}
