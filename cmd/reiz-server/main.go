// Command reiz-server is the HTTP surface over pkg/engine, mirroring
// reiz/web/api.py structurally (rate limiting, CORS, typed error
// responses) on top of the same gin.Default()/cors.New() shape the
// pack's registry.Start uses (ilkerispir-terrakubed/internal/registry/server.go).
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/reizio/reiz/internal/config"
	"github.com/reizio/reiz/internal/statscache"
	"github.com/reizio/reiz/internal/store"
	"github.com/reizio/reiz/pkg/compiler"
	"github.com/reizio/reiz/pkg/engine"
	"github.com/reizio/reiz/pkg/reizql"
)

func main() {
	cfg := config.Load()

	conn, err := store.Connect(context.Background(), cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to connect to graph store", "error", err)
		return
	}
	defer conn.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
			rdb = redis.NewClient(opts)
		} else {
			slog.Warn("ignoring invalid REIZ_REDIS_URL", "error", err)
		}
	}
	eng := engine.New(statscache.New(rdb, cfg.StatsCacheSize, cfg.StatsCacheTTL))

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(rateLimitMiddleware(cfg.RateLimitPerHour))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	r.GET("/query", func(c *gin.Context) {
		handleQuery(c, eng, conn, cfg)
	})
	r.GET("/stats", func(c *gin.Context) {
		handleStats(c, eng, conn)
	})

	addr := ":8080"
	slog.Info("reiz-server listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		slog.Error("server exited", "error", err)
	}
}

func handleQuery(c *gin.Context, eng *engine.Engine, conn store.Connection, cfg *config.Config) {
	q := c.Query("q")
	if q == "" {
		writeError(c, http.StatusBadRequest, "MissingQuery", "the q parameter is required")
		return
	}

	stats := c.Query("stats") == "true" || c.Query("stats") == "1"
	limit := cfg.QueryLimit
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	result, err := eng.RunQuery(c.Request.Context(), conn, q, stats, limit)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func handleStats(c *gin.Context, eng *engine.Engine, conn store.Connection) {
	kinds := c.QueryArray("kind")
	if len(kinds) == 0 {
		kinds = engine.DefaultStatsKinds
	}

	result, err := eng.GetStats(c.Request.Context(), conn, kinds)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeEngineError maps the three error taxonomies pkg/engine's call
// chain can surface (reizql.SyntaxError, compiler.ConstraintError,
// engine.APIError) onto an HTTP status and a stable {code, message} body,
// so clients can switch on code without parsing driver-specific text.
func writeEngineError(c *gin.Context, err error) {
	var syntaxErr *reizql.SyntaxError
	if errors.As(err, &syntaxErr) {
		writeError(c, http.StatusBadRequest, string(syntaxErr.Kind), syntaxErr.Error())
		return
	}

	var constraintErr *compiler.ConstraintError
	if errors.As(err, &constraintErr) {
		writeError(c, http.StatusBadRequest, constraintErr.Kind, constraintErr.Error())
		return
	}

	var apiErr *engine.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusInternalServerError
		if apiErr.Code == engine.CodeUnexpectedRoot || apiErr.Code == engine.CodeConstraintViolated || apiErr.Code == engine.CodeSyntaxError {
			status = http.StatusBadRequest
		}
		writeError(c, status, apiErr.Code, apiErr.Message)
		return
	}

	writeError(c, http.StatusInternalServerError, "ExecutionFailed", err.Error())
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"code": code, "message": message})
}
