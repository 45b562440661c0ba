package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizhub-backend/internal/database"
	"github.com/stemsi/quizhub-backend/internal/response"
)

// SystemHandler reports process and dependency health.
type SystemHandler struct {
	db        database.Pinger
	rdb       *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db database.Pinger, rdb *redis.Client) *SystemHandler {
	return &SystemHandler{db: db, rdb: rdb, startTime: time.Now()}
}

// Health godoc
// GET /health
// 200 when PostgreSQL and Redis answer, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	report := database.Check(c.Request.Context(), h.db, func(ctx context.Context) error {
		return h.rdb.Ping(ctx).Err()
	})

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, gin.H{
		"health": report,
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}
