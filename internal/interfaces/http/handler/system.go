package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SystemHandler handles health and liveness endpoints.
type SystemHandler struct {
	redisClient *redis.Client
	startTime   time.Time
}

// NewSystemHandler creates a SystemHandler. The Redis client may be nil
// when the in-memory lock store is in use.
func NewSystemHandler(redisClient *redis.Client) *SystemHandler {
	return &SystemHandler{redisClient: redisClient, startTime: time.Now()}
}

// Healthz reports process health and storage reachability.
func (h *SystemHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(c.Request.Context()).Err(); err != nil {
			status = http.StatusServiceUnavailable
			deps["redis"] = "unreachable"
		} else {
			deps["redis"] = "ok"
		}
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
		"deps":   deps,
	})
}
