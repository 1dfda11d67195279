package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = time.Second

// Pinger - зависимость, доступность которой попадает в /health
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	redis Pinger
}

// NewHealthHandler - redis может быть nil, если кеш выключен
func NewHealthHandler(redis Pinger) *HealthHandler {
	return &HealthHandler{redis: redis}
}

// HealthCheck возвращает статус сервиса и Redis
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status, redisStatus := "healthy", "disabled"
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		redisStatus = "ok"
		if err := h.redis.HealthCheck(ctx); err != nil {
			// без Redis конвертация работает, но медленнее
			status, redisStatus = "degraded", "unavailable"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"service": "currency-bridge",
		"version": "v1.0.0",
		"redis":   redisStatus,
	})
}
