package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/equipment-registry/internal/cache"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

var errDatabaseUnavailable = errors.New("database not initialized")

// Health 存活检查，数据库不可用时返回 503
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
	code := http.StatusOK
	if err := h.pingDB(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if cache.Enabled() {
		status["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			status["redis"] = err.Error()
		}
	}
	c.JSON(code, status)
}

func (h *Handler) pingDB(ctx context.Context) error {
	if h.DB == nil {
		return errDatabaseUnavailable
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
