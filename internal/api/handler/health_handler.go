package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/colmena/pkg/logger"
	"github.com/d60-Lab/colmena/pkg/response"
)

// Healthz 检查数据库及可选依赖
// @Summary 健康检查
// @Tags 运维
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make([]func(context.Context) error, 0, len(h.pings)+1)
	if h.db != nil {
		checks = append(checks, func(ctx context.Context) error {
			sqlDB, err := h.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}
	checks = append(checks, h.pings...)

	for _, check := range checks {
		if err := check(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, response.Response{Code: http.StatusServiceUnavailable, Message: "unhealthy"})
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
