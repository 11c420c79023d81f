package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/pkg/response"
)

// ListNotifications 收件箱
// @Summary 通知列表
// @Tags 通知
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	page, pageSize := paging(c)
	list, err := h.notifications.List(c.Request.Context(), middleware.Identifier(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// UnreadCount 未读数
// @Summary 未读通知数
// @Tags 通知
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.CountUnread(c.Request.Context(), middleware.Identifier(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"unread": n})
}

// MarkRead 标记单条已读
// @Summary 标记已读
// @Tags 通知
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), middleware.Identifier(c)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllRead 全部已读
// @Summary 全部标记已读
// @Tags 通知
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/read-all [post]
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.Identifier(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}
