package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/pkg/response"
)

// ToggleLike 点赞/取消点赞
// @Summary 切换点赞
// @Tags 互动
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=service.ToggleLikeResult}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	res, err := h.interactions.ToggleLike(c.Request.Context(), c.Param("id"), middleware.Identifier(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// ToggleSave 收藏/取消收藏
// @Summary 切换收藏
// @Tags 互动
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=service.ToggleSaveResult}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/save [post]
func (h *Handler) ToggleSave(c *gin.Context) {
	res, err := h.interactions.ToggleSave(c.Request.Context(), c.Param("id"), middleware.Identifier(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}
