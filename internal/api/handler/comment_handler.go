package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/pkg/response"
)

type commentRequest struct {
	Body        string `json:"body" binding:"required,max=500"`
	DisplayName string `json:"display_name" binding:"omitempty,max=60"`
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=service.CommentView}
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.comments.Add(c.Request.Context(), c.Param("id"), middleware.Identifier(c), req.DisplayName, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments 评论列表
// @Summary 评论列表（新的在前）
// @Tags 评论
// @Produce json
// @Param id path string true "帖子ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	page, pageSize := paging(c)
	list, err := h.comments.ListFor(c.Request.Context(), c.Param("id"), middleware.Identifier(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// DeleteComment 删除评论（仅评论者本人）
// @Summary 删除评论
// @Tags 评论
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), c.Param("id"), middleware.Identifier(c)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
