package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/internal/service"
	"github.com/d60-Lab/colmena/pkg/response"
)

type postRequest struct {
	Title      string  `json:"title" binding:"required,max=150"`
	Body       string  `json:"body" binding:"required,max=5000"`
	ImageURL   *string `json:"image_url" binding:"omitempty,max=512"` // 编辑时省略则保留原图
	AuthorName string  `json:"author_name" binding:"omitempty,max=60"`
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{Title: r.Title, Body: r.Body, ImageURL: r.ImageURL, AuthorName: r.AuthorName}
}

// ListPosts 帖子列表
// @Summary 帖子列表（新的在前）
// @Tags 帖子
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, pageSize := paging(c)
	list, err := h.posts.List(c.Request.Context(), middleware.Identifier(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListMyPosts 我发布的帖子
// @Summary 我的帖子
// @Tags 帖子
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/mine [get]
func (h *Handler) ListMyPosts(c *gin.Context) {
	page, pageSize := paging(c)
	list, err := h.posts.ListMine(c.Request.Context(), middleware.Identifier(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListSavedPosts 我收藏的帖子
// @Summary 收藏列表（按收藏时间倒序）
// @Tags 帖子
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/saved [get]
func (h *Handler) ListSavedPosts(c *gin.Context) {
	page, pageSize := paging(c)
	list, err := h.posts.ListSaved(c.Request.Context(), middleware.Identifier(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// GetPost 帖子详情（含第一页评论）
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	ctx, viewer := c.Request.Context(), middleware.Identifier(c)
	post, err := h.posts.Get(ctx, c.Param("id"), viewer)
	if err != nil {
		fail(c, err)
		return
	}
	comments, err := h.comments.ListFor(ctx, post.ID, viewer, 1, 0)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"post": post, "comments": comments})
}

// CreatePost 发帖
// @Summary 发布帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body postRequest true "帖子内容"
// @Success 201 {object} response.Response{data=service.PostView}
// @Failure 422 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), middleware.Identifier(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, post)
}

// UpdatePost 编辑帖子（仅作者）
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param request body postRequest true "帖子内容"
// @Success 200 {object} response.Response{data=service.PostView}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Update(c.Request.Context(), c.Param("id"), middleware.Identifier(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, post)
}

// DeletePost 删除帖子（仅作者），级联删除点赞、收藏、评论
// @Summary 删除帖子
// @Tags 帖子
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id"), middleware.Identifier(c)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
