package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/internal/service"
	"github.com/d60-Lab/colmena/pkg/response"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register 注册账号，并把请求携带的匿名身份的数据并入
// @Summary 注册
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 201 {object} response.Response{data=service.AuthResult}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, middleware.IncomingAnonID(c))
	if err != nil {
		fail(c, err)
		return
	}
	if res.Merged {
		middleware.ClearIdentityCookie(c, h.identity)
	}
	response.Created(c, res)
}

// Login 登录
// @Summary 登录，返回 Bearer 令牌
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, middleware.IncomingAnonID(c))
	if err != nil {
		fail(c, err)
		return
	}
	if res.Merged {
		middleware.ClearIdentityCookie(c, h.identity)
	}
	response.Success(c, res)
}

// Me 当前账号
// @Summary 当前账号信息
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.auth.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}
