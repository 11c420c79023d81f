package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/config"
	"github.com/d60-Lab/colmena/internal/service"
	"github.com/d60-Lab/colmena/pkg/logger"
	"github.com/d60-Lab/colmena/pkg/response"
)

// Handler 聚合所有 HTTP 处理器依赖
type Handler struct {
	posts         service.PostService
	interactions  service.InteractionService
	comments      service.CommentService
	notifications service.NotificationService
	auth          service.AuthService
	uploads       service.UploadService
	identity      config.IdentityConfig
	maxUpload     int64

	// healthz
	db    *gorm.DB
	pings []func(context.Context) error
}

type Deps struct {
	Posts         service.PostService
	Interactions  service.InteractionService
	Comments      service.CommentService
	Notifications service.NotificationService
	Auth          service.AuthService
	Uploads       service.UploadService
	Identity      config.IdentityConfig
	MaxUpload     int64
	DB            *gorm.DB
	// Pings 额外的健康检查（如 Redis）
	Pings []func(context.Context) error
}

func New(d Deps) *Handler {
	maxUpload := d.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Handler{
		posts:         d.Posts,
		interactions:  d.Interactions,
		comments:      d.Comments,
		notifications: d.Notifications,
		auth:          d.Auth,
		uploads:       d.Uploads,
		identity:      d.Identity,
		maxUpload:     maxUpload,
		db:            d.DB,
		pings:         d.Pings,
	}
}

func paging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// fail 把 service 层错误映射为 HTTP 状态
func fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Fields)
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrAccountExists):
		response.Conflict(c, err.Error())
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.InternalError(c, err)
	}
}

// bindJSON 绑定失败时写响应并返回 false：校验错误 422，格式错误 400
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[jsonName(fe.Field())] = describe(fe)
		}
		response.ValidationFailed(c, fields)
		return false
	}
	response.BadRequest(c, "malformed request body")
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// jsonName ImageURL -> image_url
func jsonName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 && !(runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
