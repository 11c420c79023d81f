package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/colmena/config"
	"github.com/d60-Lab/colmena/internal/api/handler"
	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/pkg/auth"

	_ "github.com/d60-Lab/colmena/docs"
)

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h *handler.Handler, tokens *auth.TokenManager) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	excluded := []string{"/swagger"}
	if cfg.Storage.PublicPrefix != "" {
		excluded = append(excluded, cfg.Storage.PublicPrefix)
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(excluded)))

	r.GET("/healthz", h.Healthz)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.Storage.UploadDir != "" && cfg.Storage.PublicPrefix != "" {
		r.Static(cfg.Storage.PublicPrefix, cfg.Storage.UploadDir)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware()

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity(tokens, cfg.Identity))
	{
		posts := v1.Group("/posts")
		posts.GET("", h.ListPosts)
		posts.GET("/mine", h.ListMyPosts)
		posts.GET("/saved", h.ListSavedPosts)
		posts.GET("/:id", h.GetPost)
		posts.GET("/:id/comments", h.ListComments)
		posts.POST("", limiter, h.CreatePost)
		posts.PUT("/:id", limiter, h.UpdatePost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/like", limiter, h.ToggleLike)
		posts.POST("/:id/save", limiter, h.ToggleSave)
		posts.POST("/:id/comments", limiter, h.AddComment)

		v1.DELETE("/comments/:id", h.DeleteComment)

		notifications := v1.Group("/notifications")
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.POST("/read-all", h.MarkAllRead)

		v1.POST("/uploads", limiter, h.UploadImage)

		authGroup := v1.Group("/auth")
		authGroup.POST("/register", limiter, h.Register)
		authGroup.POST("/login", limiter, h.Login)
		authGroup.GET("/me", middleware.RequireUser(), h.Me)
	}
	return r
}
