package api

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/d60-Lab/blog-reactions/config"
	_ "github.com/d60-Lab/blog-reactions/docs"
	"github.com/d60-Lab/blog-reactions/internal/api/handler"
	"github.com/d60-Lab/blog-reactions/internal/api/middleware"
	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/pkg/auth"
	"github.com/d60-Lab/blog-reactions/pkg/database"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

// NewRouter 注册中间件与全部路由
func NewRouter(cfg *config.Config, h *handler.Handler, tokens *auth.TokenManager, db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}))
	}
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(middleware.Logger())
	r.Use(cors.New(corsConfig(cfg.Server.AllowOrigins)))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		if err := database.Ping(db, time.Second); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		response.Success(c, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)
	// 非点赞类写操作与管理接口按库中状态校验用户；点赞在账本事务内校验
	requireActive := middleware.RequireActive(h.Users())

	v1 := r.Group("/api/v1")

	users := v1.Group("/users")
	users.POST("/signup", h.Signup)
	users.POST("/login", h.Login)
	users.POST("/password/reset", h.ResetPassword)
	users.GET("/me", requireAuth, requireActive, h.Me)
	users.PUT("/me", requireAuth, requireActive, h.UpdateProfile)
	users.PUT("/me/password", requireAuth, requireActive, h.ChangePassword)
	users.GET("/:id", h.GetUser)
	users.GET("/:id/subscriptions", h.ListSubscriptions)
	users.GET("/:id/subscribers", h.ListSubscribers)

	admin := v1.Group("/admin", requireAuth, requireActive, middleware.RequireAdmin())
	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:id/status", h.SetUserStatus)
	admin.PUT("/users/:id/group", h.SetUserGroup)
	admin.POST("/users/:id/reset-token", h.IssueResetToken)

	articles := v1.Group("/articles")
	articles.GET("", h.ListArticles)
	articles.GET("/search", h.SearchArticles)
	articles.GET("/:id", optionalAuth, h.GetArticle)
	articles.POST("", requireAuth, requireActive, h.PublishArticle)
	articles.GET("/:id/comments", h.ListComments)
	articles.POST("/:id/comments", requireAuth, requireActive, h.CreateComment)

	subs := v1.Group("/subscriptions", requireAuth, requireActive)
	subs.POST("/:author_id", h.Subscribe)
	subs.DELETE("/:author_id", h.Unsubscribe)
	v1.GET("/feed", requireAuth, h.Feed)

	for _, kind := range []model.SubjectKind{model.KindArticle, model.KindComment} {
		registerReactions(v1.Group("/"+string(kind), handler.BindKind(kind)), h, requireAuth, optionalAuth)
	}
	// 其余 kind 由账本拒绝并返回 400
	registerReactions(v1.Group("/:kind"), h, requireAuth, optionalAuth)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// registerReactions 旧客户端以 GET 触发点赞，两种方法都保留
func registerReactions(g *gin.RouterGroup, h *handler.Handler, requireAuth, optionalAuth gin.HandlerFunc) {
	for _, method := range []string{http.MethodPost, http.MethodGet} {
		g.Handle(method, "/like/:id", requireAuth, h.Like)
		g.Handle(method, "/dislike/:id", requireAuth, h.Dislike)
	}
	g.GET("/reactions/:id", optionalAuth, h.Reactions)
}
