package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

// Deps are the collaborators the handlers share.
type Deps struct {
	Cache utils.PageCache
	Media utils.MediaStorage
	Views *templates.Renderer
	// WrapHTML, when set, decorates the HTML renderer (tests use it to capture view models).
	WrapHTML func(render.HTMLRender) render.HTMLRender
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, deps Deps) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Views == nil {
		deps.Views = templates.MustNew()
	}
	if deps.Cache == nil {
		deps.Cache = utils.NewMemoryCache(time.Now)
	}

	r := gin.New()
	if cfg.GinPath != "" {
		// Replace default console logger with file-based zap logger
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err == nil {
			r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
			r.Use(ginzap.RecoveryWithZap(gl, true))
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
			r.Use(gin.Recovery())
		}
	} else {
		r.Use(ginzap.RecoveryWithZap(utils.Logger, true))
	}

	var html render.HTMLRender = deps.Views
	if deps.WrapHTML != nil {
		html = deps.WrapHTML(html)
	}
	r.HTMLRender = html

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(middleware.Metrics())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.MediaBackend == "local" {
		media := r.Group(strings.TrimSuffix(cfg.MediaURL, "/"))
		media.Use(cors.New(corsCfg))
		media.Static("/", cfg.MediaDir)
	}

	postController := controllers.NewPostController(db, deps.Cache, deps.Media, deps.Views)
	followController := controllers.NewFollowController(db)
	authController := controllers.NewAuthController(db)
	adminController := controllers.NewAdminController(db, deps.Cache)

	site := r.Group("")
	site.Use(middleware.Session(db), middleware.RateLimit(cfg.RateLimitPerMinute))

	site.GET("/", postController.Index)
	site.GET("/group/:slug/", postController.GroupPosts)
	site.GET("/profile/:username/", postController.Profile)
	site.GET("/posts/:post_id/", postController.PostDetail)

	members := site.Group("")
	members.Use(middleware.LoginRequired())
	members.GET("/create/", postController.PostCreate)
	members.POST("/create/", postController.PostCreate)
	members.GET("/posts/:post_id/edit/", postController.PostEdit)
	members.POST("/posts/:post_id/edit/", postController.PostEdit)
	members.POST("/posts/:post_id/comment/", postController.AddComment)
	members.GET("/follow/", followController.FollowIndex)
	members.GET("/profile/:username/follow/", followController.ProfileFollow)
	members.POST("/profile/:username/follow/", followController.ProfileFollow)
	members.GET("/profile/:username/unfollow/", followController.ProfileUnfollow)
	members.POST("/profile/:username/unfollow/", followController.ProfileUnfollow)

	accounts := site.Group("/auth")
	accounts.GET("/signup/", authController.Signup)
	accounts.POST("/signup/", authController.Signup)
	accounts.GET("/login/", authController.Login)
	accounts.POST("/login/", authController.Login)
	accounts.GET("/logout/", authController.Logout)
	accounts.POST("/logout/", authController.Logout)

	api := r.Group("/api/v1")
	api.Use(cors.New(corsCfg), middleware.RateLimit(cfg.RateLimitPerMinute))
	api.POST("/auth/login", authController.APILogin)
	api.POST("/auth/logout", middleware.AuthRequired(), authController.APILogout)
	api.GET("/auth/me", middleware.AuthRequired(), authController.Me)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	admin.GET("/groups", adminController.ListGroups)
	admin.POST("/groups", adminController.CreateGroup)
	admin.DELETE("/groups/:slug", adminController.DeleteGroup)
	admin.DELETE("/users/:username", adminController.DeleteUser)
	admin.POST("/cache/clear", adminController.ClearCache)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Fail(ctx, http.StatusNotFound, 40400, "api route not found")
		}
	}, middleware.Session(db), controllers.NotFound)

	return r
}
