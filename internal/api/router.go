package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"forum_go/internal/api/mgt"
	"forum_go/internal/api/seo"
	v1 "forum_go/internal/api/v1"
	"forum_go/internal/core/config"
	"forum_go/internal/core/runtime"
	"forum_go/internal/middleware"
	"forum_go/internal/repository"
	"forum_go/internal/service"
)

// Deps everything the HTTP surface talks to
type Deps struct {
	Config  *config.Config
	Forum   *service.ForumService
	Users   *service.UserService
	Tags    *service.TagService
	Threads repository.ThreadRepository
	DB      *sqlx.DB
	Redis   *redis.Client // nil when disabled
	Runtime *runtime.Runtime
}

// NewRouter build the gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	baseURL := cfg.App.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.App.Port)
	}

	// Handlers
	threadV1Handler := v1.NewThreadHandler(d.Forum)
	searchV1Handler := v1.NewSearchHandler(d.Forum)
	tagV1Handler := v1.NewTagHandler(d.Tags)
	userV1Handler := v1.NewUserHandler(d.Users)

	threadMgtHandler := mgt.NewThreadHandler(d.Forum)
	replyMgtHandler := mgt.NewReplyHandler(d.Forum)
	searchMgtHandler := mgt.NewSearchMgtHandler(d.Forum)
	userMgtHandler := mgt.NewUserMgtHandler(d.Users, &cfg.JWT)

	sitemapHandler := seo.NewHandler(seo.NewSitemapService(d.Threads, &seo.SitemapConfig{
		BaseURL:  baseURL,
		CacheTTL: 5 * time.Minute,
		MaxURLs:  50000,
	}))
	robotsHandler := seo.NewRobotsHandler(baseURL)

	var limiter *middleware.IPLimiter
	if cfg.Security.RateLimit > 0 {
		limiter = middleware.NewIPLimiter(cfg.Security.RateLimit)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.Security.CORS))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		if err := d.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	// Health Check per dependency, for load balancers
	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := 200
		checks := make(map[string]string)

		if err := d.DB.PingContext(ctx); err != nil {
			status = 503
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}

		if d.Redis != nil {
			if err := d.Redis.Ping(ctx).Err(); err != nil {
				status = 503
				checks["redis"] = err.Error()
			} else {
				checks["redis"] = "ok"
			}
		}

		state := "ok"
		if status != 200 {
			state = "error"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    checks,
			"timestamp": time.Now().Unix(),
		})
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name":    "forum_go",
			"status":  "running",
			"runtime": runtime.WarmUpLog(),
		})
	})

	// Runtime Status
	router.GET("/runtime", func(c *gin.Context) {
		if d.Runtime == nil {
			c.JSON(200, gin.H{"status": nil})
			return
		}
		c.JSON(200, gin.H{"status": d.Runtime.Status()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// SEO Routes
	router.GET("/robots.txt", robotsHandler.Get)
	router.GET("/sitemap.xml", sitemapHandler.SitemapIndex)
	router.GET("/sitemap/threads/:page", sitemapHandler.ThreadSitemap)

	// Public API (v1)
	v1Group := router.Group("/api/v1")
	v1Group.Use(middleware.RateLimitMW(limiter))
	v1Group.Use(middleware.TimeoutMiddleware(cfg.App.RequestTimeout))
	{
		// Thread
		v1Group.GET("/threads", threadV1Handler.List)
		v1Group.GET("/thread/:pid", threadV1Handler.Get)
		v1Group.GET("/thread/:pid/replies", threadV1Handler.Replies)

		// Search
		v1Group.GET("/search", searchV1Handler.Search)
		v1Group.GET("/search/tags", searchV1Handler.ByTags)

		// Tag
		v1Group.GET("/tags", tagV1Handler.List)

		// User
		v1Group.GET("/user/:uid", userV1Handler.GetUser)
	}

	// Management API (mgt)
	mgtGroup := router.Group("/api/mgt")
	mgtGroup.Use(middleware.RateLimitMW(limiter))
	mgtGroup.Use(middleware.TimeoutMiddleware(cfg.App.RequestTimeout))
	{
		// account issuance stays behind the admin whitelist
		adminGroup := mgtGroup.Group("")
		adminGroup.Use(middleware.AdminWhitelistMW(&cfg.Security))
		{
			adminGroup.POST("/user/register", userMgtHandler.Register)
			adminGroup.POST("/token/:uid", userMgtHandler.Token)
		}

		authGroup := mgtGroup.Group("")
		authGroup.Use(middleware.JWTMW(&cfg.JWT, d.Users))
		{
			authGroup.GET("/me", userMgtHandler.Me)

			authGroup.POST("/thread", threadMgtHandler.Create)
			authGroup.PUT("/thread/:pid", threadMgtHandler.Update)
			authGroup.DELETE("/thread/:pid", threadMgtHandler.Delete)
			authGroup.POST("/thread/:pid/reply", threadMgtHandler.Reply)

			authGroup.PUT("/reply/:rid", replyMgtHandler.Update)
			authGroup.DELETE("/reply/:rid", replyMgtHandler.Delete)
		}

		reindexGroup := mgtGroup.Group("/search")
		reindexGroup.Use(middleware.AdminWhitelistMW(&cfg.Security), middleware.JWTMW(&cfg.JWT, d.Users))
		{
			reindexGroup.POST("/reindex", searchMgtHandler.Reindex)
		}
	}

	return router
}
