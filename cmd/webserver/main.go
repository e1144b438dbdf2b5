package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/configs"
	"newsbrief/internal/analytics"
	"newsbrief/internal/cache"
	"newsbrief/internal/database"
	"newsbrief/internal/export"
	"newsbrief/internal/handlers"
	"newsbrief/internal/middleware"
	"newsbrief/internal/newsbot"
	"newsbrief/internal/search"
	"newsbrief/internal/security"
	"newsbrief/internal/services"
)

func main() {
	cfg := configs.Load()

	var logger *zap.Logger
	var err error
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	stores, err := database.Open(cfg.DataDir, cfg.Debug)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}

	cacheStore := cache.NewStore(stores.Cache, cfg.RedisURL, logger)
	if err := cacheStore.CleanupExpired(); err != nil {
		logger.Warn("startup cache cleanup failed", zap.Error(err))
	}
	newsCache := cache.NewNewsCache(cacheStore)

	searchIndex, err := search.NewIndex(stores.Search, logger)
	if err != nil {
		logger.Fatal("search index init failed", zap.Error(err))
	}

	limiter := security.NewLimiter(stores.RateLimits, logger)
	authService := services.NewAuthService(stores.Users, cfg.SessionTTL, logger)
	analyticsStore := analytics.NewStore(stores.Analytics, logger)
	bot := newsbot.New(cfg.NewsAPIKey, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.MaxArticlesPerCategory, logger)

	exporter := export.NewExporter(authService, analyticsStore, searchIndex, logger)
	reports := export.NewReportGenerator(analyticsStore, searchIndex, logger)

	feedHandler := handlers.NewFeedHandler(logger)
	newsHandler := handlers.NewNewsHandler(bot, newsCache, searchIndex, analyticsStore, feedHandler, cfg.MaxArticlesPerCategory, logger)
	authHandler := handlers.NewAuthHandler(authService, limiter, logger)
	userHandler := handlers.NewUserHandler(authService, searchIndex, logger)
	searchHandler := handlers.NewSearchHandler(searchIndex, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsStore, newsCache, cacheStore, searchIndex, logger)
	exportHandler := handlers.NewExportHandler(exporter, reports, logger)
	adminHandler := handlers.NewAdminHandler(cfg, analyticsStore, authService, limiter, bot, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.SessionAuth(authService))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	hour := time.Hour

	api := router.Group("/api")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)

		api.GET("/news", middleware.RateLimit(limiter, 100, hour), newsHandler.GetNews)
		api.POST("/summarize", middleware.RateLimit(limiter, 50, hour), newsHandler.Summarize)
		api.POST("/analyze", middleware.RateLimit(limiter, 50, hour), newsHandler.Analyze)
		api.POST("/reliability", middleware.RateLimit(limiter, 50, hour), newsHandler.Reliability)

		api.GET("/search", middleware.RateLimit(limiter, 200, hour), searchHandler.Search)
		api.GET("/search/suggestions", searchHandler.Suggestions)
		api.GET("/search/popular", searchHandler.Popular)

		api.GET("/trending", analyticsHandler.Trending)
		api.GET("/analytics/overview", analyticsHandler.Overview)
		api.GET("/cache/stats", analyticsHandler.CacheStats)
		api.POST("/cache/clear", middleware.AdminAuth(cfg.SecretKey), analyticsHandler.CacheClear)

		user := api.Group("/user", middleware.RequireSession())
		{
			user.GET("/preferences", userHandler.GetPreferences)
			user.POST("/preferences", userHandler.SetPreferences)
			user.GET("/history", userHandler.GetHistory)
			user.POST("/history", userHandler.TrackReading)
			user.GET("/stats", userHandler.GetStats)
		}

		api.GET("/export/user-data",
			middleware.RequireSession(),
			middleware.RateLimit(limiter, 10, hour),
			exportHandler.UserData)
		api.GET("/export/analytics",
			middleware.RateLimit(limiter, 20, hour),
			exportHandler.AnalyticsData)
		api.GET("/export/articles",
			middleware.RateLimit(limiter, 20, hour),
			exportHandler.Articles)
		api.GET("/export/backup",
			middleware.AdminAuth(cfg.SecretKey),
			middleware.RateLimit(limiter, 5, hour),
			exportHandler.Backup)
	}

	admin := router.Group("/admin/api")
	{
		admin.POST("/login", adminHandler.Login)

		protected := admin.Group("", middleware.AdminAuth(cfg.SecretKey))
		{
			protected.GET("/dashboard", adminHandler.Dashboard)
			protected.GET("/settings", adminHandler.GetSettings)
			protected.POST("/settings", adminHandler.UpdateSettings)
			protected.GET("/reports/usage", exportHandler.UsageReport)
		}
	}

	if cfg.EnableWebSocket {
		go feedHandler.Run()
		router.GET("/ws", feedHandler.Connect)
	}

	logger.Info("starting server", zap.String("port", cfg.ServerPort))
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
