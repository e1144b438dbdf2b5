package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/configs"
	"newsbrief/internal/analytics"
	"newsbrief/internal/middleware"
	"newsbrief/internal/newsbot"
	"newsbrief/internal/security"
	"newsbrief/internal/services"
)

type AdminHandler struct {
	cfg         *configs.Config
	analytics   *analytics.Store
	authService *services.AuthService
	limiter     *security.Limiter
	bot         *newsbot.Bot
	log         *zap.Logger
}

func NewAdminHandler(cfg *configs.Config, an *analytics.Store, auth *services.AuthService, limiter *security.Limiter, bot *newsbot.Bot, log *zap.Logger) *AdminHandler {
	return &AdminHandler{cfg: cfg, analytics: an, authService: auth, limiter: limiter, bot: bot, log: log}
}

// Login checks admin credentials and issues a bearer token
// @Summary Admin login
// @Accept json
// @Produce json
// @Router /admin/api/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		h.limiter.LogSecurityEvent("failed_admin_login", req.Username, c.ClientIP(), c.Request.UserAgent(), nil)
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}

	token, err := middleware.IssueAdminToken(req.Username, h.cfg.SecretKey)
	if err != nil {
		h.log.Error("admin token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Dashboard returns the key metrics for the admin landing page
// @Summary Admin dashboard
// @Produce json
// @Router /admin/api/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	totalArticles, err := h.analytics.CountArticles()
	if err != nil {
		h.log.Error("article count failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}
	totalUsers, err := h.authService.CountUsers()
	if err != nil {
		h.log.Error("user count failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}
	avgReliability, err := h.analytics.AvgReliability()
	if err != nil {
		h.log.Error("avg reliability failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}

	trending, err := h.analytics.TrendingTopics(7)
	if err != nil {
		h.log.Error("trending failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}
	if len(trending) > 5 {
		trending = trending[:5]
	}

	trends, err := h.analytics.SentimentTrends(30)
	if err != nil {
		h.log.Error("sentiment trends failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}
	categories, err := h.analytics.CategoryAnalytics()
	if err != nil {
		h.log.Error("category analytics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}

	limiterStats, err := h.limiter.GetStats()
	if err != nil {
		h.log.Warn("limiter stats failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"total_articles":   totalArticles,
		"total_users":      totalUsers,
		"avg_reliability":  avgReliability,
		"trending_topics":  trending,
		"sentiment_trends": trends,
		"category_stats":   categories,
		"rate_limiting":    limiterStats,
	})
}

// GetSettings returns the tunable settings, secrets masked
// @Summary Admin settings
// @Produce json
// @Router /admin/api/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"news_api_key":              maskSecret(h.cfg.NewsAPIKey),
		"openai_api_key":            maskSecret(h.cfg.OpenAIAPIKey),
		"openai_model":              h.cfg.OpenAIModel,
		"max_articles_per_category": h.cfg.MaxArticlesPerCategory,
		"cache_duration_seconds":    int(h.cfg.DefaultCacheTTL.Seconds()),
		"websocket_enabled":         h.cfg.EnableWebSocket,
	})
}

// UpdateSettings applies runtime-tunable settings
// @Summary Update admin settings
// @Accept json
// @Produce json
// @Router /admin/api/settings [post]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	updated := []string{}
	for key, value := range req {
		switch key {
		case "news_api_key":
			if s, ok := value.(string); ok && s != "" {
				h.cfg.NewsAPIKey = s
				updated = append(updated, key)
			}
		case "openai_api_key":
			if s, ok := value.(string); ok && s != "" {
				h.cfg.OpenAIAPIKey = s
				updated = append(updated, key)
			}
		case "openai_model":
			if s, ok := value.(string); ok && s != "" {
				h.cfg.OpenAIModel = s
				updated = append(updated, key)
			}
		case "max_articles_per_category":
			if n, ok := toInt(value); ok && n > 0 {
				h.cfg.MaxArticlesPerCategory = n
				updated = append(updated, key)
			}
		}
	}

	// The bot copies credentials at construction, so push the new values.
	h.bot.UpdateCredentials(h.cfg.NewsAPIKey, h.cfg.OpenAIAPIKey, h.cfg.OpenAIModel)

	h.log.Info("admin settings updated", zap.Strings("keys", updated))
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Settings updated successfully"})
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		return parsed, err == nil
	}
	return 0, false
}
