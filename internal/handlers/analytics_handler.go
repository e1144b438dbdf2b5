package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/internal/analytics"
	"newsbrief/internal/cache"
	"newsbrief/internal/search"
)

type AnalyticsHandler struct {
	analytics  *analytics.Store
	newsCache  *cache.NewsCache
	cacheStore *cache.Store
	index      *search.Index
	log        *zap.Logger
}

func NewAnalyticsHandler(an *analytics.Store, nc *cache.NewsCache, cs *cache.Store, ix *search.Index, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: an, newsCache: nc, cacheStore: cs, index: ix, log: log}
}

// Trending returns the most frequent keyword groups in recent articles
// @Summary Trending topics
// @Produce json
// @Router /api/trending [get]
func (h *AnalyticsHandler) Trending(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	var cached []analytics.TrendingTopic
	if found, err := h.newsCache.GetTrending(days, &cached); err == nil && found {
		c.JSON(http.StatusOK, gin.H{"trending": cached, "cached": true})
		return
	}

	trending, err := h.analytics.TrendingTopics(days)
	if err != nil {
		h.log.Error("trending failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load trending topics"})
		return
	}

	if err := h.newsCache.SetTrending(days, trending); err != nil {
		h.log.Warn("trending cache write failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"trending": trending, "cached": false})
}

// Overview returns sentiment trends, category analytics and search analytics
// @Summary Analytics overview
// @Produce json
// @Router /api/analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	trends, err := h.analytics.SentimentTrends(days)
	if err != nil {
		h.log.Error("sentiment trends failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load analytics"})
		return
	}
	categories, err := h.analytics.CategoryAnalytics()
	if err != nil {
		h.log.Error("category analytics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load analytics"})
		return
	}
	searchStats, err := h.index.GetSearchAnalytics(days)
	if err != nil {
		h.log.Error("search analytics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load analytics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sentiment_trends":   trends,
		"category_analytics": categories,
		"search_analytics":   searchStats,
	})
}

// CacheStats returns hit/miss counters and current cache size
// @Summary Cache statistics
// @Produce json
// @Router /api/cache/stats [get]
func (h *AnalyticsHandler) CacheStats(c *gin.Context) {
	stats, err := h.cacheStore.GetStats()
	if err != nil {
		h.log.Error("cache stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load cache stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CacheClear drops every cache entry; counters survive
// @Summary Clear cache
// @Produce json
// @Router /api/cache/clear [post]
func (h *AnalyticsHandler) CacheClear(c *gin.Context) {
	if err := h.cacheStore.Clear(); err != nil {
		h.log.Error("cache clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Cache cleared successfully"})
}
