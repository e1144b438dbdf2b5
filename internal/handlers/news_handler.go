package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsbrief/internal/analytics"
	"newsbrief/internal/cache"
	"newsbrief/internal/models"
	"newsbrief/internal/newsbot"
	"newsbrief/internal/search"
)

type NewsHandler struct {
	bot         *newsbot.Bot
	newsCache   *cache.NewsCache
	searchIndex *search.Index
	analytics   *analytics.Store
	feed        *FeedHandler
	maxArticles int
	log         *zap.Logger
}

func NewNewsHandler(bot *newsbot.Bot, nc *cache.NewsCache, ix *search.Index, an *analytics.Store, feed *FeedHandler, maxArticles int, log *zap.Logger) *NewsHandler {
	if maxArticles <= 0 {
		maxArticles = 10
	}
	return &NewsHandler{
		bot:         bot,
		newsCache:   nc,
		searchIndex: ix,
		analytics:   an,
		feed:        feed,
		maxArticles: maxArticles,
		log:         log,
	}
}

// GetNews returns headlines for a category or free-text query
// @Summary Fetch news
// @Produce json
// @Router /api/news [get]
func (h *NewsHandler) GetNews(c *gin.Context) {
	category := c.DefaultQuery("category", "general")
	query := c.Query("q")
	country := c.DefaultQuery("country", "us")

	var cached map[string]interface{}
	if found, err := h.newsCache.GetNews(category, query, country, &cached); err == nil && found {
		c.JSON(http.StatusOK, cached)
		return
	}

	payload, err := h.bot.FetchNews(c.Request.Context(), category, query)
	if err != nil {
		h.log.Error("news fetch failed", zap.String("category", category), zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "News provider unavailable"})
		return
	}

	if _, ok := payload["articles"]; ok {
		if err := h.newsCache.SetNews(category, query, country, payload); err != nil {
			h.log.Warn("news cache write failed", zap.Error(err))
		}
		h.indexArticles(payload, category)
	}

	c.JSON(http.StatusOK, payload)
}

// indexArticles feeds fetched headlines into the search index, capped to
// avoid hammering FTS on every fetch.
func (h *NewsHandler) indexArticles(payload map[string]interface{}, category string) {
	articles, ok := payload["articles"].([]interface{})
	if !ok {
		return
	}
	if len(articles) > h.maxArticles {
		articles = articles[:h.maxArticles]
	}

	for _, raw := range articles {
		article, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		title := stringField(article, "title")
		description := stringField(article, "description")
		publishedAt := stringField(article, "publishedAt")

		doc := &models.SearchDocument{
			ArticleID: articleID(title, publishedAt),
			Title:     title,
			Content:   description,
			Category:  category,
			Author:    stringField(article, "author"),
			Language:  "en",
			IsActive:  true,
		}
		if source, ok := article["source"].(map[string]interface{}); ok {
			doc.Source = stringField(source, "name")
		}
		if ts, err := time.Parse(time.RFC3339, publishedAt); err == nil {
			doc.PublishedAt = &ts
		}

		if err := h.searchIndex.IndexArticle(doc); err != nil {
			h.log.Warn("article index failed", zap.String("article_id", doc.ArticleID), zap.Error(err))
		}
	}
}

// Summarize produces a short summary of the posted content
// @Summary Summarize an article
// @Accept json
// @Produce json
// @Router /api/summarize [post]
func (h *NewsHandler) Summarize(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No content provided for summarization"})
		return
	}
	language := req.Language
	if language == "" {
		language = "English"
	}

	contentHash := cache.ContentHash(req.Content)
	if summary, found, err := h.newsCache.GetSummary(contentHash, language); err == nil && found {
		c.JSON(http.StatusOK, SummaryResponse{Summary: summary, Cached: true})
		return
	}

	summary, err := h.bot.Summarize(c.Request.Context(), req.Content, language)
	if err != nil {
		h.log.Error("summarize failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.newsCache.SetSummary(contentHash, language, summary); err != nil {
		h.log.Warn("summary cache write failed", zap.Error(err))
	}
	h.trackInteraction(c, "summarize", contentHash)

	c.JSON(http.StatusOK, SummaryResponse{Summary: summary, Cached: false})
}

// Analyze classifies the sentiment of the posted content
// @Summary Analyze sentiment
// @Accept json
// @Produce json
// @Router /api/analyze [post]
func (h *NewsHandler) Analyze(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No content provided for analysis"})
		return
	}

	// Local analysis is deterministic, so only the sentiment is cached.
	emotion := analytics.DetectEmotion(req.Content)
	readability := analytics.ReadabilityScore(req.Content)
	entities := analytics.ExtractEntities(req.Content)

	contentHash := cache.ContentHash(req.Content)
	if sentiment, found, err := h.newsCache.GetSentiment(contentHash); err == nil && found {
		c.JSON(http.StatusOK, SentimentResponse{
			Sentiment:   sentiment,
			Emotion:     emotion,
			Readability: readability,
			Entities:    entities,
			Cached:      true,
		})
		return
	}

	sentiment := h.bot.AnalyzeSentiment(c.Request.Context(), req.Content)

	if err := h.newsCache.SetSentiment(contentHash, sentiment); err != nil {
		h.log.Warn("sentiment cache write failed", zap.Error(err))
	}

	if err := h.analytics.StoreArticleAnalysis(analytics.ArticleInput{
		Category:         "general",
		Sentiment:        sentiment,
		ReliabilityScore: 0,
		WordCount:        len(strings.Fields(req.Content)),
		Language:         "en",
		Keywords:         search.ExtractKeywords(req.Content, 20),
	}); err != nil {
		h.log.Warn("analysis store failed", zap.Error(err))
	}
	h.trackInteraction(c, "analyze", contentHash)
	h.feed.BroadcastAnalysis(contentHash, sentiment)

	c.JSON(http.StatusOK, SentimentResponse{
		Sentiment:   sentiment,
		Emotion:     emotion,
		Readability: readability,
		Entities:    entities,
		Cached:      false,
	})
}

// Reliability scores the posted content 0-100
// @Summary Score reliability
// @Accept json
// @Produce json
// @Router /api/reliability [post]
func (h *NewsHandler) Reliability(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No content provided for reliability analysis"})
		return
	}

	score := h.bot.AnalyzeReliability(c.Request.Context(), req.Content)
	c.JSON(http.StatusOK, ReliabilityResponse{Score: score})
}

func (h *NewsHandler) trackInteraction(c *gin.Context, action, contentHash string) {
	userID, exists := c.Get("user_id")
	if !exists {
		return
	}
	if err := h.analytics.TrackInteraction(userIDString(userID), action, "", "", contentHash); err != nil {
		h.log.Warn("interaction track failed", zap.Error(err))
	}
}

// articleID derives a stable identifier from the headline so repeated
// fetches upsert instead of duplicating.
func articleID(title, publishedAt string) string {
	if title == "" && publishedAt == "" {
		return uuid.New().String()
	}
	return publishedAt + "-" + cache.ContentHash(title)[:12]
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

type ContentRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
}

type SentimentResponse struct {
	Sentiment   string             `json:"sentiment"`
	Emotion     string             `json:"emotion"`
	Readability float64            `json:"readability"`
	Entities    analytics.Entities `json:"entities"`
	Cached      bool               `json:"cached"`
}

type ReliabilityResponse struct {
	Score int `json:"score"`
}
