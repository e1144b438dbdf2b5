package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"newsbrief/configs"
	"newsbrief/internal/analytics"
	"newsbrief/internal/cache"
	"newsbrief/internal/middleware"
	"newsbrief/internal/models"
	"newsbrief/internal/newsbot"
	"newsbrief/internal/search"
	"newsbrief/internal/security"
	"newsbrief/internal/services"
)

func openDB(t *testing.T, name string, models ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

type testApp struct {
	router *gin.Engine
	auth   *services.AuthService
	index  *search.Index
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	cacheStore := cache.NewStore(openDB(t, "cache.db",
		&models.CacheEntry{}, &models.CacheStats{}), "", log)
	newsCache := cache.NewNewsCache(cacheStore)

	ix, err := search.NewIndex(openDB(t, "search_index.db",
		&models.SearchDocument{}, &models.SearchHistory{}, &models.PopularSearch{}), log)
	require.NoError(t, err)

	limiter := security.NewLimiter(openDB(t, "rate_limits.db",
		&models.RateLimitRecord{}, &models.SecurityEvent{}), log)
	auth := services.NewAuthService(openDB(t, "users.db",
		&models.User{}, &models.UserSession{}, &models.UserPreference{}, &models.ReadingHistory{}),
		time.Hour, log)
	an := analytics.NewStore(openDB(t, "news_analytics.db",
		&models.ArticleAnalysis{}, &models.UserInteraction{}), log)

	// No credentials: the bot only has its local fallbacks.
	bot := newsbot.New("", "", "gpt-3.5-turbo", 10, log)

	newsHandler := NewNewsHandler(bot, newsCache, ix, an, nil, 10, log)
	authHandler := NewAuthHandler(auth, limiter, log)
	userHandler := NewUserHandler(auth, ix, log)
	searchHandler := NewSearchHandler(ix, log)
	analyticsHandler := NewAnalyticsHandler(an, newsCache, cacheStore, ix, log)

	router := gin.New()
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.SessionAuth(auth))

	api := router.Group("/api")
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.POST("/summarize", newsHandler.Summarize)
	api.POST("/analyze", newsHandler.Analyze)
	api.POST("/reliability", newsHandler.Reliability)
	api.GET("/search", middleware.RateLimit(limiter, 3, time.Minute), searchHandler.Search)
	api.GET("/trending", analyticsHandler.Trending)
	api.GET("/cache/stats", analyticsHandler.CacheStats)
	user := api.Group("/user", middleware.RequireSession())
	user.GET("/preferences", userHandler.GetPreferences)
	user.POST("/preferences", userHandler.SetPreferences)
	user.POST("/history", userHandler.TrackReading)

	return &testApp{router: router, auth: auth, index: ix}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Str0ng!pass",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodPost, "/api/login", gin.H{
		"username": "alice", "password": "Str0ng!pass",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_token" {
			session = c
		}
	}
	require.NotNil(t, session)

	// Session grants access to the protected surface.
	w = app.do(t, http.MethodGet, "/api/user/preferences", nil, session)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/logout", nil, session)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/user/preferences", nil, session)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "weak",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	app := newTestApp(t)

	body := gin.H{"username": "alice", "email": "alice@example.com", "password": "Str0ng!pass"}
	w := app.do(t, http.MethodPost, "/api/register", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodPost, "/api/register", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)

	app.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Str0ng!pass",
	}, nil)

	w := app.do(t, http.MethodPost, "/api/login", gin.H{
		"username": "alice", "password": "nope",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/user/preferences", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestSummarizeEmptyContent(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/summarize", gin.H{"content": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummarizeWithoutUpstream(t *testing.T) {
	app := newTestApp(t)

	// No LLM credential and summaries have no fallback.
	w := app.do(t, http.MethodPost, "/api/summarize", gin.H{"content": "long article"}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAnalyzeUsesFallbackAndCaches(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/analyze", gin.H{"content": "A great success and a big win"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var first SentimentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, "Positive", first.Sentiment)
	assert.False(t, first.Cached)

	w = app.do(t, http.MethodPost, "/api/analyze", gin.H{"content": "A great success and a big win"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var second SentimentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, "Positive", second.Sentiment)
	assert.True(t, second.Cached)
}

func TestAnalyzeIncludesLocalNLPFields(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/analyze", gin.H{
		"content": "Investors were thrilled and excited after Acme Corp reported a great win in Austin, TX.",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SentimentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "joy", resp.Emotion)
	assert.Greater(t, resp.Readability, 0.0)
	assert.Contains(t, resp.Entities.Organizations, "Acme")
	assert.Contains(t, resp.Entities.Locations, "Austin")
}

func TestTrackReadingRecordsView(t *testing.T) {
	app := newTestApp(t)

	published := time.Now()
	for _, id := range []string{"a1", "a2"} {
		require.NoError(t, app.index.IndexArticle(&models.SearchDocument{
			ArticleID:   id,
			Title:       "Shared Topic " + id,
			Content:     "shared topic coverage",
			Category:    "general",
			Language:    "en",
			PublishedAt: &published,
		}))
	}

	app.do(t, http.MethodPost, "/api/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Str0ng!pass",
	}, nil)
	w := app.do(t, http.MethodPost, "/api/login", gin.H{
		"username": "alice", "password": "Str0ng!pass",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_token" {
			session = c
		}
	}
	require.NotNil(t, session)

	for i := 0; i < 2; i++ {
		w = app.do(t, http.MethodPost, "/api/user/history", gin.H{
			"article_id": "a2", "article_title": "Shared Topic a2", "category": "general",
		}, session)
		require.Equal(t, http.StatusOK, w.Code)
	}

	result, err := app.index.Search("topic", search.Filters{}, "popularity", 20, 0)
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)
	assert.Equal(t, "a2", result.Articles[0].ArticleID)
	assert.EqualValues(t, 2, result.Articles[0].ViewCount)
}

func TestReliabilityFallback(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/reliability", gin.H{"content": "anything"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReliabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 75, resp.Score)
}

func TestRateLimitHeadersAndBlock(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		w := app.do(t, http.MethodGet, "/api/search?q=bank", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	}

	w := app.do(t, http.MethodGet, "/api/search?q=bank", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSecurityHeadersPresent(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/trending", nil, nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestCacheStatsEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/cache/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Contains(t, stats, "total_hits")
	assert.Contains(t, stats, "hit_rate")
}

func TestAdminUpdateSettings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	cfg := &configs.Config{NewsAPIKey: "stale", OpenAIModel: "gpt-3.5-turbo", MaxArticlesPerCategory: 10}
	an := analytics.NewStore(openDB(t, "news_analytics.db",
		&models.ArticleAnalysis{}, &models.UserInteraction{}), log)
	auth := services.NewAuthService(openDB(t, "users.db",
		&models.User{}, &models.UserSession{}, &models.UserPreference{}, &models.ReadingHistory{}),
		time.Hour, log)
	limiter := security.NewLimiter(openDB(t, "rate_limits.db",
		&models.RateLimitRecord{}, &models.SecurityEvent{}), log)
	bot := newsbot.New(cfg.NewsAPIKey, "", cfg.OpenAIModel, 10, log)

	admin := NewAdminHandler(cfg, an, auth, limiter, bot, log)
	router := gin.New()
	router.POST("/settings", admin.UpdateSettings)

	body, _ := json.Marshal(gin.H{"news_api_key": "fresh-key", "max_articles_per_category": 5})
	req := httptest.NewRequest(http.MethodPost, "/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fresh-key", cfg.NewsAPIKey)
	assert.Equal(t, 5, cfg.MaxArticlesPerCategory)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := middleware.IssueAdminToken("admin", "test-secret")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/guarded", middleware.AdminAuth("test-secret"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": c.GetString("admin_username")})
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")

	// Wrong secret is rejected.
	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	badRouter := gin.New()
	badRouter.GET("/guarded", middleware.AdminAuth("other-secret"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	badRouter.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
