package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/internal/search"
	"newsbrief/internal/services"
)

type UserHandler struct {
	authService *services.AuthService
	searchIndex *search.Index
	log         *zap.Logger
}

func NewUserHandler(authService *services.AuthService, ix *search.Index, log *zap.Logger) *UserHandler {
	return &UserHandler{authService: authService, searchIndex: ix, log: log}
}

// GetPreferences returns all preferences for the current user
// @Summary Get user preferences
// @Produce json
// @Router /api/user/preferences [get]
func (h *UserHandler) GetPreferences(c *gin.Context) {
	userID := currentUserID(c)

	prefs, err := h.authService.GetAllPreferences(userID)
	if err != nil {
		h.log.Error("preferences load failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// SetPreferences stores a batch of preferences for the current user
// @Summary Set user preferences
// @Accept json
// @Produce json
// @Router /api/user/preferences [post]
func (h *UserHandler) SetPreferences(c *gin.Context) {
	userID := currentUserID(c)

	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No preferences provided"})
		return
	}

	category, _ := req["category"].(string)
	delete(req, "category")

	for prefType, value := range req {
		if err := h.authService.SetPreference(userID, prefType, value, category); err != nil {
			h.log.Error("preference save failed", zap.String("type", prefType), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to save preferences"})
			return
		}
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// GetHistory returns the current user's reading history
// @Summary Get reading history
// @Produce json
// @Router /api/user/history [get]
func (h *UserHandler) GetHistory(c *gin.Context) {
	userID := currentUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.authService.GetReadingHistory(userID, limit)
	if err != nil {
		h.log.Error("history load failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load reading history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// TrackReading appends an entry to the current user's reading history
// @Summary Track a read article
// @Accept json
// @Produce json
// @Router /api/user/history [post]
func (h *UserHandler) TrackReading(c *gin.Context) {
	userID := currentUserID(c)

	var req TrackReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ArticleID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "article_id is required"})
		return
	}

	if err := h.authService.TrackReading(userID, req.ArticleID, req.ArticleTitle, req.Category, req.ReadingTime); err != nil {
		h.log.Error("reading track failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to track reading"})
		return
	}

	// A tracked read counts as a view for the popularity sort.
	if err := h.searchIndex.RecordView(req.ArticleID); err != nil {
		h.log.Warn("view record failed", zap.String("article_id", req.ArticleID), zap.Error(err))
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// GetStats returns reading statistics for the current user
// @Summary Get reading stats
// @Produce json
// @Router /api/user/stats [get]
func (h *UserHandler) GetStats(c *gin.Context) {
	userID := currentUserID(c)
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	stats, err := h.authService.GetReadingStats(userID, days)
	if err != nil {
		h.log.Error("stats load failed", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load reading stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// currentUserID assumes RequireSession already ran.
func currentUserID(c *gin.Context) uint {
	v, _ := c.Get("user_id")
	id, _ := v.(uint)
	return id
}

func userIDString(v interface{}) string {
	if id, ok := v.(uint); ok {
		return strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("%v", v)
}

type TrackReadingRequest struct {
	ArticleID    string `json:"article_id"`
	ArticleTitle string `json:"article_title"`
	Category     string `json:"category"`
	ReadingTime  int    `json:"reading_time"`
}
