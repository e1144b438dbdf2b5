package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/internal/search"
	"newsbrief/internal/security"
)

type SearchHandler struct {
	index *search.Index
	log   *zap.Logger
}

func NewSearchHandler(index *search.Index, log *zap.Logger) *SearchHandler {
	return &SearchHandler{index: index, log: log}
}

// Search runs a full-text search over indexed articles
// @Summary Search articles
// @Produce json
// @Router /api/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query != "" {
		if ok, reason := security.ValidateSearchQuery(query); !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: reason})
			return
		}
	}

	minReliability, _ := strconv.Atoi(c.Query("min_reliability"))
	filters := search.ValidateFilters(search.Filters{
		Category:       c.Query("category"),
		Source:         c.Query("source"),
		Sentiment:      c.Query("sentiment"),
		Language:       c.Query("language"),
		MinReliability: minReliability,
		DateFrom:       c.Query("date_from"),
		DateTo:         c.Query("date_to"),
	})

	sortBy := c.DefaultQuery("sort", "relevance")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.index.Search(query, filters, sortBy, limit, offset)
	if err != nil {
		h.log.Error("search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Search failed"})
		return
	}

	userID := ""
	if v, exists := c.Get("user_id"); exists {
		userID = userIDString(v)
	}
	if err := h.index.TrackSearch(userID, query, filters, result.TotalCount); err != nil {
		h.log.Warn("search track failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, result)
}

// Suggestions returns title and keyword completions for a prefix
// @Summary Search suggestions
// @Produce json
// @Router /api/search/suggestions [get]
func (h *SearchHandler) Suggestions(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	suggestions := h.index.GetSuggestions(query, limit)
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// Popular returns the most frequent recent queries
// @Summary Popular searches
// @Produce json
// @Router /api/search/popular [get]
func (h *SearchHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	popular, err := h.index.GetPopularSearches(limit)
	if err != nil {
		h.log.Error("popular searches failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load popular searches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"popular": popular})
}
