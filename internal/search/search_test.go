package search

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"newsbrief/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "search_index.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SearchDocument{},
		&models.SearchHistory{},
		&models.PopularSearch{},
	))

	ix, err := NewIndex(db, zap.NewNop())
	require.NoError(t, err)
	return ix
}

func indexDoc(t *testing.T, ix *Index, id, title, content, category string) {
	t.Helper()
	published := time.Now()
	require.NoError(t, ix.IndexArticle(&models.SearchDocument{
		ArticleID:        id,
		Title:            title,
		Content:          content,
		Category:         category,
		Source:           "Test Wire",
		Language:         "en",
		ReliabilityScore: 75,
		PublishedAt:      &published,
	}))
}

func TestIndexAndSearch(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Central Bank Raises Rates", "The central bank raised interest rates again today", "business")
	indexDoc(t, ix, "a2", "Team Wins Championship", "A dramatic overtime finish sealed the title", "sports")

	result, err := ix.Search("bank", Filters{}, "relevance", 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, "a1", result.Articles[0].ArticleID)
}

func TestReindexUpserts(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Old Title", "old content about shipping", "business")
	indexDoc(t, ix, "a1", "New Title", "updated content about aviation", "business")

	var count int64
	require.NoError(t, ix.db.Model(&models.SearchDocument{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	result, err := ix.Search("aviation", Filters{}, "relevance", 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, "New Title", result.Articles[0].Title)

	// The stale text no longer matches.
	result, err = ix.Search("shipping", Filters{}, "relevance", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.TotalCount)
}

func TestCategoryFilter(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Market Update", "markets rallied on earnings", "business")
	indexDoc(t, ix, "a2", "Market Race", "drivers raced through street markets", "sports")

	result, err := ix.Search("markets", Filters{Category: "sports"}, "relevance", 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, "a2", result.Articles[0].ArticleID)
}

func TestFilterOnlySearch(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "One", "alpha body", "business")
	indexDoc(t, ix, "a2", "Two", "beta body", "business")
	indexDoc(t, ix, "a3", "Three", "gamma body", "health")

	result, err := ix.Search("", Filters{Category: "business"}, "date", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.TotalCount)
}

func TestPagination(t *testing.T) {
	ix := newTestIndex(t)
	for i := 0; i < 5; i++ {
		indexDoc(t, ix, fmt.Sprintf("a%d", i), fmt.Sprintf("Budget Story %d", i), "national budget coverage", "general")
	}

	page, err := ix.Search("budget", Filters{}, "relevance", 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.TotalCount)
	assert.Len(t, page.Articles, 2)
	assert.True(t, page.HasMore)

	last, err := ix.Search("budget", Filters{}, "relevance", 2, 4)
	require.NoError(t, err)
	assert.Len(t, last.Articles, 1)
	assert.False(t, last.HasMore)
}

func TestDeactivateArticleHidesIt(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Hidden Story", "confidential merger talks", "business")

	require.NoError(t, ix.DeactivateArticle("a1"))

	result, err := ix.Search("merger", Filters{}, "relevance", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.TotalCount)
}

func TestPopularitySort(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Story One", "shared topic coverage", "general")
	indexDoc(t, ix, "a2", "Story Two", "shared topic coverage again", "general")

	require.NoError(t, ix.RecordView("a2"))
	require.NoError(t, ix.RecordView("a2"))
	require.NoError(t, ix.RecordView("a1"))

	result, err := ix.Search("topic", Filters{}, "popularity", 20, 0)
	require.NoError(t, err)
	require.Len(t, result.Articles, 2)
	assert.Equal(t, "a2", result.Articles[0].ArticleID)
	assert.EqualValues(t, 2, result.Articles[0].ViewCount)
}

func TestFtsSyntaxInjectionIsQuoted(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Normal Story", "plain ordinary coverage", "general")

	// Bare FTS operators would be a syntax error without quoting.
	result, err := ix.Search(`coverage AND "`, Filters{}, "relevance", 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestSuggestions(t *testing.T) {
	ix := newTestIndex(t)
	indexDoc(t, ix, "a1", "Climate Summit Opens", "world leaders discuss climate policy", "science")
	indexDoc(t, ix, "a2", "Climate Funding Deal", "new climate funding agreement", "science")

	suggestions := ix.GetSuggestions("clim", 10)
	assert.NotEmpty(t, suggestions)
	for i, s := range suggestions {
		for j := i + 1; j < len(suggestions); j++ {
			assert.NotEqual(t, s, suggestions[j], "suggestions must be unique")
		}
	}
}

func TestTrackSearchAndPopular(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.TrackSearch("1", "climate", Filters{}, 3))
	require.NoError(t, ix.TrackSearch("", "climate", Filters{}, 2))
	require.NoError(t, ix.TrackSearch("2", "economy", Filters{}, 5))

	popular, err := ix.GetPopularSearches(10)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "climate", popular[0].Query)
	assert.EqualValues(t, 2, popular[0].Count)
}

func TestGetSearchAnalytics(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.TrackSearch("1", "ai", Filters{}, 1))
	require.NoError(t, ix.TrackSearch("1", "ai", Filters{}, 1))
	require.NoError(t, ix.TrackSearch("2", "rates", Filters{}, 4))

	stats, err := ix.GetSearchAnalytics(7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalSearches)
	require.NotEmpty(t, stats.TopQueries)
	assert.Equal(t, "ai", stats.TopQueries[0].Query)
	assert.NotEmpty(t, stats.SearchTrends)
}

func TestValidateFilters(t *testing.T) {
	f := ValidateFilters(Filters{
		Category:       "not-a-category",
		Sentiment:      "Positive",
		MinReliability: 150,
		DateFrom:       "garbage",
		DateTo:         "2026-08-01",
	})

	assert.Empty(t, f.Category)
	assert.Equal(t, "Positive", f.Sentiment)
	assert.Empty(t, f.DateFrom)
	assert.Equal(t, "2026-08-01", f.DateTo)
}
