package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbrief/internal/models"
)

func TestContentHashStable(t *testing.T) {
	a := ContentHash("breaking news")
	b := ContentHash("breaking news")
	c := ContentHash("other news")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestCacheKeyNamespacePrefix(t *testing.T) {
	key := cacheKey("sentiment", ContentHash("body"))
	assert.Regexp(t, `^sentiment:[0-9a-f]{64}$`, key)

	news := newsKey("technology", "", "us")
	assert.Regexp(t, `^news:technology:[0-9a-f]{64}$`, news)
	assert.NotEqual(t, news, newsKey("business", "", "us"))
	assert.NotEqual(t, news, newsKey("technology", "golang", "us"))
}

func TestNewsCacheRoundTrip(t *testing.T) {
	nc := NewNewsCache(newTestStore(t))

	payload := map[string]interface{}{"status": "ok", "totalResults": float64(2)}
	require.NoError(t, nc.SetNews("technology", "", "us", payload))

	var got map[string]interface{}
	found, err := nc.GetNews("technology", "", "us", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ok", got["status"])

	// Different query key misses.
	found, err = nc.GetNews("technology", "golang", "us", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSummaryPerLanguage(t *testing.T) {
	nc := NewNewsCache(newTestStore(t))
	hash := ContentHash("article body")

	require.NoError(t, nc.SetSummary(hash, "English", "short version"))

	summary, found, err := nc.GetSummary(hash, "English")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "short version", summary)

	_, found, err = nc.GetSummary(hash, "Spanish")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateCategoryKeepsSummaries(t *testing.T) {
	nc := NewNewsCache(newTestStore(t))
	hash := ContentHash("some article")

	require.NoError(t, nc.SetNews("technology", "", "us", map[string]string{"status": "ok"}))
	require.NoError(t, nc.SetNews("business", "", "us", map[string]string{"status": "ok"}))
	require.NoError(t, nc.SetTrending(7, []string{"ai"}))
	require.NoError(t, nc.SetSummary(hash, "English", "kept"))

	require.NoError(t, nc.InvalidateCategory("technology"))

	var news map[string]string
	found, err := nc.GetNews("technology", "", "us", &news)
	require.NoError(t, err)
	assert.False(t, found)

	// Other categories keep their listings in the sqlite tier.
	var count int64
	require.NoError(t, nc.store.db.Model(&models.CacheEntry{}).
		Where("key LIKE ?", "news:business:%").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var trending []string
	found, err = nc.GetTrending(7, &trending)
	require.NoError(t, err)
	assert.False(t, found)

	summary, found, err := nc.GetSummary(hash, "English")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "kept", summary)
}
