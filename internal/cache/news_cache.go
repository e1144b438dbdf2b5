package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"newsbrief/internal/models"
)

// Per-namespace TTLs, not caller-configurable.
const (
	newsTTL      = 5 * time.Minute
	summaryTTL   = time.Hour
	sentimentTTL = time.Hour
	trendingTTL  = 30 * time.Minute
)

// NewsCache builds namespaced keys for the news domain on top of Store.
// Keys keep the namespace as a plaintext prefix so category-level
// invalidation can match them.
type NewsCache struct {
	store *Store
}

func NewNewsCache(store *Store) *NewsCache {
	return &NewsCache{store: store}
}

// ContentHash returns a stable digest of article text, used as the cache and
// dedup key for summaries and sentiment results.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func cacheKey(namespace string, args ...interface{}) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%v", namespace, args)))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// newsKey keeps the category as a plaintext segment so InvalidateCategory
// can match listings by prefix.
func newsKey(category, query, country string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", query, country)))
	return "news:" + category + ":" + hex.EncodeToString(sum[:])
}

func (nc *NewsCache) GetNews(category, query, country string, target interface{}) (bool, error) {
	return nc.store.Get(newsKey(category, query, country), target)
}

func (nc *NewsCache) SetNews(category, query, country string, data interface{}) error {
	return nc.store.Set(newsKey(category, query, country), data, newsTTL)
}

func (nc *NewsCache) GetSummary(contentHash, language string) (string, bool, error) {
	var summary string
	found, err := nc.store.Get(cacheKey("summary", contentHash, language), &summary)
	return summary, found, err
}

func (nc *NewsCache) SetSummary(contentHash, language, summary string) error {
	return nc.store.Set(cacheKey("summary", contentHash, language), summary, summaryTTL)
}

func (nc *NewsCache) GetSentiment(contentHash string) (string, bool, error) {
	var sentiment string
	found, err := nc.store.Get(cacheKey("sentiment", contentHash), &sentiment)
	return sentiment, found, err
}

func (nc *NewsCache) SetSentiment(contentHash, sentiment string) error {
	return nc.store.Set(cacheKey("sentiment", contentHash), sentiment, sentimentTTL)
}

func (nc *NewsCache) GetTrending(days int, target interface{}) (bool, error) {
	return nc.store.Get(cacheKey("trending", days), target)
}

func (nc *NewsCache) SetTrending(days int, topics interface{}) error {
	return nc.store.Set(cacheKey("trending", days), topics, trendingTTL)
}

// InvalidateCategory drops the news listings for one category plus all
// trending snapshots, which aggregate across categories. Summaries and
// sentiments are content-addressed and survive.
func (nc *NewsCache) InvalidateCategory(category string) error {
	nc.store.local.Flush()
	return nc.store.db.
		Where("key LIKE ? OR key LIKE ?", "news:"+category+":%", "trending:%").
		Delete(&models.CacheEntry{}).Error
}
