package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"newsbrief/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store holds per-article analysis results and user interaction events in an
// append-only fashion; everything else here is aggregation on read.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// ArticleInput carries one analyzed article into the store.
type ArticleInput struct {
	Category         string
	Sentiment        string
	ReliabilityScore int
	WordCount        int
	Language         string
	Keywords         []string
	Source           string
}

// StoreArticleAnalysis appends one analysis row. Rows are never mutated or
// deleted.
func (s *Store) StoreArticleAnalysis(in ArticleInput) error {
	blob, _ := json.Marshal(in.Keywords)
	row := models.ArticleAnalysis{
		Timestamp:        time.Now(),
		Category:         in.Category,
		Sentiment:        in.Sentiment,
		ReliabilityScore: in.ReliabilityScore,
		WordCount:        in.WordCount,
		Language:         in.Language,
		Keywords:         string(blob),
		Source:           in.Source,
	}
	return s.db.Create(&row).Error
}

// TrackInteraction records a single user action for activity summaries.
func (s *Store) TrackInteraction(userID, action, category, searchQuery, articleID string) error {
	row := models.UserInteraction{
		Timestamp:   time.Now(),
		UserID:      userID,
		Action:      action,
		Category:    category,
		SearchQuery: searchQuery,
		ArticleID:   articleID,
	}
	return s.db.Create(&row).Error
}

type TrendingTopic struct {
	Keywords  []string `json:"keywords"`
	Category  string   `json:"category"`
	Frequency int64    `json:"frequency"`
}

// TrendingTopics groups recent analysis rows by keyword set and category,
// most frequent first.
func (s *Store) TrendingTopics(days int) ([]TrendingTopic, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	type row struct {
		Keywords  string
		Category  string
		Frequency int64
	}
	var rows []row
	err := s.db.Model(&models.ArticleAnalysis{}).
		Select("keywords, category, COUNT(*) as frequency").
		Where("timestamp >= ?", cutoff).
		Group("keywords, category").
		Order("frequency DESC").
		Limit(20).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("trending topics: %w", err)
	}

	trending := make([]TrendingTopic, 0, len(rows))
	for _, r := range rows {
		if r.Keywords == "" {
			continue
		}
		var keywords []string
		if err := json.Unmarshal([]byte(r.Keywords), &keywords); err != nil {
			continue
		}
		// A nil slice marshals to "null", which survives the empty-string check.
		if len(keywords) == 0 {
			continue
		}
		trending = append(trending, TrendingTopic{
			Keywords:  keywords,
			Category:  r.Category,
			Frequency: r.Frequency,
		})
	}
	return trending, nil
}

// SentimentCounts is the per-day sentiment breakdown.
type SentimentCounts struct {
	Positive int64 `json:"Positive"`
	Negative int64 `json:"Negative"`
	Neutral  int64 `json:"Neutral"`
}

func (s *Store) SentimentTrends(days int) (map[string]SentimentCounts, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	type row struct {
		Date      string
		Sentiment string
		Count     int64
	}
	var rows []row
	err := s.db.Model(&models.ArticleAnalysis{}).
		Select("DATE(timestamp) as date, sentiment, COUNT(*) as count").
		Where("timestamp >= ?", cutoff).
		Group("DATE(timestamp), sentiment").
		Order("date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	trends := make(map[string]SentimentCounts)
	for _, r := range rows {
		c := trends[r.Date]
		switch r.Sentiment {
		case "Positive":
			c.Positive = r.Count
		case "Negative":
			c.Negative = r.Count
		case "Neutral":
			c.Neutral = r.Count
		}
		trends[r.Date] = c
	}
	return trends, nil
}

type CategoryStats struct {
	TotalArticles  int64            `json:"total_articles"`
	AvgReliability float64          `json:"avg_reliability"`
	AvgWordCount   float64          `json:"avg_word_count"`
	Sentiments     map[string]int64 `json:"sentiments"`
}

func (s *Store) CategoryAnalytics() (map[string]CategoryStats, error) {
	type row struct {
		Category       string
		AvgReliability float64
		AvgWordCount   float64
		Count          int64
		Sentiment      string
	}
	var rows []row
	err := s.db.Model(&models.ArticleAnalysis{}).
		Select("category, AVG(reliability_score) as avg_reliability, AVG(word_count) as avg_word_count, COUNT(*) as count, sentiment").
		Group("category, sentiment").
		Order("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]CategoryStats)
	for _, r := range rows {
		stats, ok := out[r.Category]
		if !ok {
			stats = CategoryStats{Sentiments: map[string]int64{"Positive": 0, "Negative": 0, "Neutral": 0}}
		}
		stats.TotalArticles += r.Count
		stats.Sentiments[r.Sentiment] = r.Count
		if r.AvgReliability > stats.AvgReliability {
			stats.AvgReliability = r.AvgReliability
		}
		if r.AvgWordCount > stats.AvgWordCount {
			stats.AvgWordCount = r.AvgWordCount
		}
		out[r.Category] = stats
	}
	return out, nil
}

// UserActivitySummary counts actions per category; an empty userID
// aggregates across all users.
func (s *Store) UserActivitySummary(userID string, days int) (map[string]int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	q := s.db.Model(&models.UserInteraction{}).
		Select("action, category, COUNT(*) as count").
		Where("timestamp >= ?", cutoff)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	type row struct {
		Action   string
		Category string
		Count    int64
	}
	var rows []row
	if err := q.Group("action, category").Order("count DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := make(map[string]int64, len(rows))
	for _, r := range rows {
		key := r.Action
		if r.Category != "" {
			key = r.Action + "_" + r.Category
		}
		summary[key] = r.Count
	}
	return summary, nil
}

// CountArticles reports how many analysis rows exist, for admin dashboards.
func (s *Store) CountArticles() (int64, error) {
	var n int64
	err := s.db.Model(&models.ArticleAnalysis{}).Count(&n).Error
	return n, err
}

// AvgReliability reports the mean reliability score across all analyzed
// articles.
func (s *Store) AvgReliability() (float64, error) {
	var avg *float64
	err := s.db.Model(&models.ArticleAnalysis{}).
		Select("AVG(reliability_score)").Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}
