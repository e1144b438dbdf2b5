package export

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"newsbrief/internal/analytics"
	"newsbrief/internal/search"
)

// ReportGenerator builds read-only usage reports from the analytics and
// search stores.
type ReportGenerator struct {
	analytics *analytics.Store
	search    *search.Index
	log       *zap.Logger
}

func NewReportGenerator(an *analytics.Store, ix *search.Index, log *zap.Logger) *ReportGenerator {
	return &ReportGenerator{analytics: an, search: ix, log: log}
}

type UsageReport struct {
	ReportType        string                 `json:"report_type"`
	PeriodDays        int                    `json:"period_days"`
	GeneratedAt       time.Time              `json:"generated_at"`
	Summary           UsageSummary           `json:"summary"`
	DetailedAnalytics map[string]interface{} `json:"detailed_analytics"`
	Insights          []string               `json:"insights"`
}

type UsageSummary struct {
	TotalSearches    int64   `json:"total_searches"`
	TopCategory      string  `json:"top_category"`
	TotalCategories  int     `json:"total_categories"`
	AvgDailySearches float64 `json:"avg_daily_searches"`
}

// UsageReport aggregates sentiment, category and search analytics for the
// period and derives a few plain-language insights.
func (r *ReportGenerator) UsageReport(days int) (*UsageReport, error) {
	trends, err := r.analytics.SentimentTrends(days)
	if err != nil {
		return nil, err
	}
	categories, err := r.analytics.CategoryAnalytics()
	if err != nil {
		return nil, err
	}
	searchStats, err := r.search.GetSearchAnalytics(days)
	if err != nil {
		return nil, err
	}

	topCategory, topCount := "", int64(-1)
	for name, stats := range categories {
		if stats.TotalArticles > topCount || (stats.TotalArticles == topCount && name < topCategory) {
			topCategory, topCount = name, stats.TotalArticles
		}
	}

	avgDaily := 0.0
	if days > 0 {
		avgDaily = float64(searchStats.TotalSearches) / float64(days)
	}

	report := &UsageReport{
		ReportType:  "usage_report",
		PeriodDays:  days,
		GeneratedAt: time.Now(),
		Summary: UsageSummary{
			TotalSearches:    searchStats.TotalSearches,
			TopCategory:      topCategory,
			TotalCategories:  len(categories),
			AvgDailySearches: avgDaily,
		},
		DetailedAnalytics: map[string]interface{}{
			"sentiment_trends":   trends,
			"category_analytics": categories,
			"search_analytics":   searchStats,
		},
		Insights: buildInsights(trends, categories, searchStats),
	}
	return report, nil
}

func buildInsights(trends map[string]analytics.SentimentCounts, categories map[string]analytics.CategoryStats, searchStats *search.Analytics) []string {
	insights := []string{}

	if len(trends) > 0 {
		var positive, negative int64
		for _, c := range trends {
			positive += c.Positive
			negative += c.Negative
		}
		if positive > negative {
			insights = append(insights, "News sentiment has been predominantly positive recently")
		} else if negative > positive {
			insights = append(insights, "News sentiment has been predominantly negative recently")
		}
	}

	if len(categories) > 0 {
		topName, topCount := "", int64(-1)
		for name, stats := range categories {
			if stats.TotalArticles > topCount || (stats.TotalArticles == topCount && name < topName) {
				topName, topCount = name, stats.TotalArticles
			}
		}
		insights = append(insights, fmt.Sprintf("Most popular category: %s with %d articles", topName, topCount))
	}

	if len(searchStats.TopQueries) > 0 {
		top := searchStats.TopQueries[0]
		insights = append(insights, fmt.Sprintf("Most searched topic: %q with %d searches", top.Query, top.Count))
	}

	return insights
}
