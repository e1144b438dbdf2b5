package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"newsbrief/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxKeywords = 20

// Index stores articles in a document table plus an FTS5 shadow table and
// records query history for the popular-searches leaderboard.
type Index struct {
	db  *gorm.DB
	log *zap.Logger
}

// Filters narrow a search beyond the full-text match.
type Filters struct {
	Category       string `json:"category,omitempty"`
	Source         string `json:"source,omitempty"`
	Sentiment      string `json:"sentiment,omitempty"`
	Language       string `json:"language,omitempty"`
	MinReliability int    `json:"min_reliability,omitempty"`
	DateFrom       string `json:"date_from,omitempty"`
	DateTo         string `json:"date_to,omitempty"`
}

type Article struct {
	ArticleID        string     `json:"article_id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Category         string     `json:"category"`
	Source           string     `json:"source"`
	Author           string     `json:"author"`
	PublishedAt      *time.Time `json:"published_at"`
	Sentiment        string     `json:"sentiment"`
	ReliabilityScore int        `json:"reliability_score"`
	WordCount        int        `json:"word_count"`
	ViewCount        int64      `json:"view_count"`
	Language         string     `json:"language"`
}

type Result struct {
	Articles   []Article `json:"articles"`
	TotalCount int64     `json:"total_count"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
	HasMore    bool      `json:"has_more"`
}

type PopularQuery struct {
	Query        string    `json:"query"`
	Count        int64     `json:"count"`
	LastSearched time.Time `json:"last_searched"`
}

type Analytics struct {
	TotalSearches int64            `json:"total_searches"`
	TopQueries    []PopularQuery   `json:"top_queries"`
	SearchTrends  map[string]int64 `json:"search_trends"`
}

var sortOptions = map[string]bool{
	"relevance": true, "date": true, "reliability": true, "popularity": true,
}

var validCategories = map[string]bool{
	"general": true, "business": true, "technology": true,
	"entertainment": true, "health": true, "science": true, "sports": true,
}

var validSentiments = map[string]bool{
	"Positive": true, "Negative": true, "Neutral": true,
}

// NewIndex prepares the FTS5 shadow table alongside the migrated document
// tables.
func NewIndex(db *gorm.DB, log *zap.Logger) (*Index, error) {
	err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
		title, content, keywords, category, source, author
	)`).Error
	if err != nil {
		return nil, fmt.Errorf("create fts table: %w", err)
	}
	return &Index{db: db, log: log}, nil
}

// IndexArticle upserts a document keyed by article_id into both the document
// table and the full-text index. Keywords are derived from the content at
// index time.
func (ix *Index) IndexArticle(doc *models.SearchDocument) error {
	if doc.ArticleID == "" {
		return fmt.Errorf("article_id is required")
	}

	keywords := ExtractKeywords(doc.Content, maxKeywords)
	blob, _ := json.Marshal(keywords)
	doc.Keywords = string(blob)
	if doc.WordCount == 0 {
		doc.WordCount = len(strings.Fields(doc.Content))
	}
	doc.IndexedAt = time.Now()
	doc.IsActive = true

	err := ix.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "article_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "content", "category", "source", "author", "published_at",
			"keywords", "sentiment", "reliability_score", "word_count",
			"language", "indexed_at", "is_active",
		}),
	}).Create(doc).Error
	if err != nil {
		return fmt.Errorf("index article %s: %w", doc.ArticleID, err)
	}

	var stored models.SearchDocument
	if err := ix.db.Select("id").First(&stored, "article_id = ?", doc.ArticleID).Error; err != nil {
		return err
	}

	// Keep the FTS rowid aligned with search_index.id.
	if err := ix.db.Exec(`DELETE FROM articles_fts WHERE rowid = ?`, stored.ID).Error; err != nil {
		return err
	}
	return ix.db.Exec(
		`INSERT INTO articles_fts (rowid, title, content, keywords, category, source, author)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, doc.Title, doc.Content, doc.Keywords, doc.Category, doc.Source, doc.Author,
	).Error
}

// DeactivateArticle soft-deletes a document and removes it from the
// full-text index.
func (ix *Index) DeactivateArticle(articleID string) error {
	var doc models.SearchDocument
	if err := ix.db.Select("id").First(&doc, "article_id = ?", articleID).Error; err != nil {
		return err
	}
	if err := ix.db.Model(&models.SearchDocument{}).
		Where("article_id = ?", articleID).
		UpdateColumn("is_active", false).Error; err != nil {
		return err
	}
	return ix.db.Exec(`DELETE FROM articles_fts WHERE rowid = ?`, doc.ID).Error
}

// Search runs the full-text match intersected with the filters and returns
// one page of results plus the total match count.
func (ix *Index) Search(query string, filters Filters, sortBy string, limit, offset int) (*Result, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if !sortOptions[sortBy] {
		sortBy = "relevance"
	}

	var (
		conds  []string
		params []interface{}
	)

	base := `FROM search_index si`
	if query != "" {
		base += ` JOIN articles_fts ON si.id = articles_fts.rowid`
		conds = append(conds, "articles_fts MATCH ?")
		params = append(params, ftsMatchExpr(query))
	}
	conds = append(conds, "si.is_active = 1")

	if filters.Category != "" {
		conds = append(conds, "si.category = ?")
		params = append(params, filters.Category)
	}
	if filters.Source != "" {
		conds = append(conds, "si.source = ?")
		params = append(params, filters.Source)
	}
	if filters.Sentiment != "" {
		conds = append(conds, "si.sentiment = ?")
		params = append(params, filters.Sentiment)
	}
	if filters.Language != "" {
		conds = append(conds, "si.language = ?")
		params = append(params, filters.Language)
	}
	if filters.MinReliability > 0 {
		conds = append(conds, "si.reliability_score >= ?")
		params = append(params, filters.MinReliability)
	}
	if filters.DateFrom != "" {
		conds = append(conds, "si.published_at >= ?")
		params = append(params, filters.DateFrom)
	}
	if filters.DateTo != "" {
		conds = append(conds, "si.published_at <= ?")
		params = append(params, filters.DateTo)
	}

	where := " WHERE " + strings.Join(conds, " AND ")

	var total int64
	if err := ix.db.Raw("SELECT COUNT(*) "+base+where, params...).Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("search count: %w", err)
	}

	order := ""
	switch sortBy {
	case "relevance":
		if query != "" {
			// bm25 reports lower values for better matches.
			order = " ORDER BY bm25(articles_fts)"
		} else {
			order = " ORDER BY si.published_at DESC"
		}
	case "date":
		order = " ORDER BY si.published_at DESC"
	case "reliability":
		order = " ORDER BY si.reliability_score DESC"
	case "popularity":
		order = " ORDER BY si.view_count DESC, si.word_count DESC"
	}

	sel := `SELECT si.article_id, si.title, si.content, si.category, si.source,
		si.author, si.published_at, si.sentiment, si.reliability_score,
		si.word_count, si.view_count, si.language `

	rows := []Article{}
	fullParams := append(params, limit, offset)
	if err := ix.db.Raw(sel+base+where+order+" LIMIT ? OFFSET ?", fullParams...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}

	return &Result{
		Articles:   rows,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+limit) < total,
	}, nil
}

// ftsMatchExpr quotes each token so user input cannot inject FTS5 query
// syntax.
func ftsMatchExpr(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// GetSuggestions returns titles and keywords containing the query substring,
// case-insensitive, capped at limit.
func (ix *Index) GetSuggestions(query string, limit int) []string {
	if query == "" || limit <= 0 {
		return nil
	}

	type row struct {
		Title    string
		Keywords string
	}
	var docs []row
	pattern := "%" + query + "%"
	err := ix.db.Model(&models.SearchDocument{}).
		Select("DISTINCT title, keywords").
		Where("title LIKE ? OR keywords LIKE ?", pattern, pattern).
		Limit(limit * 2).
		Scan(&docs).Error
	if err != nil {
		ix.log.Warn("suggestion query failed", zap.Error(err))
		return nil
	}

	lowered := strings.ToLower(query)
	seen := make(map[string]bool)
	var suggestions []string
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Title), lowered) && !seen[d.Title] {
			seen[d.Title] = true
			suggestions = append(suggestions, d.Title)
		}
		if d.Keywords != "" {
			var keywords []string
			if err := json.Unmarshal([]byte(d.Keywords), &keywords); err == nil {
				for _, kw := range keywords {
					if strings.Contains(strings.ToLower(kw), lowered) && !seen[kw] {
						seen[kw] = true
						suggestions = append(suggestions, kw)
					}
				}
			}
		}
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// TrackSearch appends to the history log and bumps the per-query counter.
func (ix *Index) TrackSearch(userID, query string, filters Filters, resultsCount int64) error {
	blob, _ := json.Marshal(filters)
	history := models.SearchHistory{
		UserID:       userID,
		Query:        query,
		Filters:      string(blob),
		ResultsCount: int(resultsCount),
		Timestamp:    time.Now(),
	}
	if err := ix.db.Create(&history).Error; err != nil {
		return err
	}

	popular := models.PopularSearch{
		Query:        query,
		SearchCount:  1,
		LastSearched: time.Now(),
	}
	return ix.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "query"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"search_count":  gorm.Expr("search_count + 1"),
			"last_searched": time.Now(),
		}),
	}).Create(&popular).Error
}

// GetPopularSearches ranks queries by count, then recency.
func (ix *Index) GetPopularSearches(limit int) ([]PopularQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.PopularSearch
	err := ix.db.
		Order("search_count DESC, last_searched DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	popular := make([]PopularQuery, 0, len(rows))
	for _, r := range rows {
		popular = append(popular, PopularQuery{
			Query:        r.Query,
			Count:        r.SearchCount,
			LastSearched: r.LastSearched,
		})
	}
	return popular, nil
}

// RecordView bumps a document's view counter, which feeds the popularity
// sort order.
func (ix *Index) RecordView(articleID string) error {
	return ix.db.Model(&models.SearchDocument{}).
		Where("article_id = ?", articleID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// GetSearchAnalytics aggregates the history log over the past days.
func (ix *Index) GetSearchAnalytics(days int) (*Analytics, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var total int64
	if err := ix.db.Model(&models.SearchHistory{}).
		Where("timestamp >= ?", cutoff).
		Count(&total).Error; err != nil {
		return nil, err
	}

	type queryCount struct {
		Query string
		Count int64
	}
	var top []queryCount
	err := ix.db.Model(&models.SearchHistory{}).
		Select("query, COUNT(*) as count").
		Where("timestamp >= ?", cutoff).
		Group("query").
		Order("count DESC").
		Limit(10).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}

	type dayCount struct {
		Date  string
		Count int64
	}
	var trend []dayCount
	err = ix.db.Model(&models.SearchHistory{}).
		Select("DATE(timestamp) as date, COUNT(*) as count").
		Where("timestamp >= ?", cutoff).
		Group("DATE(timestamp)").
		Order("date").
		Scan(&trend).Error
	if err != nil {
		return nil, err
	}

	analytics := &Analytics{
		TotalSearches: total,
		SearchTrends:  make(map[string]int64, len(trend)),
	}
	for _, q := range top {
		analytics.TopQueries = append(analytics.TopQueries, PopularQuery{Query: q.Query, Count: q.Count})
	}
	for _, d := range trend {
		analytics.SearchTrends[d.Date] = d.Count
	}
	return analytics, nil
}

// ValidateFilters drops values outside the known vocabularies.
func ValidateFilters(f Filters) Filters {
	var v Filters
	if validCategories[f.Category] {
		v.Category = f.Category
	}
	v.Source = f.Source
	if validSentiments[f.Sentiment] {
		v.Sentiment = f.Sentiment
	}
	v.Language = f.Language
	if f.MinReliability >= 0 && f.MinReliability <= 100 {
		v.MinReliability = f.MinReliability
	}
	for _, d := range []struct {
		in  string
		out *string
	}{{f.DateFrom, &v.DateFrom}, {f.DateTo, &v.DateTo}} {
		if d.in != "" {
			if _, err := time.Parse("2006-01-02", d.in); err == nil {
				*d.out = d.in
			}
		}
	}
	return v
}
