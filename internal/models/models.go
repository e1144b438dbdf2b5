package models

import "time"

// Cache entries (cache.db)
type CacheEntry struct {
	Key          string `gorm:"primaryKey;type:varchar(64)"`
	Value        string `gorm:"type:text"`
	CreatedAt    time.Time
	ExpiresAt    *time.Time `gorm:"index"`
	AccessCount  int64      `gorm:"not null;default:0"`
	LastAccessed time.Time
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

// Global cache counters, single row with ID 1
type CacheStats struct {
	ID          uint  `gorm:"primaryKey"`
	TotalHits   int64 `gorm:"not null;default:0"`
	TotalMisses int64 `gorm:"not null;default:0"`
	LastCleanup time.Time
}

func (CacheStats) TableName() string {
	return "cache_stats"
}

// Rate limit records (rate_limits.db)
type RateLimitRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Identifier   string `gorm:"type:varchar(100);uniqueIndex:idx_identifier_endpoint;not null"`
	Endpoint     string `gorm:"type:varchar(200);uniqueIndex:idx_identifier_endpoint;not null"`
	RequestCount int    `gorm:"not null;default:1"`
	WindowStart  time.Time
	LastRequest  time.Time
	IsBlocked    bool `gorm:"not null;default:false"`
	BlockUntil   *time.Time
}

func (RateLimitRecord) TableName() string {
	return "rate_limits"
}

type SecurityEvent struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	EventType  string `gorm:"type:varchar(100);not null"`
	Identifier string `gorm:"type:varchar(100)"`
	IPAddress  string `gorm:"type:varchar(45)"`
	UserAgent  string `gorm:"type:text"`
	Details    string `gorm:"type:text"`
	Timestamp  time.Time
}

func (SecurityEvent) TableName() string {
	return "security_events"
}

// Users (users.db)
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(128);not null"`
	Salt         string `gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool `gorm:"not null;default:true"`
}

func (User) TableName() string {
	return "users"
}

type UserSession struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	UserID       uint   `gorm:"index;not null"`
	SessionToken string `gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedAt    time.Time
	ExpiresAt    time.Time
	IPAddress    string `gorm:"type:varchar(45)"`
	UserAgent    string `gorm:"type:text"`
	IsActive     bool   `gorm:"not null;default:true"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

type UserPreference struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	UserID          uint   `gorm:"uniqueIndex:idx_user_pref;not null"`
	Category        string `gorm:"type:varchar(100);uniqueIndex:idx_user_pref"`
	PreferenceType  string `gorm:"type:varchar(100);uniqueIndex:idx_user_pref;not null"`
	PreferenceValue string `gorm:"type:text"`
	CreatedAt       time.Time
}

func (UserPreference) TableName() string {
	return "user_preferences"
}

type ReadingHistory struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	UserID       uint   `gorm:"index;not null"`
	ArticleID    string `gorm:"type:varchar(100)"`
	ArticleTitle string `gorm:"type:text"`
	Category     string `gorm:"type:varchar(100)"`
	ReadAt       time.Time
	ReadingTime  int `gorm:"not null;default:0"`
}

func (ReadingHistory) TableName() string {
	return "reading_history"
}

// Search documents (search_index.db). The FTS5 shadow table is managed with
// raw SQL in the search package.
type SearchDocument struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	ArticleID        string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Title            string `gorm:"type:text;not null"`
	Content          string `gorm:"type:text;not null"`
	Category         string `gorm:"type:varchar(100);index"`
	Source           string `gorm:"type:varchar(200)"`
	Author           string `gorm:"type:varchar(200)"`
	PublishedAt      *time.Time
	IndexedAt        time.Time
	Keywords         string `gorm:"type:text"`
	Sentiment        string `gorm:"type:varchar(20)"`
	ReliabilityScore int    `gorm:"not null;default:0"`
	WordCount        int    `gorm:"not null;default:0"`
	ViewCount        int64  `gorm:"not null;default:0"`
	Language         string `gorm:"type:varchar(50)"`
	IsActive         bool   `gorm:"not null;default:true"`
}

func (SearchDocument) TableName() string {
	return "search_index"
}

type SearchHistory struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	UserID       string `gorm:"type:varchar(100)"`
	Query        string `gorm:"type:text"`
	Filters      string `gorm:"type:text"`
	ResultsCount int
	Timestamp    time.Time `gorm:"index"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}

type PopularSearch struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Query        string `gorm:"type:text;uniqueIndex;not null"`
	SearchCount  int64  `gorm:"not null;default:1"`
	LastSearched time.Time
}

func (PopularSearch) TableName() string {
	return "popular_searches"
}

// Analytics (news_analytics.db), append-only
type ArticleAnalysis struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp        time.Time `gorm:"index"`
	Category         string    `gorm:"type:varchar(100)"`
	Sentiment        string    `gorm:"type:varchar(20)"`
	ReliabilityScore int
	WordCount        int
	Language         string `gorm:"type:varchar(50)"`
	Keywords         string `gorm:"type:text"`
	Source           string `gorm:"type:varchar(200)"`
}

func (ArticleAnalysis) TableName() string {
	return "news_analytics"
}

type UserInteraction struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time `gorm:"index"`
	UserID      string    `gorm:"type:varchar(100);index"`
	Action      string    `gorm:"type:varchar(100);not null"`
	Category    string    `gorm:"type:varchar(100)"`
	SearchQuery string    `gorm:"type:text"`
	ArticleID   string    `gorm:"type:varchar(100)"`
}

func (UserInteraction) TableName() string {
	return "user_interactions"
}
