package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsbrief/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
)

const (
	sessionTokenBytes = 32
	saltBytes         = 16
	pbkdf2Iterations  = 4096
	keyLength         = 32
)

// AuthService owns the user, session, preference and reading-history tables.
type AuthService struct {
	db         *gorm.DB
	sessionTTL time.Duration
	log        *zap.Logger
}

// Identity is the resolved owner of a valid session.
type Identity struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func NewAuthService(db *gorm.DB, sessionTTL time.Duration, log *zap.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{db: db, sessionTTL: sessionTTL, log: log}
}

func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, keyLength, sha256.New)
	return hex.EncodeToString(key)
}

func generateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Register creates a new user with a per-user random salt. Username and
// email collisions fail with ErrDuplicateUser.
func (s *AuthService) Register(username, email, password string) (uint, error) {
	var existing models.User
	err := s.db.Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		return 0, ErrDuplicateUser
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	salt, err := generateSalt()
	if err != nil {
		return 0, fmt.Errorf("generate salt: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		// Unique indexes back up the pre-check under concurrent registration.
		return 0, ErrDuplicateUser
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", username))
	return user.ID, nil
}

// Authenticate verifies credentials against the stored salted hash. The
// login name matches either username or email.
func (s *AuthService) Authenticate(usernameOrEmail, password string) (*Identity, error) {
	var user models.User
	err := s.db.Where("username = ? OR email = ?", usernameOrEmail, usernameOrEmail).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if hashPassword(password, user.Salt) != user.PasswordHash {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	s.db.Model(&user).UpdateColumn("last_login", now)

	return &Identity{UserID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// CreateSession issues an unguessable token with a fixed expiry.
func (s *AuthService) CreateSession(userID uint, ipAddress, userAgent string) (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	session := models.UserSession{
		UserID:       userID,
		SessionToken: token,
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(s.sessionTTL),
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		IsActive:     true,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSession resolves a token to its identity. Expired sessions are
// lazily invalidated and report as absent.
func (s *AuthService) ValidateSession(token string) (*Identity, bool) {
	type joined struct {
		UserID    uint
		Username  string
		Email     string
		ExpiresAt time.Time
	}
	var row joined
	err := s.db.Model(&models.UserSession{}).
		Select("user_sessions.user_id, users.username, users.email, user_sessions.expires_at").
		Joins("JOIN users ON users.id = user_sessions.user_id").
		Where("user_sessions.session_token = ? AND user_sessions.is_active = ? AND users.is_active = ?",
			token, true, true).
		Scan(&row).Error
	if err != nil || row.UserID == 0 {
		return nil, false
	}

	if time.Now().After(row.ExpiresAt) {
		s.InvalidateSession(token)
		return nil, false
	}

	return &Identity{UserID: row.UserID, Username: row.Username, Email: row.Email}, true
}

func (s *AuthService) InvalidateSession(token string) error {
	return s.db.Model(&models.UserSession{}).
		Where("session_token = ?", token).
		UpdateColumn("is_active", false).Error
}

// InvalidateAllSessions force-logs-out every device for the user.
func (s *AuthService) InvalidateAllSessions(userID uint) error {
	return s.db.Model(&models.UserSession{}).
		Where("user_id = ?", userID).
		UpdateColumn("is_active", false).Error
}

// DeactivateUser disables the account; users are never hard-deleted.
func (s *AuthService) DeactivateUser(userID uint) error {
	if err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("is_active", false).Error; err != nil {
		return err
	}
	return s.InvalidateAllSessions(userID)
}

// SetPreference stores one preference value per (user, category, type),
// overwriting previous values.
func (s *AuthService) SetPreference(userID uint, prefType string, value interface{}, category string) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return err
	}
	pref := models.UserPreference{
		UserID:          userID,
		Category:        category,
		PreferenceType:  prefType,
		PreferenceValue: string(blob),
		CreatedAt:       time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}, {Name: "preference_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"preference_value", "created_at"}),
	}).Create(&pref).Error
}

func (s *AuthService) GetPreference(userID uint, prefType, category string, target interface{}) (bool, error) {
	var pref models.UserPreference
	err := s.db.
		Where("user_id = ? AND preference_type = ? AND (category = ? OR category = '')",
			userID, prefType, category).
		First(&pref).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return true, json.Unmarshal([]byte(pref.PreferenceValue), target)
}

// GetAllPreferences returns preferences grouped by category, with raw JSON
// values decoded.
func (s *AuthService) GetAllPreferences(userID uint) (map[string]map[string]interface{}, error) {
	var prefs []models.UserPreference
	if err := s.db.Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		return nil, err
	}

	out := make(map[string]map[string]interface{})
	for _, p := range prefs {
		category := p.Category
		if category == "" {
			category = "general"
		}
		if out[category] == nil {
			out[category] = make(map[string]interface{})
		}
		var value interface{}
		if err := json.Unmarshal([]byte(p.PreferenceValue), &value); err != nil {
			value = p.PreferenceValue
		}
		out[category][p.PreferenceType] = value
	}
	return out, nil
}

// TrackReading appends one reading-history row.
func (s *AuthService) TrackReading(userID uint, articleID, articleTitle, category string, readingTime int) error {
	entry := models.ReadingHistory{
		UserID:       userID,
		ArticleID:    articleID,
		ArticleTitle: articleTitle,
		Category:     category,
		ReadAt:       time.Now(),
		ReadingTime:  readingTime,
	}
	return s.db.Create(&entry).Error
}

func (s *AuthService) GetReadingHistory(userID uint, limit int) ([]models.ReadingHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var history []models.ReadingHistory
	err := s.db.
		Where("user_id = ?", userID).
		Order("read_at DESC").
		Limit(limit).
		Find(&history).Error
	return history, err
}

type ReadingStats struct {
	TotalArticles    int64            `json:"total_articles"`
	CategoryStats    map[string]int64 `json:"category_stats"`
	TotalReadingTime int64            `json:"total_reading_time"`
	AvgReadingTime   float64          `json:"avg_reading_time"`
}

func (s *AuthService) GetReadingStats(userID uint, days int) (*ReadingStats, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	stats := &ReadingStats{CategoryStats: make(map[string]int64)}

	err := s.db.Model(&models.ReadingHistory{}).
		Where("user_id = ? AND read_at >= ?", userID, cutoff).
		Count(&stats.TotalArticles).Error
	if err != nil {
		return nil, err
	}

	type catCount struct {
		Category string
		Count    int64
	}
	var cats []catCount
	err = s.db.Model(&models.ReadingHistory{}).
		Select("category, COUNT(*) as count").
		Where("user_id = ? AND read_at >= ?", userID, cutoff).
		Group("category").
		Scan(&cats).Error
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		stats.CategoryStats[c.Category] = c.Count
	}

	var totalTime *int64
	err = s.db.Model(&models.ReadingHistory{}).
		Select("SUM(reading_time)").
		Where("user_id = ? AND read_at >= ?", userID, cutoff).
		Scan(&totalTime).Error
	if err != nil {
		return nil, err
	}
	if totalTime != nil {
		stats.TotalReadingTime = *totalTime
	}
	if stats.TotalArticles > 0 {
		stats.AvgReadingTime = float64(stats.TotalReadingTime) / float64(stats.TotalArticles)
	}
	return stats, nil
}

// CountUsers reports the number of registered accounts, for admin
// dashboards.
func (s *AuthService) CountUsers() (int64, error) {
	var n int64
	err := s.db.Model(&models.User{}).Count(&n).Error
	return n, err
}
