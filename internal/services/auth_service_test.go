package services

import (
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

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.UserPreference{},
		&models.ReadingHistory{},
	))

	return NewAuthService(db, 7*24*time.Hour, zap.NewNop())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	assert.NotZero(t, userID)

	identity, err := auth.Authenticate("alice", "Str0ng!pass")
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "alice@example.com", identity.Email)

	// Email works as the login name too.
	identity, err = auth.Authenticate("alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
}

func TestRegisterDuplicate(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	_, err = auth.Register("alice", "other@example.com", "Str0ng!pass")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = auth.Register("bob", "alice@example.com", "Str0ng!pass")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	_, err = auth.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate("nobody", "Str0ng!pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	require.NoError(t, auth.DeactivateUser(userID))

	_, err = auth.Authenticate("alice", "Str0ng!pass")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestPasswordsStoredSaltedHashed(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	_, err = auth.Register("bob", "bob@example.com", "Str0ng!pass")
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, auth.db.Find(&users).Error)
	require.Len(t, users, 2)
	assert.NotEqual(t, "Str0ng!pass", users[0].PasswordHash)
	assert.NotEmpty(t, users[0].Salt)
	// Same password, different salt, different hash.
	assert.NotEqual(t, users[0].PasswordHash, users[1].PasswordHash)
}

func TestSessionLifecycle(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	token, err := auth.CreateSession(userID, "1.2.3.4", "tests")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	identity, ok := auth.ValidateSession(token)
	require.True(t, ok)
	assert.Equal(t, userID, identity.UserID)

	require.NoError(t, auth.InvalidateSession(token))
	_, ok = auth.ValidateSession(token)
	assert.False(t, ok)
}

func TestValidateSessionExpired(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	token, err := auth.CreateSession(userID, "", "")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, auth.db.Model(&models.UserSession{}).
		Where("session_token = ?", token).
		Update("expires_at", past).Error)

	_, ok := auth.ValidateSession(token)
	assert.False(t, ok)
}

func TestInvalidateAllSessions(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	t1, err := auth.CreateSession(userID, "", "")
	require.NoError(t, err)
	t2, err := auth.CreateSession(userID, "", "")
	require.NoError(t, err)

	require.NoError(t, auth.InvalidateAllSessions(userID))

	_, ok := auth.ValidateSession(t1)
	assert.False(t, ok)
	_, ok = auth.ValidateSession(t2)
	assert.False(t, ok)
}

func TestPreferences(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	require.NoError(t, auth.SetPreference(userID, "theme", "dark", ""))
	require.NoError(t, auth.SetPreference(userID, "theme", "light", ""))
	require.NoError(t, auth.SetPreference(userID, "digest", true, "technology"))

	var theme string
	found, err := auth.GetPreference(userID, "theme", "", &theme)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "light", theme)

	all, err := auth.GetAllPreferences(userID)
	require.NoError(t, err)
	assert.Equal(t, "light", all["general"]["theme"])
	assert.Equal(t, true, all["technology"]["digest"])
}

func TestReadingHistoryAndStats(t *testing.T) {
	auth := newTestAuth(t)

	userID, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)

	require.NoError(t, auth.TrackReading(userID, "a1", "Story One", "business", 120))
	require.NoError(t, auth.TrackReading(userID, "a2", "Story Two", "business", 60))
	require.NoError(t, auth.TrackReading(userID, "a3", "Story Three", "health", 30))

	history, err := auth.GetReadingHistory(userID, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stats, err := auth.GetReadingStats(userID, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalArticles)
	assert.EqualValues(t, 2, stats.CategoryStats["business"])
	assert.EqualValues(t, 210, stats.TotalReadingTime)
	assert.InDelta(t, 70.0, stats.AvgReadingTime, 0.01)
}

func TestCountUsers(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.Register("alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	_, err = auth.Register("bob", "bob@example.com", "Str0ng!pass")
	require.NoError(t, err)

	count, err := auth.CountUsers()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
