package cache

import (
	"context"
	"encoding/json"
	"time"

	"newsbrief/internal/models"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const redisKeyPrefix = "newsbrief:cache:"

// Store is an expiring key/value store backed by a single sqlite table.
// The sqlite row is authoritative; a local in-process tier and an optional
// redis tier only shortcut reads. Every Get updates the global hit or miss
// counter in the stats row.
type Store struct {
	db          *gorm.DB
	redisClient *redis.Client
	local       *gocache.Cache
	log         *zap.Logger
	ctx         context.Context
}

type Stats struct {
	TotalHits      int64     `json:"total_hits"`
	TotalMisses    int64     `json:"total_misses"`
	CurrentEntries int64     `json:"current_entries"`
	CacheSizeBytes int64     `json:"cache_size_bytes"`
	HitRate        float64   `json:"hit_rate"`
	LastCleanup    time.Time `json:"last_cleanup"`
}

// NewStore wires the sqlite handle plus the optional tiers. An empty redisURL
// or a failed ping degrades to sqlite + local tier only.
func NewStore(db *gorm.DB, redisURL string, log *zap.Logger) *Store {
	s := &Store{
		db:    db,
		local: gocache.New(5*time.Minute, 10*time.Minute),
		log:   log,
		ctx:   context.Background(),
	}

	// Stats row is a singleton with id 1.
	db.Where(models.CacheStats{ID: 1}).FirstOrCreate(&models.CacheStats{ID: 1, LastCleanup: time.Now()})

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			opts = &redis.Options{Addr: redisURL}
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, cache runs on sqlite only", zap.Error(err))
		} else {
			s.redisClient = client
			log.Info("redis cache tier enabled")
		}
	}

	return s
}

// Set stores value under key, expiring after ttl. ttl <= 0 means the entry
// never expires.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	now := time.Now()
	var expiresAt *time.Time
	if ttl > 0 {
		t := now.Add(ttl)
		expiresAt = &t
	}

	entry := models.CacheEntry{
		Key:          key,
		Value:        string(data),
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
		LastAccessed: now,
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at", "expires_at", "last_accessed"}),
	}).Create(&entry).Error
	if err != nil {
		return err
	}

	localTTL := ttl
	if ttl <= 0 {
		localTTL = gocache.NoExpiration
	}
	s.local.Set(key, data, localTTL)

	if s.redisClient != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		redisTTL := ttl
		if ttl <= 0 {
			redisTTL = 0
		}
		if err := s.redisClient.Set(ctx, redisKeyPrefix+key, data, redisTTL).Err(); err != nil {
			s.log.Warn("redis set failed", zap.String("key", key), zap.Error(err))
		}
	}

	return nil
}

// Get loads the value for key into target. The second return is false when
// the key is absent or expired.
func (s *Store) Get(key string, target interface{}) (bool, error) {
	if raw, found := s.local.Get(key); found {
		data := raw.([]byte)
		s.recordHit(key)
		return true, json.Unmarshal(data, target)
	}

	if s.redisClient != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		data, err := s.redisClient.Get(ctx, redisKeyPrefix+key).Bytes()
		cancel()
		if err == nil {
			s.local.Set(key, data, 5*time.Minute)
			s.recordHit(key)
			return true, json.Unmarshal(data, target)
		}
		if err != redis.Nil {
			s.log.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
	}

	var entry models.CacheEntry
	err := s.db.
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, time.Now()).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.recordMiss()
			return false, nil
		}
		return false, err
	}

	s.local.Set(key, []byte(entry.Value), 5*time.Minute)
	s.recordHit(key)
	return true, json.Unmarshal([]byte(entry.Value), target)
}

func (s *Store) Delete(key string) error {
	s.local.Delete(key)
	if s.redisClient != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		if err := s.redisClient.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
			s.log.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
		}
	}
	return s.db.Delete(&models.CacheEntry{}, "key = ?", key).Error
}

// Clear removes every entry from all tiers.
func (s *Store) Clear() error {
	s.local.Flush()

	if s.redisClient != nil {
		ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
		defer cancel()
		iter := s.redisClient.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			s.redisClient.Del(ctx, iter.Val())
		}
	}

	return s.db.Where("1 = 1").Delete(&models.CacheEntry{}).Error
}

// CleanupExpired purges entries past their expiry. Runs at startup and on
// explicit request only; there is no background sweeper.
func (s *Store) CleanupExpired() error {
	err := s.db.
		Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
		Delete(&models.CacheEntry{}).Error
	if err != nil {
		return err
	}
	return s.db.Model(&models.CacheStats{}).
		Where("id = 1").
		UpdateColumn("last_cleanup", time.Now()).Error
}

func (s *Store) GetStats() (*Stats, error) {
	var row models.CacheStats
	if err := s.db.First(&row, "id = 1").Error; err != nil {
		return nil, err
	}

	var entries int64
	if err := s.db.Model(&models.CacheEntry{}).Count(&entries).Error; err != nil {
		return nil, err
	}

	var size *int64
	if err := s.db.Model(&models.CacheEntry{}).
		Select("SUM(LENGTH(value))").Scan(&size).Error; err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalHits:      row.TotalHits,
		TotalMisses:    row.TotalMisses,
		CurrentEntries: entries,
		LastCleanup:    row.LastCleanup,
	}
	if size != nil {
		stats.CacheSizeBytes = *size
	}
	if total := row.TotalHits + row.TotalMisses; total > 0 {
		stats.HitRate = float64(row.TotalHits) / float64(total) * 100
	}
	return stats, nil
}

func (s *Store) recordHit(key string) {
	s.db.Model(&models.CacheEntry{}).
		Where("key = ?", key).
		UpdateColumns(map[string]interface{}{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": time.Now(),
		})
	s.db.Model(&models.CacheStats{}).
		Where("id = 1").
		UpdateColumn("total_hits", gorm.Expr("total_hits + 1"))
}

func (s *Store) recordMiss() {
	s.db.Model(&models.CacheStats{}).
		Where("id = 1").
		UpdateColumn("total_misses", gorm.Expr("total_misses + 1"))
}
