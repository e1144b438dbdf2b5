package security

import (
	"encoding/json"
	"fmt"
	"time"

	"newsbrief/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Limiter is a per-identifier, per-endpoint fixed-window request counter
// with exponential-backoff blocking. Counters live in their own sqlite file;
// the read-then-increment sequence is not atomic across processes, which is
// a documented limitation of the fixed-window design.
type Limiter struct {
	db  *gorm.DB
	log *zap.Logger
}

// Decision reports the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // seconds, set when denied
}

func NewLimiter(db *gorm.DB, log *zap.Logger) *Limiter {
	return &Limiter{db: db, log: log}
}

// Allow runs the fixed-window state machine for one request. Window expiry
// overrides an active block: a request after the window has elapsed starts a
// fresh count even if block_until lies in the future.
func (l *Limiter) Allow(identifier, endpoint string, limit int, window time.Duration) (Decision, error) {
	now := time.Now()

	var rec models.RateLimitRecord
	err := l.db.Where("identifier = ? AND endpoint = ?", identifier, endpoint).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		rec = models.RateLimitRecord{
			Identifier:   identifier,
			Endpoint:     endpoint,
			RequestCount: 1,
			WindowStart:  now,
			LastRequest:  now,
		}
		if err := l.db.Create(&rec).Error; err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true, Remaining: limit - 1}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	if now.Sub(rec.WindowStart) > window {
		err := l.db.Model(&rec).Updates(map[string]interface{}{
			"request_count": 1,
			"window_start":  now,
			"last_request":  now,
			"is_blocked":    false,
			"block_until":   nil,
		}).Error
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: true, Remaining: limit - 1}, nil
	}

	if rec.IsBlocked && rec.BlockUntil != nil && now.Before(*rec.BlockUntil) {
		retry := int(rec.BlockUntil.Sub(now).Seconds())
		if retry < 1 {
			retry = 1
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	if rec.RequestCount >= limit {
		blockSeconds := backoffSeconds(rec.RequestCount, limit)
		blockUntil := now.Add(time.Duration(blockSeconds) * time.Second)
		err := l.db.Model(&rec).Updates(map[string]interface{}{
			"request_count": gorm.Expr("request_count + 1"),
			"is_blocked":    true,
			"block_until":   blockUntil,
			"last_request":  now,
		}).Error
		if err != nil {
			return Decision{}, err
		}

		l.LogSecurityEvent("rate_limit_exceeded", identifier, "", "", map[string]interface{}{
			"endpoint":       endpoint,
			"request_count":  rec.RequestCount,
			"limit":          limit,
			"block_duration": blockSeconds,
		})
		l.log.Warn("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.String("endpoint", endpoint),
			zap.Int("block_seconds", blockSeconds))

		return Decision{Allowed: false, RetryAfter: blockSeconds}, nil
	}

	err = l.db.Model(&rec).Updates(map[string]interface{}{
		"request_count": gorm.Expr("request_count + 1"),
		"last_request":  now,
	}).Error
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true, Remaining: limit - rec.RequestCount - 1}, nil
}

// backoffSeconds is min(300, 2^(count-limit+1)). The formula and the
// 300-second cap are load-bearing for clients that schedule retries.
func backoffSeconds(count, limit int) int {
	exp := count - limit + 1
	if exp >= 9 { // 2^9 > 300
		return 300
	}
	d := 1 << uint(exp)
	if d > 300 {
		return 300
	}
	return d
}

// LogSecurityEvent appends to the security event log. Details are stored as
// a JSON blob.
func (l *Limiter) LogSecurityEvent(eventType, identifier, ipAddress, userAgent string, details map[string]interface{}) {
	blob, _ := json.Marshal(details)
	event := models.SecurityEvent{
		EventType:  eventType,
		Identifier: identifier,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    string(blob),
		Timestamp:  time.Now(),
	}
	if err := l.db.Create(&event).Error; err != nil {
		l.log.Error("failed to log security event",
			zap.String("event_type", eventType), zap.Error(err))
	}
}

type LimiterStats struct {
	TotalRequests int64 `json:"total_requests"`
	ActiveBlocks  int64 `json:"active_blocks"`
	RecentEvents  int64 `json:"recent_events"`
}

func (l *Limiter) GetStats() (*LimiterStats, error) {
	var stats LimiterStats

	var total *int64
	if err := l.db.Model(&models.RateLimitRecord{}).
		Select("SUM(request_count)").Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("limiter stats: %w", err)
	}
	if total != nil {
		stats.TotalRequests = *total
	}

	if err := l.db.Model(&models.RateLimitRecord{}).
		Where("is_blocked = ? AND block_until > ?", true, time.Now()).
		Count(&stats.ActiveBlocks).Error; err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	if err := l.db.Model(&models.SecurityEvent{}).
		Where("timestamp >= ?", cutoff).
		Count(&stats.RecentEvents).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
