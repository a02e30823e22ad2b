package util

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// Fingerprint hashes the given parts into a stable key component.
// Parts are trimmed and lower-cased so trivial resubmissions collide.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AcquireOnce tries to acquire a dedup lock for scope + fingerprint.
// returns true if this is the FIRST time within the TTL
// returns false if it's a duplicate
func (d *Deduper) AcquireOnce(ctx context.Context, scope, fingerprint string) bool {
	key := "dedup:" + scope + ":" + fingerprint

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 挂了？当 redis 不可用时，不阻止处理，返回 true
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("scope", scope),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated submission",
			zap.String("scope", scope),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release drops a lock taken by AcquireOnce so the same input may be retried
func (d *Deduper) Release(ctx context.Context, scope, fingerprint string) {
	key := "dedup:" + scope + ":" + fingerprint
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		d.logger.Warn("Redis dedup release failed",
			zap.String("scope", scope),
			zap.Error(err),
		)
	}
}

// Ping checks the redis connection
func (d *Deduper) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}
