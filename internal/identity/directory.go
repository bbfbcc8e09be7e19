// Package identity resolves staff ids to the display names printed on bills.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrStaffNotFound = errors.New("staff not found")

const cachePrefix = "staff:name:"

// DefaultTTL bounds how long a renamed staff member keeps their old name on
// new bills.
const DefaultTTL = 10 * time.Minute

// StaffStore reads staff names from the primary database.
type StaffStore interface {
	GetStaffName(ctx context.Context, staffID uuid.UUID) (string, error)
}

// Cache is the subset of *redis.Client the directory uses.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Directory struct {
	store StaffStore
	cache Cache
	ttl   time.Duration
}

// NewDirectory returns a Directory. cache may be nil to always read through
// to the store.
func NewDirectory(store StaffStore, cache Cache, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Directory{store: store, cache: cache, ttl: ttl}
}

// DisplayName returns the staff member's full name. Cache failures are logged
// and fall back to the store.
func (d *Directory) DisplayName(ctx context.Context, staffID uuid.UUID) (string, error) {
	key := cachePrefix + staffID.String()

	if d.cache != nil {
		name, err := d.cache.Get(ctx, key).Result()
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "staff name cache read failed", "staff_id", staffID, "error", err)
		}
	}

	name, err := d.store.GetStaffName(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrStaffNotFound
		}
		return "", fmt.Errorf("get staff name: %w", err)
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, name, d.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "staff name cache write failed", "staff_id", staffID, "error", err)
		}
	}
	return name, nil
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
