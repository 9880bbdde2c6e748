// Package cache keeps public profiles in Redis so profile pages do not hit
// the store on every view.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "profile:"

// ProfileCache stores public user documents keyed by username.
type ProfileCache interface {
	Get(ctx context.Context, username string) (models.User, bool)
	Set(ctx context.Context, user models.User)
	Invalidate(ctx context.Context, usernames ...string)
}

// RedisProfileCache is a ProfileCache backed by Redis. Errors are logged and
// treated as misses so a cache outage never fails a request.
type RedisProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRedisProfileCache creates a cache whose entries live for ttl.
func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{rdb: rdb, ttl: ttl}
}

func (c *RedisProfileCache) Get(ctx context.Context, username string) (models.User, bool) {
	raw, err := c.rdb.Get(ctx, keyPrefix+username).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("username", username).Msg("Profile cache read failed")
		}
		return models.User{}, false
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Discarding corrupt profile cache entry")
		c.Invalidate(ctx, username)
		return models.User{}, false
	}
	return user, true
}

func (c *RedisProfileCache) Set(ctx context.Context, user models.User) {
	raw, err := json.Marshal(user.Public())
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+user.Username, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("username", user.Username).Msg("Profile cache write failed")
	}
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, usernames ...string) {
	if len(usernames) == 0 {
		return
	}
	keys := make([]string, len(usernames))
	for i, u := range usernames {
		keys[i] = keyPrefix + u
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("usernames", usernames).Msg("Profile cache invalidation failed")
	}
}

// Noop is the ProfileCache used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (models.User, bool) { return models.User{}, false }
func (Noop) Set(context.Context, models.User)                {}
func (Noop) Invalidate(context.Context, ...string)           {}
