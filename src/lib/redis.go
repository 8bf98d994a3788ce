package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var redisClient *redis.Client

func GetRedisClient(url string) *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s", err.Error())
		return nil
	}
	redisClient = redis.NewClient(opt)
	return redisClient
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// RedisDeduper records delivered (event, role, recipient) requests with a TTL.
type RedisDeduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func DedupeKey(eventID, role, recipient string) string {
	return fmt.Sprintf("notify:delivered:%s:%s:%s", eventID, role, recipient)
}

func (r *RedisDeduper) Claim(ctx context.Context, eventID, role, recipient string) (bool, error) {
	return r.rdb.SetNX(ctx, DedupeKey(eventID, role, recipient), 1, r.ttl).Result()
}

func (r *RedisDeduper) Release(ctx context.Context, eventID, role, recipient string) error {
	return r.rdb.Del(ctx, DedupeKey(eventID, role, recipient)).Err()
}
