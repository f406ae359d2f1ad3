package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// RedisOptions maps the redis section of the configuration to client options.
func RedisOptions(cfg config.AppConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

// NewRedisClient connects and pings. The client is returned even when the ping
// fails; go-redis reconnects on the next command.
func NewRedisClient(ctx context.Context, cfg config.AppConfig) (*redis.Client, error) {
	client := redis.NewClient(RedisOptions(cfg))
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client, client.Ping(ctx).Err()
}

// GetRedis returns the process wide client, or nil unless CacheBackend is "redis".
// Session revocation and the page cache fall back to memory when it is nil.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if cfg.CacheBackend != "redis" {
			return
		}
		client, err := NewRedisClient(context.Background(), cfg)
		if err != nil {
			Sugar.Warnf("redis ping failed addr=%s err=%v", client.Options().Addr, err)
		}
		redisClient = client
	})
	return redisClient
}
