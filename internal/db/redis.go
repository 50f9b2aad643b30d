package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RDB stays nil when no address is configured; callers treat that as "no cache".
var RDB *redis.Client

func InitRedis(addr string) {
	if addr == "" {
		RDB = nil
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func PingRedis(ctx context.Context) error {
	if RDB == nil {
		return nil
	}
	return RDB.Ping(ctx).Err()
}
