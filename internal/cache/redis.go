package cache

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a redis server, for deployments that run
// more than one server instance behind a load balancer.
type Redis struct {
	c *rdb.Client
}

// NewRedis creates a redis-backed cache
func NewRedis(addr string) *Redis {
	return &Redis{c: rdb.NewClient(&rdb.Options{Addr: addr})}
}

func (r *Redis) Get(key string) ([]byte, bool) {
	b, err := r.c.Get(context.Background(), key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(key string, value []byte, ttl time.Duration) {
	_ = r.c.Set(context.Background(), key, value, ttl).Err()
}

func (r *Redis) Delete(key string) {
	_ = r.c.Del(context.Background(), key).Err()
}
