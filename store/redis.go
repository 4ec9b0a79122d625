package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/giftrec/core"
)

// RedisStore 用 Redis list 存放日志：RPUSH 追加，LRANGE 读取。
// 多个进程共享同一 key 时，RPUSH 的返回值保证序号不重复。
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore 连接 Redis 并 Ping，不可达时返回 UNAVAILABLE。
func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.NewSystemError(core.ModuleStore, fmt.Sprintf("redis %s unreachable", addr), err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient 复用调用方构造的客户端（集群、哨兵）。
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return KindRedis }

func (r *RedisStore) Close() error { return r.client.Close() }

func (r *RedisStore) Append(ctx context.Context, key string, record []byte) (int64, error) {
	n, err := r.client.RPush(ctx, key, record).Result()
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func (r *RedisStore) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (r *RedisStore) Len(ctx context.Context, key string) (int64, error) {
	return r.client.LLen(ctx, key).Result()
}

var _ core.LogStore = (*RedisStore)(nil)
