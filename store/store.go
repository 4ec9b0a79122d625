// Package store 提供 core.LogStore 的后端：进程内的 MemoryStore 与 Redis list 实现的 RedisStore。
//
//	log, err := store.New("redis", "localhost:6379", 0)
//	sink := interaction.NewKVSink(log, "")
package store

import (
	"fmt"

	"github.com/rushteam/giftrec/core"
)

// 后端类型。
const (
	KindMemory = "memory"
	KindRedis  = "redis"
)

// New 按类型创建日志存储，未知类型返回 NOT_SUPPORTED。
func New(kind, addr string, db int) (core.LogStore, error) {
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindRedis:
		return NewRedisStore(addr, db)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrStoreNotSupported, kind)
	}
}

// window 把 Redis 风格的 [start, stop]（支持负数）换算成 [lo, hi) 切片下标。
func window(n, start, stop int64) (lo, hi int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return 0, 0
	}
	return start, stop + 1
}
