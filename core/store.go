package core

import "context"

// Store 是外部存储后端的公共部分，实现放在 store 包。
type Store interface {
	Name() string
	Close() error
}

// LogStore 是按 key 分组的追加式日志，交互事件日志（interaction.KVSink）用它做跨进程持久化。
// 同一 key 下的记录按追加顺序排列，序号从 0 开始。
type LogStore interface {
	Store

	// Append 追加一条记录，返回其序号。
	Append(ctx context.Context, key string, record []byte) (int64, error)

	// Range 返回序号在 [start, stop] 内的记录，stop=-1 表示到末尾。
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// Len 返回 key 下的记录数，key 不存在时为 0。
	Len(ctx context.Context, key string) (int64, error)
}

// ErrStoreNotSupported 表示未知的存储后端。
var ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store backend not supported")
