package interaction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pkg/logging"
)

// Sink 是交互事件的持久化日志，格式对 Store 不透明。
type Sink interface {
	Name() string
	Append(ctx context.Context, ev Event) error
	// Load 按追加顺序返回全部事件
	Load(ctx context.Context) ([]Event, error)
}

// KVSink 把事件以 JSON 追加到 LogStore 的一个 key 下，Load 按追加顺序读回。
// 无法解码的记录记一条 Warn 后跳过，不影响其余事件。
type KVSink struct {
	log    core.LogStore
	key    string
	logger zerolog.Logger
}

// DefaultLogKey 是事件日志的默认 key。
const DefaultLogKey = "giftrec:interactions"

// NewKVSink 创建 KVSink，key 为空时使用 DefaultLogKey。
func NewKVSink(log core.LogStore, key string) *KVSink {
	if key == "" {
		key = DefaultLogKey
	}
	return &KVSink{log: log, key: key, logger: logging.Component("interaction")}
}

func (s *KVSink) useLogger(l zerolog.Logger) { s.logger = l }

func (s *KVSink) Name() string { return "kv:" + s.log.Name() }

func (s *KVSink) Append(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kv sink encode: %w", err)
	}
	if _, err := s.log.Append(ctx, s.key, data); err != nil {
		return fmt.Errorf("kv sink append: %w", err)
	}
	return nil
}

func (s *KVSink) Load(ctx context.Context) ([]Event, error) {
	recs, err := s.log.Range(ctx, s.key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("kv sink load: %w", err)
	}
	out := make([]Event, 0, len(recs))
	for i, rec := range recs {
		var ev Event
		if err := json.Unmarshal(rec, &ev); err != nil {
			s.logger.Warn().Err(err).Int("record", i).Str("key", s.key).Msg("skip undecodable interaction record")
			metrics.RecordDegraded("interaction", "undecodable_record")
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// MemorySink 是进程内 Sink，供测试使用。
type MemorySink struct {
	events []Event
	err    error
}

// NewMemorySink 创建空的 MemorySink。
func NewMemorySink() *MemorySink { return &MemorySink{} }

// FailWith 让后续 Append 返回 err，nil 恢复正常。
func (s *MemorySink) FailWith(err error) { s.err = err }

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Append(_ context.Context, ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *MemorySink) Load(_ context.Context) ([]Event, error) {
	return append([]Event(nil), s.events...), nil
}
