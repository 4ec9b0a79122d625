package interaction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pkg/logging"
)

// Store 是线程安全的交互事件日志。
//
// 写入串行化（writeMu），读取可并发（mu.RLock）。派生视图在每次追加时
// 增量更新，与完整重放的结果一致。
type Store struct {
	writeMu sync.Mutex

	mu       sync.RWMutex
	events   []Event
	likes    map[string][]string
	dislikes map[string][]string
	liked    map[string]map[string]struct{}
	disliked map[string]map[string]struct{}
	shown    map[string]*bloom.BloomFilter

	sink          Sink
	weights       Weights
	now           func() time.Time
	logger        zerolog.Logger
	bloomCapacity uint
	bloomFPRate   float64
}

// Option 配置 Store。
type Option func(*Store)

// WithSink 设置持久化日志。
func WithSink(s Sink) Option {
	return func(st *Store) { st.sink = s }
}

// WithLogger 设置 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithWeights 设置交互强度权重。
func WithWeights(w Weights) Option {
	return func(st *Store) { st.weights = w }
}

// WithClock 设置时钟，未带时间戳的事件使用它。
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithBloom 设置每个用户曝光过滤器的容量与误判率。
func WithBloom(capacity uint, fpRate float64) Option {
	return func(st *Store) {
		if capacity > 0 {
			st.bloomCapacity = capacity
		}
		if fpRate > 0 && fpRate < 1 {
			st.bloomFPRate = fpRate
		}
	}
}

// NewStore 创建空的事件日志。
func NewStore(opts ...Option) *Store {
	s := &Store{
		likes:         make(map[string][]string),
		dislikes:      make(map[string][]string),
		liked:         make(map[string]map[string]struct{}),
		disliked:      make(map[string]map[string]struct{}),
		shown:         make(map[string]*bloom.BloomFilter),
		weights:       DefaultWeights(),
		now:           time.Now,
		logger:        logging.Component("interaction"),
		bloomCapacity: 10000,
		bloomFPRate:   0.01,
	}
	for _, opt := range opts {
		opt(s)
	}
	if ls, ok := s.sink.(loggedSink); ok {
		ls.useLogger(s.logger)
	}
	return s
}

// loggedSink 是需要共用 Store logger 的 sink。
type loggedSink interface {
	useLogger(zerolog.Logger)
}

// Record 校验并追加一条事件，返回补全 ID 与时间戳后的事件。
// 缺字段时返回 ValidationError（IsRejected 为 true），日志不变。
// sink 写入失败只记录日志与指标，内存日志仍然接受该事件。
func (s *Store) Record(ctx context.Context, ev Event) (Event, error) {
	if err := ev.Validate(); err != nil {
		metrics.RecordRejected()
		s.logger.Warn().Strs("fields", core.ErrorFields(err)).
			Str("user_id", ev.UserID).Str("item_id", ev.ItemID).Msg("interaction rejected")
		return ev, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.sink != nil {
		if err := s.sink.Append(ctx, ev); err != nil {
			metrics.RecordSinkError(s.sink.Name())
			s.logger.Error().Err(err).Str("sink", s.sink.Name()).Str("event_id", ev.ID).Msg("persist interaction")
		}
	}

	s.mu.Lock()
	s.apply(ev)
	s.mu.Unlock()

	metrics.RecordInteraction(string(ev.Type))
	return ev, nil
}

// Replay 从 sink 重建内存日志，返回加载的事件数。已有事件会被替换。
func (s *Store) Replay(ctx context.Context) (int, error) {
	if s.sink == nil {
		return 0, nil
	}
	events, err := s.sink.Load(ctx)
	if err != nil {
		return 0, core.NewSystemError(core.ModuleInteraction, "replay interaction log", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.events = nil
	s.likes = make(map[string][]string)
	s.dislikes = make(map[string][]string)
	s.liked = make(map[string]map[string]struct{})
	s.disliked = make(map[string]map[string]struct{})
	s.shown = make(map[string]*bloom.BloomFilter)
	skipped := 0
	for _, ev := range events {
		if ev.Validate() != nil {
			skipped++
			continue
		}
		s.apply(ev)
	}
	n := len(s.events)
	s.mu.Unlock()

	s.logger.Info().Int("events", n).Int("skipped", skipped).Str("sink", s.sink.Name()).Msg("interaction log replayed")
	return n, nil
}

// apply 更新派生视图，调用方持有 mu。
func (s *Store) apply(ev Event) {
	s.events = append(s.events, ev)
	switch ev.Type {
	case Like:
		s.likes[ev.UserID] = appendUnique(s.liked, s.likes[ev.UserID], ev.UserID, ev.ItemID)
	case Dislike:
		s.dislikes[ev.UserID] = appendUnique(s.disliked, s.dislikes[ev.UserID], ev.UserID, ev.ItemID)
	case Shown:
		bf, ok := s.shown[ev.UserID]
		if !ok {
			bf = bloom.NewWithEstimates(s.bloomCapacity, s.bloomFPRate)
			s.shown[ev.UserID] = bf
		}
		bf.AddString(ev.ItemID)
	}
}

func appendUnique(index map[string]map[string]struct{}, seq []string, user, item string) []string {
	set, ok := index[user]
	if !ok {
		set = make(map[string]struct{})
		index[user] = set
	}
	if _, dup := set[item]; dup {
		return seq
	}
	set[item] = struct{}{}
	return append(seq, item)
}

// LikesOf 返回用户按时间顺序的 like 物品（去重）。
func (s *Store) LikesOf(user string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.likes[user]...)
}

// DislikesOf 返回用户按时间顺序的 dislike 物品（去重）。
func (s *Store) DislikesOf(user string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.dislikes[user]...)
}

// Liked 判断用户是否 like 过 item。
func (s *Store) Liked(user, item string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[user][item]
	return ok
}

// Disliked 判断用户是否 dislike 过 item。
func (s *Store) Disliked(user, item string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.disliked[user][item]
	return ok
}

// Preferences 返回用户的偏好快照。
func (s *Store) Preferences(user string) Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Preferences{
		Likes:    append([]string(nil), s.likes[user]...),
		Dislikes: append([]string(nil), s.dislikes[user]...),
	}
}

// HasPreferences 判断用户是否有任何 like/dislike。
func (s *Store) HasPreferences(user string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.likes[user]) > 0 || len(s.dislikes[user]) > 0
}

// WasShown 判断物品是否曾曝光给用户。基于布隆过滤器，可能误判为 true。
func (s *Store) WasShown(user, item string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bf, ok := s.shown[user]
	if !ok {
		return false
	}
	return bf.TestString(item)
}

// Users 返回有 like/dislike 记录的用户，按 ID 排序。
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{}, len(s.likes)+len(s.dislikes))
	for u, items := range s.likes {
		if len(items) > 0 {
			set[u] = struct{}{}
		}
	}
	for u, items := range s.dislikes {
		if len(items) > 0 {
			set[u] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Len 返回事件总数。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events 返回完整日志副本，按追加顺序。
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// EventsSince 返回时间戳不早于 since 的事件。
func (s *Store) EventsSince(since time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out
}

// History 返回用户最近 n 条事件，最新的在前；n<=0 表示全部。
func (s *Store) History(user string, n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].UserID != user {
			continue
		}
		out = append(out, s.events[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// Recent 返回全局最近 n 条事件，最新的在前。
func (s *Store) Recent(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, 0, n)
	for i := len(s.events) - 1; i >= len(s.events)-n; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// Now 返回 Store 使用的当前时间。
func (s *Store) Now() time.Time { return s.now() }
