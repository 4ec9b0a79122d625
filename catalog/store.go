// Package catalog 是只读的内存商品目录。
//
// 目录在进程启动时一次性加载（Loader 为外部协作者，负责 CSV/数据库读取与离线向量），
// 所有类型归一化在 FromRecord 中完成，请求路径上不再重复解析。
package catalog

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/logging"
)

// Loader 提供预先填充好 Embedding 的商品全集。
type Loader interface {
	Load(ctx context.Context) ([]*core.Product, error)
}

// LoaderFunc 把函数适配为 Loader。
type LoaderFunc func(ctx context.Context) ([]*core.Product, error)

func (f LoaderFunc) Load(ctx context.Context) ([]*core.Product, error) { return f(ctx) }

// ErrEmptyCatalog 表示目录未加载或为空。
var ErrEmptyCatalog = core.NewSystemError(core.ModuleCatalog, "catalog unavailable", nil)

// Store 是线程安全的只读目录。
type Store struct {
	mu      sync.RWMutex
	items   []*core.Product
	byID    map[string]int
	byTitle map[string]int
	logger  zerolog.Logger
}

// Option 配置 Store。
type Option func(*Store)

// WithLogger 设置 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New 用已归一化的商品构建目录。重复 ID 保留首个。
func New(products []*core.Product, opts ...Option) *Store {
	s := &Store{logger: logging.Component("catalog")}
	for _, opt := range opts {
		opt(s)
	}
	s.reset(products)
	return s
}

// Load 从 Loader 加载目录，Loader 失败视为系统错误。
func Load(ctx context.Context, loader Loader, opts ...Option) (*Store, error) {
	if loader == nil {
		return nil, ErrEmptyCatalog
	}
	products, err := loader.Load(ctx)
	if err != nil {
		return nil, core.NewSystemError(core.ModuleCatalog, "load catalog", err)
	}
	s := New(products, opts...)
	s.logger.Info().Int("items", s.Len()).Msg("catalog loaded")
	return s, nil
}

func (s *Store) reset(products []*core.Product) {
	items := make([]*core.Product, 0, len(products))
	byID := make(map[string]int, len(products))
	byTitle := make(map[string]int, len(products))
	for _, p := range products {
		if p == nil || p.ID == "" {
			continue
		}
		if _, dup := byID[p.ID]; dup {
			s.logger.Warn().Str("item_id", p.ID).Msg("duplicate item id skipped")
			continue
		}
		byID[p.ID] = len(items)
		if _, ok := byTitle[p.Title]; !ok && p.Title != "" {
			byTitle[p.Title] = len(items)
		}
		items = append(items, p)
	}
	s.mu.Lock()
	s.items, s.byID, s.byTitle = items, byID, byTitle
	s.mu.Unlock()
}

// Available 目录为空时返回 SystemError。
func (s *Store) Available() error {
	if s == nil || s.Len() == 0 {
		return ErrEmptyCatalog
	}
	return nil
}

// Len 返回商品数。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get 按 ID 查询，不存在返回 NotFoundError。
func (s *Store) Get(id string) (*core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, core.NewNotFoundError(core.ModuleCatalog, "item not found: "+id)
	}
	return s.items[idx], nil
}

// ByTitle 按标题精确查找首个商品。
func (s *Store) ByTitle(title string) (*core.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byTitle[title]
	if !ok {
		return nil, false
	}
	return s.items[idx], true
}

// Index 返回商品在目录中的位置，用于稳定排序的 tie-break。
func (s *Store) Index(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	return idx, ok
}

// All 返回目录顺序的商品切片副本。
func (s *Store) All() []*core.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Product, len(s.items))
	copy(out, s.items)
	return out
}

// Filter 返回满足 pred 的商品，保持目录顺序。
func (s *Store) Filter(pred func(*core.Product) bool) []*core.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Product
	for _, p := range s.items {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// InDepartments 返回属于任意 departments 的商品。
func (s *Store) InDepartments(departments []string) []*core.Product {
	set := make(map[string]struct{}, len(departments))
	for _, d := range departments {
		set[d] = struct{}{}
	}
	return s.Filter(func(p *core.Product) bool {
		_, ok := set[p.Department]
		return ok
	})
}

// TopPopular 按 Popularity 降序返回前 n 个，同分保持目录顺序。
func (s *Store) TopPopular(n int) []*core.Product {
	all := s.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Popularity > all[j].Popularity
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Sample 从 products 中无放回随机抽取 n 个，结果顺序由 rng 决定。
func Sample(rng *rand.Rand, products []*core.Product, n int) []*core.Product {
	if n <= 0 || len(products) == 0 {
		return nil
	}
	if n > len(products) {
		n = len(products)
	}
	perm := rng.Perm(len(products))
	out := make([]*core.Product, n)
	for i := 0; i < n; i++ {
		out[i] = products[perm[i]]
	}
	return out
}
