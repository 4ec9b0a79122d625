package recall

import (
	"context"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pipeline"
)

// Trending 是热门 + 随机召回源：随机抽取 Limit 个，再拼上热度最高的 Limit 个，
// 按 ID 去重后截断为 Limit。Trending 同时实现了 Source 和 Node 接口。
type Trending struct {
	Catalog *catalog.Store
	Limit   int
	Seed    int64
	// MatchType 为空时不打标签，由调用方决定（exploration / trending_fallback / random_fallback）
	MatchType string
}

func (r *Trending) Name() string        { return "recall.trending" }
func (r *Trending) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Trending) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Trending) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := r.Catalog.Available(); err != nil {
		return nil, err
	}
	if r.Limit <= 0 {
		return nil, nil
	}
	random := catalog.Sample(rngFor(rctx, r.Name(), r.Seed), r.Catalog.All(), r.Limit)
	popular := r.Catalog.TopPopular(r.Limit)

	seen := make(map[string]struct{}, r.Limit)
	picked := make([]*core.Product, 0, r.Limit)
	for _, p := range append(random, popular...) {
		if len(picked) == r.Limit {
			break
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		picked = append(picked, p)
	}
	if r.MatchType == "" {
		return core.ProductItems(picked), nil
	}
	return tag(picked, r.MatchType, r.Name()), nil
}

// Backfill 从目录中随机补齐，不返回 rctx.Exclude 中的商品和锚点商品。
type Backfill struct {
	Catalog *catalog.Store
	Seed    int64
}

func (r *Backfill) Name() string { return "recall.backfill" }

// Fill 返回最多 n 个补位商品，match_type 为 random_fallback。
func (r *Backfill) Fill(rctx *core.RecommendContext, n int) []*core.Item {
	if n <= 0 {
		return nil
	}
	anchorTitle := rctx.ParamString(core.ParamProductName)
	pool := r.Catalog.Filter(func(p *core.Product) bool {
		return p.Title != anchorTitle && !rctx.Excluded(p.ID)
	})
	items := tag(catalog.Sample(rngFor(rctx, r.Name(), r.Seed), pool, n), core.MatchRandomFallback, r.Name())
	markFallback(items, "backfill")
	return items
}

var _ Source = (*Trending)(nil)
