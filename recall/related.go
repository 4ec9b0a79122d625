package recall

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/similarity"
)

// 相关推荐各来源的配额。
const (
	StrictLimit        = 6
	SemanticLimit      = 8
	CollaborativeLimit = 5
)

// StrictRecall 召回与请求 department、bs_category 完全相同的商品（不含锚点本身），
// 随机抽取 Limit 个。
type StrictRecall struct {
	Catalog *catalog.Store
	Limit   int
	Seed    int64
}

func (r *StrictRecall) Name() string { return "recall.strict" }

func (r *StrictRecall) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := r.Catalog.Available(); err != nil {
		return nil, err
	}
	dept := rctx.ParamString(core.ParamDepartment)
	category := rctx.ParamString(core.ParamCategory)
	anchor := rctx.ParamString(core.ParamProductName)
	pool := r.Catalog.Filter(func(p *core.Product) bool {
		return p.Department == dept && p.Category == category && p.Title != anchor
	})
	limit := r.Limit
	if limit <= 0 {
		limit = StrictLimit
	}
	picked := catalog.Sample(rngFor(rctx, r.Name(), r.Seed), pool, limit)
	return tag(picked, core.MatchStrict, r.Name()), nil
}

// SemanticRecall 按 embedding 余弦相似度召回与锚点商品接近的商品，
// 与请求 department 相同的候选得到加权。
//
// 锚点缺失、无向量或候选池为空时退化为随机抽样，match_type 为 random_fallback。
type SemanticRecall struct {
	Catalog *catalog.Store
	Engine  *similarity.ContentEngine
	Limit   int
	Seed    int64
	Logger  *zerolog.Logger
}

func (r *SemanticRecall) Name() string { return "recall.semantic" }

func (r *SemanticRecall) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := r.Catalog.Available(); err != nil {
		return nil, err
	}
	anchorTitle := rctx.ParamString(core.ParamProductName)
	pool := r.Catalog.Filter(func(p *core.Product) bool {
		return p.Title != anchorTitle && !rctx.Excluded(p.ID)
	})
	limit := r.Limit
	if limit <= 0 {
		limit = SemanticLimit
	}

	ranked, err := r.rank(anchorTitle, rctx.ParamString(core.ParamDepartment), pool, limit)
	if err == nil {
		return tag(similarity.Products(ranked), core.MatchSemantic, r.Name()), nil
	}

	logger := logging.Component("recall")
	if r.Logger != nil {
		logger = *r.Logger
	}
	logger.Warn().Err(err).Str("product_name", anchorTitle).Msg("semantic recall degraded to random sample")
	metrics.RecordDegraded("recall", "semantic")

	items := tag(catalog.Sample(rngFor(rctx, r.Name(), r.Seed), pool, limit), core.MatchRandomFallback, r.Name())
	markFallback(items, "semantic")
	return items, nil
}

func (r *SemanticRecall) rank(anchorTitle, dept string, pool []*core.Product, n int) ([]similarity.Scored, error) {
	anchor, ok := r.Catalog.ByTitle(anchorTitle)
	if !ok {
		return nil, fmt.Errorf("anchor %q: %w", anchorTitle, similarity.ErrNoAnchor)
	}
	engine := r.Engine
	if engine == nil {
		engine = &similarity.ContentEngine{}
	}
	return engine.RankByEmbedding(anchor.Embedding, dept, pool, n)
}

// CollaborativeRecall 用 item-based 协同过滤为用户召回商品，按物品 ID 解析回目录。
// 请求没有 user_id 时跳过。
type CollaborativeRecall struct {
	Catalog *catalog.Store
	CF      *similarity.ItemCF
	Limit   int
}

func (r *CollaborativeRecall) Name() string { return "recall.collaborative" }

func (r *CollaborativeRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx.UserID == "" || r.CF == nil {
		return nil, nil
	}
	limit := r.Limit
	if limit <= 0 {
		limit = CollaborativeLimit
	}
	scores, err := r.CF.TopN(ctx, rctx.UserID, limit)
	if err != nil {
		return nil, err
	}
	anchorTitle := rctx.ParamString(core.ParamProductName)
	out := make([]*core.Item, 0, len(scores))
	for _, s := range scores {
		if rctx.Excluded(s.ItemID) {
			continue
		}
		p, err := r.Catalog.Get(s.ItemID)
		if err != nil || p.Title == anchorTitle {
			continue
		}
		it := core.NewProductItem(p)
		it.Score = s.Score
		it.SetMatchType(core.MatchCollaborative, r.Name())
		out = append(out, it)
	}
	return out, nil
}

var (
	_ Source = (*StrictRecall)(nil)
	_ Source = (*SemanticRecall)(nil)
	_ Source = (*CollaborativeRecall)(nil)
)
