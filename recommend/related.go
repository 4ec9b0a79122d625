package recommend

import (
	"context"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/recall"
	"github.com/rushteam/giftrec/rerank"
)

// RelatedTotal 是相关推荐的固定条数：严格 6 + 语义 8 + 协同 5 + 补位 6。
const RelatedTotal = recall.StrictLimit + recall.SemanticLimit + recall.CollaborativeLimit + 6

// RelatedRequest 是相关商品请求，锚点商品按标题精确匹配。
type RelatedRequest struct {
	Department  string
	Category    string
	ProductName string
	UserID      string
}

// RelatedStats 是各来源的条数。Semantic 含语义降级后的随机结果。
type RelatedStats struct {
	Total         int `json:"total"`
	Strict        int `json:"strict"`
	Semantic      int `json:"semantic"`
	Collaborative int `json:"collaborative"`
	Backfill      int `json:"backfill"`
}

// RelatedResult 是相关推荐结果，每个 Item 带 match_type。
type RelatedResult struct {
	Items []*core.Item
	Stats RelatedStats
}

// MoreRelated 返回与锚点商品相关的至多 RelatedTotal 个商品。
//
// 严格匹配优先，语义与协同两路并发召回并排除严格匹配的结果；三路按
// strict > semantic > collaborative 去重后拼接，不足时随机补位，
// 最后用 RelatedSeed 打散并截断。相同输入和交互状态下结果固定。
func (e *Engine) MoreRelated(ctx context.Context, req RelatedRequest) (*RelatedResult, error) {
	if err := e.catalog.Available(); err != nil {
		return nil, err
	}
	seed := e.cfg.RelatedSeed
	rctx := core.NewRecommendContext(req.UserID, "related")
	rctx.Params[core.ParamDepartment] = req.Department
	rctx.Params[core.ParamCategory] = req.Category
	rctx.Params[core.ParamProductName] = req.ProductName

	strict, err := (&recall.StrictRecall{Catalog: e.catalog, Seed: seed}).Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	rctx.AddExclude(strict)

	semantic := &recall.SemanticRecall{Catalog: e.catalog, Engine: e.content, Seed: seed, Logger: &e.logger}
	collaborative := &recall.CollaborativeRecall{Catalog: e.catalog, CF: e.cf}
	fanout := &recall.Fanout{
		Sources:       []recall.Source{semantic, collaborative},
		MergeStrategy: recall.MergeFirst,
		Logger:        &e.logger,
	}
	pooled, err := fanout.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}

	stats := RelatedStats{Strict: len(strict)}
	for _, it := range pooled {
		if it.Labels[core.LabelRecallSource].Has(collaborative.Name()) {
			stats.Collaborative++
		} else {
			stats.Semantic++
		}
	}

	items := append(strict, pooled...)
	rctx.AddExclude(pooled)
	if need := RelatedTotal - len(items); need > 0 {
		fill := (&recall.Backfill{Catalog: e.catalog, Seed: seed}).Fill(rctx, need)
		stats.Backfill = len(fill)
		items = append(items, fill...)
	}

	items, _ = (&rerank.ShuffleNode{Seed: seed}).Process(ctx, rctx, items)
	if len(items) > RelatedTotal {
		items = items[:RelatedTotal]
	}
	stats.Total = len(items)

	e.logger.Debug().Str("product_name", req.ProductName).Int("strict", stats.Strict).Int("semantic", stats.Semantic).
		Int("collaborative", stats.Collaborative).Int("backfill", stats.Backfill).Msg("related items")
	return &RelatedResult{Items: items, Stats: stats}, nil
}
