package rerank

import (
	"context"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/pkg/utils"
	"github.com/rushteam/giftrec/similarity"
)

// ContentNode 按用户最近浏览的 department 做基于内容的过滤：
// 保留类目路径与 rctx.Filters.RecentDepartments 有交集的商品，
// 按 TF-IDF(特征文本) 与 "department 拼接" 查询的余弦相似度排序，取前 limit 个。
//
// 没有商品命中或相似度无法计算时，从输入中随机抽取 limit 个，match_type 为 random_fallback。
// RecentDepartments 为空时只截断。
type ContentNode struct {
	Engine *similarity.ContentEngine
	Seed   int64
	Logger *zerolog.Logger
}

func (n *ContentNode) Name() string        { return "rerank.content" }
func (n *ContentNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *ContentNode) Process(_ context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	limit := rctx.ParamInt(core.ParamLimit, len(items))
	recent := rctx.Filters.RecentDepartments
	if len(recent) == 0 {
		if len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	}

	byID := make(map[string]*core.Item, len(items))
	var matched []*core.Product
	for _, it := range items {
		if it == nil || it.Product == nil {
			continue
		}
		byID[it.ID] = it
		if it.Product.InCategories(recent) {
			matched = append(matched, it.Product)
		}
	}

	if len(matched) > 0 {
		engine := n.Engine
		if engine == nil {
			engine = &similarity.ContentEngine{}
		}
		ranked, err := engine.RankByQuery(strings.Join(recent, " "), matched, limit)
		if err == nil {
			out := make([]*core.Item, 0, len(ranked))
			for _, s := range ranked {
				it := byID[s.Product.ID]
				if it.Meta == nil {
					it.Meta = make(map[string]any)
				}
				it.Meta["similarity_score"] = s.Score
				out = append(out, it)
			}
			return out, nil
		}
		n.logger().Warn().Err(err).Strs("recent_departments", recent).Msg("content filtering degraded to random sample")
	} else {
		n.logger().Warn().Strs("recent_departments", recent).Msg("no products matched recent departments")
	}
	metrics.RecordDegraded("rerank", "content")

	seed := n.Seed
	if s, ok := rctx.ParamInt64(core.ParamSeed); ok {
		seed = s
	}
	products := make([]*core.Product, 0, len(byID))
	for _, it := range items {
		if it != nil && it.Product != nil {
			products = append(products, it.Product)
		}
	}
	sampled := catalog.Sample(rand.New(rand.NewSource(seed)), products, limit)
	out := make([]*core.Item, 0, len(sampled))
	for _, p := range sampled {
		it := byID[p.ID]
		it.SetMatchType(core.MatchRandomFallback, n.Name())
		it.SetLabel(core.LabelFallback, utils.Label{Value: "content", Source: "rerank"})
		out = append(out, it)
	}
	return out, nil
}

func (n *ContentNode) logger() *zerolog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	l := logging.Component("rerank")
	return &l
}
