// Package rerank 对排序结果做截断、多样性、探索混入与打散。
package rerank

import (
	"context"
	"strconv"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/utils"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个物品，
// 并为保留的物品写入 position label（从 1 开始）。
//
// N <= 0 时读取 rctx.Params["limit"]，两者都没有则不截断。
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 {
		limit = rctx.ParamInt(core.ParamLimit, 0)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i, it := range items {
		if it != nil {
			it.SetLabel("position", utils.Label{Value: strconv.Itoa(i + 1), Source: "rerank"})
		}
	}
	return items, nil
}
