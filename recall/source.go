package recall

import (
	"context"
	"hash/fnv"
	"math/rand"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/utils"
)

// Source 是一个召回源（严格匹配/语义/协同/热门/兴趣）。
// 可以单独调用，也可以放进 Fanout 并发执行。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// DefaultSeed 是相关推荐使用的固定随机种子。
const DefaultSeed int64 = 42

// rngFor 为召回源派生独立的随机数生成器：请求种子（rctx.Params["seed"]）存在时
// 与源名称哈希异或，否则使用源自身的种子。同一种子下结果可复现。
func rngFor(rctx *core.RecommendContext, name string, seed int64) *rand.Rand {
	if s, ok := rctx.ParamInt64(core.ParamSeed); ok {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		return rand.New(rand.NewSource(s ^ int64(h.Sum64())))
	}
	return rand.New(rand.NewSource(seed))
}

// tag 把商品包装为 Item 并写入 match_type。
func tag(products []*core.Product, matchType, source string) []*core.Item {
	items := core.ProductItems(products)
	for _, it := range items {
		it.SetMatchType(matchType, source)
	}
	return items
}

// markFallback 标记降级结果。
func markFallback(items []*core.Item, reason string) {
	for _, it := range items {
		it.SetLabel(core.LabelFallback, utils.Label{Value: reason, Source: "recall"})
	}
}
