package rerank

import (
	"context"
	"math/rand"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pipeline"
)

// ShuffleNode 用固定种子打散结果。rctx.Params["seed"] 存在时优先使用。
type ShuffleNode struct {
	Seed int64
}

func (n *ShuffleNode) Name() string        { return "rerank.shuffle" }
func (n *ShuffleNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *ShuffleNode) Process(_ context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	seed := n.Seed
	if s, ok := rctx.ParamInt64(core.ParamSeed); ok {
		seed = s
	}
	Shuffle(rand.New(rand.NewSource(seed)), items)
	return items, nil
}

// Shuffle 原地打散。
func Shuffle(rng *rand.Rand, items []*core.Item) {
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
