package rerank

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/filter"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/recall"
)

// Blend 是探索混入节点：从 Source 取 int(limit × Rate) 个随机候选，
// 经 Filters 过滤、与已有结果去重后追加，再整体打散。
// 混入的物品 match_type 为 exploration。
type Blend struct {
	Source  recall.Source
	Rate    float64
	Filters []filter.Filter
	Seed    int64
	Logger  *zerolog.Logger
}

func (n *Blend) Name() string        { return "rerank.blend" }
func (n *Blend) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Blend) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	count := ExplorationCount(rctx.ParamInt(core.ParamLimit, len(items)), n.Rate)
	if count == 0 || n.Source == nil || len(items) == 0 {
		return items, nil
	}

	explore, err := n.Source.Recall(ctx, rctx)
	if err != nil {
		logger := logging.Component("rerank")
		if n.Logger != nil {
			logger = *n.Logger
		}
		logger.Warn().Err(err).Str("source", n.Source.Name()).Msg("exploration skipped")
		metrics.RecordDegraded("rerank", "exploration")
		return items, nil
	}
	explore = filter.Apply(ctx, rctx, explore, n.Filters...)

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.ID] = struct{}{}
	}
	out := append([]*core.Item(nil), items...)
	added := 0
	for _, it := range explore {
		if added == count {
			break
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		it.SetMatchType(core.MatchExploration, n.Name())
		out = append(out, it)
		added++
	}

	seed := n.Seed
	if s, ok := rctx.ParamInt64(core.ParamSeed); ok {
		seed = s
	}
	Shuffle(rand.New(rand.NewSource(seed)), out)
	return out, nil
}

// ExplorationCount 返回探索物品数 int(limit × rate)，rate 截断到 [0,1]。
func ExplorationCount(limit int, rate float64) int {
	if limit <= 0 || rate <= 0 {
		return 0
	}
	if rate > 1 {
		rate = 1
	}
	return int(float64(limit) * rate)
}
