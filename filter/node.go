package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/pkg/utils"
)

// FilterNode 依次询问 Filters，第一个命中的过滤器决定剔除原因。
// 过滤器报错时物品保留，按降级记一次 Warn。
type FilterNode struct {
	Filters []Filter
	Logger  *zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}
	logger := logging.Component("filter")
	if n.Logger != nil {
		logger = *n.Logger
	}

	out := make([]*core.Item, 0, len(items))
	dropped := make(map[string]int)
	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时保留物品，不中断流程
				logger.Warn().Err(err).Str("filter", f.Name()).Str("item_id", item.ID).Msg("filter failed, item kept")
				metrics.RecordDegraded("filter", f.Name())
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			dropped[reason]++
			continue
		}
		out = append(out, item)
	}
	if len(dropped) > 0 {
		ev := logger.Debug().Int("kept", len(out))
		if rctx != nil {
			ev = ev.Str("scene", rctx.Scene)
		}
		for name, c := range dropped {
			ev = ev.Int(name, c)
		}
		ev.Msg("items filtered")
	}
	return out, nil
}

// Apply 用一组过滤器过滤 items，等价于 FilterNode.Process。
func Apply(ctx context.Context, rctx *core.RecommendContext, items []*core.Item, filters ...Filter) []*core.Item {
	out, _ := (&FilterNode{Filters: filters}).Process(ctx, rctx, items)
	return out
}
