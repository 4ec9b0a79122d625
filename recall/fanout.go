package recall

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/pkg/utils"
)

// 合并策略。
const (
	MergeFirst    = "first"    // 按 Sources 顺序去重，保留先出现的
	MergePriority = "priority" // 同 first，并把低优先级来源的 label 合并到保留项
	MergeUnion    = "union"    // 不去重
)

// Fanout 并发执行多个召回源并合并结果。
//
// 每个源的结果写入各自的槽位，合并时按 Sources 顺序遍历，因此输出顺序与
// 并发完成顺序无关。单个源失败或超时只记录日志，返回空结果，不影响其它源。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个召回源的超时
	MaxConcurrent int           // 最大并发数，0 表示不限制
	MergeStrategy string
	Logger        *zerolog.Logger
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 pipeline.Node。
func (n *Fanout) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return n.Recall(ctx, rctx)
}

// Recall 实现 Source，Fanout 可以嵌套。
func (n *Fanout) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}
	logger := logging.Component("recall")
	if n.Logger != nil {
		logger = *n.Logger
	}

	slots := make([][]*core.Item, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		i, src := i, src
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				logger.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				metrics.RecordDegraded("recall", src.Name())
				return nil
			}
			priority := strconv.Itoa(i)
			for _, it := range items {
				if it == nil {
					continue
				}
				it.PutLabel(core.LabelRecallSource, utils.Label{Value: src.Name(), Source: "recall"})
				it.PutLabel("recall_priority", utils.Label{Value: priority, Source: "recall"})
			}
			slots[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch n.MergeStrategy {
	case MergeUnion:
		return mergeUnion(slots), nil
	case MergePriority:
		return mergeByPriority(slots, true), nil
	default:
		return mergeByPriority(slots, false), nil
	}
}

func mergeUnion(slots [][]*core.Item) []*core.Item {
	var out []*core.Item
	for _, items := range slots {
		for _, it := range items {
			if it != nil {
				out = append(out, it)
			}
		}
	}
	return out
}

// mergeByPriority 按槽位顺序去重，同 ID 保留优先级高（槽位靠前）的一项。
// mergeLabels 为 true 时把后出现项的 label 合并进去，match_type 保持不变。
func mergeByPriority(slots [][]*core.Item, mergeLabels bool) []*core.Item {
	seen := make(map[string]*core.Item)
	var out []*core.Item
	for _, items := range slots {
		for _, it := range items {
			if it == nil {
				continue
			}
			kept, dup := seen[it.ID]
			if !dup {
				seen[it.ID] = it
				out = append(out, it)
				continue
			}
			if !mergeLabels {
				continue
			}
			for k, v := range it.Labels {
				if k == core.LabelMatchType {
					continue
				}
				kept.PutLabel(k, v)
			}
		}
	}
	return out
}
