package pipeline

import (
	"context"

	"github.com/rushteam/giftrec/core"
)

// Kind 标记 Node 所处阶段，用于日志与指标。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回：生成候选
	KindFilter      Kind = "filter"      // 过滤：剔除不满足约束的候选
	KindRank        Kind = "rank"        // 排序：打分并排序
	KindReRank      Kind = "rerank"      // 重排：多样性、探索混入、截断
	KindPostProcess Kind = "postprocess" // 后处理
)

// Node 是 Pipeline 的最小单元，统一为 "items 进 -> items 出"。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeFunc 把函数包装为 Node。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (n NodeFunc) Name() string { return n.NodeName }
func (n NodeFunc) Kind() Kind   { return n.NodeKind }

func (n NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.Fn(ctx, rctx, items)
}
