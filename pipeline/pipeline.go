package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/giftrec/core"
)

// Pipeline 把推荐逻辑拆成顺序执行的 Node 链。
type Pipeline struct {
	// Name 仅用于日志与错误信息，例如 "L2" 或配置文件中的 pipeline.name。
	Name  string
	Nodes []Node
}

// Run 依次执行各 Node。ctx 取消后停止，错误带上出错 Node 的名字。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if p == nil {
		return items, nil
	}
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			if p.Name != "" {
				return nil, fmt.Errorf("pipeline %s node %s: %w", p.Name, node.Name(), err)
			}
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// Append 追加 Node，返回自身便于链式调用。
func (p *Pipeline) Append(nodes ...Node) *Pipeline {
	p.Nodes = append(p.Nodes, nodes...)
	return p
}

// Len 返回 Node 数。
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Nodes)
}
