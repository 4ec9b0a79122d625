package rerank

import (
	"context"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pipeline"
)

// Diversity 按类别限制同类物品数量，超出 MaxPerKey 的物品被移除。
// 类别来源优先级：
// - Key 为 department / category 时取商品字段
// - label[Key].Value
// - meta[Key] (string)
type Diversity struct {
	Key       string // 默认 "department"
	MaxPerKey int    // 默认 1
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.Key
	if key == "" {
		key = "department"
	}
	perKey := n.MaxPerKey
	if perKey <= 0 {
		perKey = 1
	}

	counts := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cate := groupOf(it, key)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if counts[cate] >= perKey {
			continue
		}
		counts[cate]++
		out = append(out, it)
	}
	return out, nil
}

func groupOf(it *core.Item, key string) string {
	if p := it.Product; p != nil {
		switch key {
		case "department":
			return p.Department
		case "category", core.ParamCategory:
			return p.Category
		}
	}
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value
	}
	if v, ok := it.Meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
