// Package builders 注册可由配置驱动的 Node。
package builders

import (
	"fmt"

	"github.com/rushteam/giftrec/config"
	"github.com/rushteam/giftrec/filter"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/conv"
	"github.com/rushteam/giftrec/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("filter.expr", BuildExprNode)
	config.Register("filter.price", BuildPriceNode)
	config.Register("filter.blacklist", BuildBlacklistNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.shuffle", BuildShuffleNode)
}

// BuildFilterNode 组合多个过滤器：
//
//	filters:
//	  - {type: expr, expr: 'item.rating >= 3.5'}
//	  - {type: blacklist, item_ids: [B0001], departments: [Grocery]}
//	  - {type: price}
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		f, err := buildFilter(conv.ConfigGet(filterMap, "type", ""), filterMap)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func buildFilter(filterType string, cfg map[string]any) (filter.Filter, error) {
	switch filterType {
	case "expr":
		expr := conv.ConfigGet(cfg, "expr", "")
		if expr == "" {
			return nil, fmt.Errorf("expr not found")
		}
		return filter.NewExprFilter(expr)
	case "price":
		return &filter.PriceFilter{}, nil
	case "gender":
		return &filter.GenderFilter{}, nil
	case "age":
		return &filter.AgeFilter{}, nil
	case "blacklist":
		return filter.NewBlacklistFilter(conv.ToStringSlice(cfg["item_ids"]), conv.ToStringSlice(cfg["departments"])), nil
	default:
		return nil, fmt.Errorf("unknown filter type: %s", filterType)
	}
}

func single(filterType string) pipeline.NodeBuilder {
	return func(cfg map[string]any) (pipeline.Node, error) {
		f, err := buildFilter(filterType, cfg)
		if err != nil {
			return nil, err
		}
		return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
	}
}

func BuildExprNode(cfg map[string]any) (pipeline.Node, error) { return single("expr")(cfg) }

func BuildPriceNode(cfg map[string]any) (pipeline.Node, error) { return single("price")(cfg) }

func BuildBlacklistNode(cfg map[string]any) (pipeline.Node, error) { return single("blacklist")(cfg) }

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		Key:       conv.ConfigGet(cfg, "key", "department"),
		MaxPerKey: conv.ConfigGetInt(cfg, "max_per_key", 1),
	}, nil
}

func BuildShuffleNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.ShuffleNode{Seed: int64(conv.ConfigGetInt(cfg, "seed", 42))}, nil
}
