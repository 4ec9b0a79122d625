package core

import "github.com/rushteam/giftrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：商品、分数、特征、标签。
// Labels 用于解释与降级标记（match_type / recall_source / fallback）；Score 用于排序决策。
type Item struct {
	ID       string
	Score    float64
	Product  *Product
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

// 常用 Label key。
const (
	LabelMatchType    = "match_type"
	LabelRecallSource = "recall_source"
	LabelFallback     = "fallback"
)

// match_type 取值。
const (
	MatchStrict           = "strict"
	MatchSemantic         = "semantic"
	MatchCollaborative    = "collaborative"
	MatchRandomFallback   = "random_fallback"
	MatchPersonalized     = "personalized"
	MatchExploration      = "exploration"
	MatchTrendingFallback = "trending_fallback"
)

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// NewProductItem 用目录商品构造 Item。
func NewProductItem(p *Product) *Item {
	it := NewItem(p.ID)
	it.Product = p
	return it
}

// ProductItems 批量包装。
func ProductItems(products []*Product) []*Item {
	out := make([]*Item, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		out = append(out, NewProductItem(p))
	}
	return out
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// SetLabel 覆盖写入 Label。match_type 需要唯一取值，不能累积。
func (it *Item) SetLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	it.Labels[key] = lbl
}

// MatchType 返回 match_type label 的值，未设置时为空串。
func (it *Item) MatchType() string {
	if it == nil || it.Labels == nil {
		return ""
	}
	return it.Labels[LabelMatchType].Value
}

// SetMatchType 标记该 Item 的来源类型。
func (it *Item) SetMatchType(matchType, source string) {
	it.SetLabel(LabelMatchType, utils.Label{Value: matchType, Source: source})
}

// IDs 提取 Item ID 列表，保持顺序。
func IDs(items []*Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it.ID)
		}
	}
	return out
}
