package filter

import (
	"context"

	"github.com/rushteam/giftrec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的物品或 department。
type BlacklistFilter struct {
	itemIDs     map[string]struct{}
	departments map[string]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(itemIDs, departments []string) *BlacklistFilter {
	f := &BlacklistFilter{
		itemIDs:     make(map[string]struct{}, len(itemIDs)),
		departments: make(map[string]struct{}, len(departments)),
	}
	for _, id := range itemIDs {
		f.itemIDs[id] = struct{}{}
	}
	for _, d := range departments {
		f.departments[d] = struct{}{}
	}
	return f
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.itemIDs[item.ID]; ok {
		return true, nil
	}
	if item.Product != nil {
		if _, ok := f.departments[item.Product.Department]; ok {
			return true, nil
		}
	}
	return false, nil
}
