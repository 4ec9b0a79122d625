package filter

import (
	"context"

	"github.com/rushteam/giftrec/core"
)

// ExposureChecker 判断物品是否已向用户曝光。interaction.Store 基于布隆过滤器实现，
// 可能误判为已曝光，但不会漏判。
type ExposureChecker interface {
	WasShown(userID, itemID string) bool
}

// ExposedFilter 是已曝光过滤器，过滤掉用户已经看过的物品。匿名请求不过滤。
type ExposedFilter struct {
	Exposure ExposureChecker
}

// NewExposedFilter 创建一个已曝光过滤器。
func NewExposedFilter(exposure ExposureChecker) *ExposedFilter {
	return &ExposedFilter{Exposure: exposure}
}

func (f *ExposedFilter) Name() string {
	return "filter.exposed"
}

func (f *ExposedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Exposure == nil {
		return false, nil
	}
	return f.Exposure.WasShown(rctx.UserID, item.ID), nil
}
