// Package filter 提供推荐结果的严格后过滤：价格、性别、年龄、曝光、黑名单与 CEL 表达式。
//
// 所有过滤器从 rctx.Filters 读取当前降级层级生效的条件，
// 同一个 FilterNode 可以在每一层复用。
package filter

import (
	"context"

	"github.com/rushteam/giftrec/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}
