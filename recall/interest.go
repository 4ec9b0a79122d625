package recall

import (
	"context"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
)

// InterestRecall 根据礼物画像召回个性化候选：
// 画像表(occasion/gender/age) -> 兴趣 -> department -> 商品（目录顺序）。
//
// rctx.Params["whole_catalog"] 为 true 时直接返回全目录（最宽松的降级层）。
type InterestRecall struct {
	Catalog   *catalog.Store
	Profiles  *catalog.ProfileTable
	Interests catalog.InterestMap
}

func (r *InterestRecall) Name() string { return "recall.interest" }

func (r *InterestRecall) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := r.Catalog.Available(); err != nil {
		return nil, err
	}
	if rctx.ParamBool(core.ParamWholeCatalog) {
		return tag(r.Catalog.All(), core.MatchPersonalized, r.Name()), nil
	}
	departments, err := r.Departments(rctx.Filters)
	if err != nil {
		return nil, err
	}
	return tag(r.Catalog.InDepartments(departments), core.MatchPersonalized, r.Name()), nil
}

// Departments 返回过滤条件对应的 department 列表。Profiles 为空时只有儿童年龄段有结果。
func (r *InterestRecall) Departments(f core.Filters) ([]string, error) {
	interests, err := r.Profiles.Interests(f)
	if err != nil {
		return nil, err
	}
	m := r.Interests
	if m == nil {
		m = catalog.DefaultInterestMap()
	}
	return m.Departments(interests), nil
}

var _ Source = (*InterestRecall)(nil)
