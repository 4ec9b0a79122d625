package recommend

import "github.com/rushteam/giftrec/core"

// Level 是一个降级层级：在原始过滤条件上放宽若干约束。
type Level struct {
	Index int
	Name  string
	// WholeCatalog 为 true 时不再经过画像表，直接以全目录为候选
	WholeCatalog bool
	relax        func(core.Filters) core.Filters
}

// Apply 返回该层级生效的过滤条件。价格区间与 RecentDepartments 在每一层都保留。
func (l Level) Apply(f core.Filters) core.Filters {
	return l.relax(f)
}

// TrendingFallbackLevel 是所有层级都没有结果时的热门兜底。
const TrendingFallbackLevel = "trending_fallback"

var levels = []Level{
	{Index: 0, Name: "L0_all_filters", relax: func(f core.Filters) core.Filters { return f }},
	{Index: 1, Name: "L1_drop_occasion", relax: func(f core.Filters) core.Filters {
		f.Occasion = ""
		return f
	}},
	{Index: 2, Name: "L2_drop_gender", relax: func(f core.Filters) core.Filters {
		f.Occasion, f.Gender = "", ""
		return f
	}},
	{Index: 3, Name: "L3_drop_age", relax: func(f core.Filters) core.Filters {
		f.Occasion, f.Gender, f.AgeRange = "", "", ""
		return f
	}},
	{Index: 4, Name: "L4_price_only", WholeCatalog: true, relax: func(f core.Filters) core.Filters {
		return core.Filters{PriceRange: f.PriceRange, RecentDepartments: f.RecentDepartments}
	}},
}

// Levels 返回从严到松的降级层级。
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}
