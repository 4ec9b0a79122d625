package filter

import (
	"context"
	"strings"
	"unicode"

	"github.com/rushteam/giftrec/core"
)

// PriceFilter 过滤价格不在 rctx.Filters.PriceRange 内的商品。
type PriceFilter struct{}

func (f *PriceFilter) Name() string { return "filter.price" }

func (f *PriceFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item.Product == nil {
		return true, nil
	}
	r, ok, err := core.ParsePriceRange(rctx.Filters.PriceRange)
	if err != nil {
		return false, core.NewValidationError(core.ModuleRecommend, "invalid price range", "price_range")
	}
	return ok && !r.Contains(item.Product.Price), nil
}

var (
	menKeywords   = []string{"men", "male", "boy", "men's", "boy's"}
	womenKeywords = []string{"women", "female", "girl", "women's", "girl's"}
)

// GenderFilter 根据标题和描述中的性别关键词过滤商品。
//
// 关键词按整词匹配（"women" 不会命中 "men"）。请求 women 时含男性关键词的商品被过滤，
// 反之亦然；两类关键词都没有的商品视为通用，保留。
type GenderFilter struct{}

func (f *GenderFilter) Name() string { return "filter.gender" }

func (f *GenderFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item.Product == nil {
		return true, nil
	}
	var opposite []string
	switch normalizeGender(rctx.Filters.Gender) {
	case "women":
		opposite = menKeywords
	case "men":
		opposite = womenKeywords
	default:
		return false, nil
	}
	words := genderTokens(item.Product.Title + " " + item.Product.Description)
	for _, kw := range opposite {
		if _, ok := words[kw]; ok {
			return true, nil
		}
	}
	return false, nil
}

func normalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "women", "woman", "female", "f":
		return "women"
	case "men", "man", "male", "m":
		return "men"
	}
	return ""
}

// genderTokens 把文本拆成小写词，保留撇号（men's）。
func genderTokens(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})
	out := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		w = strings.ReplaceAll(strings.Trim(w, "'’"), "’", "'")
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

// AgeFilter 过滤年龄段与 rctx.Filters.AgeRange 不符的商品。
// age_group 为 all 或空的商品总是保留；age_group 可解析为区间时按区间重叠判断。
type AgeFilter struct{}

func (f *AgeFilter) Name() string { return "filter.age" }

func (f *AgeFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item.Product == nil {
		return true, nil
	}
	want := strings.TrimSpace(rctx.Filters.AgeRange)
	if want == "" {
		return false, nil
	}
	req, _, err := core.ParseAgeRange(want)
	if err != nil {
		return false, core.NewValidationError(core.ModuleRecommend, "invalid age range", "age_range")
	}
	group := strings.TrimSpace(item.Product.AgeGroup)
	if group == "" || strings.EqualFold(group, core.AgeGroupAll) || group == want {
		return false, nil
	}
	r, ok, err := core.ParseAgeRange(group)
	if err != nil || !ok {
		return true, nil
	}
	return !req.Overlaps(r.Min, r.Max), nil
}

// Strict 返回推荐链路的严格后过滤器：价格、性别、年龄。
func Strict() []Filter {
	return []Filter{&PriceFilter{}, &GenderFilter{}, &AgeFilter{}}
}

var (
	_ Filter = (*PriceFilter)(nil)
	_ Filter = (*GenderFilter)(nil)
	_ Filter = (*AgeFilter)(nil)
)
