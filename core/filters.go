package core

import (
	"math"
	"strconv"
	"strings"
)

// Filters 是推荐请求的过滤条件，空串表示该维度不限制。
type Filters struct {
	Occasion   string
	Gender     string
	AgeRange   string // "5-10" / "18+"
	PriceRange string // "0-50" / "100+"

	// RecentDepartments 触发基于 TF-IDF 的内容过滤
	RecentDepartments []string
}

// Validate 校验区间格式，返回 ValidationError。
func (f Filters) Validate() error {
	var bad []string
	if _, _, err := ParsePriceRange(f.PriceRange); err != nil {
		bad = append(bad, "price_range")
	}
	if _, _, err := ParseAgeRange(f.AgeRange); err != nil {
		bad = append(bad, "age_range")
	}
	if len(bad) > 0 {
		return NewValidationError(ModuleRecommend, "invalid filter value", bad...)
	}
	return nil
}

// PriceRange 是闭区间 [Min, Max]，"100+" 的 Max 为 +Inf。
type PriceRange struct {
	Min float64
	Max float64
}

// Contains 判断价格是否落在区间内。
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// ParsePriceRange 解析 "a-b" 或 "a+"，空串返回 ok=false。
func ParsePriceRange(s string) (PriceRange, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriceRange{}, false, nil
	}
	if strings.HasSuffix(s, "+") {
		min, err := parsePriceBound(strings.TrimSuffix(s, "+"))
		if err != nil {
			return PriceRange{}, false, err
		}
		return PriceRange{Min: min, Max: math.Inf(1)}, true, nil
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return PriceRange{}, false, strconv.ErrSyntax
	}
	min, err := parsePriceBound(lo)
	if err != nil {
		return PriceRange{}, false, err
	}
	max, err := parsePriceBound(hi)
	if err != nil {
		return PriceRange{}, false, err
	}
	if min > max {
		return PriceRange{}, false, strconv.ErrRange
	}
	return PriceRange{Min: min, Max: max}, true, nil
}

// parsePriceBound 只接受有限数值，NaN 与 Inf 视为语法错误。
func parsePriceBound(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

// KidsMaxAge 是儿童年龄段上限（含）。
const KidsMaxAge = 14

// AgeRange 是年龄闭区间，"18+" 的 Max 为 math.MaxInt。
type AgeRange struct {
	Min int
	Max int
}

// IsKid 判断是否为 0-14 岁儿童区间；"N+" 在 N<=14 时同样视为儿童。
func (r AgeRange) IsKid() bool {
	if r.Max == math.MaxInt {
		return r.Min <= KidsMaxAge
	}
	return r.Min >= 0 && r.Max <= KidsMaxAge
}

// Overlaps 判断两个年龄区间是否有交集。
func (r AgeRange) Overlaps(min, max int) bool {
	return r.Min <= max && min <= r.Max
}

// ParseAgeRange 解析 "a-b" 或 "a+"，空串返回 ok=false。
func ParseAgeRange(s string) (AgeRange, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AgeRange{}, false, nil
	}
	if strings.HasSuffix(s, "+") {
		min, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "+")))
		if err != nil {
			return AgeRange{}, false, err
		}
		return AgeRange{Min: min, Max: math.MaxInt}, true, nil
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		age, err := strconv.Atoi(s)
		if err != nil {
			return AgeRange{}, false, err
		}
		return AgeRange{Min: age, Max: age}, true, nil
	}
	min, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return AgeRange{}, false, err
	}
	max, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return AgeRange{}, false, err
	}
	if min > max {
		return AgeRange{}, false, strconv.ErrRange
	}
	return AgeRange{Min: min, Max: max}, true, nil
}
