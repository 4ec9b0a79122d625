package catalog

import (
	"strings"

	"github.com/rushteam/giftrec/core"
)

// KidsInterest 是儿童年龄段强制使用的兴趣。
const KidsInterest = "Kids"

// GiftProfile 是送礼画像表的一行：场合、性别、年龄段 -> 兴趣。
type GiftProfile struct {
	Occasion string `yaml:"occasion"`
	Gender   string `yaml:"gender"`
	MinAge   int    `yaml:"min_age"`
	MaxAge   int    `yaml:"max_age"`
	Interest string `yaml:"interest"`
}

// ProfileTable 把请求过滤条件映射为兴趣列表。
type ProfileTable struct {
	rows []GiftProfile
}

// NewProfileTable 创建画像表。MaxAge 小于 MinAge 的行视为单一年龄。
func NewProfileTable(rows []GiftProfile) *ProfileTable {
	t := &ProfileTable{rows: make([]GiftProfile, 0, len(rows))}
	for _, r := range rows {
		if r.MaxAge < r.MinAge {
			r.MaxAge = r.MinAge
		}
		t.rows = append(t.rows, r)
	}
	return t
}

// Len 返回行数。
func (t *ProfileTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Interests 按过滤条件返回去重后的兴趣，保持表顺序。
// 儿童年龄段直接返回 ["Kids"]，不再参考其它条件。
// 区间格式非法时返回 ValidationError。
func (t *ProfileTable) Interests(f core.Filters) ([]string, error) {
	age, hasAge, err := core.ParseAgeRange(f.AgeRange)
	if err != nil {
		return nil, core.NewValidationError(core.ModuleCatalog, "invalid age range", "age_range")
	}
	if hasAge && age.IsKid() {
		return []string{KidsInterest}, nil
	}
	if t == nil {
		return nil, nil
	}

	occasion := strings.ToLower(strings.TrimSpace(f.Occasion))
	gender := strings.ToLower(strings.TrimSpace(f.Gender))
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		if occasion != "" && !strings.Contains(strings.ToLower(r.Occasion), occasion) {
			continue
		}
		if gender != "" && !strings.Contains(strings.ToLower(r.Gender), gender) {
			continue
		}
		if hasAge && !age.Overlaps(r.MinAge, r.MaxAge) {
			continue
		}
		if r.Interest == "" {
			continue
		}
		if _, ok := seen[r.Interest]; ok {
			continue
		}
		seen[r.Interest] = struct{}{}
		out = append(out, r.Interest)
	}
	return out, nil
}
