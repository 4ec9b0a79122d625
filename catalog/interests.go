package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InterestMap 把粗粒度兴趣映射到目录 department。
type InterestMap map[string][]string

// DefaultInterestMap 返回内置的兴趣 -> department 表。
func DefaultInterestMap() InterestMap {
	return InterestMap{
		"Shopping":      {"Clothing, Shoes & Jewelry", "Watches", "Beauty", "Grocery & Gourmet Food", "Electronics"},
		"Kids":          {"Toys & Games", "Baby Products", "Clothing, Shoes & Jewelry"},
		"Health":        {"Health & Personal Care", "Vitamins, Minerals & Supplements", "Medical Supplies & Equipment"},
		"Sports":        {"Sports & Outdoors", "Outdoor Recreation", "Fitness & Exercise Equipment"},
		"Fashion":       {"Clothing, Shoes & Jewelry", "Watches", "Beauty"},
		"Technology":    {"Electronics", "Computers", "Wearable Technology", "Headphones, Earphones & Accessories", "Cell Phones & Accessories"},
		"Movies":        {"Electronics", "Video Games"},
		"Food":          {"Grocery & Gourmet Food", "Drinks", "Fresh & Chilled"},
		"Art":           {"Arts, Crafts & Sewing", "Musical Instruments, Stage & Studio"},
		"Travel":        {"Outdoor Recreation", "Travel Accessories", "Luggage"},
		"Music":         {"Musical Instruments, Stage & Studio", "Headphones, Earphones & Accessories"},
		"Entertainment": {"Video Games", "Electronics", "Toys & Games"},
	}
}

// Departments 返回兴趣对应的 department，去重并保持首次出现顺序。未知兴趣忽略。
func (m InterestMap) Departments(interests []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, in := range interests {
		for _, d := range m[in] {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// ParseInterestMap 解析 YAML：
//
//	Technology: [Electronics, Computers]
//	Kids: [Toys & Games]
func ParseInterestMap(data []byte) (InterestMap, error) {
	var m InterestMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse interest map: %w", err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("parse interest map: empty")
	}
	return m, nil
}

// LoadInterestMap 从 YAML 文件加载兴趣表。
func LoadInterestMap(path string) (InterestMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interest map: %w", err)
	}
	return ParseInterestMap(data)
}

// LoadProfiles 从 YAML 文件加载画像表，文件为 GiftProfile 列表。
func LoadProfiles(path string) (*ProfileTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var rows []GiftProfile
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return NewProfileTable(rows), nil
}
