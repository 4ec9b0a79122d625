package core

import "strings"

// Product 是目录中的强类型商品记录，在加载时完成所有类型归一化，之后只读。
//
// 字段对应原始数据集：
//   - ID:         asin
//   - Category:   bs_category（细分类目）
//   - Categories: 类目路径，用于 recent_departments 内容过滤
//   - Popularity: reviews_count
//   - Embedding:  离线预计算的文本向量，可能为空
type Product struct {
	ID          string
	Title       string
	Description string
	Features    []string
	Department  string
	Category    string
	Categories  []string
	Price       float64
	Rating      float64
	Popularity  float64
	AgeGroup    string
	Embedding   []float64
	URL         string
	Image       string
}

// AgeGroupAll 表示不限年龄的商品。
const AgeGroupAll = "all"

// Text 返回用于偏好模型训练与 TF-IDF 的文本：标题 + 特征 + 部门。
func (p *Product) Text() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Title)
	if len(p.Features) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(p.Features, " "))
	}
	if p.Department != "" {
		b.WriteByte(' ')
		b.WriteString(p.Department)
	}
	return b.String()
}

// FeatureText 返回特征拼接后的文本，内容过滤只看特征。
func (p *Product) FeatureText() string {
	if p == nil {
		return ""
	}
	return strings.Join(p.Features, " ")
}

// PriceBucket 把价格归入展示用的区间：0-50 / 50-100 / 100+。
func (p *Product) PriceBucket() string {
	switch {
	case p.Price < 50:
		return "0-50"
	case p.Price < 100:
		return "50-100"
	default:
		return "100+"
	}
}

// HasEmbedding 判断是否带有预计算向量。
func (p *Product) HasEmbedding() bool {
	return p != nil && len(p.Embedding) > 0
}

// InCategories 判断商品类目路径是否命中任意一个 departments。
func (p *Product) InCategories(departments []string) bool {
	for _, c := range p.Categories {
		for _, d := range departments {
			if c == d {
				return true
			}
		}
	}
	return false
}
