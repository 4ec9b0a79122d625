package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/conv"
)

// Record 是松散类型的原始行（来自 CSV / JSON 解析结果）。
type Record map[string]any

// 原始数据集中的列名，按优先级排列。
var (
	idKeys         = []string{"asin", "id", "product_id"}
	titleKeys      = []string{"title", "Product Name"}
	priceKeys      = []string{"final_price", "price", "initial_price"}
	ratingKeys     = []string{"rating", "Rating"}
	popularityKeys = []string{"reviews_count", "popularity", "Popularity"}
)

func first(r Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(r Record, keys ...string) string {
	v, ok := first(r, keys)
	if !ok {
		return ""
	}
	s, _ := conv.ToString(v)
	return strings.TrimSpace(s)
}

func num(r Record, keys []string) float64 {
	v, _ := first(r, keys)
	return conv.SanitizeFloat(v)
}

// FromRecord 把单行归一化为 Product。缺失 ID 时返回 ValidationError；
// 价格/评分等数值字段无法解析时取 0.0，不影响该行其它字段。
func FromRecord(r Record) (*core.Product, error) {
	id := str(r, idKeys...)
	if id == "" {
		return nil, core.NewValidationError(core.ModuleCatalog, "record without id", "asin")
	}
	p := &core.Product{
		ID:          id,
		Title:       str(r, titleKeys...),
		Description: str(r, "description"),
		Features:    conv.ToStringSlice(r["features"]),
		Department:  str(r, "department"),
		Category:    str(r, "bs_category", "category"),
		Categories:  conv.ToStringSlice(r["categories"]),
		Price:       num(r, priceKeys),
		Rating:      num(r, ratingKeys),
		Popularity:  num(r, popularityKeys),
		AgeGroup:    str(r, "age_group"),
		Embedding:   conv.ToFloatSlice(r["embedding"]),
		URL:         str(r, "url"),
		Image:       str(r, "image", "images"),
	}
	if p.AgeGroup == "" {
		p.AgeGroup = core.AgeGroupAll
	}
	return p, nil
}

// FromRecords 逐行归一化，坏行记录日志后跳过，不会中断整批。
func FromRecords(records []Record, logger zerolog.Logger) []*core.Product {
	out := make([]*core.Product, 0, len(records))
	for i, r := range records {
		p, err := FromRecord(r)
		if err != nil {
			logger.Warn().Int("row", i).Err(err).Msg("skip catalog record")
			continue
		}
		out = append(out, p)
	}
	return out
}

// RecordLoader 是基于内存原始行的 Loader，供测试与嵌入式调用。
type RecordLoader struct {
	Records []Record
	Logger  zerolog.Logger
}

func (l *RecordLoader) Load(_ context.Context) ([]*core.Product, error) {
	return FromRecords(l.Records, l.Logger), nil
}
