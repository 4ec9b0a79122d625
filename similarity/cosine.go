// Package similarity 提供内容相似度（向量余弦、TF-IDF）与基于交互矩阵的 item-item 协同过滤。
package similarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/giftrec/core"
)

var (
	// ErrDimensionMismatch 表示两个向量维度不一致。
	ErrDimensionMismatch = core.NewComputationError(core.ModuleSimilarity, "vector dimension mismatch", nil)

	// ErrNoAnchor 表示锚点缺少向量。
	ErrNoAnchor = core.NewComputationError(core.ModuleSimilarity, "anchor has no embedding", nil)

	// ErrNoCandidates 表示候选集为空。
	ErrNoCandidates = core.NewComputationError(core.ModuleSimilarity, "empty candidate pool", nil)
)

// Cosine 计算余弦相似度。任一向量范数为 0 时返回 0。
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	s := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(s) {
		return 0, nil
	}
	return s, nil
}

// Align 返回维度为 dim 的向量；维度不符（包括缺失）时以零向量代替。
func Align(v []float64, dim int) []float64 {
	if len(v) == dim {
		return v
	}
	return make([]float64, dim)
}

// Scored 是带相似度分数的商品。
type Scored struct {
	Product *core.Product
	Score   float64
}

// sortScored 按分数降序稳定排序，同分保持输入顺序。
func sortScored(s []Scored) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Score > s[j].Score
	})
}

func head(s []Scored, n int) []Scored {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// Products 提取 Scored 中的商品。
func Products(s []Scored) []*core.Product {
	out := make([]*core.Product, len(s))
	for i := range s {
		out[i] = s[i].Product
	}
	return out
}
