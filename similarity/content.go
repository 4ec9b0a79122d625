package similarity

import (
	"strings"

	"github.com/rushteam/giftrec/core"
)

// SameDepartmentBoost 是候选与锚点 department 相同时的相似度乘数。
const SameDepartmentBoost = 1.1

// ContentEngine 计算查询/锚点与候选之间的内容相似度。
type ContentEngine struct {
	// MaxFeatures 限制 RankByQuery 的 TF-IDF 词表大小
	MaxFeatures int
}

// RankByEmbedding 按与锚点向量的余弦相似度排序候选，department 与 anchorDept
// 相同的候选乘以 SameDepartmentBoost。缺失或维度不符的候选向量按零向量处理。
// 锚点无向量返回 ErrNoAnchor，候选为空返回 ErrNoCandidates。
func (e *ContentEngine) RankByEmbedding(anchor []float64, anchorDept string, candidates []*core.Product, n int) ([]Scored, error) {
	if len(anchor) == 0 {
		return nil, ErrNoAnchor
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	dim := len(anchor)
	out := make([]Scored, 0, len(candidates))
	for _, p := range candidates {
		s, err := Cosine(anchor, Align(p.Embedding, dim))
		if err != nil {
			return nil, err
		}
		if anchorDept != "" && p.Department == anchorDept {
			s *= SameDepartmentBoost
		}
		out = append(out, Scored{Product: p, Score: s})
	}
	sortScored(out)
	return head(out, n), nil
}

// RankByQuery 在候选的特征文本上拟合 TF-IDF，按与查询的余弦相似度排序。
// 查询或语料没有有效词时返回 ErrEmptyVocabulary。
func (e *ContentEngine) RankByQuery(query string, candidates []*core.Product, n int) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	docs := make([]string, len(candidates))
	for i, p := range candidates {
		docs[i] = p.FeatureText()
	}
	vec := &Vectorizer{MaxFeatures: e.MaxFeatures, StopWords: true}
	matrix, err := vec.FitTransform(docs)
	if err != nil {
		return nil, err
	}
	q, err := vec.Transform(strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}

	out := make([]Scored, len(candidates))
	for i, p := range candidates {
		s, err := Cosine(q, matrix[i])
		if err != nil {
			return nil, err
		}
		out[i] = Scored{Product: p, Score: s}
	}
	sortScored(out)
	return head(out, n), nil
}
