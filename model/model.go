package model

import "context"

// TextScorer 把商品文本映射为 [0,1] 的偏好分数。
type TextScorer interface {
	Score(text string) float64
	IsTrained() bool
}

// CandidateSource 为用户给出有序的候选物品 ID。
// 偏好模型通过它回答 recommend_candidates，实现可替换而不影响调用方。
type CandidateSource interface {
	Name() string
	Candidates(ctx context.Context, userID string, k int) ([]string, error)
}
