package model

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
)

// DefaultCandidatePool 是候选池大小。
const DefaultCandidatePool = 100

// PopularitySampler 从最热门的 PoolSize 个物品中为用户抽样。
// 同一用户、同一目录下结果固定（种子 = Seed ^ hash(user)），评估指标因此可重复。
type PopularitySampler struct {
	Catalog  *catalog.Store
	PoolSize int
	Seed     int64
}

func (s *PopularitySampler) Name() string { return "popularity" }

// Pool 返回热门候选池，按热度降序。
func (s *PopularitySampler) Pool() []string {
	size := s.PoolSize
	if size <= 0 {
		size = DefaultCandidatePool
	}
	return productIDs(s.Catalog.TopPopular(size))
}

func (s *PopularitySampler) Candidates(_ context.Context, userID string, k int) ([]string, error) {
	if err := s.Catalog.Available(); err != nil {
		return nil, err
	}
	pool := s.Pool()
	if k > len(pool) {
		k = len(pool)
	}
	rng := rand.New(rand.NewSource(s.Seed ^ userSeed(userID)))
	perm := rng.Perm(len(pool))
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = pool[perm[i]]
	}
	return out, nil
}

// ScoreRanker 按偏好模型分数给热门池排序，取前 k。
// 模型未训练时所有分数相同，结果退化为热度顺序。
type ScoreRanker struct {
	Catalog  *catalog.Store
	Scorer   TextScorer
	PoolSize int
}

func (s *ScoreRanker) Name() string { return "score" }

// Pool 返回参与打分的热门池。
func (s *ScoreRanker) Pool() []string {
	return productIDs(s.pool())
}

func (s *ScoreRanker) pool() []*core.Product {
	size := s.PoolSize
	if size <= 0 {
		size = DefaultCandidatePool
	}
	return s.Catalog.TopPopular(size)
}

func (s *ScoreRanker) Candidates(_ context.Context, _ string, k int) ([]string, error) {
	if err := s.Catalog.Available(); err != nil {
		return nil, err
	}
	pool := s.pool()
	scores := make([]float64, len(pool))
	for i, p := range pool {
		scores[i] = s.Scorer.Score(p.Text())
	}
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if k > len(idx) {
		k = len(idx)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = pool[idx[i]].ID
	}
	return out, nil
}

func userSeed(userID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	return int64(h.Sum64())
}

func productIDs(ps []*core.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

var (
	_ CandidateSource = (*PopularitySampler)(nil)
	_ CandidateSource = (*ScoreRanker)(nil)
)
