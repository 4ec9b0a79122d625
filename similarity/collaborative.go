package similarity

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/giftrec/interaction"
)

// 协同过滤的显式反馈修正。
const (
	LikeBoost      = 3.0
	DislikePenalty = 2.0
)

// 分数按 scoreEpsilon 量化后再比较，浮点误差内的分数视为同分。
const scoreEpsilon = 1e-9

// Indexer 提供物品的目录顺序，用于同分 tie-break。
type Indexer interface {
	Index(id string) (int, bool)
}

// ItemScore 是协同过滤给出的物品分数。
type ItemScore struct {
	ItemID string
	Score  float64
}

// ItemCF 基于交互强度矩阵计算 item-item 余弦相似度并给用户打分。
//
//	score(c) = Σ_j sim(c, j) × strength(user, j)  + 3[liked c] − 2[disliked c]
//
// 矩阵每次调用重新构建，规模与内存中的交互日志同阶。
type ItemCF struct {
	interactions *interaction.Store
	order        Indexer
}

// NewItemCF 创建 ItemCF。order 为 nil 时按矩阵中物品首次出现的顺序 tie-break。
func NewItemCF(interactions *interaction.Store, order Indexer) *ItemCF {
	return &ItemCF{interactions: interactions, order: order}
}

// TopN 返回用户分数最高的 n 个物品。提供 order 时，不在目录中的物品被丢弃。
// 分数不大于 0 且用户未喜欢的物品不作为候选。没有交互记录的用户返回空结果。
func (cf *ItemCF) TopN(ctx context.Context, user string, n int) ([]ItemScore, error) {
	if user == "" || n <= 0 {
		return nil, nil
	}
	m := cf.interactions.StrengthMatrix()
	row := m.Row(user)
	liked := cf.interactions.LikesOf(user)
	disliked := cf.interactions.DislikesOf(user)
	if len(row) == 0 && len(liked) == 0 && len(disliked) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(m.Items))
	if len(row) > 0 {
		sim := itemSimilarity(m)
		for j, item := range m.Items {
			w, ok := row[item]
			if !ok {
				continue
			}
			for c, cand := range m.Items {
				scores[cand] += sim.At(c, j) * w
			}
		}
	}
	for _, id := range liked {
		scores[id] += LikeBoost
	}
	for _, id := range disliked {
		scores[id] -= DislikePenalty
	}

	likedSet := make(map[string]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}

	type ranked struct {
		ItemScore
		key float64
		pos int
	}
	cands := make([]ranked, 0, len(scores))
	for id, s := range scores {
		if _, ok := likedSet[id]; !ok && s <= 0 {
			continue
		}
		pos, ok := m.ItemIndex(id)
		if cf.order != nil {
			pos, ok = cf.order.Index(id)
		}
		if !ok {
			if cf.order != nil {
				continue
			}
			pos = math.MaxInt
		}
		cands = append(cands, ranked{ItemScore: ItemScore{ItemID: id, Score: s}, key: math.Round(s / scoreEpsilon), pos: pos})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].key != cands[j].key {
			return cands[i].key > cands[j].key
		}
		if cands[i].pos != cands[j].pos {
			return cands[i].pos < cands[j].pos
		}
		return cands[i].ItemID < cands[j].ItemID
	})
	out := make([]ItemScore, len(cands))
	for i, c := range cands {
		out[i] = c.ItemScore
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// itemSimilarity 返回 items×items 的余弦相似度矩阵。
// 物品行向量先做 L2 归一化，零向量行保持为零，相似度为 0。
func itemSimilarity(m *interaction.StrengthMatrix) *mat.Dense {
	nItems, nUsers := len(m.Items), len(m.Users)
	r := mat.NewDense(nItems, nUsers, nil)
	for u, user := range m.Users {
		for item, v := range m.Row(user) {
			if i, ok := m.ItemIndex(item); ok {
				r.Set(i, u, v)
			}
		}
	}
	for i := 0; i < nItems; i++ {
		rowView := r.RowView(i)
		norm := mat.Norm(rowView, 2)
		if norm == 0 {
			continue
		}
		rv := r.RawRowView(i)
		for k := range rv {
			rv[k] /= norm
		}
	}
	var sim mat.Dense
	sim.Mul(r, r.T())
	return &sim
}
