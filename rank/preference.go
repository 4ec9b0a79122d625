// Package rank 对候选做个性化打分排序。
package rank

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/model"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/utils"
)

// 偏好分的各项权重。
const (
	PopularityScale = 1000.0
	ModelWeight     = 2.0
	LikedBonus      = 3.0
	DislikedPenalty = 2.0
)

// Preferences 提供用户的显式反馈，interaction.Store 实现了该接口。
type Preferences interface {
	HasPreferences(userID string) bool
	Liked(userID, itemID string) bool
	Disliked(userID, itemID string) bool
}

// PreferenceNode 按用户偏好打分并降序排序（稳定排序，同分保持召回顺序）：
//
//	score = max(0, popularity/1000 + 2·model(text) + 3·[liked] − 2·[disliked])
//
// 模型未训练时不计模型项。用户没有任何反馈时不改动顺序。
type PreferenceNode struct {
	Scorer model.TextScorer
	Prefs  Preferences
}

func (n *PreferenceNode) Name() string        { return "rank.preference" }
func (n *PreferenceNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *PreferenceNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || n.Prefs == nil || rctx == nil || !n.Prefs.HasPreferences(rctx.UserID) {
		return items, nil
	}
	useModel := n.Scorer != nil && n.Scorer.IsTrained()

	for _, it := range items {
		if it == nil {
			continue
		}
		it.Score = n.score(rctx.UserID, it, useModel)
		it.PutLabel("rank_score", utils.Label{Value: strconv.FormatFloat(it.Score, 'f', 4, 64), Source: "rank"})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// Score 计算单个物品的偏好分。
func (n *PreferenceNode) Score(userID string, it *core.Item) float64 {
	return n.score(userID, it, n.Scorer != nil && n.Scorer.IsTrained())
}

func (n *PreferenceNode) score(userID string, it *core.Item, useModel bool) float64 {
	var s float64
	if it.Product != nil {
		s = it.Product.Popularity / PopularityScale
		if useModel {
			s += ModelWeight * n.Scorer.Score(it.Product.Text())
		}
	}
	if n.Prefs.Liked(userID, it.ID) {
		s += LikedBonus
	}
	if n.Prefs.Disliked(userID, it.ID) {
		s -= DislikedPenalty
	}
	return math.Max(0, s)
}
