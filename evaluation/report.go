package evaluation

import (
	"context"

	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/metrics"
)

// Report 是全局评估报告。Precision/Recall 取排序后第一个活跃用户作为样本。
type Report struct {
	SampleUser             string         `json:"sample_user,omitempty"`
	Precision              float64        `json:"precision_at_k"`
	Recall                 float64        `json:"recall_at_k"`
	PrecisionK             int            `json:"precision_k"`
	RecallK                int            `json:"recall_k"`
	AveragePrecision       float64        `json:"average_precision_at_k"`
	Coverage               float64        `json:"coverage"`
	Diversity              float64        `json:"diversity"`
	ConversionRate         float64        `json:"conversion_rate"`
	LikeDislikeRatio       float64        `json:"like_dislike_ratio"`
	ActiveUsers            int            `json:"active_users"`
	TotalInteractions      int            `json:"total_interactions"`
	CommonLikedFeatures    []FeatureCount `json:"common_liked_features"`
	CommonDislikedFeatures []FeatureCount `json:"common_disliked_features"`
}

// Report 计算全部指标，并把数值指标写入 Prometheus。
func (e *Evaluator) Report(ctx context.Context) Report {
	r := Report{
		PrecisionK:             e.cfg.PrecisionK,
		RecallK:                e.cfg.RecallK,
		AveragePrecision:       e.AveragePrecisionAtK(ctx, e.cfg.PrecisionK),
		Coverage:               e.Coverage(),
		Diversity:              e.Diversity(ctx),
		ConversionRate:         e.ConversionRate(),
		LikeDislikeRatio:       e.LikeDislikeRatio(),
		ActiveUsers:            e.ActiveUsers(),
		TotalInteractions:      e.TotalInteractions(),
		CommonLikedFeatures:    e.CommonFeatures(interaction.Like, 0),
		CommonDislikedFeatures: e.CommonFeatures(interaction.Dislike, 0),
	}
	if users := e.interactions.Users(); len(users) > 0 {
		r.SampleUser = users[0]
		r.Precision = e.PrecisionAtK(ctx, r.SampleUser, e.cfg.PrecisionK)
		r.Recall = e.RecallAtK(ctx, r.SampleUser, e.cfg.RecallK)
	}
	r.publish()
	return r
}

func (r Report) publish() {
	for name, v := range map[string]float64{
		"precision":          r.Precision,
		"recall":             r.Recall,
		"average_precision":  r.AveragePrecision,
		"coverage":           r.Coverage,
		"diversity":          r.Diversity,
		"conversion_rate":    r.ConversionRate,
		"like_dislike_ratio": r.LikeDislikeRatio,
		"active_users":       float64(r.ActiveUsers),
	} {
		metrics.RecordEvaluation(name, v)
	}
}
