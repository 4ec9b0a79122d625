// Package evaluation 计算推荐效果指标：precision/recall@k、覆盖率、多样性、
// 转化率与 like/dislike 比例。
//
// 所有指标在分母为 0 或数据缺失时返回 0，不返回错误。
package evaluation

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/similarity"
)

// Candidates 给出用户的 top-k 推荐，*model.Preference 实现了该接口。
type Candidates interface {
	RecommendCandidates(ctx context.Context, userID string, k int) []string
}

// Pooler 给出可被推荐的物品全集，用于覆盖率。
type Pooler interface {
	Pool() []string
}

// Config 是评估参数。
type Config struct {
	PrecisionK       int
	RecallK          int
	ConversionWindow time.Duration
	// SampleUsers 多样性采样的用户数上限
	SampleUsers int
	// RecsPerUser 多样性采样时每个用户取的候选数
	RecsPerUser int
	// TopFeatures CommonFeatures 的默认条数
	TopFeatures int
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		PrecisionK:       5,
		RecallK:          10,
		ConversionWindow: 7 * 24 * time.Hour,
		SampleUsers:      100,
		RecsPerUser:      5,
		TopFeatures:      5,
	}
}

// Evaluator 基于交互日志与候选来源计算指标。只读，并发安全。
type Evaluator struct {
	cfg          Config
	catalog      *catalog.Store
	interactions *interaction.Store
	candidates   Candidates
	pool         Pooler
	logger       zerolog.Logger
}

// Option 配置 Evaluator。
type Option func(*Evaluator)

// WithLogger 设置 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithPool 设置覆盖率使用的可推荐物品全集。
func WithPool(p Pooler) Option {
	return func(e *Evaluator) { e.pool = p }
}

// New 创建 Evaluator。cfg 中非正的字段使用默认值。
func New(cfg Config, cat *catalog.Store, interactions *interaction.Store, candidates Candidates, opts ...Option) *Evaluator {
	def := DefaultConfig()
	if cfg.PrecisionK <= 0 {
		cfg.PrecisionK = def.PrecisionK
	}
	if cfg.RecallK <= 0 {
		cfg.RecallK = def.RecallK
	}
	if cfg.ConversionWindow <= 0 {
		cfg.ConversionWindow = def.ConversionWindow
	}
	if cfg.SampleUsers <= 0 {
		cfg.SampleUsers = def.SampleUsers
	}
	if cfg.RecsPerUser <= 0 {
		cfg.RecsPerUser = def.RecsPerUser
	}
	if cfg.TopFeatures <= 0 {
		cfg.TopFeatures = def.TopFeatures
	}
	e := &Evaluator{
		cfg:          cfg,
		catalog:      cat,
		interactions: interactions,
		candidates:   candidates,
		logger:       logging.Component("evaluation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config 返回生效的参数。
func (e *Evaluator) Config() Config { return e.cfg }

func (e *Evaluator) recommend(ctx context.Context, user string, k int) []string {
	if e.candidates == nil || k <= 0 {
		return nil
	}
	return e.candidates.RecommendCandidates(ctx, user, k)
}

func hits(recs []string, liked []string) int {
	set := make(map[string]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range recs {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}

// PrecisionAtK = |top-k 推荐 ∩ likes| / k。没有交互记录的用户为 0。
func (e *Evaluator) PrecisionAtK(ctx context.Context, user string, k int) float64 {
	if k <= 0 || !e.interactions.HasPreferences(user) {
		return 0
	}
	recs := e.recommend(ctx, user, k)
	if len(recs) == 0 {
		return 0
	}
	return float64(hits(recs, e.interactions.LikesOf(user))) / float64(k)
}

// RecallAtK = |top-k 推荐 ∩ likes| / |likes|。没有 like 的用户为 0。
func (e *Evaluator) RecallAtK(ctx context.Context, user string, k int) float64 {
	likes := e.interactions.LikesOf(user)
	if k <= 0 || len(likes) == 0 {
		return 0
	}
	recs := e.recommend(ctx, user, k)
	if len(recs) == 0 {
		return 0
	}
	return float64(hits(recs, likes)) / float64(len(likes))
}

// AveragePrecisionAtK 是所有有偏好用户的 PrecisionAtK 均值。
func (e *Evaluator) AveragePrecisionAtK(ctx context.Context, k int) float64 {
	users := e.interactions.Users()
	if len(users) == 0 {
		return 0
	}
	var sum float64
	for _, u := range users {
		sum += e.PrecisionAtK(ctx, u, k)
	}
	return sum / float64(len(users))
}

// HistoryPrecisionAtK 是离线分析口径：top-k 取用户自己的 likes 前 k 个，
// 不足时用 dislikes 补齐，再计算命中 likes 的比例。
// 它只反映用户历史的正负比例，与 PrecisionAtK 并列保留以便对照。
func (e *Evaluator) HistoryPrecisionAtK(user string, k int) float64 {
	if k <= 0 {
		return 0
	}
	prefs := e.interactions.Preferences(user)
	if prefs.Empty() {
		return 0
	}
	top := prefs.Likes
	if len(top) > k {
		top = top[:k]
	}
	if rest := k - len(prefs.Likes); rest > 0 {
		dis := prefs.Dislikes
		if len(dis) > rest {
			dis = dis[:rest]
		}
		top = append(append([]string(nil), top...), dis...)
	}
	return float64(hits(top, prefs.Likes)) / float64(k)
}

// Coverage = |可推荐物品 ∩ 目录| / |目录|。未配置 Pooler 时为 0。
func (e *Evaluator) Coverage() float64 {
	total := e.catalog.Len()
	if total == 0 || e.pool == nil {
		return 0
	}
	seen := make(map[string]struct{})
	for _, id := range e.pool.Pool() {
		if _, err := e.catalog.Get(id); err != nil {
			continue
		}
		seen[id] = struct{}{}
	}
	return float64(len(seen)) / float64(total)
}

// Diversity 是采样推荐物品两两之间 TF-IDF 余弦距离的均值，不含自身。
// 采样前 SampleUsers 个用户，每人取 RecsPerUser 个候选，去重后计算。
func (e *Evaluator) Diversity(ctx context.Context) float64 {
	users := e.interactions.Users()
	if len(users) > e.cfg.SampleUsers {
		users = users[:e.cfg.SampleUsers]
	}
	seen := make(map[string]struct{})
	var texts []string
	for _, u := range users {
		for _, id := range e.recommend(ctx, u, e.cfg.RecsPerUser) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			p, err := e.catalog.Get(id)
			if err != nil {
				continue
			}
			texts = append(texts, p.Text())
		}
	}
	if len(texts) < 2 {
		return 0
	}

	vec := &similarity.Vectorizer{StopWords: true}
	vs, err := vec.FitTransform(texts)
	if err != nil {
		e.logger.Warn().Err(err).Int("items", len(texts)).Msg("diversity skipped")
		metrics.RecordDegraded("evaluation", "diversity")
		return 0
	}
	var sum float64
	pairs := 0
	for i := range vs {
		for j := range vs {
			if i == j {
				continue
			}
			sim, err := similarity.Cosine(vs[i], vs[j])
			if err != nil {
				continue
			}
			sum += 1 - sim
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// ConversionRate = 窗口内来源为推荐的 like 数 / 窗口内推荐曝光数。
func (e *Evaluator) ConversionRate() float64 {
	since := e.interactions.Now().Add(-e.cfg.ConversionWindow)
	var shown, liked int
	for _, ev := range e.interactions.EventsSince(since) {
		if ev.Source != interaction.SourceRecommendation {
			continue
		}
		switch ev.Type {
		case interaction.Shown:
			shown++
		case interaction.Like:
			liked++
		}
	}
	if shown == 0 {
		return 0
	}
	return float64(liked) / float64(shown)
}

// LikeDislikeRatio = likes / (likes + dislikes)，按各用户去重后的序列计。
func (e *Evaluator) LikeDislikeRatio() float64 {
	var likes, dislikes int
	for _, u := range e.interactions.Users() {
		p := e.interactions.Preferences(u)
		likes += len(p.Likes)
		dislikes += len(p.Dislikes)
	}
	if likes+dislikes == 0 {
		return 0
	}
	return float64(likes) / float64(likes+dislikes)
}

// FeatureCount 是特征及其出现次数。
type FeatureCount struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
}

// CommonFeatures 返回 like（或 dislike）物品中最常见的 n 个特征，次数降序、同次数按字典序。
// 不在目录中的物品忽略。
func (e *Evaluator) CommonFeatures(t interaction.EventType, n int) []FeatureCount {
	if t != interaction.Like && t != interaction.Dislike {
		return nil
	}
	if n <= 0 {
		n = e.cfg.TopFeatures
	}
	counts := make(map[string]int)
	for _, u := range e.interactions.Users() {
		p := e.interactions.Preferences(u)
		ids := p.Likes
		if t == interaction.Dislike {
			ids = p.Dislikes
		}
		for _, id := range ids {
			prod, err := e.catalog.Get(id)
			if err != nil {
				continue
			}
			for _, f := range prod.Features {
				counts[f]++
			}
		}
	}
	out := make([]FeatureCount, 0, len(counts))
	for f, c := range counts {
		out = append(out, FeatureCount{Feature: f, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Feature < out[j].Feature
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ActiveUsers 返回有 like/dislike 的用户数。
func (e *Evaluator) ActiveUsers() int { return len(e.interactions.Users()) }

// TotalInteractions 返回日志中的事件总数。
func (e *Evaluator) TotalInteractions() int { return e.interactions.Len() }
