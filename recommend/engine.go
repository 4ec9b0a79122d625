// Package recommend 是推荐编排层：按降级层级生成个性化推荐，以及相关商品推荐。
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/filter"
	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/model"
	"github.com/rushteam/giftrec/pipeline"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/pkg/utils"
	"github.com/rushteam/giftrec/rank"
	"github.com/rushteam/giftrec/recall"
	"github.com/rushteam/giftrec/rerank"
	"github.com/rushteam/giftrec/similarity"
)

// Config 是编排参数。
type Config struct {
	Seed                   int64
	RelatedSeed            int64
	DefaultLimit           int
	DefaultExplorationRate float64
	SkipShown              bool
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		Seed:                   42,
		RelatedSeed:            recall.DefaultSeed,
		DefaultLimit:           15,
		DefaultExplorationRate: 0.3,
	}
}

// Request 是推荐请求。
type Request struct {
	UserID  string
	Filters core.Filters
	// Limit <= 0 时使用 DefaultLimit
	Limit int
	// ExplorationRate 为 nil 时使用 DefaultExplorationRate
	ExplorationRate *float64
}

// Result 是推荐结果。Fallback 为 true 表示所有层级都没有结果，返回的是热门兜底。
type Result struct {
	Items     []*core.Item
	Level     int
	LevelName string
	Applied   core.Filters
	Fallback  bool
}

// Engine 组合目录、交互日志、偏好模型与相似度引擎。并发安全。
type Engine struct {
	cfg          Config
	catalog      *catalog.Store
	interactions *interaction.Store
	model        *model.Preference
	content      *similarity.ContentEngine
	cf           *similarity.ItemCF
	interest     *recall.InterestRecall
	post         *pipeline.Pipeline
	logger       zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 设置 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProfiles 设置礼物画像表。
func WithProfiles(t *catalog.ProfileTable) Option {
	return func(e *Engine) { e.interest.Profiles = t }
}

// WithInterestMap 替换兴趣 -> department 表。
func WithInterestMap(m catalog.InterestMap) Option {
	return func(e *Engine) { e.interest.Interests = m }
}

// WithPipeline 设置可选的后处理 Pipeline，在探索混入之后、截断之前执行。
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(e *Engine) { e.post = p }
}

// WithContentEngine 替换内容相似度引擎。
func WithContentEngine(c *similarity.ContentEngine) Option {
	return func(e *Engine) { e.content = c }
}

// New 创建 Engine。
func New(cfg Config, cat *catalog.Store, interactions *interaction.Store, pref *model.Preference, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.DefaultExplorationRate < 0 || cfg.DefaultExplorationRate > 1 {
		cfg.DefaultExplorationRate = def.DefaultExplorationRate
	}
	e := &Engine{
		cfg:          cfg,
		catalog:      cat,
		interactions: interactions,
		model:        pref,
		content:      &similarity.ContentEngine{},
		cf:           similarity.NewItemCF(interactions, cat),
		interest:     &recall.InterestRecall{Catalog: cat, Interests: catalog.DefaultInterestMap()},
		logger:       logging.Component("recommend"),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CF 返回 item-based 协同过滤引擎。
func (e *Engine) CF() *similarity.ItemCF { return e.cf }

// nextSeed 从引擎的种子序列取下一个请求种子。
func (e *Engine) nextSeed() int64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Int63()
}

func (e *Engine) strictFilters() []filter.Filter {
	fs := filter.Strict()
	if e.cfg.SkipShown {
		fs = append(fs, filter.NewExposedFilter(e.interactions))
	}
	return fs
}

// Recommend 依次尝试各降级层级，返回第一个有结果的层级。
//
// 每一层：画像召回 -> 偏好排序 -> 价格过滤 -> 最近浏览内容过滤(取前 limit) ->
// 严格后过滤 -> 探索混入 -> 后处理 Pipeline -> 截断。
// 所有层级都为空时返回 2×limit 的热门/随机池经严格过滤后的结果，Fallback 为 true。
//
// 只有目录不可用（SystemError）和过滤条件格式非法（ValidationError）会返回错误。
func (e *Engine) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if err := e.catalog.Available(); err != nil {
		return nil, err
	}
	if err := req.Filters.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	rate := e.cfg.DefaultExplorationRate
	if req.ExplorationRate != nil {
		rate = *req.ExplorationRate
	}
	seed := e.nextSeed()

	for _, lvl := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rctx := e.newContext(req.UserID, lvl.Apply(req.Filters), limit, seed)
		rctx.Params[core.ParamWholeCatalog] = lvl.WholeCatalog
		rctx.PutLabel("fallback_level", utils.Label{Value: lvl.Name, Source: "recommend"})

		items, err := e.levelPipeline(limit, rate).Run(ctx, rctx, nil)
		if err != nil {
			if core.IsUnavailable(err) || ctx.Err() != nil {
				return nil, err
			}
			e.logger.Warn().Err(err).Str("level", lvl.Name).Str("user_id", req.UserID).Msg("recommend level failed")
			metrics.RecordDegraded("recommend", lvl.Name)
			continue
		}
		if len(items) == 0 {
			e.logger.Debug().Str("level", lvl.Name).Msg("no candidates at level")
			continue
		}

		items = e.finish(ctx, rctx, items, limit)
		metrics.RecordRecommend(lvl.Name, false, time.Since(start))
		return &Result{Items: items, Level: lvl.Index, LevelName: lvl.Name, Applied: rctx.Filters}, nil
	}

	return e.trendingFallback(ctx, req, limit, seed, start)
}

// levelPipeline 是单个降级层级的处理链。
func (e *Engine) levelPipeline(limit int, rate float64) *pipeline.Pipeline {
	return (&pipeline.Pipeline{Name: "level"}).Append(
		pipeline.NodeFunc{NodeName: e.interest.Name(), NodeKind: pipeline.KindRecall, Fn: func(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
			return e.interest.Recall(ctx, rctx)
		}},
		&rank.PreferenceNode{Scorer: e.model, Prefs: e.interactions},
		&filter.FilterNode{Filters: []filter.Filter{&filter.PriceFilter{}}, Logger: &e.logger},
		&rerank.ContentNode{Engine: e.content, Logger: &e.logger},
		&filter.FilterNode{Filters: e.strictFilters(), Logger: &e.logger},
		&rerank.Blend{
			Source:  &recall.Trending{Catalog: e.catalog, Limit: rerank.ExplorationCount(limit, rate)},
			Rate:    rate,
			Filters: e.strictFilters(),
			Logger:  &e.logger,
		},
	)
}

func (e *Engine) trendingFallback(ctx context.Context, req Request, limit int, seed int64, start time.Time) (*Result, error) {
	applied := req.Filters
	applied.Occasion = ""
	rctx := e.newContext(req.UserID, applied, limit, seed)
	rctx.PutLabel("fallback_level", utils.Label{Value: TrendingFallbackLevel, Source: "recommend"})

	pool, err := (&recall.Trending{Catalog: e.catalog, Limit: limit * 2, MatchType: core.MatchTrendingFallback}).Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	items := filter.Apply(ctx, rctx, pool, e.strictFilters()...)
	for _, it := range items {
		it.SetLabel(core.LabelFallback, utils.Label{Value: TrendingFallbackLevel, Source: "recommend"})
	}
	items, _ = (&rerank.TopNNode{N: limit}).Process(ctx, rctx, items)

	e.logger.Info().Str("user_id", req.UserID).Int("items", len(items)).Msg("all levels empty, served trending fallback")
	metrics.RecordRecommend(TrendingFallbackLevel, true, time.Since(start))
	return &Result{Items: items, Level: len(levels), LevelName: TrendingFallbackLevel, Applied: applied, Fallback: true}, nil
}

// finish 执行后处理 Pipeline 并截断。Pipeline 出错时保留原结果。
func (e *Engine) finish(ctx context.Context, rctx *core.RecommendContext, items []*core.Item, limit int) []*core.Item {
	if e.post.Len() > 0 {
		out, err := e.post.Run(ctx, rctx, items)
		if err != nil {
			e.logger.Warn().Err(err).Msg("post pipeline failed, keeping ranked items")
			metrics.RecordDegraded("recommend", "post_pipeline")
		} else {
			items = out
		}
	}
	items, _ = (&rerank.TopNNode{N: limit}).Process(ctx, rctx, items)
	return items
}

func (e *Engine) newContext(userID string, f core.Filters, limit int, seed int64) *core.RecommendContext {
	rctx := core.NewRecommendContext(userID, "recommend")
	rctx.Filters = f
	rctx.Params[core.ParamLimit] = limit
	rctx.Params[core.ParamSeed] = seed
	return rctx
}

// Candidates 返回偏好模型给出的候选，未配置候选来源时为空。
func (e *Engine) Candidates(ctx context.Context, userID string, k int) []string {
	return e.model.RecommendCandidates(ctx, userID, k)
}

func (r *Result) String() string {
	return fmt.Sprintf("level=%s items=%d fallback=%v", r.LevelName, len(r.Items), r.Fallback)
}
