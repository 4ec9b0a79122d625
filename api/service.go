// Package api 是推荐核心对外暴露的操作集合，供上层 HTTP/RPC 层调用。
//
// New 根据 config.Config 组装全部组件：
//
//	cfg, _ := config.Load("")
//	svc, err := api.New(ctx, cfg, &catalog.RecordLoader{Records: rows})
//	defer svc.Close()
//	res, err := svc.GetRecommendations(ctx, api.RecommendationsRequest{...})
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/config"
	_ "github.com/rushteam/giftrec/config/builders"
	"github.com/rushteam/giftrec/evaluation"
	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/model"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/recommend"
	"github.com/rushteam/giftrec/store"
)

// Service 持有目录、交互日志、偏好模型、编排引擎与评估器。并发安全。
type Service struct {
	cfg          *config.Config
	catalog      *catalog.Store
	interactions *interaction.Store
	model        *model.Preference
	engine       *recommend.Engine
	evaluator    *evaluation.Evaluator
	logger       zerolog.Logger
	closers      []io.Closer
}

type options struct {
	logger *zerolog.Logger
	sink   interaction.Sink
	clock  func() time.Time
}

// Option 配置 Service。
type Option func(*options)

// WithLogger 使用给定 logger，不再按配置重设全局日志。
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithSink 使用给定的交互日志 sink，忽略 cfg.Sink。
func WithSink(s interaction.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithClock 替换交互日志与偏好模型的时钟。
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New 加载目录、重放交互日志并组装服务。cfg 为 nil 时使用 config.Default()。
func New(ctx context.Context, cfg *config.Config, loader catalog.Loader, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		logging.Init(cfg.Log.Logging())
	}
	component := func(name string) zerolog.Logger {
		if o.logger != nil {
			return o.logger.With().Str("component", name).Logger()
		}
		return logging.Component(name)
	}

	s := &Service{cfg: cfg, logger: component("api")}

	cat, err := catalog.Load(ctx, loader, catalog.WithLogger(component("catalog")))
	if err != nil {
		return nil, err
	}
	s.catalog = cat

	var engineOpts []recommend.Option
	if cfg.Catalog.InterestsPath != "" {
		m, err := catalog.LoadInterestMap(cfg.Catalog.InterestsPath)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, recommend.WithInterestMap(m))
	}
	if cfg.Catalog.ProfilesPath != "" {
		t, err := catalog.LoadProfiles(cfg.Catalog.ProfilesPath)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, recommend.WithProfiles(t))
	}
	if cfg.Engine.PipelinePath != "" {
		p, err := config.LoadPipeline(cfg.Engine.PipelinePath)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, recommend.WithPipeline(p))
	}

	sink := o.sink
	if sink == nil {
		if sink, err = s.openSink(cfg.Sink); err != nil {
			return nil, err
		}
	}
	storeOpts := []interaction.Option{
		interaction.WithLogger(component("interaction")),
		interaction.WithWeights(interaction.Weights{
			Like:    cfg.Interaction.LikeWeight,
			Dislike: cfg.Interaction.DislikeWeight,
			Shown:   cfg.Interaction.ShownWeight,
		}),
		interaction.WithBloom(cfg.Interaction.BloomCapacity, cfg.Interaction.BloomFPRate),
	}
	if sink != nil {
		storeOpts = append(storeOpts, interaction.WithSink(sink))
	}
	if o.clock != nil {
		storeOpts = append(storeOpts, interaction.WithClock(o.clock))
	}
	s.interactions = interaction.NewStore(storeOpts...)
	n, err := s.interactions.Replay(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	modelOpts := []model.Option{model.WithLogger(component("model"))}
	if o.clock != nil {
		modelOpts = append(modelOpts, model.WithClock(o.clock))
	}
	s.model = model.NewPreference(model.Config{
		RetrainEvery:   cfg.Model.RetrainEvery,
		MaxFeatures:    cfg.Model.MaxFeatures,
		NeutralScore:   cfg.Model.NeutralScore,
		Epochs:         cfg.Model.Epochs,
		Aggressiveness: cfg.Model.Aggressiveness,
		Seed:           cfg.Engine.Seed,
	}, modelOpts...)
	source := s.candidateSource(cfg.Model)
	s.model.SetCandidateSource(source)

	s.engine = recommend.New(recommend.Config{
		Seed:                   cfg.Engine.Seed,
		RelatedSeed:            cfg.Engine.RelatedSeed,
		DefaultLimit:           cfg.Engine.DefaultLimit,
		DefaultExplorationRate: cfg.Engine.DefaultExplorationRate,
		SkipShown:              cfg.Engine.SkipShown,
	}, cat, s.interactions, s.model, append([]recommend.Option{recommend.WithLogger(component("recommend"))}, engineOpts...)...)

	s.evaluator = evaluation.New(evaluation.Config{
		ConversionWindow: cfg.Evaluation.ConversionWindow,
		SampleUsers:      cfg.Evaluation.SampleUsers,
		RecsPerUser:      cfg.Evaluation.RecsPerUser,
	}, cat, s.interactions, s.model, evaluation.WithPool(source), evaluation.WithLogger(component("evaluation")))

	s.logger.Info().Int("items", cat.Len()).Int("replayed", n).Str("sink", cfg.Sink.Type).
		Str("candidate_source", source.Name()).Msg("service ready")
	return s, nil
}

type candidatePool interface {
	model.CandidateSource
	evaluation.Pooler
}

func (s *Service) candidateSource(cfg config.ModelConfig) candidatePool {
	switch cfg.CandidateSource {
	case config.CandidateScore:
		return &model.ScoreRanker{Catalog: s.catalog, Scorer: s.model, PoolSize: cfg.CandidatePool}
	default:
		return &model.PopularitySampler{Catalog: s.catalog, PoolSize: cfg.CandidatePool, Seed: s.cfg.Engine.Seed}
	}
}

// openSink 按配置创建交互日志 sink，none 时返回 nil。
func (s *Service) openSink(cfg config.SinkConfig) (interaction.Sink, error) {
	switch cfg.Type {
	case config.SinkNone, "":
		return nil, nil
	case config.SinkMemory:
		return interaction.NewMemorySink(), nil
	case config.SinkRedis:
		kv, err := store.New("redis", cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("open redis sink: %w", err)
		}
		s.closers = append(s.closers, kv)
		key := cfg.RedisKey
		if key == "" {
			key = interaction.DefaultLogKey
		}
		return interaction.NewKVSink(kv, key), nil
	case config.SinkSQLite:
		sink, err := interaction.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite sink: %w", err)
		}
		s.closers = append(s.closers, sink)
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", cfg.Type)
	}
}

// Engine 返回推荐编排引擎。
func (s *Service) Engine() *recommend.Engine { return s.engine }

// Evaluator 返回评估器。
func (s *Service) Evaluator() *evaluation.Evaluator { return s.evaluator }

// Interactions 返回交互日志。
func (s *Service) Interactions() *interaction.Store { return s.interactions }

// Close 释放 sink 持有的连接。
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
