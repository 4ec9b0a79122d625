package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/giftrec/pkg/logging"
)

// EnvPrefix 是环境变量前缀，"__" 分隔层级：GIFTREC_ENGINE__SEED=7 -> engine.seed。
const EnvPrefix = "GIFTREC_"

// ConfigPathEnvVar 可以覆盖配置文件路径。
const ConfigPathEnvVar = "GIFTREC_CONFIG"

// Sink 类型。
const (
	SinkNone   = "none"
	SinkMemory = "memory"
	SinkRedis  = "redis"
	SinkSQLite = "sqlite"
)

// 候选来源类型。
const (
	CandidatePopularity = "popularity"
	CandidateScore      = "score"
)

// Config 是应用配置。
type Config struct {
	Log         LogConfig         `koanf:"log"`
	Engine      EngineConfig      `koanf:"engine"`
	Model       ModelConfig       `koanf:"model"`
	Interaction InteractionConfig `koanf:"interaction"`
	Sink        SinkConfig        `koanf:"sink"`
	Evaluation  EvaluationConfig  `koanf:"evaluation"`
	Catalog     CatalogConfig     `koanf:"catalog"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EngineConfig 是推荐编排参数。
type EngineConfig struct {
	Seed                   int64   `koanf:"seed"`
	RelatedSeed            int64   `koanf:"related_seed"`
	DefaultLimit           int     `koanf:"default_limit"`
	DefaultExplorationRate float64 `koanf:"default_exploration_rate"`
	// SkipShown 为 true 时过滤用户已曝光的物品
	SkipShown bool `koanf:"skip_shown"`
	// RecordShown 为 true 时把返回的推荐记为 shown 事件
	RecordShown bool `koanf:"record_shown"`
	// PipelinePath 可选的后处理 Pipeline（YAML/JSON）
	PipelinePath string `koanf:"pipeline_path"`
}

type ModelConfig struct {
	RetrainEvery    int     `koanf:"retrain_every"`
	MaxFeatures     int     `koanf:"max_features"`
	NeutralScore    float64 `koanf:"neutral_score"`
	Epochs          int     `koanf:"epochs"`
	Aggressiveness  float64 `koanf:"aggressiveness"`
	CandidatePool   int     `koanf:"candidate_pool"`
	CandidateSource string  `koanf:"candidate_source"`
}

type InteractionConfig struct {
	LikeWeight    float64 `koanf:"like_weight"`
	DislikeWeight float64 `koanf:"dislike_weight"`
	ShownWeight   float64 `koanf:"shown_weight"`
	BloomCapacity uint    `koanf:"bloom_capacity"`
	BloomFPRate   float64 `koanf:"bloom_fp_rate"`
}

// SinkConfig 是交互事件日志的持久化配置。
type SinkConfig struct {
	Type       string `koanf:"type"`
	RedisAddr  string `koanf:"redis_addr"`
	RedisDB    int    `koanf:"redis_db"`
	RedisKey   string `koanf:"redis_key"`
	SQLitePath string `koanf:"sqlite_path"`
}

type EvaluationConfig struct {
	ConversionWindow time.Duration `koanf:"conversion_window"`
	SampleUsers      int           `koanf:"sample_users"`
	RecsPerUser      int           `koanf:"recs_per_user"`
}

type CatalogConfig struct {
	InterestsPath string `koanf:"interests_path"`
	ProfilesPath  string `koanf:"profiles_path"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Engine: EngineConfig{
			Seed:                   42,
			RelatedSeed:            42,
			DefaultLimit:           15,
			DefaultExplorationRate: 0.3,
			RecordShown:            true,
		},
		Model: ModelConfig{
			RetrainEvery:    10,
			MaxFeatures:     5000,
			NeutralScore:    0.5,
			Epochs:          5,
			Aggressiveness:  1.0,
			CandidatePool:   100,
			CandidateSource: CandidatePopularity,
		},
		Interaction: InteractionConfig{
			LikeWeight:    1.0,
			DislikeWeight: -1.0,
			ShownWeight:   0.0,
			BloomCapacity: 10000,
			BloomFPRate:   0.01,
		},
		Sink: SinkConfig{
			Type:       SinkNone,
			RedisAddr:  "localhost:6379",
			RedisKey:   "giftrec:interactions",
			SQLitePath: "giftrec.db",
		},
		Evaluation: EvaluationConfig{
			ConversionWindow: 7 * 24 * time.Hour,
			SampleUsers:      100,
			RecsPerUser:      5,
		},
	}
}

// Load 分三层加载配置：默认值 -> YAML 文件（可选）-> 环境变量。
// path 为空时读取 GIFTREC_CONFIG，仍为空则不加载文件。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func envTransform(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if EnvPrefix+key == ConfigPathEnvVar {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	var errs []error
	if r := c.Engine.DefaultExplorationRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("engine.default_exploration_rate must be in [0,1], got %v", r))
	}
	if c.Engine.DefaultLimit < 1 {
		errs = append(errs, fmt.Errorf("engine.default_limit must be >= 1, got %d", c.Engine.DefaultLimit))
	}
	if c.Model.RetrainEvery < 1 {
		errs = append(errs, fmt.Errorf("model.retrain_every must be >= 1, got %d", c.Model.RetrainEvery))
	}
	if s := c.Model.NeutralScore; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("model.neutral_score must be in [0,1], got %v", s))
	}
	switch c.Model.CandidateSource {
	case CandidatePopularity, CandidateScore:
	default:
		errs = append(errs, fmt.Errorf("model.candidate_source: unknown type %q", c.Model.CandidateSource))
	}
	if p := c.Interaction.BloomFPRate; p <= 0 || p >= 1 {
		errs = append(errs, fmt.Errorf("interaction.bloom_fp_rate must be in (0,1), got %v", p))
	}
	switch c.Sink.Type {
	case SinkNone, SinkMemory:
	case SinkRedis:
		if c.Sink.RedisAddr == "" {
			errs = append(errs, errors.New("sink.redis_addr is required for redis sink"))
		}
	case SinkSQLite:
		if c.Sink.SQLitePath == "" {
			errs = append(errs, errors.New("sink.sqlite_path is required for sqlite sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("sink.type: unknown type %q", c.Sink.Type))
	}
	if c.Evaluation.ConversionWindow <= 0 {
		errs = append(errs, fmt.Errorf("evaluation.conversion_window must be positive, got %v", c.Evaluation.ConversionWindow))
	}
	return errors.Join(errs...)
}

// Logging 转换为 logging.Config。
func (c LogConfig) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Level != "" {
		cfg.Level = c.Level
	}
	if c.Format != "" {
		cfg.Format = c.Format
	}
	cfg.Caller = c.Caller
	return cfg
}
