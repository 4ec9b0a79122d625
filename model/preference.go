package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/pkg/logging"
)

// Config 是偏好模型参数。
type Config struct {
	// RetrainEvery 每累积多少个样本重训一次
	RetrainEvery int `koanf:"retrain_every"`
	// MaxFeatures TF-IDF 词表上限
	MaxFeatures int `koanf:"max_features"`
	// NeutralScore 未训练时 Score 的返回值
	NeutralScore float64 `koanf:"neutral_score"`
	// Epochs 每次重训的轮数
	Epochs int `koanf:"epochs"`
	// Aggressiveness PA 分类器的 C
	Aggressiveness float64 `koanf:"aggressiveness"`
	// Seed 训练样本打乱的随机种子
	Seed int64 `koanf:"seed"`
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		RetrainEvery:   10,
		MaxFeatures:    5000,
		NeutralScore:   0.5,
		Epochs:         5,
		Aggressiveness: 1.0,
		Seed:           42,
	}
}

// Status 是模型状态快照。
type Status struct {
	Trained     bool      `json:"trained"`
	LastTrained time.Time `json:"last_trained,omitempty"`
	Samples     int       `json:"training_samples"`
	Positives   int       `json:"positives"`
	Negatives   int       `json:"negatives"`
	Vocabulary  int       `json:"vocabulary_size"`
	Retrains    int       `json:"retrains"`
}

// Preference 是在线学习的偏好模型：Untrained -> Trained。
//
// 训练缓冲区由 mu 保护；分类器通过 modelMu 整体替换（copy-on-retrain），
// Score 只会看到完整构建好的分类器。
type Preference struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	texts     []string
	labels    []bool
	positives int
	negatives int

	trainMu sync.Mutex
	rngMu   sync.Mutex
	rng     *rand.Rand

	modelMu     sync.RWMutex
	current     *textClassifier
	lastTrained time.Time
	retrains    int

	sourceMu sync.RWMutex
	source   CandidateSource
}

// Option 配置 Preference。
type Option func(*Preference)

// WithLogger 设置 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(p *Preference) { p.logger = l }
}

// WithClock 设置时钟。
func WithClock(now func() time.Time) Option {
	return func(p *Preference) { p.now = now }
}

// WithCandidateSource 设置 recommend_candidates 的实现。
func WithCandidateSource(s CandidateSource) Option {
	return func(p *Preference) { p.source = s }
}

// NewPreference 创建未训练的偏好模型。
func NewPreference(cfg Config, opts ...Option) *Preference {
	def := DefaultConfig()
	if cfg.RetrainEvery <= 0 {
		cfg.RetrainEvery = def.RetrainEvery
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = def.MaxFeatures
	}
	if cfg.NeutralScore < 0 || cfg.NeutralScore > 1 {
		cfg.NeutralScore = def.NeutralScore
	}
	p := &Preference{
		cfg:    cfg,
		logger: logging.Component("model"),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetCandidateSource 替换候选来源。
func (p *Preference) SetCandidateSource(s CandidateSource) {
	p.sourceMu.Lock()
	p.source = s
	p.sourceMu.Unlock()
}

// Learn 追加一个训练样本，并在需要时重训：
// 样本数是 RetrainEvery 的倍数，或模型尚未训练且两类样本都已出现。
// 重训失败只记录日志，模型保持上一个可用版本。返回本次是否发布了新模型。
func (p *Preference) Learn(text string, liked bool) bool {
	p.mu.Lock()
	p.texts = append(p.texts, text)
	p.labels = append(p.labels, liked)
	if liked {
		p.positives++
	} else {
		p.negatives++
	}
	n := len(p.texts)
	balanced := p.positives > 0 && p.negatives > 0
	due := n%p.cfg.RetrainEvery == 0 || !p.IsTrained()
	var texts []string
	var labels []bool
	if due && balanced {
		texts = append([]string(nil), p.texts...)
		labels = append([]bool(nil), p.labels...)
	}
	p.mu.Unlock()

	if texts == nil {
		metrics.TrainingSamples.Set(float64(n))
		return false
	}
	return p.retrain(texts, labels)
}

func (p *Preference) retrain(texts []string, labels []bool) (published bool) {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()

	// 并发重训时，较旧的快照不得覆盖较新的模型
	p.modelMu.RLock()
	if p.current != nil && p.current.samples >= len(texts) {
		p.modelMu.RUnlock()
		return false
	}
	p.modelMu.RUnlock()

	start := p.now()
	next, err := p.build(texts, labels)
	metrics.RecordRetrain(err, len(texts))
	if err != nil {
		p.logger.Error().Err(err).Int("samples", len(texts)).Msg("preference model retrain failed, keeping last model")
		return false
	}

	p.modelMu.Lock()
	p.current = next
	p.lastTrained = p.now()
	p.retrains++
	p.modelMu.Unlock()

	p.logger.Info().Int("samples", len(texts)).Int("vocabulary", next.vec.Len()).
		Dur("took", p.now().Sub(start)).Msg("preference model retrained")
	return true
}

func (p *Preference) build(texts []string, labels []bool) (c *textClassifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewComputationError(core.ModuleModel, "retrain panicked", fmt.Errorf("%v", r))
		}
	}()
	p.rngMu.Lock()
	rng := rand.New(rand.NewSource(p.rng.Int63()))
	p.rngMu.Unlock()

	c, err = trainTextClassifier(texts, labels, p.cfg, rng)
	if err != nil {
		return nil, core.NewComputationError(core.ModuleModel, "retrain", err)
	}
	return c, nil
}

// IsTrained 判断是否已有可用分类器。
func (p *Preference) IsTrained() bool {
	p.modelMu.RLock()
	defer p.modelMu.RUnlock()
	return p.current != nil
}

// Score 返回文本被喜欢的概率。未训练或打分失败时返回 NeutralScore。
func (p *Preference) Score(text string) float64 {
	p.modelMu.RLock()
	c := p.current
	p.modelMu.RUnlock()
	if c == nil {
		return p.cfg.NeutralScore
	}
	s, err := c.probability(text)
	if err != nil || math.IsNaN(s) {
		p.logger.Warn().Err(err).Msg("preference score degraded to neutral")
		metrics.RecordDegraded("model", "score")
		return p.cfg.NeutralScore
	}
	return math.Max(0, math.Min(1, s))
}

// NeutralScore 返回未训练时的分数。
func (p *Preference) NeutralScore() float64 { return p.cfg.NeutralScore }

// Status 返回模型状态。
func (p *Preference) Status() Status {
	p.mu.Lock()
	st := Status{Samples: len(p.texts), Positives: p.positives, Negatives: p.negatives}
	p.mu.Unlock()

	p.modelMu.RLock()
	defer p.modelMu.RUnlock()
	st.Trained = p.current != nil
	st.LastTrained = p.lastTrained
	st.Retrains = p.retrains
	if p.current != nil {
		st.Vocabulary = p.current.vec.Len()
	}
	return st
}

// RecommendCandidates 返回用户的 k 个候选。候选来源失败时返回空列表。
func (p *Preference) RecommendCandidates(ctx context.Context, userID string, k int) []string {
	p.sourceMu.RLock()
	src := p.source
	p.sourceMu.RUnlock()
	if src == nil || k <= 0 {
		return nil
	}
	ids, err := src.Candidates(ctx, userID, k)
	if err != nil {
		p.logger.Warn().Err(err).Str("user_id", userID).Str("source", src.Name()).Msg("candidate source failed")
		metrics.RecordDegraded("model", "candidates")
		return nil
	}
	return ids
}

var _ TextScorer = (*Preference)(nil)
