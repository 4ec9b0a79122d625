package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/similarity"
)

// PassiveAggressive 是 PA-I 二分类器，输入为 TF-IDF 向量。
//
// 预测原理：
// 1. 线性打分: margin = Bias + Weights·x
// 2. Sigmoid 变换: P = 1 / (1 + exp(-margin))
//
// 每个样本的更新步长 tau = min(C, hinge / (|x|²+1))，+1 对应偏置项。
type PassiveAggressive struct {
	C       float64
	Epochs  int
	Bias    float64
	Weights []float64
}

// Fit 在 (x, y) 上训练，y 为 true 表示喜欢。样本顺序每轮用 rng 打乱。
func (m *PassiveAggressive) Fit(x [][]float64, y []bool, rng *rand.Rand) error {
	if len(x) == 0 || len(x) != len(y) {
		return core.NewComputationError(core.ModuleModel, "training set shape mismatch", nil)
	}
	dim := len(x[0])
	m.Weights = make([]float64, dim)
	m.Bias = 0
	epochs := m.Epochs
	if epochs <= 0 {
		epochs = 5
	}
	c := m.C
	if c <= 0 {
		c = 1
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	for e := 0; e < epochs; e++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			if len(x[i]) != dim {
				return similarity.ErrDimensionMismatch
			}
			label := -1.0
			if y[i] {
				label = 1.0
			}
			loss := 1 - label*m.Margin(x[i])
			if loss <= 0 {
				continue
			}
			sq := floats.Dot(x[i], x[i]) + 1
			tau := math.Min(c, loss/sq)
			floats.AddScaled(m.Weights, tau*label, x[i])
			m.Bias += tau * label
		}
	}
	return nil
}

// Margin 返回决策函数值。
func (m *PassiveAggressive) Margin(x []float64) float64 {
	if len(x) != len(m.Weights) {
		return m.Bias
	}
	return m.Bias + floats.Dot(m.Weights, x)
}

// Probability 把 margin 经 sigmoid 映射到 (0,1)。
func (m *PassiveAggressive) Probability(x []float64) float64 {
	return 1 / (1 + math.Exp(-m.Margin(x)))
}

// textClassifier 是向量化器与分类器的组合，训练完成后只读。
type textClassifier struct {
	vec     *similarity.Vectorizer
	clf     *PassiveAggressive
	samples int
}

func trainTextClassifier(texts []string, labels []bool, cfg Config, rng *rand.Rand) (*textClassifier, error) {
	vec := &similarity.Vectorizer{MaxFeatures: cfg.MaxFeatures}
	x, err := vec.FitTransform(texts)
	if err != nil {
		return nil, err
	}
	clf := &PassiveAggressive{C: cfg.Aggressiveness, Epochs: cfg.Epochs}
	if err := clf.Fit(x, labels, rng); err != nil {
		return nil, err
	}
	return &textClassifier{vec: vec, clf: clf, samples: len(texts)}, nil
}

func (c *textClassifier) probability(text string) (float64, error) {
	x, err := c.vec.Transform(text)
	if err != nil {
		return 0, err
	}
	return c.clf.Probability(x), nil
}
