// Package metrics 定义推荐服务的 Prometheus 指标。
//
// 指标分组：
//   - 请求：recommend / related / feedback 的次数与耗时
//   - 降级：命中的过滤层级、fallback 次数、相似度降级
//   - 模型：重训次数与失败
//   - 交互：记录/拒绝的事件，日志 sink 写入失败
//   - 评估：最近一次离线评估的各项指标
//
// 用法：
//
//	metrics.RecordRecommend("L1_drop_occasion", false, time.Since(start))
//	metrics.RecordInteraction("like")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal 按操作统计请求数。
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftrec_requests_total",
			Help: "Total number of core operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// RequestDuration 记录各操作耗时。
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giftrec_request_duration_seconds",
			Help:    "Duration of core operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// FallbackLevelTotal 统计推荐命中的过滤层级。
	FallbackLevelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftrec_recommend_level_total",
			Help: "Recommendations served per applied filter level",
		},
		[]string{"level"},
	)

	// DegradedTotal 统计降级路径（相似度失败、随机回填等）。
	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftrec_degraded_total",
			Help: "Degraded code paths taken, by component and reason",
		},
		[]string{"component", "reason"},
	)

	// RetrainsTotal 统计偏好模型重训结果。
	RetrainsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftrec_model_retrains_total",
			Help: "Preference model retrain attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TrainingSamples 是当前训练缓冲区大小。
	TrainingSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "giftrec_model_training_samples",
			Help: "Number of samples in the preference model training buffer",
		},
	)

	// InteractionsTotal 统计已记录的交互事件。
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftrec_interactions_total",
			Help: "Interaction events accepted by type",
		},
		[]string{"type"},
	)

	// InteractionsRejectedTotal 统计被拒绝的交互事件。
	InteractionsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giftrec_interactions_rejected_total",
			Help: "Interaction events rejected for missing or invalid fields",
		},
	)

	// SinkErrorsTotal 统计持久化日志写入失败。
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftrec_sink_errors_total",
			Help: "Interaction log sink failures by sink",
		},
		[]string{"sink"},
	)

	// EvaluationGauge 是最近一次评估报告的各项指标。
	EvaluationGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "giftrec_evaluation",
			Help: "Latest evaluation report values by metric",
		},
		[]string{"metric"},
	)
)

// RecordRequest 记录一次操作的结果与耗时。
func RecordRequest(operation string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RequestsTotal.WithLabelValues(operation, outcome).Inc()
	RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRecommend 记录一次推荐命中的层级，fallback 为 true 时层级记为 fallback。
func RecordRecommend(level string, fallback bool, d time.Duration) {
	if fallback {
		level = "fallback"
	}
	FallbackLevelTotal.WithLabelValues(level).Inc()
	RecordRequest("recommend", nil, d)
}

// RecordDegraded 记录一次降级。
func RecordDegraded(component, reason string) {
	DegradedTotal.WithLabelValues(component, reason).Inc()
}

// RecordRetrain 记录一次重训结果。
func RecordRetrain(err error, samples int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RetrainsTotal.WithLabelValues(outcome).Inc()
	TrainingSamples.Set(float64(samples))
}

// RecordInteraction 记录一次接受的交互事件。
func RecordInteraction(eventType string) {
	InteractionsTotal.WithLabelValues(eventType).Inc()
}

// RecordRejected 记录一次被拒绝的交互事件。
func RecordRejected() {
	InteractionsRejectedTotal.Inc()
}

// RecordSinkError 记录一次 sink 写入失败。
func RecordSinkError(sink string) {
	SinkErrorsTotal.WithLabelValues(sink).Inc()
}

// RecordEvaluation 记录一项评估指标。
func RecordEvaluation(metric string, v float64) {
	EvaluationGauge.WithLabelValues(metric).Set(v)
}
