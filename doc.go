// Package giftrec 是礼物推荐核心：画像召回、在线偏好模型、降级过滤与相关商品推荐。
//
// 设计要点：
// - Pipeline-first: 每个降级层级都是 Recall → Rank → Filter → ReRank 的 Node 链
// - Labels-first: match_type / recall_source / fallback 以 Label 透传，降级结果可被断言
// - Event-log-first: 交互日志是唯一事实来源，偏好序列、曝光过滤、交互矩阵都可重放重建
//
// 对外入口是 api.Service，由 config.Config 组装。
package giftrec

import (
	"github.com/rushteam/giftrec/api"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pipeline"
)

// 轻量 facade：便于直接 import "giftrec" 使用核心抽象。
type (
	Service  = api.Service
	Filters  = core.Filters
	Item     = core.Item
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
