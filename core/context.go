package core

import "github.com/rushteam/giftrec/pkg/utils"

// RecommendContext 承载用户/过滤条件/请求参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string // recommend / related / fallback

	// Filters 是当前降级层级生效的过滤条件
	Filters Filters

	// Exclude 是本次请求中已被更高优先级来源占用的物品
	Exclude map[string]struct{}

	// Labels 是请求级标签，例如 fallback_level
	Labels map[string]utils.Label

	// Params 请求级参数：product_name、department、bs_category、limit 等
	Params map[string]any
}

// 常用请求参数 key。
const (
	ParamProductName  = "product_name"
	ParamDepartment   = "department"
	ParamCategory     = "bs_category"
	ParamLimit        = "limit"
	ParamSeed         = "seed"
	ParamWholeCatalog = "whole_catalog"
)

// NewRecommendContext 创建上下文。
func NewRecommendContext(userID, scene string) *RecommendContext {
	return &RecommendContext{
		UserID:  userID,
		Scene:   scene,
		Exclude: make(map[string]struct{}),
		Labels:  make(map[string]utils.Label),
		Params:  make(map[string]any),
	}
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamString 读取字符串参数。
func (rctx *RecommendContext) ParamString(key string) string {
	if rctx == nil || rctx.Params == nil {
		return ""
	}
	s, _ := rctx.Params[key].(string)
	return s
}

// ParamInt 读取整型参数，不存在或类型不符时返回 def。
func (rctx *RecommendContext) ParamInt(key string, def int) int {
	if rctx == nil || rctx.Params == nil {
		return def
	}
	if v, ok := rctx.Params[key].(int); ok {
		return v
	}
	return def
}

// ParamInt64 读取 int64 参数。
func (rctx *RecommendContext) ParamInt64(key string) (int64, bool) {
	if rctx == nil || rctx.Params == nil {
		return 0, false
	}
	v, ok := rctx.Params[key].(int64)
	return v, ok
}

// ParamBool 读取布尔参数，不存在时为 false。
func (rctx *RecommendContext) ParamBool(key string) bool {
	if rctx == nil || rctx.Params == nil {
		return false
	}
	b, _ := rctx.Params[key].(bool)
	return b
}

// Excluded 判断物品是否已被排除。
func (rctx *RecommendContext) Excluded(id string) bool {
	if rctx == nil || rctx.Exclude == nil {
		return false
	}
	_, ok := rctx.Exclude[id]
	return ok
}

// AddExclude 把一批 Item 加入排除集合。
func (rctx *RecommendContext) AddExclude(items []*Item) {
	if rctx.Exclude == nil {
		rctx.Exclude = make(map[string]struct{}, len(items))
	}
	for _, it := range items {
		if it != nil {
			rctx.Exclude[it.ID] = struct{}{}
		}
	}
}
