// Package interaction 是只追加的交互事件日志及其派生视图。
//
// 事件日志是唯一事实来源：用户的 like/dislike 序列、曝光过滤器、
// 交互强度矩阵都可以通过重放事件重建。
package interaction

import (
	"time"

	"github.com/rushteam/giftrec/core"
)

// EventType 是交互类型。
type EventType string

const (
	Like    EventType = "like"
	Dislike EventType = "dislike"
	Shown   EventType = "shown"
)

// Valid 判断是否为已知类型。
func (t EventType) Valid() bool {
	switch t {
	case Like, Dislike, Shown:
		return true
	}
	return false
}

// 事件来源。
const (
	SourceFeedback       = "feedback"
	SourceRecommendation = "recommendation"
	SourceRelated        = "related"
)

// Event 是一条交互记录，写入后不可修改。
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate 检查必填字段，缺失或非法字段全部列在 ValidationError.Fields 中。
func (e Event) Validate() error {
	var missing []string
	if e.UserID == "" {
		missing = append(missing, "user_id")
	}
	if e.ItemID == "" {
		missing = append(missing, "item_id")
	}
	if e.Type == "" || !e.Type.Valid() {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return core.NewValidationError(core.ModuleInteraction, "rejected interaction", missing...)
	}
	return nil
}

// IsRejected 判断错误是否为事件被拒绝。
func IsRejected(err error) bool {
	de := core.GetDomainError(err)
	return de != nil && de.Module == core.ModuleInteraction && de.Code == core.ErrorCodeInvalidInput
}

// Weights 是各交互类型对交互强度的贡献。
type Weights struct {
	Like    float64 `koanf:"like_weight"`
	Dislike float64 `koanf:"dislike_weight"`
	Shown   float64 `koanf:"shown_weight"`
}

// DefaultWeights：like +1，dislike -1，shown 0。
func DefaultWeights() Weights {
	return Weights{Like: 1, Dislike: -1, Shown: 0}
}

// Of 返回某类事件的权重。
func (w Weights) Of(t EventType) float64 {
	switch t {
	case Like:
		return w.Like
	case Dislike:
		return w.Dislike
	case Shown:
		return w.Shown
	}
	return 0
}

// Preferences 是用户的有序 like/dislike 序列。
type Preferences struct {
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
}

// Empty 判断是否没有任何偏好。
func (p Preferences) Empty() bool {
	return len(p.Likes) == 0 && len(p.Dislikes) == 0
}
