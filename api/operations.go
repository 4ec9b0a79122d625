package api

import (
	"context"
	"time"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/evaluation"
	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/metrics"
	"github.com/rushteam/giftrec/model"
	"github.com/rushteam/giftrec/recommend"
)

// 反馈处理结果。
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
)

// FeedbackCandidates 是反馈响应中附带的候选数。
const FeedbackCandidates = 3

// FeedbackRequest 是一次 like/dislike 反馈。Source 为空时记为 feedback。
type FeedbackRequest struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
}

// UserStats 是用户的偏好计数。
type UserStats struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ProductSummary 是反馈商品的摘要。
type ProductSummary struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Department string  `json:"department"`
	Price      float64 `json:"price"`
}

// FeedbackResponse 是反馈结果。Status 为 partial_success 时 Error 说明原因。
type FeedbackResponse struct {
	Status          string          `json:"status"`
	Error           string          `json:"error,omitempty"`
	EventID         string          `json:"event_id,omitempty"`
	UserStats       UserStats       `json:"user_stats"`
	Recommendations []string        `json:"recommendations"`
	Product         *ProductSummary `json:"product,omitempty"`
	Model           model.Status    `json:"model_status"`
}

// SubmitFeedback 记录反馈并用商品文本更新偏好模型。
//
// 不返回错误：缺字段的事件被拒绝、商品不存在导致无法学习时，
// 响应为 partial_success，日志与统计仍尽量更新。
func (s *Service) SubmitFeedback(ctx context.Context, req FeedbackRequest) *FeedbackResponse {
	start := time.Now()
	resp := &FeedbackResponse{Status: StatusSuccess}
	err := s.feedback(ctx, req, resp)
	if err != nil {
		resp.Status = StatusPartialSuccess
		resp.Error = err.Error()
		s.logger.Warn().Err(err).Str("user_id", req.UserID).Str("item_id", req.ItemID).Msg("feedback partially applied")
	}

	prefs := s.interactions.Preferences(req.UserID)
	resp.UserStats = UserStats{Likes: len(prefs.Likes), Dislikes: len(prefs.Dislikes)}
	if req.UserID != "" {
		resp.Recommendations = s.model.RecommendCandidates(ctx, req.UserID, FeedbackCandidates)
	}
	resp.Model = s.model.Status()
	metrics.RecordRequest("feedback", err, time.Since(start))
	return resp
}

func (s *Service) feedback(ctx context.Context, req FeedbackRequest, resp *FeedbackResponse) error {
	t := interaction.EventType(req.Type)
	if t != interaction.Like && t != interaction.Dislike {
		fields := []string{"type"}
		if req.UserID == "" {
			fields = append(fields, "user_id")
		}
		if req.ItemID == "" {
			fields = append(fields, "item_id")
		}
		return core.NewValidationError(core.ModuleInteraction, "feedback type must be like or dislike", fields...)
	}
	source := req.Source
	if source == "" {
		source = interaction.SourceFeedback
	}
	ev, err := s.interactions.Record(ctx, interaction.Event{UserID: req.UserID, ItemID: req.ItemID, Type: t, Source: source})
	if err != nil {
		return err
	}
	resp.EventID = ev.ID

	p, err := s.catalog.Get(req.ItemID)
	if err != nil {
		return err
	}
	resp.Product = &ProductSummary{ID: p.ID, Title: p.Title, Department: p.Department, Price: p.Price}
	s.model.Learn(p.Text(), t == interaction.Like)
	return nil
}

// ItemView 是返回给调用方的推荐物品。
type ItemView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Department string  `json:"department"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Rating     float64 `json:"rating"`
	URL        string  `json:"url,omitempty"`
	Image      string  `json:"image,omitempty"`
	Score      float64 `json:"score"`
	MatchType  string  `json:"match_type"`
	Fallback   bool    `json:"fallback"`
}

func itemViews(items []*core.Item) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ItemView{ID: it.ID, Score: it.Score, MatchType: it.MatchType()}
		if _, ok := it.Labels[core.LabelFallback]; ok {
			v.Fallback = true
		}
		if p := it.Product; p != nil {
			v.Title, v.Department, v.Category = p.Title, p.Department, p.Category
			v.Price, v.Rating, v.URL, v.Image = p.Price, p.Rating, p.URL, p.Image
		}
		out = append(out, v)
	}
	return out
}

// RecommendationsRequest 是个性化推荐请求，字段含义同 recommend.Request。
type RecommendationsRequest struct {
	UserID          string       `json:"user_id,omitempty"`
	Filters         core.Filters `json:"filters"`
	Limit           int          `json:"limit,omitempty"`
	ExplorationRate *float64     `json:"exploration_rate,omitempty"`
}

// RecommendationsResponse 是推荐结果及实际生效的降级层级。
type RecommendationsResponse struct {
	Items          []ItemView   `json:"items"`
	Level          int          `json:"level"`
	LevelName      string       `json:"applied_filter_level"`
	AppliedFilters core.Filters `json:"applied_filters"`
	Fallback       bool         `json:"fallback"`
}

// GetRecommendations 返回推荐，并在 RecordShown 开启时为有 user_id 的请求记录曝光。
// 只有目录不可用与过滤条件非法会返回错误。
func (s *Service) GetRecommendations(ctx context.Context, req RecommendationsRequest) (*RecommendationsResponse, error) {
	start := time.Now()
	res, err := s.engine.Recommend(ctx, recommend.Request{
		UserID:          req.UserID,
		Filters:         req.Filters,
		Limit:           req.Limit,
		ExplorationRate: req.ExplorationRate,
	})
	if err != nil {
		metrics.RecordRequest("recommend", err, time.Since(start))
		return nil, err
	}
	s.recordShown(ctx, req.UserID, res.Items, interaction.SourceRecommendation)
	return &RecommendationsResponse{
		Items:          itemViews(res.Items),
		Level:          res.Level,
		LevelName:      res.LevelName,
		AppliedFilters: res.Applied,
		Fallback:       res.Fallback,
	}, nil
}

// RelatedResponse 是相关推荐结果与各来源计数。
type RelatedResponse struct {
	Items  []ItemView             `json:"items"`
	Counts recommend.RelatedStats `json:"counts"`
}

// GetRelated 返回锚点商品的相关推荐。
func (s *Service) GetRelated(ctx context.Context, req recommend.RelatedRequest) (*RelatedResponse, error) {
	start := time.Now()
	res, err := s.engine.MoreRelated(ctx, req)
	metrics.RecordRequest("related", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.recordShown(ctx, req.UserID, res.Items, interaction.SourceRelated)
	return &RelatedResponse{Items: itemViews(res.Items), Counts: res.Stats}, nil
}

func (s *Service) recordShown(ctx context.Context, userID string, items []*core.Item, source string) {
	if !s.cfg.Engine.RecordShown || userID == "" {
		return
	}
	for _, it := range items {
		if _, err := s.interactions.Record(ctx, interaction.Event{
			UserID: userID, ItemID: it.ID, Type: interaction.Shown, Source: source,
		}); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("item_id", it.ID).Msg("record shown")
		}
	}
}

// MetricsResponse 是全局评估报告与模型状态。
type MetricsResponse struct {
	Metrics evaluation.Report `json:"metrics"`
	Model   model.Status      `json:"model_status"`
}

// GetMetrics 计算全局评估报告。
func (s *Service) GetMetrics(ctx context.Context) *MetricsResponse {
	start := time.Now()
	r := s.evaluator.Report(ctx)
	metrics.RecordRequest("metrics", nil, time.Since(start))
	return &MetricsResponse{Metrics: r, Model: s.model.Status()}
}

// UserHistorySize 是 UserMetrics 返回的最近事件数。
const UserHistorySize = 10

// UserMetricsResponse 是单个用户的指标。NewUser 为 true 时其余字段为零值。
type UserMetricsResponse struct {
	UserID    string              `json:"user_id"`
	NewUser   bool                `json:"new_user"`
	Precision float64             `json:"personal_precision_at_k"`
	Recall    float64             `json:"personal_recall_at_k"`
	Likes     int                 `json:"total_likes"`
	Dislikes  int                 `json:"total_dislikes"`
	History   []interaction.Event `json:"recommendation_history"`
}

// UserMetrics 返回用户的个人 precision/recall 与最近 10 条事件（最新在前）。
func (s *Service) UserMetrics(ctx context.Context, userID string) *UserMetricsResponse {
	resp := &UserMetricsResponse{UserID: userID}
	prefs := s.interactions.Preferences(userID)
	if prefs.Empty() {
		resp.NewUser = true
		return resp
	}
	cfg := s.evaluator.Config()
	resp.Precision = s.evaluator.PrecisionAtK(ctx, userID, cfg.PrecisionK)
	resp.Recall = s.evaluator.RecallAtK(ctx, userID, cfg.RecallK)
	resp.Likes, resp.Dislikes = len(prefs.Likes), len(prefs.Dislikes)
	resp.History = s.interactions.History(userID, UserHistorySize)
	return resp
}

// DebugResponse 是用户调试信息。
type DebugResponse struct {
	UserID           string                  `json:"user_id"`
	Preferences      interaction.Preferences `json:"preferences"`
	LastInteractions []interaction.Event     `json:"last_3_interactions"`
	Candidates       []string                `json:"current_recommendations"`
}

// DebugUser 返回用户偏好、全局最近 3 条事件与当前 5 个候选。
func (s *Service) DebugUser(ctx context.Context, userID string) *DebugResponse {
	return &DebugResponse{
		UserID:           userID,
		Preferences:      s.interactions.Preferences(userID),
		LastInteractions: s.interactions.Recent(3),
		Candidates:       s.model.RecommendCandidates(ctx, userID, 5),
	}
}

// ModelStatus 返回偏好模型状态。
func (s *Service) ModelStatus() model.Status { return s.model.Status() }
