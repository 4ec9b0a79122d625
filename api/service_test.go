package api

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/config"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/recommend"
)

func products() []*core.Product {
	var ps []*core.Product
	for i := 0; i < 20; i++ {
		dept, cat, feature := "Electronics", "Headphones", "wireless"
		if i%2 == 1 {
			dept, cat, feature = "Sports & Outdoors", "Yoga", "fitness"
		}
		ps = append(ps, &core.Product{
			ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("%s item %d", cat, i),
			Department: dept, Category: cat, Features: []string{feature},
			Price: float64(10 + i*5), Popularity: float64(i), Embedding: []float64{float64(i % 2), 1},
		})
	}
	return ps
}

func newService(t *testing.T, mutate func(*config.Config), opts ...Option) *Service {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	loader := catalog.LoaderFunc(func(context.Context) ([]*core.Product, error) { return products(), nil })
	base := []Option{WithLogger(logging.Nop())}
	s, err := New(context.Background(), cfg, loader, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSubmitFeedback(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()

	resp := s.SubmitFeedback(ctx, FeedbackRequest{UserID: "u1", ItemID: "p0", Type: "like"})
	if resp.Status != StatusSuccess || resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.UserStats != (UserStats{Likes: 1}) {
		t.Errorf("stats = %+v", resp.UserStats)
	}
	if resp.Product == nil || resp.Product.ID != "p0" {
		t.Errorf("product = %+v", resp.Product)
	}
	if len(resp.Recommendations) != FeedbackCandidates {
		t.Errorf("recommendations = %v", resp.Recommendations)
	}
	if resp.Model.Trained || resp.Model.Samples != 1 {
		t.Errorf("model = %+v", resp.Model)
	}

	resp = s.SubmitFeedback(ctx, FeedbackRequest{UserID: "u1", ItemID: "p1", Type: "dislike"})
	if !resp.Model.Trained {
		t.Errorf("like and dislike should train the model: %+v", resp.Model)
	}
	if resp.UserStats != (UserStats{Likes: 1, Dislikes: 1}) {
		t.Errorf("stats = %+v", resp.UserStats)
	}
}

func TestSubmitFeedbackPartialSuccess(t *testing.T) {
	tests := []struct {
		name      string
		req       FeedbackRequest
		wantError string
		logged    int
	}{
		{"missing item id", FeedbackRequest{UserID: "u1", Type: "like"}, "item_id", 0},
		{"unknown type", FeedbackRequest{UserID: "u1", ItemID: "p0", Type: "love"}, "type", 0},
		{"unknown item still logged", FeedbackRequest{UserID: "u1", ItemID: "nope", Type: "like"}, "nope", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, nil)
			resp := s.SubmitFeedback(context.Background(), tt.req)
			if resp.Status != StatusPartialSuccess || !strings.Contains(resp.Error, tt.wantError) {
				t.Errorf("resp = %+v", resp)
			}
			if got := s.Interactions().Len(); got != tt.logged {
				t.Errorf("logged events = %d, want %d", got, tt.logged)
			}
			if resp.Model.Samples != 0 {
				t.Errorf("model should not learn: %+v", resp.Model)
			}
		})
	}
}

func TestGetRecommendationsRecordsShown(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	zero := 0.0
	res, err := s.GetRecommendations(ctx, RecommendationsRequest{
		UserID: "u1", Filters: core.Filters{PriceRange: "0-60"}, Limit: 4, ExplorationRate: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 4 || res.LevelName == "" {
		t.Fatalf("res = %+v", res)
	}
	for _, it := range res.Items {
		if it.Price > 60 {
			t.Errorf("%s price %v", it.ID, it.Price)
		}
	}
	if got := s.Interactions().Len(); got != 4 {
		t.Errorf("shown events = %d", got)
	}

	s.SubmitFeedback(ctx, FeedbackRequest{UserID: "u1", ItemID: res.Items[0].ID, Type: "like", Source: interaction.SourceRecommendation})
	if got := s.Evaluator().ConversionRate(); got != 0.25 {
		t.Errorf("conversion = %v", got)
	}

	if _, err := s.GetRecommendations(ctx, RecommendationsRequest{Filters: core.Filters{AgeRange: "old"}}); !core.IsInvalidInput(err) {
		t.Errorf("invalid filter err = %v", err)
	}
}

func TestRecordShownDisabled(t *testing.T) {
	s := newService(t, func(c *config.Config) { c.Engine.RecordShown = false })
	if _, err := s.GetRecommendations(context.Background(), RecommendationsRequest{UserID: "u1", Limit: 3}); err != nil {
		t.Fatal(err)
	}
	if got := s.Interactions().Len(); got != 0 {
		t.Errorf("shown events = %d", got)
	}
}

func TestGetRelated(t *testing.T) {
	s := newService(t, nil)
	res, err := s.GetRelated(context.Background(), recommend.RelatedRequest{
		Department: "Electronics", Category: "Headphones", ProductName: "Headphones item 0", UserID: "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) > recommend.RelatedTotal || res.Counts.Total != len(res.Items) {
		t.Errorf("items=%d counts=%+v", len(res.Items), res.Counts)
	}
	if res.Counts.Strict == 0 {
		t.Errorf("counts = %+v", res.Counts)
	}
	for _, it := range res.Items {
		if it.MatchType == "" {
			t.Errorf("%s has no match type", it.ID)
		}
	}
}

func TestUserMetricsAndDebug(t *testing.T) {
	s := newService(t, nil)
	ctx := context.Background()
	if m := s.UserMetrics(ctx, "u1"); !m.NewUser {
		t.Errorf("metrics = %+v", m)
	}
	for i := 0; i < 12; i++ {
		s.SubmitFeedback(ctx, FeedbackRequest{UserID: "u1", ItemID: fmt.Sprintf("p%d", i), Type: "like"})
	}
	m := s.UserMetrics(ctx, "u1")
	if m.NewUser || m.Likes != 12 || len(m.History) != UserHistorySize {
		t.Errorf("metrics = %+v", m)
	}
	if m.History[0].ItemID != "p11" {
		t.Errorf("history should be newest first, got %s", m.History[0].ItemID)
	}
	if m.Precision < 0 || m.Precision > 1 || m.Recall < 0 || m.Recall > 1 {
		t.Errorf("metrics out of range: %+v", m)
	}

	d := s.DebugUser(ctx, "u1")
	if len(d.LastInteractions) != 3 || len(d.Preferences.Likes) != 12 || len(d.Candidates) != 5 {
		t.Errorf("debug = %+v", d)
	}

	report := s.GetMetrics(ctx)
	if report.Metrics.ActiveUsers != 1 || report.Metrics.TotalInteractions != 12 || report.Metrics.LikeDislikeRatio != 1 {
		t.Errorf("report = %+v", report.Metrics)
	}
	if report.Metrics.Coverage <= 0 || report.Metrics.Coverage > 1 {
		t.Errorf("coverage = %v", report.Metrics.Coverage)
	}
	if s.ModelStatus().Samples != 12 {
		t.Errorf("status = %+v", s.ModelStatus())
	}
}

func TestReplayFromSink(t *testing.T) {
	ctx := context.Background()
	sink := interaction.NewMemorySink()
	for _, ev := range []interaction.Event{
		{ID: "1", UserID: "u1", ItemID: "p0", Type: interaction.Like},
		{ID: "2", UserID: "u1", ItemID: "p1", Type: interaction.Dislike},
	} {
		if err := sink.Append(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	s := newService(t, nil, WithSink(sink))
	if got := s.Interactions().Preferences("u1"); len(got.Likes) != 1 || len(got.Dislikes) != 1 {
		t.Errorf("replayed preferences = %+v", got)
	}
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	mutate := func(c *config.Config) {
		c.Sink.Type = config.SinkSQLite
		c.Sink.SQLitePath = path
	}
	s := newService(t, mutate)
	s.SubmitFeedback(context.Background(), FeedbackRequest{UserID: "u1", ItemID: "p0", Type: "like"})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newService(t, mutate)
	if got := reopened.Interactions().LikesOf("u1"); len(got) != 1 || got[0] != "p0" {
		t.Errorf("likes after reopen = %v", got)
	}
}

func TestNewErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Type = "kafka"
	if _, err := New(context.Background(), cfg, catalog.LoaderFunc(func(context.Context) ([]*core.Product, error) {
		return products(), nil
	}), WithLogger(logging.Nop())); err == nil {
		t.Error("expected config error")
	}

	empty, err := New(context.Background(), nil, catalog.LoaderFunc(func(context.Context) ([]*core.Product, error) {
		return nil, nil
	}), WithLogger(logging.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := empty.GetRecommendations(context.Background(), RecommendationsRequest{}); !core.IsUnavailable(err) {
		t.Errorf("empty catalog err = %v", err)
	}
	if _, err := empty.GetRelated(context.Background(), recommend.RelatedRequest{}); !core.IsUnavailable(err) {
		t.Errorf("empty catalog related err = %v", err)
	}
}
