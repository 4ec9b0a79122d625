package evaluation

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/interaction"
	"github.com/rushteam/giftrec/pkg/logging"
)

type fixedCandidates map[string][]string

func (f fixedCandidates) RecommendCandidates(_ context.Context, user string, k int) []string {
	recs := f[user]
	if len(recs) > k {
		recs = recs[:k]
	}
	return recs
}

type fixedPool []string

func (p fixedPool) Pool() []string { return p }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, events []interaction.Event, recs fixedCandidates, opts ...Option) *Evaluator {
	t.Helper()
	nop := logging.Nop()
	cat := catalog.New([]*core.Product{
		{ID: "a", Title: "Wireless Headphones", Features: []string{"wireless", "audio"}, Department: "Electronics"},
		{ID: "b", Title: "Bluetooth Speaker", Features: []string{"wireless", "speaker"}, Department: "Electronics"},
		{ID: "c", Title: "Yoga Mat", Features: []string{"fitness"}, Department: "Sports"},
		{ID: "d", Title: "Chess Set", Features: []string{"wooden", "game"}, Department: "Toys"},
	}, catalog.WithLogger(nop))
	st := interaction.NewStore(interaction.WithLogger(nop), interaction.WithClock(func() time.Time { return now }))
	for _, ev := range events {
		if _, err := st.Record(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}
	return New(DefaultConfig(), cat, st, recs, append([]Option{WithLogger(nop)}, opts...)...)
}

func like(user, item string) interaction.Event {
	return interaction.Event{UserID: user, ItemID: item, Type: interaction.Like}
}

func dislike(user, item string) interaction.Event {
	return interaction.Event{UserID: user, ItemID: item, Type: interaction.Dislike}
}

func TestPrecisionRecall(t *testing.T) {
	e := setup(t,
		[]interaction.Event{like("u1", "a"), like("u1", "b"), dislike("u1", "c"), dislike("u2", "d")},
		fixedCandidates{"u1": {"a", "c", "d", "x", "y"}, "u2": {"a"}, "ghost": {"a"}},
	)
	ctx := context.Background()
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"precision hit 1 of 5", e.PrecisionAtK(ctx, "u1", 5), 0.2},
		{"recall hit 1 of 2 likes", e.RecallAtK(ctx, "u1", 10), 0.5},
		{"precision user without likes", e.PrecisionAtK(ctx, "u2", 5), 0},
		{"recall user without likes", e.RecallAtK(ctx, "u2", 10), 0},
		{"unknown user", e.PrecisionAtK(ctx, "ghost", 5), 0},
		{"k zero", e.PrecisionAtK(ctx, "u1", 0), 0},
		{"average over users", e.AveragePrecisionAtK(ctx, 5), 0.1},
		{"history precision", e.HistoryPrecisionAtK("u1", 5), 0.4},
		{"history precision trimmed", e.HistoryPrecisionAtK("u1", 1), 1},
		{"history precision empty", e.HistoryPrecisionAtK("ghost", 5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
			if tt.got < 0 || tt.got > 1 {
				t.Errorf("%v outside [0,1]", tt.got)
			}
		})
	}
}

func TestCoverage(t *testing.T) {
	if got := setup(t, nil, nil).Coverage(); got != 0 {
		t.Errorf("no pool coverage = %v", got)
	}
	e := setup(t, nil, nil, WithPool(fixedPool{"a", "b", "b", "missing"}))
	if got := e.Coverage(); got != 0.5 {
		t.Errorf("coverage = %v, want 0.5", got)
	}
}

func TestDiversity(t *testing.T) {
	events := []interaction.Event{like("u1", "a"), like("u2", "c")}
	if got := setup(t, events, fixedCandidates{"u1": {"a"}}).Diversity(context.Background()); got != 0 {
		t.Errorf("single item diversity = %v", got)
	}

	disjoint := setup(t, events, fixedCandidates{"u1": {"c"}, "u2": {"d"}})
	if got := disjoint.Diversity(context.Background()); math.Abs(got-1) > 1e-9 {
		t.Errorf("items without shared terms should have distance 1, got %v", got)
	}

	e := setup(t, events, fixedCandidates{"u1": {"a", "b"}, "u2": {"b", "c"}})
	first := e.Diversity(context.Background())
	if first <= 0 || first >= 1 {
		t.Errorf("diversity = %v, want (0,1)", first)
	}
	if again := e.Diversity(context.Background()); again != first {
		t.Errorf("diversity not idempotent: %v vs %v", first, again)
	}
}

func TestConversionRate(t *testing.T) {
	old := now.Add(-8 * 24 * time.Hour)
	e := setup(t, []interaction.Event{
		{UserID: "u1", ItemID: "a", Type: interaction.Shown, Source: interaction.SourceRecommendation},
		{UserID: "u1", ItemID: "b", Type: interaction.Shown, Source: interaction.SourceRecommendation},
		{UserID: "u1", ItemID: "c", Type: interaction.Shown, Source: interaction.SourceRecommendation},
		{UserID: "u1", ItemID: "d", Type: interaction.Shown, Source: interaction.SourceRecommendation},
		{UserID: "u1", ItemID: "a", Type: interaction.Like, Source: interaction.SourceRecommendation},
		{UserID: "u1", ItemID: "b", Type: interaction.Like, Source: interaction.SourceFeedback},
		{UserID: "u1", ItemID: "c", Type: interaction.Shown, Source: interaction.SourceRecommendation, Timestamp: old},
		{UserID: "u1", ItemID: "c", Type: interaction.Like, Source: interaction.SourceRecommendation, Timestamp: old},
	}, nil)
	if got := e.ConversionRate(); got != 0.25 {
		t.Errorf("conversion = %v, want 0.25", got)
	}
	if got := setup(t, nil, nil).ConversionRate(); got != 0 {
		t.Errorf("empty conversion = %v", got)
	}
}

func TestLikeDislikeAndFeatures(t *testing.T) {
	e := setup(t, []interaction.Event{
		like("u1", "a"), like("u1", "b"), like("u2", "a"), dislike("u2", "c"), like("u3", "missing"),
	}, nil)
	if got := e.LikeDislikeRatio(); got != 0.8 {
		t.Errorf("ratio = %v, want 0.8", got)
	}
	want := []FeatureCount{{"wireless", 3}, {"audio", 2}, {"speaker", 1}}
	if got := e.CommonFeatures(interaction.Like, 5); !reflect.DeepEqual(got, want) {
		t.Errorf("liked features = %v", got)
	}
	if got := e.CommonFeatures(interaction.Dislike, 0); !reflect.DeepEqual(got, []FeatureCount{{"fitness", 1}}) {
		t.Errorf("disliked features = %v", got)
	}
	if got := e.CommonFeatures(interaction.Shown, 5); got != nil {
		t.Errorf("shown features = %v", got)
	}
	if e.ActiveUsers() != 3 || e.TotalInteractions() != 5 {
		t.Errorf("active=%d total=%d", e.ActiveUsers(), e.TotalInteractions())
	}
	if got := setup(t, nil, nil).LikeDislikeRatio(); got != 0 {
		t.Errorf("empty ratio = %v", got)
	}
}

func TestReport(t *testing.T) {
	e := setup(t,
		[]interaction.Event{like("u1", "a"), dislike("u1", "c")},
		fixedCandidates{"u1": {"a", "b"}},
		WithPool(fixedPool{"a", "b"}),
	)
	r := e.Report(context.Background())
	if r.SampleUser != "u1" || r.PrecisionK != 5 || r.RecallK != 10 {
		t.Fatalf("report = %+v", r)
	}
	if r.Precision != 0.2 || r.Recall != 1 || r.Coverage != 0.5 || r.LikeDislikeRatio != 0.5 {
		t.Errorf("report = %+v", r)
	}

	empty := setup(t, nil, nil).Report(context.Background())
	if empty.SampleUser != "" || empty.Precision != 0 || empty.Diversity != 0 || empty.ActiveUsers != 0 {
		t.Errorf("empty report = %+v", empty)
	}
}
