package rank

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/giftrec/core"
)

type fakePrefs struct {
	liked, disliked map[string]bool
}

func (p fakePrefs) HasPreferences(user string) bool { return user == "u1" }
func (p fakePrefs) Liked(_, item string) bool { return p.liked[item] }
func (p fakePrefs) Disliked(_, item string) bool { return p.disliked[item] }

type fakeScorer struct {
	trained bool
	scores  map[string]float64
}

func (s fakeScorer) IsTrained() bool { return s.trained }
func (s fakeScorer) Score(text string) float64 { return s.scores[text] }

func items() []*core.Item {
	mk := func(id string, pop float64) *core.Item {
		return core.NewProductItem(&core.Product{ID: id, Title: id, Popularity: pop})
	}
	return []*core.Item{mk("a", 500), mk("b", 2000), mk("c", 0), mk("d", 1000)}
}

func TestPreferenceNode(t *testing.T) {
	prefs := fakePrefs{liked: map[string]bool{"c": true}, disliked: map[string]bool{"b": true}}
	tests := []struct {
		name   string
		user   string
		scorer fakeScorer
		want   []string
		scores map[string]float64
	}{
		{
			name: "no preferences keeps order",
			user: "stranger",
			want: []string{"a", "b", "c", "d"},
		},
		{
			name:   "untrained model ignored",
			user:   "u1",
			scorer: fakeScorer{trained: false, scores: map[string]float64{"a": 1}},
			want:   []string{"c", "d", "a", "b"},
			scores: map[string]float64{"a": 0.5, "b": 0, "c": 3, "d": 1},
		},
		{
			name:   "trained model adds twice the score",
			user:   "u1",
			scorer: fakeScorer{trained: true, scores: map[string]float64{"a": 1, "d": 0.25}},
			want:   []string{"c", "a", "d", "b"},
			scores: map[string]float64{"a": 2.5, "b": 0, "c": 3, "d": 1.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &PreferenceNode{Scorer: tt.scorer, Prefs: prefs}
			rctx := core.NewRecommendContext(tt.user, "recommend")
			out, err := node.Process(context.Background(), rctx, items())
			if err != nil {
				t.Fatal(err)
			}
			if got := core.IDs(out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
			for _, it := range out {
				if want, ok := tt.scores[it.ID]; ok && math.Abs(it.Score-want) > 1e-9 {
					t.Errorf("score(%s) = %v, want %v", it.ID, it.Score, want)
				}
			}
		})
	}
}
