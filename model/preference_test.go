package model

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/rushteam/giftrec/catalog"
	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/logging"
)

func newTestPreference(opts ...Option) *Preference {
	return NewPreference(DefaultConfig(), append([]Option{WithLogger(logging.Nop())}, opts...)...)
}

func TestPreferenceUntrainedIsNeutral(t *testing.T) {
	p := newTestPreference()
	if p.IsTrained() {
		t.Fatal("new model should be untrained")
	}
	if got := p.Score("anything"); got != 0.5 {
		t.Errorf("Score = %v, want neutral 0.5", got)
	}

	// 只有一类样本时不会训练
	for i := 0; i < 12; i++ {
		p.Learn(fmt.Sprintf("wireless headphones %d", i), true)
	}
	if p.IsTrained() {
		t.Error("single-class buffer must not train")
	}
	if got := p.Score("wireless headphones"); got != 0.5 {
		t.Errorf("Score = %v while untrained", got)
	}
}

func TestPreferenceTransitionsOnBalance(t *testing.T) {
	p := newTestPreference()
	if published := p.Learn("bluetooth speaker electronics", true); published {
		t.Error("one class only, should not publish")
	}
	if published := p.Learn("scented candle home", false); !published {
		t.Error("second class should trigger immediate retrain")
	}
	if !p.IsTrained() {
		t.Fatal("expected Trained")
	}
	st := p.Status()
	if st.Samples != 2 || st.Retrains != 1 || st.Vocabulary == 0 || st.LastTrained.IsZero() {
		t.Errorf("Status = %+v", st)
	}

	for _, text := range []string{"bluetooth speaker electronics", "scented candle home", "unknown words entirely"} {
		s := p.Score(text)
		if s < 0 || s > 1 {
			t.Errorf("Score(%q) = %v outside [0,1]", text, s)
		}
	}
	if p.Score("bluetooth speaker") <= p.Score("scented candle") {
		t.Error("liked text should score above disliked text")
	}
}

func TestPreferenceRetrainCadence(t *testing.T) {
	p := newTestPreference()
	p.Learn("like a", true)
	p.Learn("dislike b", false) // 第一次训练
	for i := 3; i <= 9; i++ {
		if p.Learn(fmt.Sprintf("sample %d", i), i%2 == 0) {
			t.Errorf("unexpected retrain at sample %d", i)
		}
	}
	if !p.Learn("sample 10", true) {
		t.Error("expected retrain at sample 10")
	}
	if st := p.Status(); st.Retrains != 2 || st.Samples != 10 {
		t.Errorf("Status = %+v", st)
	}
}

func TestPreferenceConcurrentLearnAndScore(t *testing.T) {
	p := newTestPreference()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 30; i++ {
				p.Learn(fmt.Sprintf("gift item %d %d", w, i), (w+i)%2 == 0)
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if s := p.Score("gift item"); s < 0 || s > 1 {
					t.Errorf("Score out of range: %v", s)
					return
				}
			}
		}()
	}
	wg.Wait()
	if st := p.Status(); st.Samples != 120 || !st.Trained {
		t.Errorf("Status = %+v", st)
	}
}

func TestPassiveAggressiveSeparable(t *testing.T) {
	x := [][]float64{{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}}
	y := []bool{true, true, false, false}
	clf := &PassiveAggressive{C: 1, Epochs: 10}
	if err := clf.Fit(x, y, rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}
	for i := range x {
		if (clf.Margin(x[i]) > 0) != y[i] {
			t.Errorf("sample %d misclassified: margin %v", i, clf.Margin(x[i]))
		}
	}
	if err := clf.Fit(x, y[:1], rand.New(rand.NewSource(1))); !core.IsComputation(err) {
		t.Errorf("shape mismatch err = %v", err)
	}
}

func testCatalog(n int) *catalog.Store {
	products := make([]*core.Product, n)
	for i := range products {
		products[i] = &core.Product{ID: fmt.Sprintf("p%03d", i), Title: fmt.Sprintf("item %d", i), Popularity: float64(n - i)}
	}
	return catalog.New(products, catalog.WithLogger(logging.Nop()))
}

func TestPopularitySampler(t *testing.T) {
	ctx := context.Background()
	s := &PopularitySampler{Catalog: testCatalog(150), PoolSize: 100, Seed: 42}
	if len(s.Pool()) != 100 || s.Pool()[0] != "p000" {
		t.Errorf("Pool head = %v", s.Pool()[:1])
	}

	a, _ := s.Candidates(ctx, "alice", 5)
	b, _ := s.Candidates(ctx, "alice", 5)
	if !reflect.DeepEqual(a, b) || len(a) != 5 {
		t.Errorf("sampler not deterministic per user: %v vs %v", a, b)
	}
	pool := make(map[string]bool)
	for _, id := range s.Pool() {
		pool[id] = true
	}
	for _, id := range a {
		if !pool[id] {
			t.Errorf("%s outside the popular pool", id)
		}
	}

	empty := &PopularitySampler{Catalog: catalog.New(nil, catalog.WithLogger(logging.Nop()))}
	if _, err := empty.Candidates(ctx, "alice", 5); !core.IsUnavailable(err) {
		t.Errorf("empty catalog err = %v", err)
	}
}

func TestScoreRankerAndSwap(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New([]*core.Product{
		{ID: "cheap", Title: "plastic toy", Popularity: 100},
		{ID: "tech", Title: "wireless earbuds", Popularity: 50},
		{ID: "book", Title: "paperback novel", Popularity: 10},
	}, catalog.WithLogger(logging.Nop()))

	p := newTestPreference()
	ranker := &ScoreRanker{Catalog: cat, Scorer: p}

	// 未训练：按热度
	got, _ := ranker.Candidates(ctx, "u", 3)
	if !reflect.DeepEqual(got, []string{"cheap", "tech", "book"}) {
		t.Errorf("untrained order = %v", got)
	}

	p.Learn("wireless earbuds", true)
	p.Learn("plastic toy", false)
	got, _ = ranker.Candidates(ctx, "u", 1)
	if !reflect.DeepEqual(got, []string{"tech"}) {
		t.Errorf("trained top-1 = %v", got)
	}

	// 替换候选来源，调用方不变
	if ids := p.RecommendCandidates(ctx, "u", 2); ids != nil {
		t.Errorf("no source configured, got %v", ids)
	}
	p.SetCandidateSource(ranker)
	if ids := p.RecommendCandidates(ctx, "u", 2); len(ids) != 2 || ids[0] != "tech" {
		t.Errorf("RecommendCandidates = %v", ids)
	}
	p.SetCandidateSource(&PopularitySampler{Catalog: cat, Seed: 1})
	if ids := p.RecommendCandidates(ctx, "u", 2); len(ids) != 2 {
		t.Errorf("RecommendCandidates after swap = %v", ids)
	}
}
