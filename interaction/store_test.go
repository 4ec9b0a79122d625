package interaction

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/logging"
	"github.com/rushteam/giftrec/store"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func newTestStore(opts ...Option) *Store {
	base := []Option{WithLogger(logging.Nop()), WithClock(fixedClock())}
	return NewStore(append(base, opts...)...)
}

func TestRecordValidation(t *testing.T) {
	tests := []struct {
		name   string
		ev     Event
		fields []string
	}{
		{"missing item", Event{UserID: "u1", Type: Like}, []string{"item_id"}},
		{"missing user and type", Event{ItemID: "i1"}, []string{"user_id", "type"}},
		{"unknown type", Event{UserID: "u1", ItemID: "i1", Type: "click"}, []string{"type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			_, err := s.Record(context.Background(), tt.ev)
			if !IsRejected(err) {
				t.Fatalf("err = %v, want rejected", err)
			}
			if got := core.ErrorFields(err); !reflect.DeepEqual(got, tt.fields) {
				t.Errorf("fields = %v, want %v", got, tt.fields)
			}
			if s.Len() != 0 {
				t.Errorf("rejected event was logged")
			}
		})
	}
}

func TestRecordDerivedViews(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, ev := range []Event{
		{UserID: "u1", ItemID: "a", Type: Like},
		{UserID: "u1", ItemID: "b", Type: Dislike},
		{UserID: "u1", ItemID: "a", Type: Like},
		{UserID: "u1", ItemID: "c", Type: Like},
		{UserID: "u2", ItemID: "c", Type: Shown},
	} {
		got, err := s.Record(ctx, ev)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if got.ID == "" || got.Timestamp.IsZero() {
			t.Errorf("Record did not fill id/timestamp: %+v", got)
		}
	}

	if got := s.LikesOf("u1"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("LikesOf = %v", got)
	}
	if got := s.DislikesOf("u1"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("DislikesOf = %v", got)
	}
	if !s.Liked("u1", "c") || s.Liked("u1", "b") || !s.Disliked("u1", "b") {
		t.Error("Liked/Disliked mismatch")
	}
	if got := s.Users(); !reflect.DeepEqual(got, []string{"u1"}) {
		t.Errorf("Users = %v (shown-only users have no preferences)", got)
	}
	if !s.WasShown("u2", "c") || s.WasShown("u1", "c") {
		t.Error("WasShown mismatch")
	}
	if s.HasPreferences("u2") {
		t.Error("u2 has no likes/dislikes")
	}

	hist := s.History("u1", 2)
	if len(hist) != 2 || hist[0].ItemID != "c" || hist[1].ItemID != "a" {
		t.Errorf("History = %+v", hist)
	}
	if rec := s.Recent(1); len(rec) != 1 || rec[0].UserID != "u2" {
		t.Errorf("Recent = %+v", rec)
	}
}

func TestEventsSince(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, _ = s.Record(ctx, Event{UserID: "u", ItemID: "i", Type: Shown, Timestamp: start.Add(time.Duration(i) * 24 * time.Hour)})
	}
	if got := len(s.EventsSince(start.Add(48 * time.Hour))); got != 2 {
		t.Errorf("EventsSince = %d, want 2", got)
	}
}

func TestStrengthMatrix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(WithWeights(Weights{Like: 1, Dislike: -1, Shown: 0.5}))
	for _, ev := range []Event{
		{UserID: "u1", ItemID: "x", Type: Shown},
		{UserID: "u1", ItemID: "x", Type: Like},
		{UserID: "u1", ItemID: "y", Type: Like},
		{UserID: "u1", ItemID: "y", Type: Dislike},
		{UserID: "u2", ItemID: "z", Type: Dislike},
	} {
		if _, err := s.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	m := s.StrengthMatrix()
	if !reflect.DeepEqual(m.Items, []string{"x", "y", "z"}) {
		t.Errorf("Items = %v", m.Items)
	}
	if !reflect.DeepEqual(m.Users, []string{"u1", "u2"}) {
		t.Errorf("Users = %v", m.Users)
	}
	if got := m.Get("u1", "x"); got != 1.5 {
		t.Errorf("u1,x = %v", got)
	}
	if got := m.Get("u2", "z"); got != -1 {
		t.Errorf("u2,z = %v", got)
	}
	if _, ok := m.Row("u1")["y"]; ok {
		t.Error("zero-sum cell should be omitted")
	}
	if m.NNZ() != 2 {
		t.Errorf("NNZ = %d", m.NNZ())
	}
}

func TestConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	sink := NewKVSink(store.NewMemoryStore(), "")
	s := newTestStore(WithSink(sink))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = s.Record(ctx, Event{UserID: "u", ItemID: string(rune('a' + w)), Type: Like})
			}
		}(w)
	}
	wg.Wait()

	if s.Len() != 200 {
		t.Fatalf("Len = %d, want 200", s.Len())
	}
	persisted, err := sink.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 200 {
		t.Errorf("persisted %d events, want 200", len(persisted))
	}
	if got := len(s.LikesOf("u")); got != 8 {
		t.Errorf("unique likes = %d", got)
	}
}

func TestReplayReconstructs(t *testing.T) {
	ctx := context.Background()
	sink := NewKVSink(store.NewMemoryStore(), "test:log")
	first := newTestStore(WithSink(sink))
	for _, ev := range []Event{
		{UserID: "u1", ItemID: "a", Type: Like},
		{UserID: "u1", ItemID: "b", Type: Dislike},
		{UserID: "u1", ItemID: "c", Type: Like},
		{UserID: "u2", ItemID: "a", Type: Shown},
	} {
		if _, err := first.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	second := newTestStore(WithSink(sink))
	n, err := second.Replay(ctx)
	if err != nil || n != 4 {
		t.Fatalf("Replay = %d, %v", n, err)
	}
	if !reflect.DeepEqual(first.Preferences("u1"), second.Preferences("u1")) {
		t.Errorf("replayed preferences %+v != %+v", second.Preferences("u1"), first.Preferences("u1"))
	}
	if !second.WasShown("u2", "a") {
		t.Error("replay lost exposure")
	}
	if !reflect.DeepEqual(first.Events(), second.Events()) {
		t.Error("replayed log differs")
	}
}

func TestSinkFailureIsAbsorbed(t *testing.T) {
	sink := NewMemorySink()
	sink.FailWith(errors.New("disk full"))
	s := newTestStore(WithSink(sink))

	if _, err := s.Record(context.Background(), Event{UserID: "u", ItemID: "i", Type: Like}); err != nil {
		t.Fatalf("sink failure leaked: %v", err)
	}
	if got := s.LikesOf("u"); len(got) != 1 {
		t.Errorf("in-memory log lost the event: %v", got)
	}
}

func TestReplayWithoutSink(t *testing.T) {
	n, err := newTestStore().Replay(context.Background())
	if n != 0 || err != nil {
		t.Errorf("Replay = %d, %v", n, err)
	}
}

func TestReplaySkipsUndecodableRecord(t *testing.T) {
	ctx := context.Background()
	log := store.NewMemoryStore()
	sink := NewKVSink(log, "test:log")
	writer := newTestStore(WithSink(sink))
	if _, err := writer.Record(ctx, Event{UserID: "u1", ItemID: "a", Type: Like}); err != nil {
		t.Fatal(err)
	}
	if _, err := log.Append(ctx, "test:log", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Record(ctx, Event{UserID: "u1", ItemID: "b", Type: Like}); err != nil {
		t.Fatal(err)
	}

	reader := newTestStore(WithSink(sink))
	n, err := reader.Replay(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Replay = %d, %v; want 2 events and no error", n, err)
	}
	if got := reader.LikesOf("u1"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("likes = %v", got)
	}
}
