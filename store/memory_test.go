package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/rushteam/giftrec/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	defer m.Close()

	for i, rec := range []string{"a", "b", "c", "d"} {
		seq, err := m.Append(ctx, "log", []byte(rec))
		if err != nil || seq != int64(i) {
			t.Fatalf("Append(%s) = %d, %v", rec, seq, err)
		}
	}
	if n, _ := m.Len(ctx, "log"); n != 4 {
		t.Errorf("Len = %d", n)
	}
	if n, _ := m.Len(ctx, "missing"); n != 0 {
		t.Errorf("Len missing = %d", n)
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"all", 0, -1, []string{"a", "b", "c", "d"}},
		{"head", 0, 1, []string{"a", "b"}},
		{"tail by negative index", -2, -1, []string{"c", "d"}},
		{"past end", 3, 10, []string{"d"}},
		{"empty window", 5, 6, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := m.Range(ctx, "log", tt.start, tt.stop)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, r := range recs {
				got = append(got, string(r))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Range(%d,%d) = %v, want %v", tt.start, tt.stop, got, tt.want)
			}
		})
	}
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	buf := []byte("x")
	_, _ = m.Append(ctx, "log", buf)
	buf[0] = 'y'
	recs, _ := m.Range(ctx, "log", 0, -1)
	if string(recs[0]) != "x" {
		t.Errorf("stored record changed to %q", recs[0])
	}
}

func TestMemoryStoreConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	var wg sync.WaitGroup
	seqs := make([]int64, 50)
	for i := range seqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seqs[i], _ = m.Append(ctx, "log", []byte(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()
	seen := make(map[int64]bool)
	for _, s := range seqs {
		if seen[s] {
			t.Fatalf("duplicate seq %d", s)
		}
		seen[s] = true
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("etcd", "", 0)
	if !core.IsNotSupported(err) || !errors.Is(err, core.ErrStoreNotSupported) {
		t.Errorf("New(etcd) err = %v", err)
	}
}
