package recommend

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/interaction"
)

func headphonesRequest(user string) RelatedRequest {
	return RelatedRequest{Department: "Electronics", Category: "Headphones", ProductName: "Wireless Headphones 0", UserID: user}
}

func TestMoreRelated(t *testing.T) {
	f := newFixture(t, fixtureProducts())
	res, err := f.engine.MoreRelated(context.Background(), headphonesRequest(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != RelatedTotal {
		t.Fatalf("len = %d, want %d", len(res.Items), RelatedTotal)
	}
	want := RelatedStats{Total: RelatedTotal, Strict: 6, Semantic: 8, Collaborative: 0, Backfill: 11}
	if res.Stats != want {
		t.Errorf("stats = %+v, want %+v", res.Stats, want)
	}

	seen := map[string]bool{}
	counts := map[string]int{}
	for _, it := range res.Items {
		if seen[it.ID] {
			t.Errorf("duplicate %s", it.ID)
		}
		seen[it.ID] = true
		if it.ID == "hp0" {
			t.Error("anchor product must not be returned")
		}
		counts[it.MatchType()]++
		switch it.MatchType() {
		case core.MatchStrict:
			if it.Product.Category != "Headphones" {
				t.Errorf("strict item %s category = %s", it.ID, it.Product.Category)
			}
		case core.MatchSemantic:
			if it.Product.Department != "Electronics" {
				t.Errorf("semantic item %s department = %s", it.ID, it.Product.Department)
			}
		}
	}
	if counts[core.MatchStrict] != 6 || counts[core.MatchSemantic] != 8 || counts[core.MatchRandomFallback] != 11 {
		t.Errorf("match types = %v", counts)
	}

	again, err := f.engine.MoreRelated(context.Background(), headphonesRequest(""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(core.IDs(res.Items), core.IDs(again.Items)) {
		t.Error("related items should be stable for the same input")
	}
}

func TestMoreRelatedCollaborative(t *testing.T) {
	f := newFixture(t, fixtureProducts())
	ctx := context.Background()
	for _, ev := range []interaction.Event{
		{UserID: "u1", ItemID: "hp1", Type: interaction.Like},
		{UserID: "u1", ItemID: "ch1", Type: interaction.Like},
		{UserID: "u2", ItemID: "hp1", Type: interaction.Like},
		{UserID: "u2", ItemID: "toy3", Type: interaction.Like},
	} {
		if _, err := f.interactions.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	res, err := f.engine.MoreRelated(ctx, headphonesRequest("u2"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Collaborative == 0 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	if sum := res.Stats.Strict + res.Stats.Semantic + res.Stats.Collaborative + res.Stats.Backfill; sum != res.Stats.Total {
		t.Errorf("stats do not add up: %+v", res.Stats)
	}
	var found bool
	for _, it := range res.Items {
		if it.ID == "toy3" {
			found = true
			if it.MatchType() != core.MatchCollaborative {
				t.Errorf("toy3 match_type = %s", it.MatchType())
			}
		}
	}
	if !found {
		t.Errorf("collaborative item missing: %v", core.IDs(res.Items))
	}
}

func TestMoreRelatedUnknownAnchor(t *testing.T) {
	f := newFixture(t, fixtureProducts())
	res, err := f.engine.MoreRelated(context.Background(), RelatedRequest{
		Department: "Electronics", Category: "Headphones", ProductName: "No Such Product",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != RelatedTotal {
		t.Fatalf("len = %d", len(res.Items))
	}
	for _, it := range res.Items {
		if it.MatchType() == core.MatchSemantic {
			t.Errorf("%s should come from the random fallback without an anchor", it.ID)
		}
	}
}
