package filter

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/logging"
)

func productItem(id string, p core.Product) *core.Item {
	p.ID = id
	return core.NewProductItem(&p)
}

func contextWith(f core.Filters) *core.RecommendContext {
	rctx := core.NewRecommendContext("u1", "recommend")
	rctx.Filters = f
	return rctx
}

func TestPriceFilter(t *testing.T) {
	tests := []struct {
		name   string
		rng    string
		price  float64
		remove bool
	}{
		{"no range", "", 999, false},
		{"inside", "0-50", 49.99, false},
		{"upper bound inclusive", "0-50", 50, false},
		{"above", "0-50", 50.01, true},
		{"open ended", "100+", 1500, false},
		{"below open ended", "100+", 99, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&PriceFilter{}).ShouldFilter(context.Background(), contextWith(core.Filters{PriceRange: tt.rng}),
				productItem("p", core.Product{Price: tt.price}))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.remove {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.remove)
			}
		})
	}

	_, err := (&PriceFilter{}).ShouldFilter(context.Background(), contextWith(core.Filters{PriceRange: "cheap"}),
		productItem("p", core.Product{}))
	if !core.IsInvalidInput(err) {
		t.Errorf("bad range err = %v", err)
	}
}

func TestGenderFilter(t *testing.T) {
	tests := []struct {
		name   string
		gender string
		title  string
		desc   string
		remove bool
	}{
		{"no gender", "", "Men's Watch", "", false},
		{"women keeps women", "women", "Women's Running Shoes", "", false},
		{"women drops men", "women", "Men's Leather Wallet", "", true},
		{"women not confused by substring", "women", "Womens Scarf for women", "", false},
		{"men drops girl", "men", "Backpack", "perfect for any girl", true},
		{"ambiguous kept", "men", "Coffee Mug", "ceramic", false},
		{"female alias", "Female", "Boy's Sneakers", "", true},
		{"unknown gender ignored", "other", "Men's Watch", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := (&GenderFilter{}).ShouldFilter(context.Background(), contextWith(core.Filters{Gender: tt.gender}),
				productItem("p", core.Product{Title: tt.title, Description: tt.desc}))
			if got != tt.remove {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.remove)
			}
		})
	}
}

func TestAgeFilter(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		group  string
		remove bool
	}{
		{"no age", "", "5-10", false},
		{"all ages", "5-10", "all", false},
		{"empty group", "5-10", "", false},
		{"exact", "18+", "18+", false},
		{"overlap", "5-10", "8-12", false},
		{"disjoint", "5-10", "18-99", true},
		{"unknown group", "5-10", "adult", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&AgeFilter{}).ShouldFilter(context.Background(), contextWith(core.Filters{AgeRange: tt.want}),
				productItem("p", core.Product{AgeGroup: tt.group}))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.remove {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.remove)
			}
		})
	}
}

type shownSet map[string]bool

func (s shownSet) WasShown(user, item string) bool { return s[user+"/"+item] }

func TestFilterNode(t *testing.T) {
	items := []*core.Item{
		productItem("cheap", core.Product{Title: "Mug", Price: 10}),
		productItem("pricey", core.Product{Title: "Watch", Price: 500}),
		productItem("seen", core.Product{Title: "Pen", Price: 5}),
		productItem("banned", core.Product{Title: "Lighter", Price: 3}),
		productItem("lowrated", core.Product{Title: "Candle", Price: 8, Rating: 2}),
		nil,
	}
	for _, it := range items[:4] {
		if it != nil {
			it.Product.Rating = 4.5
		}
	}
	expr, err := NewExprFilter("item.rating >= 3.5")
	if err != nil {
		t.Fatal(err)
	}
	nop := logging.Nop()
	node := &FilterNode{
		Filters: []Filter{
			&PriceFilter{},
			NewExposedFilter(shownSet{"u1/seen": true}),
			NewBlacklistFilter([]string{"banned"}, nil),
			expr,
		},
		Logger: &nop,
	}
	out, err := node.Process(context.Background(), contextWith(core.Filters{PriceRange: "0-50"}), items)
	if err != nil {
		t.Fatal(err)
	}
	if got := core.IDs(out); !reflect.DeepEqual(got, []string{"cheap"}) {
		t.Errorf("kept %v, want [cheap]", got)
	}
	if lbl := items[1].Labels["filtered"]; lbl.Source != "filter.price" {
		t.Errorf("filtered label = %+v", lbl)
	}
	if lbl := items[2].Labels["filtered"]; lbl.Source != "filter.exposed" {
		t.Errorf("filtered label = %+v", lbl)
	}
}

func TestFilterErrorKeepsItem(t *testing.T) {
	nop := logging.Nop()
	node := &FilterNode{Filters: []Filter{&PriceFilter{}}, Logger: &nop}
	items := []*core.Item{productItem("a", core.Product{Price: 10})}
	out, _ := node.Process(context.Background(), contextWith(core.Filters{PriceRange: "abc"}), items)
	if len(out) != 1 {
		t.Errorf("filter error must keep the item, got %v", core.IDs(out))
	}
}

func TestExposedFilterAnonymous(t *testing.T) {
	f := NewExposedFilter(shownSet{"/a": true})
	rctx := core.NewRecommendContext("", "recommend")
	if got, _ := f.ShouldFilter(context.Background(), rctx, core.NewItem("a")); got {
		t.Error("anonymous request must not be filtered")
	}
}

func TestNewExprFilterRejectsBadExpr(t *testing.T) {
	if _, err := NewExprFilter("item.rating >="); err == nil {
		t.Error("expected compile error")
	}
}

func TestBlacklistDepartment(t *testing.T) {
	f := NewBlacklistFilter(nil, []string{"Grocery & Gourmet Food"})
	got, _ := f.ShouldFilter(context.Background(), nil, productItem("x", core.Product{Department: "Grocery & Gourmet Food"}))
	if !got {
		t.Error("department blacklist not applied")
	}
}
