package core

import (
	"errors"
	"math"
	"testing"
)

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in      string
		want    PriceRange
		wantOK  bool
		wantErr bool
	}{
		{"", PriceRange{}, false, false},
		{"0-50", PriceRange{0, 50}, true, false},
		{" 50 - 100 ", PriceRange{50, 100}, true, false},
		{"100+", PriceRange{100, math.Inf(1)}, true, false},
		{"abc", PriceRange{}, false, true},
		{"90-10", PriceRange{}, false, true},
		{"NaN-NaN", PriceRange{}, false, true},
		{"0-nan", PriceRange{}, false, true},
		{"NaN+", PriceRange{}, false, true},
		{"inf-inf", PriceRange{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok, err := ParsePriceRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePriceRange(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAgeRangeIsKid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0-14", true},
		{"5-10", true},
		{"10-18", false},
		{"12+", true},
		{"18+", false},
		{"7", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, ok, err := ParseAgeRange(tt.in)
			if err != nil || !ok {
				t.Fatalf("ParseAgeRange(%q) = %v, %v", tt.in, ok, err)
			}
			if got := r.IsKid(); got != tt.want {
				t.Errorf("IsKid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFiltersValidate(t *testing.T) {
	err := Filters{PriceRange: "cheap", AgeRange: "x-y"}.Validate()
	if !IsInvalidInput(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := ErrorFields(err)
	if len(fields) != 2 || fields[0] != "price_range" || fields[1] != "age_range" {
		t.Errorf("fields = %v", fields)
	}
	if err := (Filters{PriceRange: "NaN-NaN"}).Validate(); !IsInvalidInput(err) {
		t.Errorf("NaN price range err = %v", err)
	}
	if err := (Filters{PriceRange: "0-50", AgeRange: "18+"}).Validate(); err != nil {
		t.Errorf("valid filters rejected: %v", err)
	}
}

func TestDomainErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := NewComputationError(ModuleSimilarity, "cosine failed", cause)
	wrapped := errors.Join(errors.New("context"), err)

	if !IsComputation(wrapped) {
		t.Error("IsComputation should see through wrapping")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
	if IsNotFound(wrapped) || IsUnavailable(wrapped) {
		t.Error("unexpected code match")
	}
	if got := err.Error(); got != "similarity: cosine failed: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestProductText(t *testing.T) {
	p := &Product{Title: "Mug", Features: []string{"ceramic", "12oz"}, Department: "Kitchen", Price: 50}
	if got := p.Text(); got != "Mug ceramic 12oz Kitchen" {
		t.Errorf("Text() = %q", got)
	}
	if got := p.PriceBucket(); got != "50-100" {
		t.Errorf("PriceBucket() = %q", got)
	}
}
