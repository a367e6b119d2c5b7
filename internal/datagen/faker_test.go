//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewFaker(t *testing.T) {
	f := NewFaker()
	if f == nil {
		t.Fatal("NewFaker returned nil")
	}
	if f.faker == nil {
		t.Fatal("faker field is nil")
	}
}

func TestNewFakerWithSeed(t *testing.T) {
	seed := uint64(12345)
	f1 := NewFakerWithSeed(seed)
	f2 := NewFakerWithSeed(seed)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		v1 := f1.Int(0, 1000)
		v2 := f2.Int(0, 1000)
		if v1 != v2 {
			t.Errorf("Same seed produced different values: %d != %d", v1, v2)
		}
	}
	if f1.FirstName() != f2.FirstName() || f1.Title(2) != f2.Title(2) {
		t.Error("Same seed produced different strings")
	}
}

func TestFakerNamesAreASCII(t *testing.T) {
	f := NewFakerWithSeed(7)
	for i := 0; i < 200; i++ {
		for _, name := range []string{f.FirstName(), f.LastName()} {
			if name == "" {
				t.Fatal("Empty name")
			}
			for _, r := range name {
				if r > 127 {
					t.Errorf("Name %q contains non-ASCII rune %q", name, r)
				}
			}
		}
	}
}

func TestFakerEmail(t *testing.T) {
	f := NewFaker()
	email := f.Email()
	if !strings.Contains(email, "@") {
		t.Errorf("Email missing @: %s", email)
	}
}

func TestFakerTitle(t *testing.T) {
	f := NewFakerWithSeed(1)
	title := f.Title(2)
	words := strings.Fields(title)
	if len(words) < 2 {
		t.Fatalf("Expected at least 2 words, got %q", title)
	}
	for _, w := range words {
		if strings.ToUpper(w[:1]) != w[:1] {
			t.Errorf("Word %q in %q is not title-cased", w, title)
		}
	}
}

func TestFakerDateRange(t *testing.T) {
	f := NewFaker()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		d := f.DateRange(start, end)
		if d.Before(start) || d.After(end) {
			t.Errorf("Date %v out of range", d)
		}
	}
}

func TestFakerInt(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Int(10, 20)
		if v < 10 || v > 20 {
			t.Errorf("Int out of range: %d", v)
		}
	}
}

func TestFakerInt64(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Int64(100, 200)
		if v < 100 || v > 200 {
			t.Errorf("Int64 out of range: %d", v)
		}
	}
}

func TestFakerChance(t *testing.T) {
	f := NewFakerWithSeed(3)
	for i := 0; i < 100; i++ {
		if f.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !f.Chance(1.01) {
			t.Fatal("Chance above 1 returned false")
		}
	}
}

func TestFakerCents(t *testing.T) {
	f := NewFaker()
	lo := decimal.RequireFromString("0.99")
	hi := decimal.RequireFromString("11.99")
	for i := 0; i < 100; i++ {
		d := f.Cents(99, 1199)
		if d.LessThan(lo) || d.GreaterThan(hi) {
			t.Errorf("Cents out of range: %s", d)
		}
		if d.Exponent() != -2 {
			t.Errorf("Expected scale 2, got %s", d)
		}
	}
}

func TestChoose(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 100; i++ {
		chosen := Choose(f, items)
		found := false
		for _, item := range items {
			if item == chosen {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Choose returned item not in slice: %s", chosen)
		}
	}
}

func TestChooseEmpty(t *testing.T) {
	f := NewFaker()
	var items []string

	chosen := Choose(f, items)
	if chosen != "" {
		t.Errorf("Choose on empty slice should return zero value, got: %s", chosen)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c"}
	weights := []int{1, 2, 7} // c should be chosen ~70% of the time

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		counts[ChooseWeighted(f, items, weights)]++
	}

	if counts["c"] < counts["a"] || counts["c"] < counts["b"] {
		t.Errorf("Weighted choice distribution unexpected: %v", counts)
	}
}

func TestChooseWeightedEmpty(t *testing.T) {
	f := NewFaker()
	chosen := ChooseWeighted(f, []string(nil), nil)
	if chosen != "" {
		t.Errorf("ChooseWeighted on empty slices should return zero value, got: %s", chosen)
	}
}

func TestFoldASCII(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"José", "Jose"},
		{"Zoë", "Zoe"},
		{"Mike", "Mike"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FoldASCII(tt.in); got != tt.want {
			t.Errorf("FoldASCII(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("academy", "dinosaur"); got != "Academy Dinosaur" {
		t.Errorf("TitleCase = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if s := Truncate("hello world", 5); s != "hello" {
		t.Errorf("Truncate should truncate to 5, got: %s", s)
	}
	if s := Truncate("hi", 10); s != "hi" {
		t.Errorf("Truncate should not modify shorter string, got: %s", s)
	}
}

func BenchmarkChooseWeighted(b *testing.B) {
	f := NewFaker()
	items := []string{"a", "b", "c", "d", "e"}
	weights := []int{1, 2, 3, 4, 5}
	for i := 0; i < b.N; i++ {
		ChooseWeighted(f, items, weights)
	}
}
