package textsim

import (
	"math"
	"reflect"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "so today we talk", "so today we talk", 1},
		{"disjoint", "alpha beta", "gamma delta", 0},
		{"both empty", "", "", 1},
		{"one empty", "today", "", 0},
		{"half", "a b c d", "a b x y", 0.5},
		{"prefix", "we improved the ui", "we improved the user interface", 6.0 / 9.0},
		{"case folded", "Today We", "today we", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(Tokens(tt.a), Tokens(tt.b))
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRatio_Symmetric(t *testing.T) {
	a := Tokens("the new dashboard is really intuitive")
	b := Tokens("this is the new dashboard and it is intuitive")
	if Ratio(a, b) != Ratio(b, a) {
		t.Fatalf("ratio not symmetric: %v vs %v", Ratio(a, b), Ratio(b, a))
	}
}

func TestMatchingBlocks(t *testing.T) {
	a := Tokens("a b x c d")
	b := Tokens("a b y c d")
	got := MatchingBlocks(a, b)
	want := []Block{{0, 0, 2}, {3, 3, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMatchingBlocks_LeftmostTieBreak(t *testing.T) {
	// "a" occurs twice in b; the earliest match must win every time.
	got := MatchingBlocks([]string{"a"}, []string{"a", "a"})
	want := []Block{{0, 0, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestOpcodes(t *testing.T) {
	a := Tokens("um so today we um talk")
	b := Tokens("today we talk about")
	got := Opcodes(a, b)
	want := []Opcode{
		{OpDelete, 0, 2, 0, 0},
		{OpEqual, 2, 4, 0, 2},
		{OpDelete, 4, 5, 2, 2},
		{OpEqual, 5, 6, 2, 3},
		{OpInsert, 6, 6, 3, 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestOpcodes_Replace(t *testing.T) {
	got := Opcodes(Tokens("a b c"), Tokens("a x c"))
	want := []Opcode{
		{OpEqual, 0, 1, 0, 1},
		{OpReplace, 1, 2, 1, 2},
		{OpEqual, 2, 3, 2, 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}
