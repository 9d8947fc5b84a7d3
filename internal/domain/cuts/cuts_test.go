package cuts

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/forPelevin/autocut/internal/types"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name     string
		kept     []Range
		total    float64
		wantKeep []Range
		wantCut  []Range
	}{
		{
			name:     "repeated take scenario",
			kept:     []Range{{2, 4}, {10, 12}},
			total:    12,
			wantKeep: []Range{{2, 4}, {10, 12}},
			wantCut:  []Range{{0, 2}, {4, 10}},
		},
		{
			name:     "gap at tolerance merges",
			kept:     []Range{{0, 2}, {3, 5}},
			total:    5,
			wantKeep: []Range{{0, 5}},
			wantCut:  []Range{},
		},
		{
			name:     "gap above tolerance splits",
			kept:     []Range{{0, 2}, {3.5, 5}},
			total:    8,
			wantKeep: []Range{{0, 2}, {3.5, 5}},
			wantCut:  []Range{{2, 3.5}, {5, 8}},
		},
		{
			name:     "overlap does not shrink",
			kept:     []Range{{0, 10}, {2, 4}},
			total:    10,
			wantKeep: []Range{{0, 10}},
			wantCut:  []Range{},
		},
		{
			name:     "unsorted input",
			kept:     []Range{{20, 25}, {1, 3}},
			total:    30,
			wantKeep: []Range{{1, 3}, {20, 25}},
			wantCut:  []Range{{0, 1}, {3, 20}, {25, 30}},
		},
		{
			name:     "clamped to total",
			kept:     []Range{{-1, 2}, {28, 35}},
			total:    30,
			wantKeep: []Range{{0, 2}, {28, 30}},
			wantCut:  []Range{{2, 28}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Map(tt.kept, tt.total, DefaultMergeGap)
			if !reflect.DeepEqual(m.Keep, tt.wantKeep) {
				t.Fatalf("keep = %v, want %v", m.Keep, tt.wantKeep)
			}
			if !reflect.DeepEqual(m.Cut, tt.wantCut) {
				t.Fatalf("cut = %v, want %v", m.Cut, tt.wantCut)
			}
			if m.NothingSurvived {
				t.Fatalf("NothingSurvived set with %d keep ranges", len(m.Keep))
			}
		})
	}
}

func TestMap_NothingSurvived(t *testing.T) {
	m := Map(nil, 60, DefaultMergeGap)
	if !m.NothingSurvived {
		t.Fatalf("expected NothingSurvived")
	}
	if len(m.Keep) != 0 || !reflect.DeepEqual(m.Cut, []Range{{0, 60}}) {
		t.Fatalf("map = %+v", m)
	}
	if got := m.Metadata(); got != (types.CutMetadata{OriginalDuration: 60, CleanedDuration: 0, CutCount: 1, KeepCount: 0}) {
		t.Fatalf("metadata = %+v", got)
	}

	m = Map(nil, 0, DefaultMergeGap)
	if !m.NothingSurvived || len(m.Cut) != 0 {
		t.Fatalf("zero-length timeline: %+v", m)
	}
}

func TestMap_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		total := 10 + rng.Float64()*600
		var kept []Range
		for i := rng.Intn(40); i > 0; i-- {
			s := rng.Float64() * total
			kept = append(kept, Range{s, s + rng.Float64()*8})
		}
		gap := rng.Float64() * 2
		m := Map(kept, total, gap)

		if d := m.KeptDuration() + m.CutDuration(); math.Abs(d-total) > 1e-6 {
			t.Fatalf("iter %d: keep+cut = %v, total %v", iter, d, total)
		}
		for i := 1; i < len(m.Keep); i++ {
			if m.Keep[i].Start-m.Keep[i-1].End <= gap {
				t.Fatalf("iter %d: ranges %v and %v should have merged", iter, m.Keep[i-1], m.Keep[i])
			}
		}
		for _, r := range append(append([]Range{}, m.Keep...), m.Cut...) {
			if r.End <= r.Start {
				t.Fatalf("iter %d: empty range %v", iter, r)
			}
		}
		if m.NothingSurvived != (len(m.Keep) == 0) {
			t.Fatalf("iter %d: NothingSurvived = %v", iter, m.NothingSurvived)
		}
	}
}

func TestFilterByEdits(t *testing.T) {
	m := Map([]Range{{0, 5}, {10, 20}, {30, 40}}, 50, DefaultMergeGap)

	got := FilterByEdits(m, []Range{{12, 14}, {41, 45}})
	if !reflect.DeepEqual(got.Keep, []Range{{10, 20}}) {
		t.Fatalf("keep = %v", got.Keep)
	}
	if !reflect.DeepEqual(got.Cut, []Range{{0, 10}, {20, 50}}) {
		t.Fatalf("cut = %v", got.Cut)
	}

	none := FilterByEdits(m, nil)
	if !none.NothingSurvived || !reflect.DeepEqual(none.Cut, []Range{{0, 50}}) {
		t.Fatalf("none = %+v", none)
	}
}
