// Package cuts turns kept transcript spans into keep and cut ranges over the
// source timeline.
package cuts

import (
	"sort"

	"github.com/forPelevin/autocut/internal/types"
)

// DefaultMergeGap is the largest silence, in seconds, bridged between two
// kept spans.
const DefaultMergeGap = 1.0

// Range is a half-open [Start, End) interval in source seconds.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r Range) Duration() float64 { return r.End - r.Start }

func (r Range) Overlaps(o Range) bool {
	return o.Start < r.End && o.End > r.Start
}

// TimingMap holds sorted, non-overlapping keep ranges and their exact
// complement within [0, Total].
type TimingMap struct {
	Keep  []Range `json:"keep_ranges"`
	Cut   []Range `json:"cut_ranges"`
	Total float64 `json:"total_original_duration"`
	// NothingSurvived is set when no range is kept. It is a signal for the
	// caller, not an error.
	NothingSurvived bool `json:"nothing_survived"`
}

func (m TimingMap) KeptDuration() float64 {
	var d float64
	for _, r := range m.Keep {
		d += r.Duration()
	}
	return d
}

func (m TimingMap) CutDuration() float64 {
	var d float64
	for _, r := range m.Cut {
		d += r.Duration()
	}
	return d
}

func (m TimingMap) Metadata() types.CutMetadata {
	return types.CutMetadata{
		OriginalDuration: m.Total,
		CleanedDuration:  m.KeptDuration(),
		CutCount:         len(m.Cut),
		KeepCount:        len(m.Keep),
	}
}

// Map merges kept spans whose gap is at most mergeGap and derives the cut
// ranges as the complement over [0, total]. Spans are clamped to that
// interval; overlapping spans extend the open range rather than shrink it.
func Map(kept []Range, total, mergeGap float64) TimingMap {
	if total < 0 {
		total = 0
	}
	spans := make([]Range, 0, len(kept))
	for _, r := range kept {
		r.Start = clamp(r.Start, 0, total)
		r.End = clamp(r.End, 0, total)
		if r.End > r.Start {
			spans = append(spans, r)
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	var keep []Range
	for _, s := range spans {
		if n := len(keep); n > 0 && s.Start-keep[n-1].End <= mergeGap {
			if s.End > keep[n-1].End {
				keep[n-1].End = s.End
			}
			continue
		}
		keep = append(keep, s)
	}
	return withComplement(keep, total)
}

// FilterByEdits drops keep ranges that no edit-approved span overlaps and
// recomputes the cut ranges.
func FilterByEdits(m TimingMap, approved []Range) TimingMap {
	var keep []Range
	for _, r := range m.Keep {
		for _, a := range approved {
			if r.Overlaps(a) {
				keep = append(keep, r)
				break
			}
		}
	}
	return withComplement(keep, m.Total)
}

func withComplement(keep []Range, total float64) TimingMap {
	m := TimingMap{Keep: keep, Total: total, NothingSurvived: len(keep) == 0}
	prev := 0.0
	for _, r := range keep {
		if r.Start > prev {
			m.Cut = append(m.Cut, Range{Start: prev, End: r.Start})
		}
		prev = r.End
	}
	if prev < total {
		m.Cut = append(m.Cut, Range{Start: prev, End: total})
	}
	if m.Keep == nil {
		m.Keep = []Range{}
	}
	if m.Cut == nil {
		m.Cut = []Range{}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
