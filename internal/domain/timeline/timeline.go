// Package timeline rebuilds a spine of clip placements from keep ranges.
//
// Placement elements are opaque subtrees: nested angles and media
// references are cloned as-is and only the timing attributes and name of
// the clone are rewritten.
package timeline

import (
	"errors"
	"fmt"

	"github.com/forPelevin/autocut/internal/domain/cuts"
	"github.com/forPelevin/autocut/internal/domain/timecode"
	"github.com/forPelevin/autocut/internal/types"
	"github.com/forPelevin/autocut/internal/xmltree"
)

var (
	ErrEmptyTimeline = errors.New("timeline has no clip placements")
	ErrNoMonoTrack   = errors.New("project has no mono audio track")
)

const defaultClipName = "Multicam Clip"

// Placement is one spine entry. Offset is the position in the timeline,
// Start the position within the source, Duration its length.
type Placement struct {
	Element  *xmltree.Node
	Offset   timecode.RationalTime
	Start    timecode.RationalTime
	Duration timecode.RationalTime
	Rate     timecode.FrameRate
	Label    string
}

// SourceWindow returns the [start, end) span of source seconds the placement
// shows.
func (p Placement) SourceWindow() cuts.Range {
	s := timecode.ToSeconds(p.Start)
	return cuts.Range{Start: s, End: s + timecode.ToSeconds(p.Duration)}
}

func (p Placement) name() string {
	if p.Element == nil {
		return defaultClipName
	}
	return p.Element.AttrOr("name", defaultClipName)
}

// Project is the parsed view of an FCPXML project the reconstructor works on.
// Doc owns every node; Sequence and the placement elements point into it.
type Project struct {
	Doc        *xmltree.Node
	Name       string
	Sequence   *xmltree.Node
	Placements []Placement
	Rate       timecode.FrameRate
	Duration   timecode.RationalTime
	Audio      *types.AudioTrack
}

// SourceDuration is the longest of the sequence duration and the end of
// every placement's source window.
func (p Project) SourceDuration() float64 {
	d := timecode.ToSeconds(p.Duration)
	for _, pl := range p.Placements {
		if end := pl.SourceWindow().End; end > d {
			d = end
		}
	}
	return d
}

type Result struct {
	Placements []Placement
	// Duration is the exact sum of placement durations.
	Duration        timecode.RationalTime
	NothingSurvived bool
}

// Reconstruct emits placements for the keep ranges, laid back to back from
// offset zero. Each range is served by the source placement whose window
// contains its start, else the closest one starting before it, else the
// first. A range that runs past the end of its placement's window is split
// there and the remainder is served the same way, so no clone reads beyond
// its source clip. The source element is deep-cloned; src is left untouched.
//
// Times are snapped to the chosen placement's frame grid. A piece shorter
// than half a frame snaps to zero length and is skipped.
func Reconstruct(src []Placement, keep []cuts.Range) (Result, error) {
	if len(src) == 0 {
		return Result{}, ErrEmptyTimeline
	}
	if len(keep) == 0 {
		return Result{Duration: timecode.Zero(src[0].Rate), NothingSurvived: true}, nil
	}

	offset := timecode.Zero(src[0].Rate)
	out := make([]Placement, 0, len(keep))
	for _, r := range keep {
		for at := r.Start; at < r.End; {
			p, until := serve(src, at, r.End)
			start := timecode.ToRational(at, p.Rate)
			end := timecode.ToRational(until, p.Rate)
			at = until
			dur := end.Sub(start)
			if dur.Num <= 0 {
				continue
			}
			out = append(out, Placement{
				Element:  p.Element.Clone(),
				Offset:   offset,
				Start:    start,
				Duration: dur,
				Rate:     p.Rate,
				Label:    fmt.Sprintf("%s - Cut %d", p.name(), len(out)+1),
			})
			offset = offset.Add(dur)
		}
	}
	return Result{
		Placements:      out,
		Duration:        offset,
		NothingSurvived: len(out) == 0,
	}, nil
}

// serve returns the placement for source time at and where its piece ends:
// limit, the end of the placement's window, or the start of the next
// placement when at falls outside every window. The end is always past at.
func serve(src []Placement, at, limit float64) (Placement, float64) {
	p := pick(src, at)
	end := limit
	if w := p.SourceWindow(); at >= w.Start && at < w.End {
		if w.End < end {
			end = w.End
		}
		return p, end
	}
	for _, q := range src {
		if s := q.SourceWindow().Start; s > at && s < end {
			end = s
		}
	}
	return p, end
}

func pick(src []Placement, at float64) Placement {
	best := -1
	for i, p := range src {
		w := p.SourceWindow()
		if at >= w.Start && at < w.End {
			return p
		}
		if w.Start <= at && (best < 0 || w.Start > src[best].SourceWindow().Start) {
			best = i
		}
	}
	if best < 0 {
		return src[0]
	}
	return src[best]
}

// Emit is the last step before placements are written: every time must sit
// on its frame grid and the placements must be contiguous from zero. On
// success the timing attributes and labels are written onto the elements.
func Emit(ps []Placement) error {
	if len(ps) == 0 {
		return nil
	}
	var want timecode.RationalTime
	for i, p := range ps {
		for _, f := range []struct {
			name string
			t    timecode.RationalTime
		}{{"offset", p.Offset}, {"start", p.Start}, {"duration", p.Duration}} {
			t := f.t
			t.Rate = p.Rate
			if err := t.MustAlign(fmt.Sprintf("placement %d %s", i+1, f.name)); err != nil {
				return err
			}
		}
		if i == 0 {
			want = timecode.Zero(p.Rate)
		}
		if p.Offset.Cmp(want) != 0 {
			return &timecode.NonFrameAlignedOutputError{
				Field: fmt.Sprintf("placement %d offset (expected %s)", i+1, want),
				Value: p.Offset.String(),
				Rate:  p.Rate.Name,
			}
		}
		if p.Element == nil {
			return fmt.Errorf("placement %d has no element", i+1)
		}
		want = want.Add(p.Duration)
	}

	for _, p := range ps {
		p.Element.SetAttr("offset", p.Offset.String())
		p.Element.SetAttr("start", p.Start.String())
		p.Element.SetAttr("duration", p.Duration.String())
		if p.Label != "" {
			p.Element.SetAttr("name", p.Label)
		}
	}
	return nil
}
