// Package takes cleans transcript segments and keeps the best of each run of
// repeated attempts ("last take is best").
package takes

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/autocut/internal/domain/textsim"
	"github.com/forPelevin/autocut/internal/types"
)

type Decision int

const (
	Undecided Decision = iota
	Keep
	Discard
)

func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	default:
		return "undecided"
	}
}

// Segment is a transcript segment with its cleaned text and verdict.
type Segment struct {
	ID         int
	Start      float64
	End        float64
	Text       string
	Cleaned    string
	Confidence *float64
	Decision   Decision
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// confidence treats an unknown score as full confidence.
func (s Segment) confidence() float64 {
	if s.Confidence == nil {
		return 1
	}
	return *s.Confidence
}

// TakeGroup lists indices into Result.Segments judged to be repeated
// attempts at the same line. Winner indexes Members.
type TakeGroup struct {
	Members []int     `json:"members"`
	Winner  int       `json:"winner"`
	Scores  []float64 `json:"scores"`
	Common  string    `json:"common_content"`
}

type Options struct {
	Level     Level
	Window    float64
	Threshold float64
}

func DefaultOptions() Options {
	return Options{Level: LevelModerate, Window: 30, Threshold: 0.6}
}

type Result struct {
	Segments []Segment
	Groups   []TakeGroup
	Stats    types.CleaningStats
}

// Kept returns the segments marked Keep, ordered by start.
func (r Result) Kept() []Segment {
	var out []Segment
	for _, s := range r.Segments {
		if s.Decision == Keep {
			out = append(out, s)
		}
	}
	return out
}

// Select cleans every segment, clusters repeated takes and marks each
// segment Keep or Discard. tr is not modified; the result owns fresh
// segments ordered by start time.
func Select(tr types.Transcript, opt Options) Result {
	if opt.Level == "" {
		opt.Level = LevelModerate
	}
	fillers := Fillers(opt.Level)

	segs := make([]Segment, 0, len(tr.Segments))
	for i, s := range tr.Segments {
		segs = append(segs, Segment{
			ID:         i,
			Start:      s.Start,
			End:        s.End,
			Text:       strings.TrimSpace(s.Text),
			Cleaned:    Normalize(s.Text, fillers),
			Confidence: s.Confidence,
		})
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	groups := cluster(segs, opt)
	for gi := range groups {
		pickWinner(segs, &groups[gi])
	}

	grouped := make([]bool, len(segs))
	for _, g := range groups {
		for k, idx := range g.Members {
			grouped[idx] = true
			if k == g.Winner {
				segs[idx].Decision = Keep
			} else {
				segs[idx].Decision = Discard
			}
		}
	}
	for i := range segs {
		if grouped[i] {
			continue
		}
		if segs[i].Cleaned == "" {
			segs[i].Decision = Discard
		} else {
			segs[i].Decision = Keep
		}
	}

	res := Result{Segments: segs, Groups: groups}
	res.Stats = stats(segs)
	return res
}

// cluster makes one greedy forward pass. Each unused, non-empty segment opens
// a group and absorbs later unused segments whose similarity reaches the
// threshold, until the gap from the opener's end exceeds the window.
func cluster(segs []Segment, opt Options) []TakeGroup {
	used := make([]bool, len(segs))
	toks := make([][]string, len(segs))
	for i, s := range segs {
		toks[i] = strings.Fields(s.Cleaned)
	}

	var groups []TakeGroup
	for i := range segs {
		if used[i] || len(toks[i]) == 0 {
			continue
		}
		used[i] = true
		members := []int{i}
		for j := i + 1; j < len(segs); j++ {
			if used[j] {
				continue
			}
			if segs[j].Start-segs[i].End > opt.Window {
				break
			}
			if len(toks[j]) == 0 {
				continue
			}
			if textsim.Ratio(toks[i], toks[j]) >= opt.Threshold {
				members = append(members, j)
				used[j] = true
			}
		}
		if len(members) > 1 {
			groups = append(groups, TakeGroup{Members: members, Common: commonContent(segs, members)})
		}
	}
	return groups
}

// pickWinner scores 0.5*position + 0.3*relative length + 0.2*confidence.
// Ties go to the later take.
func pickWinner(segs []Segment, g *TakeGroup) {
	n := len(g.Members)
	maxLen := 0
	for _, idx := range g.Members {
		if l := utf8.RuneCountInString(segs[idx].Cleaned); l > maxLen {
			maxLen = l
		}
	}

	g.Scores = make([]float64, n)
	best := 0
	for k, idx := range g.Members {
		s := segs[idx]
		score := 0.5 * float64(k) / float64(n-1)
		if maxLen > 0 {
			score += 0.3 * float64(utf8.RuneCountInString(s.Cleaned)) / float64(maxLen)
		}
		score += 0.2 * s.confidence()
		g.Scores[k] = score
		if score >= g.Scores[best] {
			best = k
		}
	}
	g.Winner = best
}

func commonContent(segs []Segment, members []int) string {
	longest := ""
	for _, idx := range members {
		if c := segs[idx].Cleaned; utf8.RuneCountInString(c) > utf8.RuneCountInString(longest) {
			longest = c
		}
	}
	if r := []rune(longest); len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return longest
}

func stats(segs []Segment) types.CleaningStats {
	var st types.CleaningStats
	st.OriginalSegmentCount = len(segs)
	for _, s := range segs {
		st.OriginalDuration += s.Duration()
		st.OriginalWordCount += len(strings.Fields(s.Text))
		if s.Decision != Keep {
			continue
		}
		st.CleanedSegmentCount++
		st.CleanedDuration += s.Duration()
		st.CleanedWordCount += len(strings.Fields(s.Cleaned))
	}
	st.SegmentsRemoved = st.OriginalSegmentCount - st.CleanedSegmentCount
	st.WordsRemoved = st.OriginalWordCount - st.CleanedWordCount
	st.TimeSaved = st.OriginalDuration - st.CleanedDuration
	if st.OriginalDuration > 0 {
		st.TimeSavedPercent = st.TimeSaved / st.OriginalDuration * 100
	}
	return st
}
