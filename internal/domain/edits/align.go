package edits

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/autocut/internal/domain/cuts"
	"github.com/forPelevin/autocut/internal/domain/textsim"
	"github.com/forPelevin/autocut/internal/types"
)

// Verdict is the editor's decision for one input segment. Text holds the
// edited words attributed to it.
type Verdict struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Original string  `json:"original"`
	Text     string  `json:"text"`
	Keep     bool    `json:"keep"`
}

type Alignment struct {
	Original string    `json:"original"`
	Edited   string    `json:"edited"`
	Verdicts []Verdict `json:"verdicts"`
}

// Join is the transcript text sent to the editor.
func Join(segs []types.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Align attributes each word of edited to the segment its matching original
// word came from. Words are compared case- and punctuation-insensitively.
// Equal and replaced runs are paired word by word; inserted words go to the
// segment of the preceding original word, or the first segment at the very
// start. A segment is kept when at least one edited word lands on it.
func Align(segs []types.Segment, edited string) Alignment {
	var words []string
	var owner []int
	for i, s := range segs {
		for _, w := range strings.Fields(s.Text) {
			words = append(words, w)
			owner = append(owner, i)
		}
	}
	out := strings.Fields(edited)

	got := make([][]string, len(segs))
	for _, op := range textsim.Opcodes(matchKeys(words), matchKeys(out)) {
		switch op.Tag {
		case textsim.OpEqual, textsim.OpReplace:
			for i, j := op.I1, op.J1; i < op.I2 && j < op.J2; i, j = i+1, j+1 {
				got[owner[i]] = append(got[owner[i]], out[j])
			}
		case textsim.OpInsert:
			if len(owner) == 0 {
				continue
			}
			seg := owner[0]
			if op.I1 > 0 {
				seg = owner[op.I1-1]
			}
			got[seg] = append(got[seg], out[op.J1:op.J2]...)
		}
	}

	a := Alignment{Original: Join(segs), Edited: strings.TrimSpace(edited)}
	a.Verdicts = make([]Verdict, len(segs))
	for i, s := range segs {
		a.Verdicts[i] = Verdict{
			Start:    s.Start,
			End:      s.End,
			Original: strings.TrimSpace(s.Text),
			Text:     strings.Join(got[i], " "),
			Keep:     len(got[i]) > 0,
		}
	}
	return a
}

func matchKeys(words []string) []string {
	keys := make([]string, len(words))
	for i, w := range words {
		k := strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if k == "" {
			k = w
		}
		keys[i] = k
	}
	return keys
}

func (a Alignment) KeptCount() int {
	n := 0
	for _, v := range a.Verdicts {
		if v.Keep {
			n++
		}
	}
	return n
}

// Approved returns the source spans of kept segments.
func (a Alignment) Approved() []cuts.Range {
	var out []cuts.Range
	for _, v := range a.Verdicts {
		if v.Keep {
			out = append(out, cuts.Range{Start: v.Start, End: v.End})
		}
	}
	return out
}

// WriteDebug writes a human-readable breakdown of the edit.
func WriteDebug(w io.Writer, a Alignment, profile Profile, now time.Time) error {
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 40)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nTRANSCRIPT EDITING DEBUG FILE\nGenerated: %s\nProfile: %s\n%s\n\n", rule, now.Format(time.RFC3339), profile.Name, rule)
	fmt.Fprintf(&b, "ORIGINAL TRANSCRIPT:\n%s\n%s\n\n", thin, a.Original)
	fmt.Fprintf(&b, "EDITED TRANSCRIPT:\n%s\n%s\n\n", thin, a.Edited)
	fmt.Fprintf(&b, "SEGMENT-BY-SEGMENT BREAKDOWN:\n%s\n", thin)

	var keptTime, removedTime float64
	for _, v := range a.Verdicts {
		ts := fmt.Sprintf("[%.2f - %.2f]", v.Start, v.End)
		if v.Keep {
			keptTime += v.End - v.Start
			fmt.Fprintf(&b, "%s KEPT\n  Text: %s\n\n", ts, v.Text)
		} else {
			removedTime += v.End - v.Start
			fmt.Fprintf(&b, "%s REMOVED\n\n", ts)
		}
	}

	kept := a.KeptCount()
	fmt.Fprintf(&b, "\nSTATISTICS:\n%s\n", thin)
	fmt.Fprintf(&b, "Total segments: %d\nKept segments: %d\nRemoved segments: %d\n", len(a.Verdicts), kept, len(a.Verdicts)-kept)
	fmt.Fprintf(&b, "Total kept duration: %.2f seconds\nTotal removed duration: %.2f seconds\n", keptTime, removedTime)

	fmt.Fprintf(&b, "\n%s\nFINAL COMPILED TRANSCRIPT (with timestamps):\n%s\n", rule, thin)
	for _, v := range a.Verdicts {
		if v.Keep {
			fmt.Fprintf(&b, "[%.2f] %s\n", v.Start, v.Text)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
