package timecode

import (
	"fmt"
	"math"
	"strings"
)

// FrameRate describes one tick of a timeline: Timescale/Timebase seconds
// (1001/30000 for 29.97). Values are shared read-only between many times.
type FrameRate struct {
	Rate      float64 `json:"rate"`
	Timebase  int64   `json:"timebase"`
	Timescale int64   `json:"timescale"`
	DropFrame bool    `json:"drop_frame"`
	Name      string  `json:"name"`
}

// TickString renders the tick as FCPXML frameDuration text.
func (fr FrameRate) TickString() string {
	if fr.Timebase == 1 {
		return fmt.Sprintf("%ds", fr.Timescale)
	}
	return fmt.Sprintf("%d/%ds", fr.Timescale, fr.Timebase)
}

func (fr FrameRate) valid() bool {
	return fr.Timebase > 0 && fr.Timescale > 0 && fr.Rate > 0
}

// dropPerMinute is the number of frame labels skipped each minute (except
// every tenth minute) for the drop-frame rates this package corrects.
func (fr FrameRate) dropPerMinute() float64 {
	if !fr.DropFrame {
		return 0
	}
	switch {
	case math.Abs(fr.Rate-29.97) < 0.01:
		return 2
	case math.Abs(fr.Rate-59.94) < 0.01:
		return 4
	default:
		return 0
	}
}

const DefaultRateKey = "29.97df"

var dropFrameHints = []string{"2997", "5994", "df", "drop", "dropframe"}

type rateEntry struct {
	key string
	fr  FrameRate
}

// Registry is the table of known rates. It is an ordinary value: build it
// once with StandardRegistry and pass it to whatever needs it.
type Registry struct {
	entries    []rateEntry
	defaultKey string
}

func StandardRegistry() Registry {
	return Registry{
		entries: []rateEntry{
			{"23.976", FrameRate{23.976, 24000, 1001, false, "23.976 fps"}},
			{"24", FrameRate{24, 24, 1, false, "24 fps"}},
			{"25", FrameRate{25, 25, 1, false, "25 fps (PAL)"}},
			{"29.97", FrameRate{29.97, 30000, 1001, false, "29.97 fps"}},
			{"30", FrameRate{30, 30, 1, false, "30 fps"}},
			{"50", FrameRate{50, 50, 1, false, "50 fps"}},
			{"59.94", FrameRate{59.94, 60000, 1001, false, "59.94 fps"}},
			{"60", FrameRate{60, 60, 1, false, "60 fps"}},
			{"29.97df", FrameRate{29.97, 30000, 1001, true, "29.97 fps Drop Frame"}},
			{"59.94df", FrameRate{59.94, 60000, 1001, true, "59.94 fps Drop Frame"}},
		},
		defaultKey: DefaultRateKey,
	}
}

// WithDefault returns a copy whose fallback rate is key. Unknown keys keep
// the current default.
func (r Registry) WithDefault(key string) (Registry, bool) {
	if _, ok := r.Lookup(key); !ok {
		return r, false
	}
	r.defaultKey = strings.ToLower(key)
	return r, true
}

func (r Registry) Lookup(key string) (FrameRate, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, e := range r.entries {
		if e.key == key {
			return e.fr, true
		}
	}
	return FrameRate{}, false
}

func (r Registry) Default() FrameRate {
	fr, ok := r.Lookup(r.defaultKey)
	if !ok {
		fr, _ = StandardRegistry().Lookup(DefaultRateKey)
	}
	return fr
}

func (r Registry) Keys() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.key)
	}
	return out
}

// Detect resolves a frame rate from an FCPXML frameDuration tick and the
// owning format's name. Ticks within 0.01 fps of a table entry take that
// entry's nominal rate and name; others become a custom rate. The tick's own
// fraction is always kept as timebase/timescale.
//
// Drop-frame is inferred from the name hint or the explicit flag only; a
// drop-frame tick behind an unhinted name is classified as non-drop.
//
// A tick that cannot be parsed yields the registry default together with an
// *UnknownFrameRateError. Callers are expected to log it and carry on.
func (r Registry) Detect(tick, nameHint string, dropFlag bool) (FrameRate, error) {
	t, err := ParseTime(tick)
	if err != nil || t.Num <= 0 {
		return r.Default(), &UnknownFrameRateError{Tick: tick, Fallback: r.Default().Name}
	}

	fps := float64(t.Den) / float64(t.Num)
	fr := FrameRate{
		Rate:      fps,
		Timebase:  t.Den,
		Timescale: t.Num,
		Name:      fmt.Sprintf("%.3f fps", fps),
	}
	for _, e := range r.entries {
		if e.fr.DropFrame {
			continue
		}
		if math.Abs(fps-e.fr.Rate) < 0.01 {
			fr.Rate = e.fr.Rate
			fr.Name = e.fr.Name
			break
		}
	}

	if dropFlag || hasDropFrameHint(nameHint) {
		fr.DropFrame = true
		fr.Name += " Drop Frame"
	}
	return fr, nil
}

func hasDropFrameHint(name string) bool {
	name = strings.ToLower(name)
	for _, h := range dropFrameHints {
		if strings.Contains(name, h) {
			return true
		}
	}
	return false
}
