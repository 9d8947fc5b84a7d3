// Package timecode converts between FCPXML rational time text, exact
// fractions and seconds, including the drop-frame correction used for
// 29.97 and 59.94 material.
package timecode

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// RationalTime is Num/Den seconds in the context of Rate. Den is kept as
// written (FCPXML uses the rate's timebase) so String reproduces the input.
type RationalTime struct {
	Num  int64
	Den  int64
	Rate FrameRate
}

func Zero(fr FrameRate) RationalTime {
	return RationalTime{Num: 0, Den: 1, Rate: fr}
}

// ParseTime accepts "<int>s" and "<int>/<int>s" exactly: no surrounding
// space, no sign other than a leading minus on the numerator.
func ParseTime(text string) (RationalTime, error) {
	if !strings.HasSuffix(text, "s") {
		return RationalTime{}, &ParseError{Text: text, Reason: `missing "s" suffix`}
	}
	numText, denText, frac := strings.Cut(text[:len(text)-1], "/")
	if !frac {
		denText = "1"
	}
	if !isDigits(strings.TrimPrefix(numText, "-")) {
		return RationalTime{}, &ParseError{Text: text, Reason: "numerator is not an integer"}
	}
	if !isDigits(denText) {
		return RationalTime{}, &ParseError{Text: text, Reason: "denominator is not a positive integer"}
	}

	num, err := strconv.ParseInt(numText, 10, 64)
	if err != nil {
		return RationalTime{}, &ParseError{Text: text, Reason: "numerator out of range"}
	}
	den, err := strconv.ParseInt(denText, 10, 64)
	if err != nil {
		return RationalTime{}, &ParseError{Text: text, Reason: "denominator out of range"}
	}
	if den == 0 {
		return RationalTime{}, &ParseError{Text: text, Reason: "zero denominator"}
	}
	return RationalTime{Num: num, Den: den}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseIn parses text and attaches fr.
func ParseIn(text string, fr FrameRate) (RationalTime, error) {
	t, err := ParseTime(text)
	if err != nil {
		return RationalTime{}, err
	}
	t.Rate = fr
	return t, nil
}

// ParseOrZero is the lenient path used while reading a project: malformed
// text becomes zero and a warning is logged.
func ParseOrZero(text string, fr FrameRate, log logrus.FieldLogger) RationalTime {
	t, err := ParseIn(text, fr)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("text", text).Warn("malformed time, using 0s")
		}
		return Zero(fr)
	}
	return t
}

// SecondsOrZero parses text leniently and converts it with ToSeconds.
func SecondsOrZero(text string, fr FrameRate, log logrus.FieldLogger) float64 {
	return ToSeconds(ParseOrZero(text, fr, log))
}

func (t RationalTime) String() string {
	if t.Den == 1 {
		return fmt.Sprintf("%ds", t.Num)
	}
	return fmt.Sprintf("%d/%ds", t.Num, t.Den)
}

// Float is the naive Num/Den value with no drop-frame correction.
func (t RationalTime) Float() float64 {
	if t.Den == 0 {
		return 0
	}
	return float64(t.Num) / float64(t.Den)
}

func (t RationalTime) IsZero() bool { return t.Num == 0 }

func (t RationalTime) rat() *big.Rat {
	if t.Den == 0 {
		return new(big.Rat)
	}
	return big.NewRat(t.Num, t.Den)
}

func (t RationalTime) Cmp(o RationalTime) int {
	return t.rat().Cmp(o.rat())
}

// Add returns t+o exactly, in t's rate. When both share a denominator it is
// kept; otherwise the sum is written over t's timebase if that is exact and
// as a reduced fraction if not.
func (t RationalTime) Add(o RationalTime) RationalTime {
	if t.Den == o.Den {
		return RationalTime{Num: t.Num + o.Num, Den: t.Den, Rate: t.Rate}
	}
	return fromRat(new(big.Rat).Add(t.rat(), o.rat()), t.Rate)
}

func (t RationalTime) Sub(o RationalTime) RationalTime {
	if t.Den == o.Den {
		return RationalTime{Num: t.Num - o.Num, Den: t.Den, Rate: t.Rate}
	}
	return fromRat(new(big.Rat).Sub(t.rat(), o.rat()), t.Rate)
}

func fromRat(r *big.Rat, fr FrameRate) RationalTime {
	if r.Sign() == 0 {
		return Zero(fr)
	}
	if fr.Timebase > 1 {
		scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(fr.Timebase))
		if scaled.IsInt() && scaled.Num().IsInt64() {
			return RationalTime{Num: scaled.Num().Int64(), Den: fr.Timebase, Rate: fr}
		}
	}
	return RationalTime{Num: r.Num().Int64(), Den: r.Denom().Int64(), Rate: fr}
}

// Aligned reports whether t is a whole number of ticks of its rate.
func (t RationalTime) Aligned() bool {
	fr := t.Rate
	if t.Den <= 0 || fr.Timebase <= 0 || fr.Timescale <= 0 {
		return false
	}
	// t/tick = (Num*Timebase) / (Den*Timescale)
	n := new(big.Int).Mul(big.NewInt(t.Num), big.NewInt(fr.Timebase))
	d := new(big.Int).Mul(big.NewInt(t.Den), big.NewInt(fr.Timescale))
	return new(big.Int).Rem(n, d).Sign() == 0
}

// Frames returns t as a tick count, rounding to the nearest tick.
func (t RationalTime) Frames() int64 {
	fr := t.Rate
	if t.Den == 0 || fr.Timescale == 0 {
		return 0
	}
	return int64(math.Round(t.Float() * float64(fr.Timebase) / float64(fr.Timescale)))
}

// MustAlign returns a *NonFrameAlignedOutputError naming field when t cannot
// be written as an exact frame position.
func (t RationalTime) MustAlign(field string) error {
	if !t.Aligned() {
		return &NonFrameAlignedOutputError{Field: field, Value: t.String(), Rate: t.Rate.Name}
	}
	return nil
}

// ToSeconds converts t to seconds. For drop-frame rates the per-minute
// approximation is applied: frames = s*rate, m = floor(frames/(rate*60)),
// dropped = K*m - K*floor(m/10), result = (frames+dropped)/rate, with K=2
// at 29.97 and K=4 at 59.94. This is not full SMPTE drop-frame timecode.
func ToSeconds(t RationalTime) float64 {
	return applyDropFrame(t.Float(), t.Rate)
}

func applyDropFrame(s float64, fr FrameRate) float64 {
	k := fr.dropPerMinute()
	if k == 0 {
		return s
	}
	frames := s * fr.Rate
	m := math.Floor(frames / (fr.Rate * 60))
	return (frames + dropped(m, k)) / fr.Rate
}

func dropped(m, k float64) float64 {
	return m*k - math.Floor(m/10)*k
}

// reverseDropFrame inverts applyDropFrame. Real times that fall inside the
// few frames skipped at a minute boundary have no preimage and map to the
// start of that minute.
func reverseDropFrame(realSec float64, fr FrameRate) float64 {
	k := fr.dropPerMinute()
	if k == 0 {
		return realSec
	}
	perMinute := fr.Rate * 60
	realFrames := realSec * fr.Rate
	est := math.Floor(realFrames / perMinute)
	for m := est; m >= 0; m-- {
		f := realFrames - dropped(m, k)
		if math.Floor(f/perMinute) == m {
			return f / fr.Rate
		}
	}
	return est * perMinute / fr.Rate
}

// ToRational converts seconds to a time on fr's tick grid: the drop-frame
// correction is undone, then the value is rounded to the nearest whole tick
// and written over fr.Timebase ("<int>s" when the timebase is 1). Negative
// input clamps to zero.
func ToRational(seconds float64, fr FrameRate) RationalTime {
	if !fr.valid() {
		return RationalTime{Num: int64(math.Round(math.Max(seconds, 0))), Den: 1, Rate: fr}
	}
	s := reverseDropFrame(seconds, fr)
	if s <= 0 || math.IsNaN(s) {
		return Zero(fr)
	}
	frames := int64(math.Round(s * float64(fr.Timebase) / float64(fr.Timescale)))
	if frames == 0 {
		return Zero(fr)
	}
	return RationalTime{Num: frames * fr.Timescale, Den: fr.Timebase, Rate: fr}
}
