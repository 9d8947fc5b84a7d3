package takes

import (
	"fmt"
	"strings"
	"unicode"
)

type Level string

const (
	LevelLight      Level = "light"
	LevelModerate   Level = "moderate"
	LevelAggressive Level = "aggressive"
)

func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelLight, LevelModerate, LevelAggressive:
		return l, nil
	case "":
		return LevelModerate, nil
	default:
		return "", fmt.Errorf("unknown cleaning level %q (want light, moderate or aggressive)", s)
	}
}

var (
	lightFillers      = []string{"um", "uh", "ah", "er", "hmm", "mm", "mhm", "erm"}
	moderateFillers   = []string{"like", "you know", "i mean", "sort of", "kind of", "basically", "actually", "literally", "so"}
	aggressiveFillers = []string{"well", "okay", "alright", "right", "yeah", "yes", "totally", "definitely", "obviously", "clearly"}
)

// Fillers returns the vocabulary for l as token sequences. Each level
// contains the previous one.
func Fillers(l Level) [][]string {
	words := append([]string(nil), lightFillers...)
	if l == LevelModerate || l == LevelAggressive {
		words = append(words, moderateFillers...)
	}
	if l == LevelAggressive {
		words = append(words, aggressiveFillers...)
	}
	out := make([][]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.Fields(w))
	}
	return out
}

// Normalize lower-cases text, strips punctuation, removes filler words and
// collapses stutters ("w w" -> "w", "w1 w2 w1 w2" -> "w1 w2").
func Normalize(text string, fillers [][]string) string {
	return strings.Join(collapseRepeats(stripFillers(tokenize(text), fillers)), " ")
}

func tokenize(text string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		tok := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				return r
			}
			return -1
		}, f)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// stripFillers drops filler phrases, trying longer phrases first so "you
// know" is removed as a unit.
func stripFillers(toks []string, fillers [][]string) []string {
	out := make([]string, 0, len(toks))
	for i := 0; i < len(toks); {
		n := matchFiller(toks[i:], fillers)
		if n > 0 {
			i += n
			continue
		}
		out = append(out, toks[i])
		i++
	}
	return out
}

func matchFiller(toks []string, fillers [][]string) int {
	best := 0
	for _, f := range fillers {
		if len(f) <= best || len(f) > len(toks) {
			continue
		}
		match := true
		for k := range f {
			if toks[k] != f[k] {
				match = false
				break
			}
		}
		if match {
			best = len(f)
		}
	}
	return best
}

func collapseRepeats(toks []string) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t)
		for {
			n := len(out)
			if n >= 2 && out[n-1] == out[n-2] {
				out = out[:n-1]
				continue
			}
			if n >= 4 && out[n-4] == out[n-2] && out[n-3] == out[n-1] {
				out = out[:n-2]
				continue
			}
			break
		}
	}
	return out
}
