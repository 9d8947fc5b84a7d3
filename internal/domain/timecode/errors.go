package timecode

import "fmt"

// ParseError reports time text outside the "<int>s" / "<int>/<int>s" grammar.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse time %q: %s", e.Text, e.Reason)
}

// UnknownFrameRateError is returned alongside the fallback rate when a tick
// cannot be resolved. It is informational; the run continues.
type UnknownFrameRateError struct {
	Tick     string
	Fallback string
}

func (e *UnknownFrameRateError) Error() string {
	return fmt.Sprintf("unknown frame rate %q, falling back to %s", e.Tick, e.Fallback)
}

// NonFrameAlignedOutputError is fatal: it is raised when a time about to be
// written is not a whole number of ticks of its rate.
type NonFrameAlignedOutputError struct {
	Field string
	Value string
	Rate  string
}

func (e *NonFrameAlignedOutputError) Error() string {
	return fmt.Sprintf("%s %s is not aligned to %s frames", e.Field, e.Value, e.Rate)
}
