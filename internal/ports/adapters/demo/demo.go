// Package demo provides a canned transcript so the whole pipeline can run
// without a recognizer or network access.
package demo

import (
	"context"

	"github.com/forPelevin/autocut/internal/types"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// Transcribe ignores its inputs and returns the same 42 second interview
// transcript every time.
func (a *Adapter) Transcribe(ctx context.Context, _, _ string) (types.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcript{}, err
	}
	tr := types.Transcript{Language: "en", Segments: make([]types.Segment, len(script))}
	for i, l := range script {
		tr.Segments[i] = types.Segment{ID: i, Start: l.start, End: l.end, Text: l.text}
	}
	return tr, nil
}

type line struct {
	start, end float64
	text       string
}

var script = []line{
	{0.0, 2.5, "So, um, today we're going to talk about,"},
	{2.5, 5.0, "uh, the new features in our product."},
	{5.0, 6.5, "You know, like, the thing is,"},
	{6.5, 9.0, "we've been working really hard on this."},
	{9.0, 11.0, "Uh, basically, what we've done is,"},
	{11.0, 13.5, "um, we've improved the user interface."},
	{13.5, 14.5, "And, like,"},
	{14.5, 17.0, "the performance is, you know, much better now."},
	{17.0, 19.5, "So, uh, let me show you the first feature."},
	{19.5, 21.0, "Um, this is the new dashboard,"},
	{21.0, 23.5, "and, uh, it's really intuitive."},
	{23.5, 24.5, "You know,"},
	{24.5, 27.0, "users can now, like, access everything from one place."},
	{27.0, 28.5, "Uh, the second thing is,"},
	{28.5, 31.0, "um, we've added real-time collaboration."},
	{31.0, 31.5, "So, like,"},
	{31.5, 35.0, "multiple people can work on the same project simultaneously."},
	{35.0, 36.0, "And, uh,"},
	{36.0, 38.5, "finally, we've improved the search functionality."},
	{38.5, 39.5, "It's, you know,"},
	{39.5, 42.0, "much faster and more accurate now."},
}
