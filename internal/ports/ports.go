package ports

import (
	"context"
	"time"

	"github.com/forPelevin/autocut/internal/domain/timeline"
	"github.com/forPelevin/autocut/internal/types"
)

// ProjectStore reads an editing project and writes the cut project next to
// it.
type ProjectStore interface {
	Load(ctx context.Context, path string) (timeline.Project, error)
	WriteCut(ctx context.Context, p timeline.Project, res timeline.Result, outPath string) (types.CutProject, error)
}

type AudioTool interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	ExtractAudioCompressed(ctx context.Context, in, outMP3 string) error
	MediaDuration(ctx context.Context, in string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, audioPath, cacheDir string) (types.Transcript, error)
}

// TranscriptCache is keyed by audio content, not path.
type TranscriptCache interface {
	Get(ctx context.Context, audioPath string) (types.Transcript, bool, error)
	Put(ctx context.Context, audioPath string, tr types.Transcript) error
}

type TranscriptEditor interface {
	Edit(ctx context.Context, prompt string) (string, error)
}
