package openaiasr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/forPelevin/autocut/internal/types"
)

// MaxUploadBytes is the hosted API's per-request file limit.
const MaxUploadBytes = 25 * 1024 * 1024

const (
	chunkOverlap = 30 * time.Second
	// whisper only reads the end of a long prompt
	promptTail = 500
)

// Slicer cuts a window out of an audio file so an oversized upload can be
// sent in pieces.
type Slicer interface {
	MediaDuration(ctx context.Context, path string) (time.Duration, error)
	ExtractSegment(ctx context.Context, in, out string, start, length time.Duration) error
}

// Adapter transcribes through the hosted Whisper API.
type Adapter struct {
	client openai.Client
	model  string
	lang   string

	slicer   Slicer
	maxBytes int64
	send     func(ctx context.Context, path, prompt string) (string, error)
}

func New(apiKey, model, language string, opts ...option.RequestOption) *Adapter {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	if language == "" {
		language = "en"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	a := &Adapter{client: openai.NewClient(opts...), model: model, lang: language}
	a.send = a.upload
	return a
}

// WithChunking makes files larger than maxBytes go up in overlapping
// windows cut by s. Without it every file is sent whole.
func (a *Adapter) WithChunking(s Slicer, maxBytes int64) *Adapter {
	a.slicer = s
	a.maxBytes = maxBytes
	return a
}

// Transcribe uploads audioPath. Oversized files are split into windows
// under cacheDir, transcribed in order with the previous window's text as
// the prompt, and merged back onto the file's own timeline.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, cacheDir string) (types.Transcript, error) {
	fi, err := os.Stat(audioPath)
	if err != nil {
		return types.Transcript{}, err
	}
	if a.slicer == nil || a.maxBytes <= 0 || fi.Size() <= a.maxBytes {
		raw, err := a.send(ctx, audioPath, "")
		if err != nil {
			return types.Transcript{}, err
		}
		return decodeVerbose(raw)
	}
	return a.transcribeChunked(ctx, audioPath, cacheDir, fi.Size())
}

func (a *Adapter) transcribeChunked(ctx context.Context, audioPath, cacheDir string, size int64) (types.Transcript, error) {
	total, err := a.slicer.MediaDuration(ctx, audioPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("measure audio for chunking: %w", err)
	}
	plan, err := planChunks(size, a.maxBytes, total, chunkOverlap)
	if err != nil {
		return types.Transcript{}, err
	}

	if cacheDir == "" {
		cacheDir = filepath.Dir(audioPath)
	}
	dir, err := os.MkdirTemp(cacheDir, "asr-chunks-")
	if err != nil {
		return types.Transcript{}, err
	}
	defer os.RemoveAll(dir)

	var tr types.Transcript
	var prompt string
	for i, c := range plan {
		out := filepath.Join(dir, fmt.Sprintf("chunk_%03d%s", i, filepath.Ext(audioPath)))
		if err := a.slicer.ExtractSegment(ctx, audioPath, out, c.start, c.length); err != nil {
			return types.Transcript{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(plan), err)
		}
		raw, err := a.send(ctx, out, prompt)
		if err != nil {
			return types.Transcript{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(plan), err)
		}
		part, err := decodeVerbose(raw)
		if err != nil {
			return types.Transcript{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(plan), err)
		}
		if tr.Language == "" {
			tr.Language = part.Language
		}
		appendShifted(&tr, part, c.start.Seconds())
		prompt = tail(joinText(part), promptTail)
	}
	return tr, nil
}

func (a *Adapter) upload(ctx context.Context, path, prompt string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  openai.AudioModel(a.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		Language:               openai.String(a.lang),
		TimestampGranularities: []string{"segment"},
	}
	if prompt != "" {
		params.Prompt = openai.String(prompt)
	}
	resp, err := a.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.RawJSON(), nil
}

type chunk struct {
	start  time.Duration
	length time.Duration
}

// planChunks splits total into the fewest equal steps whose windows, each
// extended by overlap, stay within maxBytes at the file's average bitrate.
func planChunks(size, maxBytes int64, total, overlap time.Duration) ([]chunk, error) {
	if total <= 0 {
		return nil, errors.New("cannot chunk audio with no duration")
	}
	perSec := float64(size) / total.Seconds()
	budget := float64(maxBytes) - perSec*overlap.Seconds()
	if budget <= 0 {
		return nil, fmt.Errorf("audio bitrate too high to fit %s windows in %d bytes", overlap, maxBytes)
	}
	n := int(math.Ceil(float64(size) / budget))
	if n < 2 {
		n = 2
	}

	step := total / time.Duration(n)
	out := make([]chunk, n)
	for i := range out {
		start := step * time.Duration(i)
		length := step + overlap
		if i == n-1 || start+length > total {
			length = total - start
		}
		out[i] = chunk{start: start, length: length}
	}
	return out, nil
}

// appendShifted moves part onto the full timeline and appends the segments
// not already covered: a segment whose midpoint falls before the end of
// what tr holds was heard in the previous window's overlap.
func appendShifted(tr *types.Transcript, part types.Transcript, offset float64) {
	covered := tr.End()
	for _, s := range part.Segments {
		s.Start += offset
		s.End += offset
		if len(tr.Segments) > 0 && (s.Start+s.End)/2 < covered {
			continue
		}
		s.ID = len(tr.Segments)
		tr.Segments = append(tr.Segments, s)
	}
}

func joinText(tr types.Transcript) string {
	parts := make([]string, 0, len(tr.Segments))
	for _, s := range tr.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

type verbose struct {
	Language string `json:"language"`
	Segments []struct {
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

// decodeVerbose maps a verbose_json body onto a transcript. Confidence is
// 1 - no_speech_prob.
func decodeVerbose(raw string) (types.Transcript, error) {
	var v verbose
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return types.Transcript{}, fmt.Errorf("decode verbose_json: %w", err)
	}
	tr := types.Transcript{Language: v.Language}
	for _, s := range v.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		c := 1 - s.NoSpeechProb
		tr.Segments = append(tr.Segments, types.Segment{
			ID:         len(tr.Segments),
			Start:      s.Start,
			End:        s.End,
			Text:       text,
			Confidence: &c,
		})
	}
	return tr, nil
}
