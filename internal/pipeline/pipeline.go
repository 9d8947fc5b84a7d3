package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/autocut/internal/config"
	"github.com/forPelevin/autocut/internal/domain/edits"
	"github.com/forPelevin/autocut/internal/domain/timecode"
	"github.com/forPelevin/autocut/internal/logging"
	"github.com/forPelevin/autocut/internal/ports"
	"github.com/forPelevin/autocut/internal/ports/adapters/demo"
	"github.com/forPelevin/autocut/internal/ports/adapters/fcpxml"
	"github.com/forPelevin/autocut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/autocut/internal/ports/adapters/openaiasr"
	"github.com/forPelevin/autocut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/autocut/internal/ports/adapters/sqlitecache"
	"github.com/forPelevin/autocut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/autocut/internal/usecase"
)

// Transcription methods.
const (
	MethodAPI   = "api"
	MethodLocal = "local"
	MethodDemo  = "demo"
)

type Config struct {
	InputFCPXML string
	OutDir      string
	Method      string

	Edit              bool
	UseCache          bool
	ForceRetranscribe bool
	KeepTemp          bool

	Settings config.Config
	Log      logrus.FieldLogger

	OpenAIAPIKey string

	OpenRouterAPIKey string
	OpenRouterModel  string
}

func (c Config) Validate() error {
	if c.InputFCPXML == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputFCPXML); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	switch c.Method {
	case MethodAPI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for --method api")
		}
	case MethodLocal:
		if c.Settings.Tools.WhisperModel == "" {
			return errors.New("whisper model path is required for --method local")
		}
	case MethodDemo:
	default:
		return fmt.Errorf("unknown method %q (want api, local or demo)", c.Method)
	}
	if c.Edit && c.OpenRouterAPIKey == "" {
		return errors.New("OPENROUTER_API_KEY is required for transcript editing (or pass --no-edit)")
	}
	return nil
}

// Outcome lists what a run wrote.
type Outcome struct {
	RunDir      string
	ProjectPath string
	ReportPath  string
	Result      usecase.Result
}

func Run(ctx context.Context, cfg Config) (Outcome, error) {
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	s := cfg.Settings

	reg, ok := timecode.StandardRegistry().WithDefault(s.Tuning.DefaultFrameRate)
	if !ok {
		return Outcome{}, fmt.Errorf("unknown default frame rate %q", s.Tuning.DefaultFrameRate)
	}

	// adapters
	deps := usecase.Deps{
		Projects: fcpxml.New(reg, logging.Component(log, "fcpxml")),
		Log:      logging.Component(log, "usecase"),
	}
	ff := ffmpeg.New(s.Tools.FFmpeg, s.Tools.FFprobe)
	switch cfg.Method {
	case MethodAPI:
		deps.Audio = ff
		var opts []option.RequestOption
		if base := config.Origin(s.Endpoints.OpenAIBaseURL); base != "" {
			opts = append(opts, option.WithBaseURL(base+"/"))
		}
		deps.ASR = openaiasr.New(cfg.OpenAIAPIKey, s.Tools.ASRModel, s.Tools.Language, opts...).
			WithChunking(ff, openaiasr.MaxUploadBytes)
	case MethodLocal:
		deps.Audio = ff
		deps.ASR = whispercpp.New(s.Tools.WhisperBin, s.Tools.WhisperModel, s.Tools.Language)
	default:
		deps.ASR = demo.New()
	}
	if cfg.Edit {
		deps.Editor = openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, s.Endpoints.OpenRouterBaseURL)
	}

	baseCache := s.Cache.Dir
	if baseCache == "" {
		baseCache = ".cache"
	}
	if cfg.UseCache && cfg.Method != MethodDemo {
		tc, err := sqlitecache.Open(filepath.Join(baseCache, "transcripts.db"), logging.Component(log, "cache"))
		if err != nil {
			return Outcome{}, err
		}
		defer tc.Close()
		deps.Cache = tc
	}

	jobID := hash(cfg.InputFCPXML)
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	log.Info("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Outcome{}, err
	}
	log.WithField("dir", cacheDir).Debug("scratch directory")
	if !cfg.KeepTemp {
		defer func() {
			if err := os.RemoveAll(cacheDir); err != nil {
				log.WithError(err).Warn("failed to remove scratch directory")
			}
		}()
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	now := time.Now()
	runOutDir := buildRunOutDir(outDir, cfg.InputFCPXML, now.UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Outcome{}, err
	}
	log.WithField("dir", runOutDir).Info("output run dir")

	base := baseName(cfg.InputFCPXML)
	out := Outcome{
		RunDir:      runOutDir,
		ProjectPath: filepath.Join(runOutDir, base+"_AutoCut.fcpxml"),
		ReportPath:  filepath.Join(runOutDir, base+"_AutoCut.json"),
	}

	if err := writeSourceInfo(filepath.Join(runOutDir, "source_info.txt"), cfg, now); err != nil {
		return Outcome{}, err
	}

	uc := usecase.New(deps)
	res, err := uc.Run(ctx, usecase.Input{
		ProjectPath:       cfg.InputFCPXML,
		OutPath:           out.ProjectPath,
		CacheDir:          cacheDir,
		Takes:             s.Tuning.TakeOptions(),
		MergeGap:          s.Tuning.MergeGap,
		Profile:           s.Tuning.Profile,
		Compress:          cfg.Method == MethodAPI,
		ForceRetranscribe: cfg.ForceRetranscribe,
	})
	if err != nil {
		return Outcome{}, err
	}
	out.Result = res

	b, err := json.MarshalIndent(res.Report, "", "  ")
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(out.ReportPath, b, 0o644); err != nil {
		return Outcome{}, err
	}
	log.WithField("path", out.ReportPath).Info("report written")

	if res.Alignment != nil {
		var buf bytes.Buffer
		if err := edits.WriteDebug(&buf, *res.Alignment, res.Profile, now); err != nil {
			return Outcome{}, err
		}
		debugPath := filepath.Join(runOutDir, "edited_transcript_debug.txt")
		if err := os.WriteFile(debugPath, buf.Bytes(), 0o644); err != nil {
			return Outcome{}, err
		}
		log.WithField("path", debugPath).Info("edit debug written")
	}
	return out, nil
}

func writeSourceInfo(path string, cfg Config, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Source file: %s\n", cfg.InputFCPXML)
	fmt.Fprintf(&b, "Processed at: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "Cleaning level: %s\n", cfg.Settings.Tuning.CleaningLevel)
	fmt.Fprintf(&b, "Transcription method: %s\n", cfg.Method)
	if cfg.Edit {
		fmt.Fprintf(&b, "Editing profile: %s\n", cfg.Settings.Tuning.Profile)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func baseName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name == "" {
		return "project"
	}
	return name
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := normalizePathSegment(baseName(input))
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.ProjectStore     = (*fcpxml.Store)(nil)
	_ ports.AudioTool        = (*ffmpeg.Adapter)(nil)
	_ ports.ASR              = (*whispercpp.Adapter)(nil)
	_ ports.ASR              = (*openaiasr.Adapter)(nil)
	_ ports.ASR              = (*demo.Adapter)(nil)
	_ ports.TranscriptCache  = (*sqlitecache.Cache)(nil)
	_ ports.TranscriptEditor = (*openrouter.Adapter)(nil)
	_ openaiasr.Slicer       = (*ffmpeg.Adapter)(nil)
)
