package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/autocut/internal/domain/cuts"
	"github.com/forPelevin/autocut/internal/domain/edits"
	"github.com/forPelevin/autocut/internal/domain/takes"
	"github.com/forPelevin/autocut/internal/domain/timeline"
	"github.com/forPelevin/autocut/internal/ports"
	"github.com/forPelevin/autocut/internal/types"
)

// Deps are the collaborators of a run. Audio may be nil when the recognizer
// needs no audio (demo mode); Cache and Editor are optional.
type Deps struct {
	Projects ports.ProjectStore
	Audio    ports.AudioTool
	ASR      ports.ASR
	Cache    ports.TranscriptCache
	Editor   ports.TranscriptEditor
	Log      logrus.FieldLogger
	Now      func() time.Time
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = logrus.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return Usecase{d: d}
}

type Input struct {
	ProjectPath string
	OutPath     string
	// CacheDir receives extracted audio and recognizer scratch files.
	CacheDir string

	Takes    takes.Options
	MergeGap float64
	Profile  string

	// Compress uploads a small mp3 instead of 16 kHz wav.
	Compress          bool
	ForceRetranscribe bool
}

type Result struct {
	Report     types.Report
	Transcript types.Transcript
	Takes      takes.Result
	Timing     cuts.TimingMap
	// Alignment is nil unless the editing pass ran and succeeded.
	Alignment *edits.Alignment
	Profile   edits.Profile
}

const (
	maxAudioDuration = time.Hour
	// seconds
	audioDriftTolerance = 1.0
)

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Log

	log.WithField("path", in.ProjectPath).Info("parsing project")
	p, err := u.d.Projects.Load(ctx, in.ProjectPath)
	if err != nil {
		return Result{}, fmt.Errorf("load project: %w", err)
	}
	if p.Audio == nil {
		return Result{}, timeline.ErrNoMonoTrack
	}
	log.WithFields(logrus.Fields{
		"project":    p.Name,
		"placements": len(p.Placements),
		"rate":       p.Rate.Name,
		"audio":      p.Audio.Name,
	}).Info("project loaded")

	audio, err := u.prepareAudio(ctx, *p.Audio, in)
	if err != nil {
		return Result{}, err
	}

	tr, cacheState, err := u.transcribe(ctx, audio, in)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{"segments": len(tr.Segments), "cache": cacheState}).Info("transcript ready")

	sel := takes.Select(tr, in.Takes)
	st := sel.Stats
	log.WithFields(logrus.Fields{
		"segments_before": st.OriginalSegmentCount,
		"segments_after":  st.CleanedSegmentCount,
		"take_groups":     len(sel.Groups),
		"time_saved":      fmt.Sprintf("%.1fs (%.1f%%)", st.TimeSaved, st.TimeSavedPercent),
	}).Info("takes selected")

	kept := sel.Kept()
	spans := make([]cuts.Range, 0, len(kept))
	for _, s := range kept {
		spans = append(spans, cuts.Range{Start: s.Start, End: s.End})
	}
	total := tr.End()
	if d := p.SourceDuration(); d > total {
		total = d
	}
	tm := cuts.Map(spans, total, in.MergeGap)

	res := Result{Transcript: tr, Takes: sel}
	segmentsKept := len(kept)
	if u.d.Editor != nil && len(kept) > 0 {
		prof, _ := edits.ProfileFor(in.Profile)
		res.Profile = prof
		a, err := u.edit(ctx, kept, prof)
		if err != nil {
			log.WithError(err).Warn("transcript editing failed, using unedited cut")
		} else {
			res.Alignment = &a
			segmentsKept = a.KeptCount()
			tm = cuts.FilterByEdits(tm, a.Approved())
			log.WithFields(logrus.Fields{
				"profile": prof.Key,
				"kept":    a.KeptCount(),
				"of":      len(a.Verdicts),
			}).Info("transcript edited")
		}
	}
	res.Timing = tm

	rec, err := timeline.Reconstruct(p.Placements, tm.Keep)
	if err != nil {
		return Result{}, fmt.Errorf("reconstruct timeline: %w", err)
	}
	if rec.NothingSurvived {
		log.Warn("nothing survived the cut; writing an empty project")
	}

	cp, err := u.d.Projects.WriteCut(ctx, p, rec, in.OutPath)
	if err != nil {
		return Result{}, fmt.Errorf("write cut project: %w", err)
	}
	log.WithFields(logrus.Fields{
		"project": cp.Name,
		"clips":   len(rec.Placements),
		"frames":  cp.Frames,
		"out":     in.OutPath,
	}).Info("cut project written")

	res.Report = types.Report{
		GeneratedBy:     "autocut",
		GenerationTime:  u.d.Now().UTC(),
		Input:           in.ProjectPath,
		Output:          in.OutPath,
		Project:         cp,
		FrameRate:       p.Rate.Name,
		Cut:             tm.Metadata(),
		TimeSaved:       tm.CutDuration(),
		SegmentsKept:    segmentsKept,
		NothingSurvived: rec.NothingSurvived,
		CleaningLevel:   string(in.Takes.Level),
		CleaningStats:   st,
		TakeGroups:      summarize(sel),
		Edited:          res.Alignment != nil,
		TranscriptCache: cacheState,
	}
	if res.Alignment != nil {
		res.Report.EditProfile = res.Profile.Key
	}
	return res, nil
}

// prepareAudio extracts the lav track into CacheDir and checks it is usable.
// Without an audio tool the source path is handed to the recognizer as-is.
func (u Usecase) prepareAudio(ctx context.Context, track types.AudioTrack, in Input) (string, error) {
	src := track.Path
	if u.d.Audio == nil {
		return src, nil
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("source audio: %w", err)
	}
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	var out string
	if in.Compress {
		out = filepath.Join(in.CacheDir, stem+"_extracted.mp3")
		if err := u.d.Audio.ExtractAudioCompressed(ctx, src, out); err != nil {
			return "", err
		}
	} else {
		out = filepath.Join(in.CacheDir, stem+"_extracted.wav")
		if err := u.d.Audio.ExtractAudioMono16k(ctx, src, out); err != nil {
			return "", err
		}
	}

	d, err := u.d.Audio.MediaDuration(ctx, out)
	if err != nil {
		return "", fmt.Errorf("measure extracted audio: %w", err)
	}
	if d <= 0 {
		return "", errors.New("extracted audio has no duration")
	}
	if d > maxAudioDuration {
		u.d.Log.WithField("duration", d.Round(time.Second)).Warn("audio is longer than an hour")
	}
	if track.Duration > 0 && math.Abs(d.Seconds()-track.Duration) > audioDriftTolerance {
		u.d.Log.WithFields(logrus.Fields{
			"asset":     track.Duration,
			"extracted": d.Seconds(),
		}).Warn("extracted audio length differs from the project asset")
	}
	u.d.Log.WithFields(logrus.Fields{"path": out, "duration": d.Round(time.Millisecond)}).Info("audio extracted")
	return out, nil
}

// transcribe consults the cache first unless a fresh run is forced. Cache
// errors are logged and never fail the run.
func (u Usecase) transcribe(ctx context.Context, audio string, in Input) (types.Transcript, string, error) {
	state := "disabled"
	if u.d.Cache != nil {
		state = "miss"
		if in.ForceRetranscribe {
			state = "refreshed"
		} else {
			tr, ok, err := u.d.Cache.Get(ctx, audio)
			switch {
			case err != nil:
				u.d.Log.WithError(err).Warn("transcript cache lookup failed")
			case ok:
				return tr, "hit", nil
			}
		}
	}

	tr, err := u.d.ASR.Transcribe(ctx, audio, in.CacheDir)
	if err != nil {
		return types.Transcript{}, "", fmt.Errorf("transcribe: %w", err)
	}
	if u.d.Cache != nil {
		if err := u.d.Cache.Put(ctx, audio, tr); err != nil {
			u.d.Log.WithError(err).Warn("failed to cache transcript")
		}
	}
	return tr, state, nil
}

func (u Usecase) edit(ctx context.Context, kept []takes.Segment, prof edits.Profile) (edits.Alignment, error) {
	segs := make([]types.Segment, len(kept))
	for i, s := range kept {
		segs[i] = types.Segment{ID: s.ID, Start: s.Start, End: s.End, Text: s.Cleaned}
	}
	text, err := u.d.Editor.Edit(ctx, prof.Prompt(edits.Join(segs)))
	if err != nil {
		return edits.Alignment{}, err
	}
	if strings.TrimSpace(text) == "" {
		return edits.Alignment{}, errors.New("editor returned an empty transcript")
	}
	return edits.Align(segs, text), nil
}

func summarize(r takes.Result) []types.TakeGroupSummary {
	out := make([]types.TakeGroupSummary, 0, len(r.Groups))
	for _, g := range r.Groups {
		out = append(out, types.TakeGroupSummary{
			CommonContent: g.Common,
			BestTakeIndex: g.Winner,
			SegmentCount:  len(g.Members),
		})
	}
	return out
}
