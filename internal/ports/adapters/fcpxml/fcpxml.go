package fcpxml

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/autocut/internal/domain/timecode"
	"github.com/forPelevin/autocut/internal/domain/timeline"
	"github.com/forPelevin/autocut/internal/types"
	"github.com/forPelevin/autocut/internal/xmltree"
)

const (
	nameTimeLayout = "20060102_150405"
	modDateLayout  = "2006-01-02 15:04:05 -0700"
)

var placementNames = []string{"mc-clip", "asset-clip", "clip", "ref-clip"}

type Store struct {
	reg    timecode.Registry
	log    logrus.FieldLogger
	now    func() time.Time
	newUID func() string
}

func New(reg timecode.Registry, log logrus.FieldLogger) *Store {
	return &Store{
		reg:    reg,
		log:    log,
		now:    time.Now,
		newUID: func() string { return strings.ToUpper(uuid.NewString()) },
	}
}

// Load parses the FCPXML at path into a timeline.Project. The sequence of
// the first project is the one that gets cut. Malformed times degrade to zero with
// a warning; a spine without clip placements is ErrEmptyTimeline.
func (s *Store) Load(ctx context.Context, path string) (timeline.Project, error) {
	if err := ctx.Err(); err != nil {
		return timeline.Project{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return timeline.Project{}, err
	}
	defer f.Close()

	doc, err := xmltree.Parse(f)
	if err != nil {
		return timeline.Project{}, fmt.Errorf("parse fcpxml %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil || root.Name != "fcpxml" {
		return timeline.Project{}, fmt.Errorf("parse fcpxml %s: root element is not <fcpxml>", path)
	}

	formats := s.formats(root)
	seq := projectSequence(root)
	if seq == nil {
		return timeline.Project{}, fmt.Errorf("%s: no sequence: %w", path, timeline.ErrEmptyTimeline)
	}
	rate := s.sequenceRate(seq, formats)

	p := timeline.Project{
		Doc:      doc,
		Name:     projectName(root),
		Sequence: seq,
		Rate:     rate,
		Duration: timecode.ParseOrZero(seq.AttrOr("duration", "0s"), rate, s.log),
		Audio:    s.monoTrack(root, rate),
	}
	if spine := seq.Child("spine"); spine != nil {
		p.Placements = s.placements(spine, rate)
	}
	if len(p.Placements) == 0 {
		return timeline.Project{}, fmt.Errorf("%s: %w", path, timeline.ErrEmptyTimeline)
	}

	s.log.WithFields(logrus.Fields{
		"project":    p.Name,
		"rate":       rate.Name,
		"placements": len(p.Placements),
		"duration":   p.Duration.String(),
	}).Info("project loaded")
	return p, nil
}

type format struct {
	id   string
	tick string
	name string
	rate timecode.FrameRate
}

func (s *Store) formats(root *xmltree.Node) []format {
	var out []format
	res := root.Child("resources")
	if res == nil {
		s.log.Warn("no resources section")
		return out
	}
	seen := map[string]struct{}{}
	for _, el := range res.Elements() {
		if el.Name != "format" {
			continue
		}
		f := format{id: el.AttrOr("id", ""), tick: el.AttrOr("frameDuration", ""), name: el.AttrOr("name", "")}
		if f.tick == "" {
			continue
		}
		fr, err := s.reg.Detect(f.tick, f.name, false)
		if err != nil {
			s.log.WithError(err).WithField("format", f.id).Warn("frame rate not recognized")
		}
		f.rate = fr
		out = append(out, f)
		seen[fr.Name] = struct{}{}
	}
	if len(seen) > 1 {
		s.log.WithField("rates", len(seen)).Warn("mixed frame rates in project")
	}
	return out
}

// sequenceRate resolves the sequence's format, falling back to the first
// format declared, and honours tcFormat="DF".
func (s *Store) sequenceRate(seq *xmltree.Node, formats []format) timecode.FrameRate {
	if len(formats) == 0 {
		fr := s.reg.Default()
		s.log.WithField("rate", fr.Name).Warn("no frame rate in project, using default")
		return fr
	}
	f := formats[0]
	for _, c := range formats {
		if c.id == seq.AttrOr("format", "") {
			f = c
			break
		}
	}
	if seq.AttrOr("tcFormat", "") == "DF" && !f.rate.DropFrame {
		fr, err := s.reg.Detect(f.tick, f.name, true)
		if err == nil {
			return fr
		}
	}
	return f.rate
}

func (s *Store) placements(spine *xmltree.Node, rate timecode.FrameRate) []timeline.Placement {
	for _, name := range placementNames {
		var out []timeline.Placement
		for _, el := range spine.Elements() {
			if el.Name != name {
				continue
			}
			out = append(out, timeline.Placement{
				Element:  el,
				Offset:   timecode.ParseOrZero(el.AttrOr("offset", "0s"), rate, s.log),
				Start:    timecode.ParseOrZero(el.AttrOr("start", "0s"), rate, s.log),
				Duration: timecode.ParseOrZero(el.AttrOr("duration", "0s"), rate, s.log),
				Rate:     rate,
			})
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// projectSequence prefers the sequence of the first project over compound
// clip sequences declared under resources.
func projectSequence(root *xmltree.Node) *xmltree.Node {
	if p := root.Find("project"); p != nil {
		if seq := p.Child("sequence"); seq != nil {
			return seq
		}
	}
	return root.Find("sequence")
}

func projectName(root *xmltree.Node) string {
	if p := root.Find("project"); p != nil {
		if n := p.AttrOr("name", ""); n != "" {
			return n
		}
	}
	return "Project"
}

// monoTrack returns the first audio asset with a single channel: the lav
// mic in a typical multicam shoot.
func (s *Store) monoTrack(root *xmltree.Node, rate timecode.FrameRate) *types.AudioTrack {
	res := root.Child("resources")
	if res == nil {
		return nil
	}
	for _, el := range res.Elements() {
		if el.Name != "asset" || el.AttrOr("hasAudio", "0") != "1" {
			continue
		}
		ch, _ := strconv.Atoi(el.AttrOr("audioChannels", "0"))
		if ch != 1 {
			continue
		}
		return &types.AudioTrack{
			AssetID:  el.AttrOr("id", ""),
			Name:     el.AttrOr("name", ""),
			Path:     mediaPath(el),
			Channels: ch,
			Duration: timecode.SecondsOrZero(el.AttrOr("duration", "0s"), rate, s.log),
		}
	}
	return nil
}

func mediaPath(asset *xmltree.Node) string {
	src := asset.AttrOr("src", "")
	if rep := asset.Child("media-rep"); rep != nil {
		src = rep.AttrOr("src", src)
	}
	if src == "" {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil || u.Scheme != "file" {
		return src
	}
	return u.Path
}

// WriteCut appends a new project holding the reconstructed spine to a copy
// of the source document, checks the result and writes it to outPath.
// Nothing is written when the check fails. The source project and p.Doc are
// not modified.
func (s *Store) WriteCut(ctx context.Context, p timeline.Project, res timeline.Result, outPath string) (types.CutProject, error) {
	if err := ctx.Err(); err != nil {
		return types.CutProject{}, err
	}
	if err := timeline.Emit(res.Placements); err != nil {
		return types.CutProject{}, err
	}

	path := pathTo(p.Doc, p.Sequence)
	if path == nil {
		return types.CutProject{}, errors.New("fcpxml: sequence is not part of the project document")
	}
	doc := p.Doc.Clone()
	seq := nodeAt(doc, path)

	event, err := s.targetEvent(doc)
	if err != nil {
		return types.CutProject{}, err
	}

	now := s.now()
	cut := types.CutProject{
		Name: fmt.Sprintf("%s_AutoCut_%s", p.Name, now.Format(nameTimeLayout)),
		UID:  s.newUID(),
	}
	project := xmltree.NewElement("project",
		xmltree.Attr{Name: "name", Value: cut.Name},
		xmltree.Attr{Name: "uid", Value: cut.UID},
		xmltree.Attr{Name: "modDate", Value: now.Format(modDateLayout)},
	)
	project.Append(cutSequence(seq, res))
	event.Append(project)

	st, err := s.checkCut(doc, project, p.Rate)
	if err != nil {
		return types.CutProject{}, fmt.Errorf("fcpxml: generated document failed checks: %w", err)
	}
	cut.Version = st.version
	cut.Clips = st.clips
	cut.Frames = st.frames

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return types.CutProject{}, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return types.CutProject{}, err
	}
	if err := doc.Encode(f); err != nil {
		f.Close()
		return types.CutProject{}, fmt.Errorf("write fcpxml: %w", err)
	}
	if err := f.Close(); err != nil {
		return types.CutProject{}, err
	}

	s.log.WithFields(logrus.Fields{
		"project":    cut.Name,
		"placements": len(res.Placements),
		"duration":   res.Duration.String(),
		"path":       outPath,
	}).Info("cut project written")
	return cut, nil
}

func cutSequence(src *xmltree.Node, res timeline.Result) *xmltree.Node {
	seq := src.Clone()
	seq.RemoveAttr("name")
	seq.SetAttr("duration", res.Duration.String())

	spine := seq.Child("spine")
	if spine == nil {
		spine = xmltree.NewElement("spine")
		seq.Append(spine)
	}
	spine.Children = nil
	for _, pl := range res.Placements {
		spine.Append(pl.Element)
	}
	return seq
}

func (s *Store) targetEvent(doc *xmltree.Node) (*xmltree.Node, error) {
	if ev := doc.Find("event"); ev != nil {
		return ev, nil
	}
	lib := doc.Find("library")
	if lib == nil {
		return nil, errors.New("fcpxml: no event or library to hold the cut project")
	}
	ev := xmltree.NewElement("event",
		xmltree.Attr{Name: "name", Value: "Auto-Cut Events"},
		xmltree.Attr{Name: "uid", Value: s.newUID()},
	)
	lib.Append(ev)
	s.log.Info("created event for cut project")
	return ev, nil
}

// pathTo returns the child indices leading from root to target.
func pathTo(root, target *xmltree.Node) []int {
	if root == target {
		return []int{}
	}
	for i, c := range root.Children {
		if p := pathTo(c, target); p != nil {
			return append([]int{i}, p...)
		}
	}
	return nil
}

func nodeAt(root *xmltree.Node, path []int) *xmltree.Node {
	n := root
	for _, i := range path {
		n = n.Children[i]
	}
	return n
}
