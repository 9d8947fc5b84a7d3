package fcpxml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/forPelevin/autocut/internal/domain/cuts"
	"github.com/forPelevin/autocut/internal/domain/timecode"
	"github.com/forPelevin/autocut/internal/domain/timeline"
	"github.com/forPelevin/autocut/internal/xmltree"
)

func newTestStore(t *testing.T) (*Store, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	s := New(timecode.StandardRegistry(), log)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.newUID = func() string { return "FIXED-UID" }
	return s, hook
}

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.fcpxml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.Load(context.Background(), filepath.Join("testdata", "multicam.fcpxml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "Interview Edit" {
		t.Fatalf("name = %q", p.Name)
	}
	if !p.Rate.DropFrame || p.Rate.Rate != 29.97 || p.Rate.Timebase != 30000 || p.Rate.Timescale != 1001 {
		t.Fatalf("rate = %+v", p.Rate)
	}
	if p.Duration.String() != "3603600/30000s" {
		t.Fatalf("duration = %s", p.Duration)
	}
	if len(p.Placements) != 1 || p.Placements[0].Element.AttrOr("name", "") != "Interview" {
		t.Fatalf("placements = %+v", p.Placements)
	}
	if p.Audio == nil || p.Audio.AssetID != "r3" || p.Audio.Path != "/Volumes/Media/Lav Mic.wav" {
		t.Fatalf("audio = %+v", p.Audio)
	}
	// 3603600/30000s read as drop-frame timecode
	if p.Audio.Duration < 120.2 || p.Audio.Duration > 120.3 {
		t.Fatalf("audio duration = %v", p.Audio.Duration)
	}
}

func TestLoad_Errors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, filepath.Join(t.TempDir(), "missing.fcpxml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := s.Load(ctx, writeDoc(t, `<xmeml/>`)); err == nil {
		t.Fatalf("expected error for non-fcpxml root")
	}
	if _, err := s.Load(ctx, writeDoc(t, `<fcpxml><library`)); err == nil {
		t.Fatalf("expected parse error")
	}

	empty := `<fcpxml><library><event><project name="P"><sequence duration="10s"><spine><gap offset="0s" duration="10s"/></spine></sequence></project></event></library></fcpxml>`
	if _, err := s.Load(ctx, writeDoc(t, empty)); !errors.Is(err, timeline.ErrEmptyTimeline) {
		t.Fatalf("err = %v, want ErrEmptyTimeline", err)
	}
	if _, err := s.Load(ctx, writeDoc(t, `<fcpxml><resources/></fcpxml>`)); !errors.Is(err, timeline.ErrEmptyTimeline) {
		t.Fatalf("err = %v, want ErrEmptyTimeline", err)
	}
}

func TestLoad_LenientTimes(t *testing.T) {
	s, hook := newTestStore(t)
	doc := `<fcpxml version="1.9">
<resources><format id="r1" frameDuration="1/25s"/><media id="r2" name="Talk"/></resources>
<library><event><project name="P"><sequence format="r1" duration="60s"><spine>
<asset-clip ref="r2" offset="0s" start="bogus" duration="60s"/>
</spine></sequence></project></event></library></fcpxml>`

	p, err := s.Load(context.Background(), writeDoc(t, doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Placements[0].Start.IsZero() || p.Rate.Rate != 25 || p.Rate.DropFrame {
		t.Fatalf("placement = %+v rate = %+v", p.Placements[0], p.Rate)
	}
	if p.Audio != nil {
		t.Fatalf("unexpected audio %+v", p.Audio)
	}
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["text"] == "bogus" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected warning for malformed time")
	}
}

func TestLoad_UnknownRateFallsBack(t *testing.T) {
	s, hook := newTestStore(t)
	doc := `<fcpxml>
<resources><format id="r1" frameDuration="weird"/></resources>
<library><event><project name="P"><sequence format="r1" duration="10s"><spine>
<mc-clip ref="r2" offset="0s" duration="10s"/>
</spine></sequence></project></event></library></fcpxml>`

	p, err := s.Load(context.Background(), writeDoc(t, doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Rate != timecode.StandardRegistry().Default() {
		t.Fatalf("rate = %+v", p.Rate)
	}
	if hook.LastEntry() == nil {
		t.Fatalf("expected a logged warning")
	}
}

func TestWriteCut(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p, err := s.Load(ctx, filepath.Join("testdata", "multicam.fcpxml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	before := p.Doc.String()

	res, err := timeline.Reconstruct(p.Placements, []cuts.Range{{Start: 2, End: 4}, {Start: 10, End: 12}})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	out := filepath.Join(t.TempDir(), "nested", "cut.fcpxml")
	cut, err := s.WriteCut(ctx, p, res, out)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if cut.Name != "Interview Edit_AutoCut_20240102_030405" || cut.UID != "FIXED-UID" {
		t.Fatalf("cut = %+v", cut)
	}
	// 120120/30000s of 1001/30000s frames
	if cut.Version != "1.10" || cut.Clips != 2 || cut.Frames != 120 {
		t.Fatalf("cut stats = %+v", cut)
	}
	if p.Doc.String() != before {
		t.Fatalf("source document modified")
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	doc, err := xmltree.Parse(f)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	projects := doc.FindAll("project")
	if len(projects) != 2 {
		t.Fatalf("projects = %d", len(projects))
	}

	orig := projects[0].Child("sequence")
	if orig.AttrOr("name", "") != "Main" || len(orig.FindAll("mc-clip")) != 1 {
		t.Fatalf("original project changed: %s", orig)
	}

	np := projects[1]
	if np.AttrOr("modDate", "") != "2024-01-02 03:04:05 +0000" || np.AttrOr("uid", "") != "FIXED-UID" {
		t.Fatalf("project attrs = %+v", np.Attrs)
	}
	seq := np.Child("sequence")
	if _, ok := seq.Attr("name"); ok {
		t.Fatalf("cut sequence keeps name attribute")
	}
	if seq.AttrOr("duration", "") != "120120/30000s" || seq.AttrOr("tcFormat", "") != "DF" {
		t.Fatalf("sequence attrs = %+v", seq.Attrs)
	}
	clips := seq.Child("spine").Elements()
	if len(clips) != 2 {
		t.Fatalf("clips = %d", len(clips))
	}
	want := [][4]string{
		{"0s", "60060/30000s", "60060/30000s", "Interview - Cut 1"},
		{"60060/30000s", "300300/30000s", "60060/30000s", "Interview - Cut 2"},
	}
	for i, c := range clips {
		got := [4]string{c.AttrOr("offset", ""), c.AttrOr("start", ""), c.AttrOr("duration", ""), c.AttrOr("name", "")}
		if got != want[i] {
			t.Fatalf("clip %d = %v, want %v", i, got, want[i])
		}
		if len(c.FindAll("mc-source")) != 2 {
			t.Fatalf("clip %d lost its angles", i)
		}
	}
}

func TestWriteCut_NothingSurvived(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p, err := s.Load(ctx, filepath.Join("testdata", "multicam.fcpxml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := timeline.Reconstruct(p.Placements, nil)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	out := filepath.Join(t.TempDir(), "cut.fcpxml")
	if _, err := s.WriteCut(ctx, p, res, out); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc, err := xmltree.ParseString(string(b))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	seq := doc.FindAll("project")[1].Child("sequence")
	if seq.AttrOr("duration", "") != "0s" || len(seq.Child("spine").Elements()) != 0 {
		t.Fatalf("sequence = %s", seq)
	}
}

func TestWriteCut_CreatesEvent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	doc := `<fcpxml version="1.9">
<resources><format id="r1" frameDuration="1/25s"/><media id="r2" name="Talk"/></resources>
<library><project name="Loose"><sequence format="r1" duration="20s"><spine>
<mc-clip ref="r2" offset="0s" duration="20s"/>
</spine></sequence></project></library></fcpxml>`
	p, err := s.Load(ctx, writeDoc(t, doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := timeline.Reconstruct(p.Placements, []cuts.Range{{Start: 1, End: 5}})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	out := filepath.Join(t.TempDir(), "cut.fcpxml")
	if _, err := s.WriteCut(ctx, p, res, out); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `<event name="Auto-Cut Events" uid="FIXED-UID"><project name="Loose_AutoCut_20240102_030405"`) {
		t.Fatalf("event not created:\n%s", b)
	}
}

func TestWriteCut_RejectsMisaligned(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p, err := s.Load(ctx, filepath.Join("testdata", "multicam.fcpxml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := timeline.Reconstruct(p.Placements, []cuts.Range{{Start: 2, End: 4}})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	res.Placements[0].Duration = timecode.RationalTime{Num: 2, Den: 1}

	out := filepath.Join(t.TempDir(), "cut.fcpxml")
	var ae *timecode.NonFrameAlignedOutputError
	if _, err := s.WriteCut(ctx, p, res, out); !errors.As(err, &ae) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output written despite error")
	}
}

func TestWriteCut_CheckFailsBeforeWriting(t *testing.T) {
	cases := []struct {
		name string
		edit func(doc *xmltree.Node)
		want string
	}{
		{
			name: "bad version",
			edit: func(doc *xmltree.Node) { doc.Root().SetAttr("version", "1.x") },
			want: `version "1.x" is not of the form N.N`,
		},
		{
			name: "format without id",
			edit: func(doc *xmltree.Node) {
				doc.Root().Child("resources").Append(xmltree.NewElement("format", xmltree.Attr{Name: "frameDuration", Value: "1/25s"}))
			},
			want: "format without id",
		},
		{
			name: "bad frame duration",
			edit: func(doc *xmltree.Node) { doc.Find("format").SetAttr("frameDuration", "0/25s") },
			want: `bad frameDuration "0/25s"`,
		},
		{
			name: "dangling ref",
			edit: func(doc *xmltree.Node) { doc.Find("media").SetAttr("id", "r9") },
			want: `refers to unknown resource "r4"`,
		},
		{
			name: "media without src",
			edit: func(doc *xmltree.Node) { doc.Find("media-rep").RemoveAttr("src") },
			want: "media-rep without src",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			ctx := context.Background()
			p, err := s.Load(ctx, filepath.Join("testdata", "multicam.fcpxml"))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			res, err := timeline.Reconstruct(p.Placements, []cuts.Range{{Start: 2, End: 4}})
			if err != nil {
				t.Fatalf("reconstruct: %v", err)
			}
			tc.edit(p.Doc)

			out := filepath.Join(t.TempDir(), "cut.fcpxml")
			_, err = s.WriteCut(ctx, p, res, out)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Fatalf("output written despite failed check")
			}
		})
	}
}

func TestCheckCut_Warnings(t *testing.T) {
	s, hook := newTestStore(t)
	doc, err := xmltree.ParseString(`<fcpxml version="2.0">
<resources>
<format id="r1" name="FFVideoFormat1080p25" frameDuration="1/25s"/>
<format id="r2" name="FFVideoFormat1080p2997" frameDuration="1001/30000s"/>
<media id="r3" name="Talk"/>
</resources>
<library><event><project name="Cut"><sequence format="r1" duration="50/25s" tcFormat="XDF"><spine>
<mc-clip ref="r3" offset="0s" duration="50/25s"/>
<gap offset="50/25s" duration="1s"/>
</spine></sequence></project></event></library></fcpxml>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fr, _ := timecode.StandardRegistry().Lookup("25")

	st, err := s.checkCut(doc, doc.Find("project"), fr)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if st.version != "2.0" || st.clips != 1 || st.frames != 50 || len(st.rates) != 2 {
		t.Fatalf("stats = %+v", st)
	}
	var msgs []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			msgs = append(msgs, e.Message)
		}
	}
	want := []string{"unusual fcpxml version 2.0", "mixed frame rates", "unusual tcFormat XDF"}
	if len(msgs) != len(want) {
		t.Fatalf("warnings = %q", msgs)
	}
	for i, w := range want {
		if !strings.HasPrefix(msgs[i], w) {
			t.Fatalf("warning %d = %q, want prefix %q", i, msgs[i], w)
		}
	}
}
