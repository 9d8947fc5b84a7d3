package fcpxml

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/autocut/internal/domain/timecode"
	"github.com/forPelevin/autocut/internal/xmltree"
)

var timeAttrs = []string{"offset", "start", "duration", "tcStart"}

type checkStats struct {
	version string
	clips   int
	frames  int64
	rates   []string
}

// checkCut looks over doc before it is written. Anything Final Cut Pro
// refuses on import is an error: a bad root or version, formats without an
// id or with an unreadable frameDuration, a cut project without a sequence
// and spine, unreadable times and refs to resources that do not exist.
// Oddities it tolerates are logged as warnings.
func (s *Store) checkCut(doc, project *xmltree.Node, rate timecode.FrameRate) (checkStats, error) {
	var errs []error
	var warns []string
	var st checkStats

	root := doc.Root()
	if root == nil || root.Name != "fcpxml" {
		return st, errors.New("root element is not <fcpxml>")
	}
	st.version = root.AttrOr("version", "")
	major, minor, ok := splitVersion(st.version)
	switch {
	case !ok:
		errs = append(errs, fmt.Errorf("version %q is not of the form N.N", st.version))
	case major != 1 || minor > 11:
		warns = append(warns, fmt.Sprintf("unusual fcpxml version %s", st.version))
	}

	ids := map[string]struct{}{}
	rates := map[string]struct{}{}
	if res := root.Child("resources"); res != nil {
		for _, el := range res.Elements() {
			if id := el.AttrOr("id", ""); id != "" {
				ids[id] = struct{}{}
			}
			if el.Name != "format" {
				continue
			}
			if el.AttrOr("id", "") == "" {
				errs = append(errs, errors.New("format without id"))
			}
			tick, ok := el.Attr("frameDuration")
			if !ok {
				continue
			}
			if t, err := timecode.ParseTime(tick); err != nil || t.Num <= 0 {
				errs = append(errs, fmt.Errorf("format %s: bad frameDuration %q", el.AttrOr("id", "?"), tick))
				continue
			}
			if fr, err := s.reg.Detect(tick, el.AttrOr("name", ""), false); err == nil {
				rates[fr.Name] = struct{}{}
			}
		}
	}
	for r := range rates {
		st.rates = append(st.rates, r)
	}
	sort.Strings(st.rates)
	if len(st.rates) > 1 {
		warns = append(warns, "mixed frame rates "+strings.Join(st.rates, ", "))
	}

	seq := project.Child("sequence")
	if seq == nil || seq.Child("spine") == nil {
		errs = append(errs, fmt.Errorf("project %q has no sequence spine", project.AttrOr("name", "")))
	} else {
		if f := seq.AttrOr("tcFormat", "NDF"); f != "NDF" && f != "DF" {
			warns = append(warns, fmt.Sprintf("unusual tcFormat %s", f))
		}
		for _, el := range seq.Child("spine").Elements() {
			if isPlacement(el.Name) {
				st.clips++
			}
		}
		if d, err := timecode.ParseIn(seq.AttrOr("duration", "0s"), rate); err == nil {
			st.frames = d.Frames()
		}
	}

	eachElement(project, func(el *xmltree.Node) {
		for _, name := range timeAttrs {
			if v, ok := el.Attr(name); ok {
				if _, err := timecode.ParseTime(v); err != nil {
					errs = append(errs, fmt.Errorf("<%s %s>: %w", el.Name, name, err))
				}
			}
		}
		if ref, ok := el.Attr("ref"); ok {
			if _, known := ids[ref]; !known {
				errs = append(errs, fmt.Errorf("<%s> refers to unknown resource %q", el.Name, ref))
			}
		}
	})
	for _, rep := range root.FindAll("media-rep") {
		if rep.AttrOr("src", "") == "" {
			errs = append(errs, errors.New("media-rep without src"))
		}
	}

	for _, w := range warns {
		s.log.WithField("project", project.AttrOr("name", "")).Warn(w)
	}
	if err := errors.Join(errs...); err != nil {
		return st, err
	}
	s.log.WithFields(logrus.Fields{
		"version": st.version,
		"clips":   st.clips,
		"frames":  st.frames,
		"rates":   strings.Join(st.rates, ","),
	}).Debug("cut document checked")
	return st, nil
}

func splitVersion(v string) (int, int, bool) {
	a, b, ok := strings.Cut(v, ".")
	if !ok {
		return 0, 0, false
	}
	major, err := strconv.Atoi(a)
	if err != nil || major < 0 {
		return 0, 0, false
	}
	minor, err := strconv.Atoi(b)
	if err != nil || minor < 0 {
		return 0, 0, false
	}
	return major, minor, true
}

func isPlacement(name string) bool {
	for _, n := range placementNames {
		if n == name {
			return true
		}
	}
	return false
}

func eachElement(n *xmltree.Node, fn func(*xmltree.Node)) {
	fn(n)
	for _, c := range n.Elements() {
		eachElement(c, fn)
	}
}
