package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/forPelevin/autocut/internal/config"
	"github.com/forPelevin/autocut/internal/types"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Interview.fcpxml", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-interview-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-interview-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

const sampleProject = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE fcpxml>
<fcpxml version="1.10">
    <resources>
        <format id="r1" name="FFVideoFormat1080p2997" frameDuration="1001/30000s" width="1920" height="1080"/>
        <asset id="r2" name="CamA" start="0s" duration="1801800/30000s" hasVideo="1" hasAudio="1" audioChannels="2" format="r1">
            <media-rep kind="original-media" src="file:///media/CamA.mov"/>
        </asset>
        <asset id="r3" name="Lav" start="0s" duration="1801800/30000s" hasAudio="1" audioChannels="1">
            <media-rep kind="original-media" src="file:///media/Lav.wav"/>
        </asset>
        <media id="r4" name="Interview">
            <multicam format="r1">
                <mc-angle name="Cam A" angleID="A"><asset-clip ref="r2" offset="0s" duration="1801800/30000s"/></mc-angle>
                <mc-angle name="Lav" angleID="L"><asset-clip ref="r3" offset="0s" duration="1801800/30000s"/></mc-angle>
            </multicam>
        </media>
    </resources>
    <library>
        <event name="Shoot">
            <project name="Demo Project">
                <sequence format="r1" duration="1801800/30000s" tcStart="0s" tcFormat="DF">
                    <spine>
                        <mc-clip ref="r4" offset="0s" name="Interview" duration="1801800/30000s"/>
                    </spine>
                </sequence>
            </project>
        </event>
    </library>
</fcpxml>
`

func demoConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "Demo Shoot.fcpxml")
	if err := os.WriteFile(in, []byte(sampleProject), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	s := config.Default()
	s.Cache.Dir = filepath.Join(dir, "cache")
	log, _ := test.NewNullLogger()
	return Config{
		InputFCPXML: in,
		OutDir:      filepath.Join(dir, "out"),
		Method:      MethodDemo,
		UseCache:    true,
		Settings:    s,
		Log:         log,
	}
}

func TestRun_Demo(t *testing.T) {
	cfg := demoConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	out, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if filepath.Dir(out.RunDir) != cfg.OutDir || !strings.HasPrefix(filepath.Base(out.RunDir), "demo-shoot-") {
		t.Fatalf("run dir = %s", out.RunDir)
	}
	if filepath.Base(out.ProjectPath) != "Demo Shoot_AutoCut.fcpxml" {
		t.Fatalf("project path = %s", out.ProjectPath)
	}

	b, err := os.ReadFile(out.ProjectPath)
	if err != nil {
		t.Fatalf("read project: %v", err)
	}
	if !strings.Contains(string(b), `name="Demo Project_AutoCut_`) || !strings.Contains(string(b), "Interview - Cut 1") {
		t.Fatalf("unexpected project output:\n%s", b)
	}

	rb, err := os.ReadFile(out.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep types.Report
	if err := json.Unmarshal(rb, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.NothingSurvived || rep.Cut.KeepCount == 0 || rep.Edited || rep.TranscriptCache != "disabled" {
		t.Fatalf("report = %+v", rep)
	}
	if rep.CleaningStats.OriginalSegmentCount != 21 {
		t.Fatalf("stats = %+v", rep.CleaningStats)
	}

	info, err := os.ReadFile(filepath.Join(out.RunDir, "source_info.txt"))
	if err != nil || !strings.Contains(string(info), "Cleaning level: moderate") {
		t.Fatalf("source info = %q, %v", info, err)
	}
	if _, err := os.Stat(filepath.Join(out.RunDir, "edited_transcript_debug.txt")); !os.IsNotExist(err) {
		t.Fatalf("unexpected debug file, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Settings.Cache.Dir, "runs", hash(cfg.InputFCPXML))); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed, stat err=%v", err)
	}
}

func TestRun_KeepTemp(t *testing.T) {
	cfg := demoConfig(t)
	cfg.KeepTemp = true
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Settings.Cache.Dir, "runs", hash(cfg.InputFCPXML))); err != nil {
		t.Fatalf("scratch dir should remain: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"demo ok", func(c *Config) {}, ""},
		{"missing input", func(c *Config) { c.InputFCPXML = filepath.Join(t.TempDir(), "none.fcpxml") }, "stat input"},
		{"empty input", func(c *Config) { c.InputFCPXML = "" }, "input is empty"},
		{"unknown method", func(c *Config) { c.Method = "cloud" }, "unknown method"},
		{"api without key", func(c *Config) { c.Method = MethodAPI }, "OPENAI_API_KEY"},
		{"api with key", func(c *Config) { c.Method = MethodAPI; c.OpenAIAPIKey = "sk" }, ""},
		{"local without model", func(c *Config) { c.Method = MethodLocal; c.Settings.Tools.WhisperModel = "" }, "whisper model"},
		{"edit without key", func(c *Config) { c.Edit = true }, "OPENROUTER_API_KEY"},
		{"edit with http base", func(c *Config) {
			c.Edit = true
			c.OpenRouterAPIKey = "k"
			c.Settings.Endpoints.OpenRouterBaseURL = "http://openrouter.ai"
		}, "https is required"},
		{"openai proxy not allowed", func(c *Config) {
			c.Method = MethodAPI
			c.OpenAIAPIKey = "sk"
			c.Settings.Endpoints.OpenAIBaseURL = "https://proxy.internal/v1"
		}, "is not in OPENAI_ALLOWED_HOSTS"},
		{"openai proxy allowed", func(c *Config) {
			c.Method = MethodAPI
			c.OpenAIAPIKey = "sk"
			c.Settings.Endpoints.OpenAIBaseURL = "https://proxy.internal/v1"
			c.Settings.Endpoints.OpenAIAllowedHosts = "proxy.internal"
		}, ""},
		{"edit ok", func(c *Config) { c.Edit = true; c.OpenRouterAPIKey = "k" }, ""},
		{"bad tuning", func(c *Config) { c.Settings.Tuning.SimilarityThreshold = 2 }, "SimilarityThreshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := demoConfig(t)
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("err = %v, want %q", err, tt.wantSub)
			}
		})
	}
}
