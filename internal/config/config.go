// Package config loads the optional YAML tuning file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/autocut/internal/domain/cuts"
	"github.com/forPelevin/autocut/internal/domain/edits"
	"github.com/forPelevin/autocut/internal/domain/takes"
	"github.com/forPelevin/autocut/internal/domain/timecode"
)

type Config struct {
	Tuning    Tuning    `yaml:"tuning"`
	Tools     Tools     `yaml:"tools"`
	Cache     Cache     `yaml:"cache"`
	Endpoints Endpoints `yaml:"endpoints"`
}

type Tuning struct {
	ClusterWindow       float64 `yaml:"cluster_window" validate:"gt=0"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gt=0,lte=1"`
	MergeGap            float64 `yaml:"merge_gap" validate:"gte=0"`
	CleaningLevel       string  `yaml:"cleaning_level" validate:"cleaninglevel"`
	Profile             string  `yaml:"profile" validate:"oneof=scripted tutorial rough podcast aggressive"`
	DefaultFrameRate    string  `yaml:"default_frame_rate" validate:"framerate"`
}

type Tools struct {
	FFmpeg       string `yaml:"ffmpeg" validate:"required"`
	FFprobe      string `yaml:"ffprobe" validate:"required"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
	ASRModel     string `yaml:"asr_model"`
	Language     string `yaml:"language"`
}

type Cache struct {
	Dir string `yaml:"dir" validate:"required"`
}

func Default() Config {
	topt := takes.DefaultOptions()
	return Config{
		Tuning: Tuning{
			ClusterWindow:       topt.Window,
			SimilarityThreshold: topt.Threshold,
			MergeGap:            cuts.DefaultMergeGap,
			CleaningLevel:       string(topt.Level),
			Profile:             edits.DefaultProfile,
			DefaultFrameRate:    timecode.DefaultRateKey,
		},
		Tools: Tools{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
			ASRModel:     "whisper-1",
			Language:     "en",
		},
		Cache: Cache{Dir: ".cache"},
		Endpoints: Endpoints{
			OpenRouterBaseURL: "https://openrouter.ai",
		},
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv lets the environment override the file: CLEANING_LEVEL,
// AUTOCUT_CACHE_DIR and the base URL and allowed hosts of each endpoint.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("CLEANING_LEVEL")); v != "" {
		c.Tuning.CleaningLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("AUTOCUT_CACHE_DIR")); v != "" {
		c.Cache.Dir = v
	}
	for env, dst := range map[string]*string{
		"OPENROUTER_BASE_URL":      &c.Endpoints.OpenRouterBaseURL,
		"OPENROUTER_ALLOWED_HOSTS": &c.Endpoints.OpenRouterAllowedHosts,
		"OPENAI_BASE_URL":          &c.Endpoints.OpenAIBaseURL,
		"OPENAI_ALLOWED_HOSTS":     &c.Endpoints.OpenAIAllowedHosts,
	} {
		if v := getenv(env); v != "" {
			*dst = v
		}
	}
}

func (c Config) Validate() error {
	v := validator.New()
	for tag, fn := range map[string]validator.Func{
		"framerate":     validFrameRate,
		"cleaninglevel": validCleaningLevel,
		"endpoint":      validEndpoint,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "endpoint" {
			if err := c.Endpoints.check(fe.Param()); err != nil {
				msgs = append(msgs, err.Error())
				continue
			}
		}
		m := fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag())
		switch {
		case fe.Tag() == "framerate":
			m += fmt.Sprintf(" (want one of %s)", strings.Join(timecode.StandardRegistry().Keys(), ", "))
		case fe.Tag() == "cleaninglevel":
			_, lerr := takes.ParseLevel(fmt.Sprint(fe.Value()))
			m += fmt.Sprintf(" (%v)", lerr)
		case fe.Param() != "":
			m += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, m)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func validFrameRate(fl validator.FieldLevel) bool {
	_, ok := timecode.StandardRegistry().Lookup(fl.Field().String())
	return ok
}

func validCleaningLevel(fl validator.FieldLevel) bool {
	_, err := takes.ParseLevel(fl.Field().String())
	return err == nil
}

// TakeOptions converts the tuning section for takes.Select. A blank cleaning
// level means moderate.
func (t Tuning) TakeOptions() takes.Options {
	level, err := takes.ParseLevel(t.CleaningLevel)
	if err != nil {
		level = takes.LevelModerate
	}
	return takes.Options{
		Level:     level,
		Window:    t.ClusterWindow,
		Threshold: t.SimilarityThreshold,
	}
}
