package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forPelevin/autocut/internal/config"
	"github.com/forPelevin/autocut/internal/logging"
	"github.com/forPelevin/autocut/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	flags := cmd.Flags()
	outDir, _ := flags.GetString("out")
	cleaning, _ := flags.GetString("cleaning")
	profile, _ := flags.GetString("profile")
	noEdit, _ := flags.GetBool("no-edit")
	method, _ := flags.GetString("method")
	noCache, _ := flags.GetBool("no-cache")
	force, _ := flags.GetBool("force-retranscribe")
	keepTemp, _ := flags.GetBool("keep-temp")
	configPath, _ := flags.GetString("config")
	verbose, _ := flags.GetBool("verbose")
	logFormat, _ := flags.GetString("log-format")

	log, err := logging.New(cmd.ErrOrStderr(), logFormat, verbose)
	if err != nil {
		return err
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	settings.ApplyEnv(os.Getenv)
	if cleaning != "" {
		settings.Tuning.CleaningLevel = strings.ToLower(cleaning)
	}
	if profile != "" {
		settings.Tuning.Profile = strings.ToLower(profile)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		InputFCPXML:       absIn,
		OutDir:            outDir,
		Method:            strings.ToLower(method),
		Edit:              !noEdit,
		UseCache:          !noCache,
		ForceRetranscribe: force,
		KeepTemp:          keepTemp,
		Settings:          settings,
		Log:               log,

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getenvDefault("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log.WithFields(logrus.Fields{
		"input":    absIn,
		"method":   cfg.Method,
		"cleaning": settings.Tuning.CleaningLevel,
		"edit":     cfg.Edit,
		"cache":    cfg.UseCache,
	}).Info("starting auto-cut")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	out, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	rep := out.Result.Report
	fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", out.ProjectPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", out.ReportPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Duration: %.1fs -> %.1fs (saved %.1fs)\n",
		rep.Cut.OriginalDuration, rep.Cut.CleanedDuration, rep.TimeSaved)
	if rep.NothingSurvived {
		fmt.Fprintln(cmd.OutOrStdout(), "Warning: nothing survived the cut; the project is empty")
	}
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
