package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "autocut <input.fcpxml>",
		Short:        "Cut repeated takes and filler out of a multicam FCPXML project",
		Version:      version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	f := root.Flags()
	f.StringP("out", "o", "out", "Output directory")
	f.String("cleaning", "", "Filler cleaning level: light, moderate or aggressive")
	f.String("profile", "", "Editing profile: scripted, tutorial, rough, podcast or aggressive")
	f.Bool("no-edit", false, "Skip the LLM transcript editing pass")
	f.String("method", "api", "Transcription method: api, local or demo")
	f.Bool("no-cache", false, "Don't use cached transcripts")
	f.Bool("force-retranscribe", false, "Transcribe again even if a cached transcript exists")
	f.Bool("keep-temp", false, "Keep extracted audio and scratch files")
	f.String("config", "", "YAML file with tuning overrides")
	f.BoolP("verbose", "v", false, "Enable debug logging")
	f.String("log-format", "text", "Log format: text or json")

	return root
}
