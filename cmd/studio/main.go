package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vyvo/studio/pkg/config"
	"github.com/vyvo/studio/pkg/logging"
)

var (
	envFileFlag  string
	logLevelFlag string

	cfg    config.Config
	logger zerolog.Logger
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Chat with an assistant and generate images from prompts",
	Long: `Studio talks to the Mystic image-generation API and an Anthropic-compatible
chat model. Generations are submitted once and polled every two seconds until
they complete, fail, or are interrupted with Ctrl-C.

Examples:
  studio generate "a lighthouse at dusk, oil painting"
  studio chat
  studio watch 4f9c2d --gateway http://localhost:8080`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Path to a dotenv file with API keys")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(generateCmd, chatCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadWith(config.Options{ConfigDir: "./configs", EnvFile: envFileFlag})
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	format := cfg.LogFormat
	if format == "" || format == "json" {
		format = "console"
	}
	logger = logging.NewWithWriter(os.Stderr, level, format)
	return nil
}
