package main

import (
	"fmt"
	"time"

	"TutorChat/internal/chatbot"
	"TutorChat/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	apiURL      string
	timeout     time.Duration
	logDir      string
	debug       bool
	telemetry   bool
	journalOn   bool
	journalPath string
	noColor     bool
	version     string = "dev"
)

// rootCmd runs the interactive exercise when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tutorchat",
	Short: "Practice translation with a remote evaluation service",
	Long: `An interactive translation exercise in the terminal.

The teacher hands out a task, you type your translation, and the evaluation
service checks it. A new task follows every successful check.

Configuration is read from the environment (and a .env file when present):
  TUTOR_API_URL, TUTOR_TIMEOUT, TUTOR_LOG_DIR, TUTOR_DEBUG,
  TUTOR_TELEMETRY_ENABLED, TUTOR_JOURNAL_ENABLED, TUTOR_JOURNAL_PATH,
  TUTOR_NO_COLOR
Flags take precedence over the environment.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		bot, err := chatbot.NewChatBot(cfg,
			chatbot.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
			chatbot.WithVersion(version),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize chatbot: %w", err)
		}

		return bot.Run(cmd.Context())
	},
}

// loadConfig resolves configuration from .env, the environment and flags,
// in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.BaseURL = apiURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = logDir
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if flags.Changed("telemetry") {
		cfg.Telemetry = telemetry
	}
	if flags.Changed("journal") {
		cfg.JournalEnabled = journalOn
	}
	if flags.Changed("journal-path") {
		cfg.JournalPath = journalPath
	}
	if flags.Changed("no-color") {
		cfg.NoColor = noColor
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func init() {
	def := config.Default()

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", def.BaseURL, "Evaluation service base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", def.Timeout, "Per-request timeout (0 disables it)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", def.LogDir, "Directory for log, trace and metric files")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&telemetry, "telemetry", def.Telemetry, "Export traces and metrics to the log directory")
	rootCmd.PersistentFlags().BoolVar(&journalOn, "journal", false, "Record evaluated attempts in the journal")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal-path", def.JournalPath, "Path to the attempt journal database")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
