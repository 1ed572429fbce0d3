// Package cli implements the ytrag command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ytrag/internal/config"
	"ytrag/internal/logger"
)

var (
	configPath string
	envFile    string
	verbose    bool

	appConfig  *config.AppConfig
	appLog     = zap.NewNop()
	logCleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "ytrag [url]",
	Short: "Ask questions about a YouTube video",
	Long: `ytrag fetches a video's transcript, indexes it for semantic search and
answers questions using only what is said in the video.

Run without a subcommand to open the interactive chat.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/ytrag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// Execute runs the root command with results written to stdout.
func Execute(ctx context.Context) error {
	defer func() { logCleanup() }()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// setup loads secrets, configuration and the logger before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	var err error
	if configPath != "" {
		appConfig, err = config.Load(configPath)
	} else {
		appConfig, _, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	opts := logger.Options{Level: appConfig.Log.Level, File: appConfig.Log.File, Console: os.Stderr}
	if verbose {
		opts.Level = "debug"
	}
	// The chat screen owns the terminal.
	if isChat(cmd) {
		opts.Console = nil
	}
	appLog, logCleanup, err = logger.New(opts)
	return err
}

// isChat reports whether cmd opens the chat screen. The root command is
// matched by having no parent since rootCmd's initializer refers to setup.
func isChat(cmd *cobra.Command) bool {
	return cmd.Parent() == nil || cmd == chatCmd
}
