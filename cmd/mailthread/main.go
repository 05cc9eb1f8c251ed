// Command mailthread rebuilds email threads from raw messages, extracts
// purchase order, phase and site tokens, and serves the result over MCP and
// a JSON API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hal9000y/mailthread/internal/config"
)

var (
	configFile string
	envFile    string
	verbose    bool
	logFile    string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailthread",
	Short: "Email thread reconstruction and search",
	Long: `mailthread turns raw email records into threads, reply edges and a
token-annotated search table, and serves them to MCP clients and the
dashboard.

Typical flow:
  mailthread fetch    # Gmail -> records.json (optional)
  mailthread build    # records -> threads.json, edges.csv, search.csv
  mailthread serve    # load, validate and answer queries`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile, envFile)
		if err != nil {
			return fmt.Errorf("config.Load failed: %w", err)
		}
		if cmd.Flags().Changed("verbose") {
			cfg.Log.Verbose = verbose
		}
		if logFile != "" {
			cfg.Log.File = logFile
		}

		logger, err = newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newLogger builds a production zap logger. It never writes to stdout, so
// the stdio MCP transport stays clean.
func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if c.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if c.File != "" {
		zc.OutputPaths = []string{c.File}
		zc.ErrorOutputPaths = []string{c.File}
	}

	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "mailthread.yaml", "Path to the YAML config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(tokensCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
