package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/docmakerhq/docmaker/internal/config"
)

var (
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docmaker",
	Short: "DocMaker - campaign proposal and deck generation service",
	Long: `DocMaker turns uploaded client briefs into campaign proposals and
slide decks. It parses the brief, extracts structured campaign fields,
researches the brand, shortlists influencers, generates visuals, and
builds a slide deck in stages, storing everything as a merge-patchable
document served over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is a development convenience; absence is fine.
		_ = godotenv.Load()
		cfg = config.Load()

		zapCfg := zap.NewProductionConfig()
		if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		var err error
		logger, err = zapCfg.Build()
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

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
