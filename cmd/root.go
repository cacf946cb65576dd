package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/exval-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global

	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   "exval",
	Short: "exval: find exceptional values in tabular data",
	Long: `exval flags the cells of a CSV/TSV/XLSX table whose response value departs
from what its dimension combination and main effects predict.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.exval/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
	} else {
		cfg = c
	}
	logger = newLogger(os.Stderr)
}

// newLogger builds the stderr logger from log_level, or debug when --debug is set.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		if l, err := cfgpkg.ParseLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// effectiveConfig returns the loaded config, or defaults when loading failed.
func effectiveConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return cfgpkg.Defaults()
}
