// cmd/coursepick/main.go
//
// This is the entry point for the coursepick CLI.
// Running `coursepick` with no subcommand loads the catalog and opens the
// interactive picker; `check`, `validate` and `serve` are the non-interactive
// surfaces over the same rules.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/config"
	"github.com/kingrea/coursepick/internal/logging"
)

var (
	// Global flags
	catalogFlag   string
	delimiterFlag string
	limitFlag     int
	verbose       bool

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:   "coursepick",
	Short: "Pick up to five courses without incompatible combinations",
	Long: `coursepick loads a course table and lets you select courses while
enforcing the incompatibilities each course declares.

Run without arguments to start the interactive picker.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			_ = closeLog()
		}
	},
	RunE: runPicker,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&catalogFlag, "catalog", "", "path to the course table (default from .coursepick/config.yaml)")
	flags.StringVar(&delimiterFlag, "delimiter", "", "field delimiter of the course table")
	flags.IntVar(&limitFlag, "limit", 0, "maximum number of selected courses")
	flags.BoolVarP(&verbose, "verbose", "v", false, "write debug entries to the log")

	rootCmd.AddCommand(checkCmd, validateCmd, serveCmd)
}

// setup prepares the .coursepick directory, config and logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	if err := config.InitDir(cwd); err != nil {
		return fmt.Errorf("initialize %s directory: %w", config.ProjectDirName, err)
	}
	cfg, err = config.NewConfig(cwd)
	if err != nil {
		return err
	}
	if err := cfg.Override(catalogFlag, delimiterFlag, limitFlag); err != nil {
		return err
	}
	logger, closeLog, err = logging.New(cfg.LogsDir(), verbose)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("command", cmd.Name()))
	return nil
}

// loadCatalog reads the configured course table. Any error here halts startup.
func loadCatalog() (*catalog.Catalog, catalog.LoadReport, error) {
	path := cfg.CatalogPath()
	cat, report, err := catalog.Load(path, cfg.CatalogOptions())
	if err != nil {
		logger.Error("catalog load failed", zap.String("path", path), zap.Error(err))
		return nil, report, fmt.Errorf("could not load course table: %w", err)
	}
	for _, row := range report.Dropped {
		logger.Debug("catalog row dropped",
			zap.Int("line", row.Line),
			zap.String("reason", string(row.Reason)),
			zap.String("code", row.Code),
		)
	}
	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("courses", report.Accepted),
		zap.Int("dropped", len(report.Dropped)),
	)
	return cat, report, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
