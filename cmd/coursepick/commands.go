package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/httpapi"
	"github.com/kingrea/coursepick/internal/logbook"
	"github.com/kingrea/coursepick/internal/report"
	"github.com/kingrea/coursepick/internal/selection"
	"github.com/kingrea/coursepick/internal/tui"
)

var fromReport string

var checkCmd = &cobra.Command{
	Use:   "check [codes...]",
	Short: "Apply a selection in order and print the summary and conflicts",
	Long: `Applies each code in order through the same rules as the picker.
Codes that cannot be selected are reported and skipped.

Example:
  coursepick check 101 104 --from .coursepick/reports/selection-20240902-090000.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := loadCatalog()
		if err != nil {
			return err
		}
		seed := selection.State{}
		if fromReport != "" {
			_, seed, err = report.Read(fromReport)
			if err != nil {
				return err
			}
		}
		eval := selection.New(cat, cfg.Limit())
		return runCheck(cmd.OutOrStdout(), eval, seed, args)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the course table and report dropped rows and one-way incompatibilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, loadReport, err := loadCatalog()
		if err != nil {
			return err
		}
		writeValidation(cmd.OutOrStdout(), cfg.CatalogPath(), cat, loadReport)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog and the selection rules as a JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := loadCatalog()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %d courses on %s\n", cat.Len(), cfg.ServerAddr())
		return httpapi.NewServer(cfg.ServerAddr(), cat, cfg.Limit(), logger).Run()
	},
}

func init() {
	checkCmd.Flags().StringVar(&fromReport, "from", "", "seed the selection from a saved report")
}

// runPicker launches the TUI.
func runPicker(cmd *cobra.Command, args []string) error {
	cat, _, err := loadCatalog()
	if err != nil {
		return err
	}
	book, err := logbook.New(filepath.Join(cfg.LogsDir(), logbook.FileName))
	if err != nil {
		logger.Warn("logbook unavailable", zap.Error(err))
	}
	store := report.NewStore(cfg.ReportsDir(), report.WithCatalogPath(cfg.CatalogPath()))
	app := tui.NewApp(cat,
		tui.WithLimit(cfg.Limit()),
		tui.WithLogbook(book),
		tui.WithLogger(logger),
		tui.WithReportStore(store),
	)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

// runCheck applies codes on top of seed and writes a plain-text summary.
func runCheck(out io.Writer, eval selection.Evaluator, seed selection.State, codes []string) error {
	state := selection.State{}
	for _, code := range append(seed.Selected(), codes...) {
		code = strings.TrimSpace(code)
		if normalized, ok := catalog.NormalizeCode(code); ok {
			code = normalized
		}
		next, outcome := eval.Apply(state, code, true)
		if err := outcome.Err(); err != nil {
			fmt.Fprintf(out, "skipped %s: %s\n", code, outcome.Reason)
			continue
		}
		state = next
	}
	ev := eval.Evaluate(state)

	fmt.Fprintf(out, "Selected courses (%d/%d):\n", len(ev.Selected), ev.Limit)
	if len(ev.Selected) == 0 {
		fmt.Fprintln(out, "  No courses selected.")
	}
	for _, course := range ev.Selected {
		fmt.Fprintf(out, "  • %s (Code: %s)\n", course.Name, course.Code)
	}
	if ev.LimitReached {
		fmt.Fprintf(out, "You have selected %d courses. Deselect one to add others.\n", len(ev.Selected))
	}
	fmt.Fprintln(out, "Incompatible courses:")
	switch {
	case len(ev.Selected) == 0:
		fmt.Fprintln(out, "  Select courses to see incompatibility information.")
	case len(ev.Conflicts) == 0:
		fmt.Fprintln(out, "  No conflicts! All selected courses are compatible.")
	default:
		for _, name := range ev.Conflicts {
			fmt.Fprintf(out, "  • %s\n", name)
		}
	}
	return nil
}

func writeValidation(out io.Writer, path string, cat *catalog.Catalog, loadReport catalog.LoadReport) {
	fmt.Fprintf(out, "%s: %d courses (header on line %d)\n", path, loadReport.Accepted, loadReport.HeaderLine)
	if len(loadReport.Dropped) > 0 {
		fmt.Fprintf(out, "Dropped %d rows:\n", len(loadReport.Dropped))
		for _, row := range loadReport.Dropped {
			if row.Code != "" {
				fmt.Fprintf(out, "  line %d (%s): %s\n", row.Line, row.Code, row.Reason)
				continue
			}
			fmt.Fprintf(out, "  line %d: %s\n", row.Line, row.Reason)
		}
	}
	asymmetric := cat.Asymmetric()
	if len(asymmetric) == 0 {
		fmt.Fprintln(out, "All incompatibilities are declared in both directions.")
		return
	}
	fmt.Fprintf(out, "%d incompatibilities are declared in one direction only:\n", len(asymmetric))
	for _, pair := range asymmetric {
		from, _ := cat.Name(pair.From)
		to, _ := cat.Name(pair.To)
		fmt.Fprintf(out, "  %s (%s) lists %s (%s), not the reverse\n", from, pair.From, to, pair.To)
	}
}
