// internal/tui/app.go
//
// This is the interactive course picker. It uses bubbletea, which follows
// The Elm Architecture:
//
// 1. Model: the catalog, the selection state and its latest evaluation
// 2. Update: applies a key press to the state and re-evaluates everything
// 3. View: renders the evaluation to a string
//
// Every state change re-runs selection.Evaluate over the whole catalog and
// rebuilds every list row, so what is on screen is always a pure function of
// (catalog, state).

package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/logbook"
	"github.com/kingrea/coursepick/internal/report"
	"github.com/kingrea/coursepick/internal/selection"
)

const (
	sidePanelMinWidth = 36
	logPanelLines     = 6
)

type keyMap struct {
	Toggle key.Binding
	Save   key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "select/deselect")),
		Save:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save report")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLimit sets the maximum number of selected courses.
func WithLimit(limit int) AppOption {
	return func(a *App) {
		a.evaluator.Limit = limit
	}
}

// WithLogbook attaches the session journal shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithLogger attaches the structured logger.
func WithLogger(logger *zap.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithReportStore enables saving reports with the save key.
func WithReportStore(store *report.Store) AppOption {
	return func(a *App) {
		a.reports = store
	}
}

// WithInitialState seeds the selection, e.g. from a saved report. Each code
// goes through the normal rules, so rejected codes are dropped.
func WithInitialState(st selection.State) AppOption {
	return func(a *App) {
		a.seed = st.Selected()
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	catalog    *catalog.Catalog
	evaluator  selection.Evaluator
	state      selection.State
	evaluation selection.Evaluation
	seed       []string

	logbook *logbook.Logbook
	logger  *zap.Logger
	reports *report.Store

	courses   list.Model
	keys      keyMap
	statusMsg string

	width  int
	height int
}

// NewApp creates a picker over cat with nothing selected.
func NewApp(cat *catalog.Catalog, opts ...AppOption) *App {
	app := &App{
		catalog:   cat,
		evaluator: selection.New(cat, selection.DefaultLimit),
		logger:    zap.NewNop(),
		keys:      defaultKeyMap(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	delegate := courseDelegate{names: app.courseName}
	courses := list.New(nil, delegate, 0, 0)
	courses.Title = "📋 Course List"
	courses.SetShowStatusBar(false)
	courses.DisableQuitKeybindings()
	courses.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accentColor).Padding(0, 1)
	courses.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{app.keys.Toggle, app.keys.Save, app.keys.Clear, app.keys.Quit}
	}
	app.courses = courses

	for _, code := range app.seed {
		next, outcome := app.evaluator.Apply(app.state, code, true)
		if !outcome.Applied {
			app.logbook.SeedDropped(outcome)
			continue
		}
		app.state = next
	}
	app.seed = nil
	app.reevaluate()
	app.logbook.Opened(cat.Len(), app.evaluation.Limit)
	return app
}

// State returns the current selection.
func (a *App) State() selection.State {
	return a.state
}

// Evaluation returns the evaluation of the current selection.
func (a *App) Evaluation() selection.Evaluation {
	return a.evaluation
}

func (a *App) courseName(code string) string {
	if name, ok := a.catalog.Name(code); ok {
		return name
	}
	return code
}

// reevaluate recomputes every verdict and rebuilds the list rows.
func (a *App) reevaluate() tea.Cmd {
	a.evaluation = a.evaluator.Evaluate(a.state)
	return a.courses.SetItems(buildItems(a.catalog, a.evaluation))
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		// While the filter prompt is open every key belongs to the list.
		if a.courses.FilterState() != list.Filtering {
			switch {
			case key.Matches(msg, a.keys.Quit):
				a.logbook.Closed(a.state.Count(), a.evaluation.Limit)
				return a, tea.Quit
			case key.Matches(msg, a.keys.Toggle):
				return a, a.toggleCurrent()
			case key.Matches(msg, a.keys.Save):
				a.saveReport()
				return a, nil
			case key.Matches(msg, a.keys.Clear):
				return a, a.clearSelection()
			}
		}
	}

	var cmd tea.Cmd
	a.courses, cmd = a.courses.Update(msg)
	return a, cmd
}

func (a *App) toggleCurrent() tea.Cmd {
	item, ok := a.courses.SelectedItem().(courseItem)
	if !ok {
		return nil
	}
	return a.toggle(item.course.Code)
}

// toggle flips the decision for code and re-evaluates the whole view.
func (a *App) toggle(code string) tea.Cmd {
	name := a.courseName(code)
	next, outcome := a.evaluator.Toggle(a.state, code)
	if !outcome.Applied {
		a.statusMsg = fmt.Sprintf("%s cannot be selected: %s", name, outcome.Reason)
		a.logbook.Decision(name, outcome, a.state.Count(), a.evaluation.Limit)
		a.logger.Info("selection rejected", zap.String("code", code), zap.String("reason", string(outcome.Reason)))
		return nil
	}
	a.state = next
	verb := "Deselected"
	if outcome.Select {
		verb = "Selected"
	}
	a.statusMsg = fmt.Sprintf("%s %s", verb, name)
	a.logbook.Decision(name, outcome, a.state.Count(), a.evaluation.Limit)
	a.logger.Info("selection applied",
		zap.String("code", code),
		zap.Bool("selected", outcome.Select),
		zap.Strings("state", a.state.Selected()),
	)
	return a.reevaluate()
}

func (a *App) clearSelection() tea.Cmd {
	if a.state.Count() == 0 {
		return nil
	}
	a.logbook.Cleared(a.state.Count())
	a.state = selection.State{}
	a.statusMsg = "Selection cleared"
	return a.reevaluate()
}

func (a *App) saveReport() {
	if a.reports == nil {
		a.statusMsg = "Reports are not configured"
		return
	}
	path, err := a.reports.Write(a.state, a.evaluation)
	if err != nil {
		a.statusMsg = fmt.Sprintf("Saving report failed: %v", err)
		a.logbook.ReportFailed(err)
		a.logger.Error("report write failed", zap.Error(err))
		return
	}
	a.statusMsg = fmt.Sprintf("Report saved to %s", path)
	a.logbook.ReportSaved(path)
	a.logger.Info("report written", zap.String("path", path))
}

func (a *App) layout() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(sidePanelMinWidth, width/3)
	leftWidth := width - rightWidth - 2
	if leftWidth < 40 {
		return width, 0
	}
	return leftWidth, rightWidth
}

func (a *App) resize() {
	leftWidth, _ := a.layout()
	a.courses.SetSize(max(20, leftWidth-2), max(6, a.height-6))
}

// View renders the current state to a string.
func (a *App) View() string {
	leftWidth, rightWidth := a.layout()
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(alertColor).
		Render("🎓 Interactive Course Selection Tool")
	intro := lipgloss.NewStyle().
		Foreground(softTextColor).
		Render(fmt.Sprintf("Choose up to %d courses. Incompatible options are greyed out but stay visible.", a.evaluation.Limit))

	left := lipgloss.NewStyle().Width(leftWidth).Render(a.courses.View())
	body := left
	if rightWidth > 0 {
		side := lipgloss.JoinVertical(lipgloss.Left,
			RenderSummary(a.evaluation, rightWidth-4),
			a.renderLogPanel(rightWidth-4),
		)
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", side)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, intro, "", body, a.renderStatusLine())
}

func (a *App) renderStatusLine() string {
	if a.statusMsg == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Render(a.statusMsg)
}

func (a *App) renderLogPanel(width int) string {
	if a.logbook == nil {
		return ""
	}
	entries, total := a.logbook.Tail(logPanelLines)
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, formatLogEntry(entry))
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render(fmt.Sprintf("LOG · %s (%d)", filepath.Base(a.logbook.Path()), total))
	body := lipgloss.NewStyle().
		Foreground(softTextColor).
		Width(max(20, width)).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(head + "\n" + body)
}

func formatLogEntry(entry logbook.Entry) string {
	if entry.Event == "" {
		return entry.Text
	}
	style := lipgloss.NewStyle().Foreground(okColor)
	switch entry.Event {
	case logbook.EventRejected, logbook.EventSeedDrop:
		style = style.Foreground(warnColor)
	case logbook.EventSaveFailed:
		style = style.Foreground(alertColor)
	}
	return fmt.Sprintf("%s %s %s", entry.Time.Local().Format("15:04:05"), style.Render(string(entry.Event)), entry.Text)
}

// RenderSummary renders the limit warning, the selected courses and the
// conflict report for one evaluation. It depends on nothing but its input.
func RenderSummary(ev selection.Evaluation, width int) string {
	width = max(20, width)
	heading := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	muted := lipgloss.NewStyle().Foreground(mutedColor)
	var sections []string

	if ev.LimitReached {
		sections = append(sections, lipgloss.NewStyle().Foreground(warnColor).Width(width).Render(
			fmt.Sprintf("⚠ You have selected %d courses. Deselect one to add others.", len(ev.Selected))))
	}

	selected := []string{heading.Render(fmt.Sprintf("✅ Selected Courses (%d/%d)", len(ev.Selected), ev.Limit))}
	if len(ev.Selected) == 0 {
		selected = append(selected, muted.Render("No courses selected."))
	}
	for _, course := range ev.Selected {
		selected = append(selected, "• "+course.Name)
	}
	sections = append(sections, strings.Join(selected, "\n"))

	conflicts := []string{heading.Render("🚫 Incompatible Courses")}
	switch {
	case len(ev.Selected) == 0:
		conflicts = append(conflicts, muted.Render("Select courses to see incompatibility information."))
	case len(ev.Conflicts) == 0:
		conflicts = append(conflicts, lipgloss.NewStyle().Foreground(okColor).Render("No conflicts! 🎉 All selected courses are compatible."))
	default:
		conflicts = append(conflicts, lipgloss.NewStyle().Foreground(alertColor).Width(width).Render(
			"The following courses are not compatible with your current selection:"))
		for _, name := range ev.Conflicts {
			conflicts = append(conflicts, "• "+name)
		}
	}
	sections = append(sections, strings.Join(conflicts, "\n"))

	if len(ev.Clashes) > 0 {
		clashes := []string{lipgloss.NewStyle().Bold(true).Foreground(alertColor).Render("Clashing selections")}
		for _, pair := range ev.Clashes {
			clashes = append(clashes, fmt.Sprintf("• %s (%s) excludes %s (%s)",
				ev.SelectedName(pair.From), pair.From, ev.SelectedName(pair.To), pair.To))
		}
		sections = append(sections, strings.Join(clashes, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(sections, "\n\n"))
}
