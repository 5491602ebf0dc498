package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/selection"
)

var (
	accentColor   = lipgloss.Color("#5B8DEF")
	alertColor    = lipgloss.Color("#FF6B6B")
	okColor       = lipgloss.Color("#5FD787")
	warnColor     = lipgloss.Color("#FFB86C")
	mutedColor    = lipgloss.Color("#888888")
	dimColor      = lipgloss.Color("#555555")
	softTextColor = lipgloss.Color("#AAAAAA")
	borderColor   = lipgloss.Color("#444444")
)

// courseItem implements list.Item for one catalog row plus its verdict.
type courseItem struct {
	course  catalog.Course
	verdict selection.Eligibility
}

func (i courseItem) Title() string       { return i.course.Name }
func (i courseItem) Description() string { return describeCourse(i.course) }
func (i courseItem) FilterValue() string { return i.course.Name + " " + i.course.Code }

func describeCourse(c catalog.Course) string {
	var parts []string
	if c.Professor != "" {
		parts = append(parts, c.Professor)
	}
	if c.Sessions != "" {
		parts = append(parts, fmt.Sprintf("%s sessions", c.Sessions))
	}
	return strings.Join(parts, " · ")
}

// buildItems pairs every course with its verdict, in catalog order.
func buildItems(cat *catalog.Catalog, ev selection.Evaluation) []list.Item {
	courses := cat.Courses()
	items := make([]list.Item, 0, len(courses))
	for i, course := range courses {
		verdict := selection.Eligibility{Code: course.Code, Name: course.Name, Eligible: true}
		if i < len(ev.Courses) && ev.Courses[i].Code == course.Code {
			verdict = ev.Courses[i]
		}
		items = append(items, courseItem{course: course, verdict: verdict})
	}
	return items
}

// courseDelegate renders a course as a checkbox row with a detail line.
type courseDelegate struct {
	names func(code string) string
}

func (d courseDelegate) Height() int                             { return 2 }
func (d courseDelegate) Spacing() int                            { return 1 }
func (d courseDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d courseDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(courseItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderCourseRow(item, index == m.Index(), m.Width(), d.names))
}

func renderCourseRow(item courseItem, focused bool, width int, names func(string) string) string {
	cursor := "  "
	if focused {
		cursor = "› "
	}
	box := "[ ]"
	if item.verdict.Selected {
		box = "[x]"
	}
	titleStyle := lipgloss.NewStyle()
	detailStyle := lipgloss.NewStyle().Foreground(mutedColor)
	switch {
	case item.verdict.Selected:
		titleStyle = titleStyle.Bold(true).Foreground(okColor)
	case !item.verdict.Eligible:
		titleStyle = titleStyle.Foreground(dimColor)
		detailStyle = detailStyle.Foreground(dimColor)
	case focused:
		titleStyle = titleStyle.Bold(true).Foreground(accentColor)
	}
	if focused {
		box = lipgloss.NewStyle().Foreground(accentColor).Render(box)
	}
	title := fmt.Sprintf("%s%s %s %s", cursor, box,
		titleStyle.Render(item.course.Name),
		detailStyle.Render(fmt.Sprintf("(Code: %s)", item.course.Code)))

	detail := describeCourse(item.course)
	if !item.verdict.Selected && !item.verdict.Eligible {
		detail = blockedDetail(item.verdict, names)
		detailStyle = detailStyle.Foreground(warnColor)
		if item.verdict.Reason == selection.ReasonIncompatible {
			detailStyle = detailStyle.Foreground(alertColor)
		}
	}
	if detail == "" {
		detail = " "
	}
	line := "      " + detailStyle.Render(detail)
	if width > 0 {
		title = lipgloss.NewStyle().MaxWidth(width).Render(title)
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return title + "\n" + line
}

func blockedDetail(v selection.Eligibility, names func(string) string) string {
	switch v.Reason {
	case selection.ReasonLimit:
		return "⚠ " + string(selection.ReasonLimit)
	case selection.ReasonIncompatible:
		if len(v.BlockedBy) == 0 || names == nil {
			return "✗ " + string(selection.ReasonIncompatible)
		}
		by := make([]string, 0, len(v.BlockedBy))
		for _, code := range v.BlockedBy {
			by = append(by, names(code))
		}
		return "✗ Incompatible with " + strings.Join(by, ", ")
	default:
		return string(v.Reason)
	}
}
