// Package logbook keeps the session journal: one fixed-format line per
// selection event, shown in the TUI log panel and kept on disk next to the
// structured log.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/coursepick/internal/selection"
)

// FileName is the journal file inside the logs directory.
const FileName = "session.log"

// Event names the kind of a journal entry.
type Event string

const (
	EventOpened     Event = "OPEN"
	EventSelected   Event = "SELECT"
	EventDeselected Event = "DESELECT"
	EventRejected   Event = "REJECT"
	EventSeedDrop   Event = "SEEDDROP"
	EventCleared    Event = "CLEAR"
	EventSaved      Event = "SAVE"
	EventSaveFailed Event = "SAVEFAIL"
	EventClosed     Event = "CLOSE"
)

// Entry is one journal line.
type Entry struct {
	Time  time.Time
	Event Event
	Text  string
}

// String renders the entry in the on-disk format.
func (e Entry) String() string {
	return fmt.Sprintf("%s %-8s %s", e.Time.UTC().Format(time.RFC3339), e.Event, e.Text)
}

// ParseEntry reads a line written by String. Lines that do not start with a
// timestamp come back as an entry with only Text set.
func ParseEntry(line string) Entry {
	stamp, rest, _ := strings.Cut(line, " ")
	ts, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return Entry{Text: line}
	}
	event, text, _ := strings.Cut(rest, " ")
	return Entry{Time: ts, Event: Event(event), Text: strings.TrimLeft(text, " ")}
}

// Logbook appends entries to a plain text file.
type Logbook struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Opened records the start of a picker session.
func (l *Logbook) Opened(courses, limit int) {
	l.record(EventOpened, fmt.Sprintf("%d courses · limit %d", courses, limit))
}

// Decision records what Apply did with a toggle. count is the number of
// selected courses afterwards.
func (l *Logbook) Decision(name string, outcome selection.Outcome, count, limit int) {
	switch {
	case !outcome.Applied:
		l.record(EventRejected, fmt.Sprintf("%s %s · %s", outcome.Code, name, outcome.Reason))
	case outcome.Select:
		l.record(EventSelected, fmt.Sprintf("%s %s · %d/%d", outcome.Code, name, count, limit))
	default:
		l.record(EventDeselected, fmt.Sprintf("%s %s · %d/%d", outcome.Code, name, count, limit))
	}
}

// SeedDropped records an initial code that could not be selected.
func (l *Logbook) SeedDropped(outcome selection.Outcome) {
	l.record(EventSeedDrop, fmt.Sprintf("%s · %s", outcome.Code, outcome.Reason))
}

// Cleared records that the selection was reset; dropped is how many courses
// were selected before.
func (l *Logbook) Cleared(dropped int) {
	l.record(EventCleared, fmt.Sprintf("%d deselected", dropped))
}

// ReportSaved records a written selection report.
func (l *Logbook) ReportSaved(path string) {
	l.record(EventSaved, filepath.Base(path))
}

// ReportFailed records a report that could not be written.
func (l *Logbook) ReportFailed(err error) {
	l.record(EventSaveFailed, err.Error())
}

// Closed records the end of a session.
func (l *Logbook) Closed(count, limit int) {
	l.record(EventClosed, fmt.Sprintf("%d/%d selected", count, limit))
}

// record appends one entry. Write failures are swallowed: the journal must
// never take the session down.
func (l *Logbook) record(event Event, text string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{Time: l.now(), Event: event, Text: strings.TrimSpace(text)}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(entry.String() + "\n")
}

// Tail returns up to n of the most recent entries and the total number of
// entries in the file.
func (l *Logbook) Tail(n int) ([]Entry, int) {
	if l == nil || n <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			entries = append(entries, ParseEntry(line))
		}
	}
	total := len(entries)
	if total > n {
		entries = entries[total-n:]
	}
	return entries, total
}
