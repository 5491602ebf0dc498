package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kingrea/coursepick/internal/catalog"
)

// DefaultLimit is the maximum number of courses that may be selected.
const DefaultLimit = 5

var (
	// ErrUnknownCourse is returned for codes the catalog does not contain.
	ErrUnknownCourse = errors.New("selection: unknown course")
	// ErrIneligible is returned when a course cannot be selected right now.
	ErrIneligible = errors.New("selection: course not eligible")
)

// Reason explains why a course cannot be newly selected.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonIncompatible Reason = "Incompatible with selected courses"
	ReasonLimit        Reason = "Limit reached"
	ReasonUnknown      Reason = "Unknown course"
)

// Set is a set of course codes.
type Set map[string]struct{}

// Has reports membership.
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Eligibility is the verdict for one course.
type Eligibility struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
	Eligible bool   `json:"eligible"`
	Reason   Reason `json:"reason,omitempty"`
	// BlockedBy lists the selected codes whose incompatibility lists name
	// this course, in selection order.
	BlockedBy []string `json:"blocked_by,omitempty"`
}

// Evaluation is the full result of running the rules over one state.
type Evaluation struct {
	Limit        int              `json:"limit"`
	LimitReached bool             `json:"limit_reached"`
	Selected     []catalog.Course `json:"selected"`
	Blocked      []string         `json:"blocked"`
	Courses      []Eligibility    `json:"courses"`
	Conflicts    []string         `json:"conflicts"`
	// Clashes are incompatible pairs that are both selected. Apply never
	// produces them; states built elsewhere can.
	Clashes []catalog.Pair `json:"clashes,omitempty"`
}

// SelectedName returns the display name of a selected course, or code itself
// when the code is not part of the selection.
func (ev Evaluation) SelectedName(code string) string {
	for _, course := range ev.Selected {
		if course.Code == code {
			return course.Name
		}
	}
	return code
}

// Evaluator applies the compatibility rules for one catalog.
type Evaluator struct {
	Catalog *catalog.Catalog
	// Limit caps the number of selected courses. Values below 1 mean DefaultLimit.
	Limit int
}

// New returns an evaluator for cat with the given limit.
func New(cat *catalog.Catalog, limit int) Evaluator {
	return Evaluator{Catalog: cat, Limit: limit}
}

func (e Evaluator) limit() int {
	if e.Limit < 1 {
		return DefaultLimit
	}
	return e.Limit
}

// selectedCourses resolves the state against the catalog, skipping codes the
// catalog does not know.
func (e Evaluator) selectedCourses(st State) []catalog.Course {
	out := make([]catalog.Course, 0, st.Count())
	for _, code := range st.codes {
		if course, ok := e.Catalog.Lookup(code); ok {
			out = append(out, course)
		}
	}
	return out
}

// Known returns st without the codes the catalog does not contain.
func (e Evaluator) Known(st State) State {
	codes := make([]string, 0, st.Count())
	for _, course := range e.selectedCourses(st) {
		codes = append(codes, course.Code)
	}
	return State{codes: codes}
}

// BlockedSet is the union of the incompatibility lists of every selected
// course. References to codes outside the catalog are ignored.
func (e Evaluator) BlockedSet(st State) Set {
	blocked := Set{}
	for _, course := range e.selectedCourses(st) {
		for _, code := range course.Incompatible {
			if e.Catalog.Has(code) {
				blocked[code] = struct{}{}
			}
		}
	}
	return blocked
}

// Eligibility decides whether code may be newly selected.
func (e Evaluator) Eligibility(st State, code string) Eligibility {
	return e.eligibility(st, e.selectedCourses(st), code)
}

func (e Evaluator) eligibility(st State, selected []catalog.Course, code string) Eligibility {
	course, ok := e.Catalog.Lookup(code)
	if !ok {
		return Eligibility{Code: code, Reason: ReasonUnknown}
	}
	verdict := Eligibility{
		Code:     code,
		Name:     course.Name,
		Selected: st.IsSelected(code),
		Eligible: true,
	}
	for _, other := range selected {
		if other.IncompatibleWith(code) {
			verdict.BlockedBy = append(verdict.BlockedBy, other.Code)
		}
	}
	if verdict.Selected {
		return verdict
	}
	if len(verdict.BlockedBy) > 0 {
		verdict.Eligible = false
		verdict.Reason = ReasonIncompatible
	}
	if len(selected) >= e.limit() {
		verdict.Eligible = false
		verdict.Reason = ReasonLimit
	}
	return verdict
}

// ConflictReport returns the sorted, de-duplicated names of every course
// referenced as incompatible by a selected course and not itself selected.
func (e Evaluator) ConflictReport(st State) []string {
	names := map[string]struct{}{}
	for _, course := range e.selectedCourses(st) {
		for _, code := range course.Incompatible {
			if st.IsSelected(code) {
				continue
			}
			if name, ok := e.Catalog.Name(code); ok {
				names[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clashes lists selected pairs that exclude each other, once per pair.
func (e Evaluator) Clashes(st State) []catalog.Pair {
	var pairs []catalog.Pair
	seen := map[catalog.Pair]bool{}
	for _, course := range e.selectedCourses(st) {
		for _, code := range course.Incompatible {
			if !st.IsSelected(code) || !e.Catalog.Has(code) {
				continue
			}
			pair := catalog.Pair{From: course.Code, To: code}
			if seen[pair] || seen[catalog.Pair{From: code, To: course.Code}] {
				continue
			}
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// Evaluate runs every rule over st.
func (e Evaluator) Evaluate(st State) Evaluation {
	selected := e.selectedCourses(st)
	blocked := e.BlockedSet(st)
	ev := Evaluation{
		Limit:        e.limit(),
		LimitReached: len(selected) >= e.limit(),
		Selected:     selected,
		Blocked:      []string{},
		Courses:      make([]Eligibility, 0, e.Catalog.Len()),
		Conflicts:    e.ConflictReport(st),
		Clashes:      e.Clashes(st),
	}
	for _, course := range e.Catalog.Courses() {
		if blocked.Has(course.Code) {
			ev.Blocked = append(ev.Blocked, course.Code)
		}
		ev.Courses = append(ev.Courses, e.eligibility(st, selected, course.Code))
	}
	return ev
}

// Outcome describes what Apply did with a requested decision.
type Outcome struct {
	Code    string `json:"code"`
	Select  bool   `json:"select"`
	Applied bool   `json:"applied"`
	Reason  Reason `json:"reason,omitempty"`
}

// Err converts a rejected outcome into an error.
func (o Outcome) Err() error {
	if o.Applied {
		return nil
	}
	if o.Reason == ReasonUnknown {
		return fmt.Errorf("%w: %s", ErrUnknownCourse, o.Code)
	}
	return fmt.Errorf("%w: %s: %s", ErrIneligible, o.Code, o.Reason)
}

// Apply records a decision for code. Codes the catalog does not know are
// dropped from the returned state, so they never count toward the limit or
// survive into it. Selecting an ineligible or unknown course otherwise leaves
// the state unchanged. Deselecting always succeeds.
func (e Evaluator) Apply(st State, code string, selected bool) (State, Outcome) {
	st = e.Known(st)
	outcome := Outcome{Code: code, Select: selected}
	if !selected {
		outcome.Applied = true
		return st.without(code), outcome
	}
	verdict := e.Eligibility(st, code)
	if verdict.Selected {
		outcome.Applied = true
		return st, outcome
	}
	if !verdict.Eligible {
		outcome.Reason = verdict.Reason
		return st, outcome
	}
	outcome.Applied = true
	return st.with(code), outcome
}

// Toggle flips the decision for code.
func (e Evaluator) Toggle(st State, code string) (State, Outcome) {
	return e.Apply(st, code, !st.IsSelected(code))
}
