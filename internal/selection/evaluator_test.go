package selection

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/coursepick/internal/catalog"
)

func sampleCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Course{
		{Code: "1", Name: "Math", Incompatible: []string{"2"}},
		{Code: "2", Name: "Art", Incompatible: []string{"1"}},
		{Code: "3", Name: "PE"},
	})
}

func wideCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Course{
		{Code: "10", Name: "Algebra", Incompatible: []string{"11", "99"}},
		{Code: "11", Name: "Biology", Incompatible: []string{"10"}},
		{Code: "12", Name: "Chemistry", Incompatible: []string{"13", "14"}},
		{Code: "13", Name: "Drama"},
		{Code: "14", Name: "Economics", Incompatible: []string{"12"}},
		{Code: "15", Name: "French"},
		{Code: "16", Name: "Geography"},
		{Code: "17", Name: "History"},
		{Code: "18", Name: "Italian"},
		{Code: "19", Name: "Japanese", Incompatible: []string{"15"}},
	})
}

func eligibleCodes(ev Evaluation) []string {
	var out []string
	for _, c := range ev.Courses {
		if c.Eligible {
			out = append(out, c.Code)
		}
	}
	return out
}

func TestSelectingMathBlocksArt(t *testing.T) {
	eval := New(sampleCatalog(), DefaultLimit)
	st, outcome := eval.Apply(State{}, "1", true)
	if !outcome.Applied {
		t.Fatalf("expected Math selection to apply, got %+v", outcome)
	}
	blocked := eval.BlockedSet(st)
	if len(blocked) != 1 || !blocked.Has("2") {
		t.Fatalf("blocked = %v, want {2}", blocked)
	}
	ev := eval.Evaluate(st)
	if diff := cmp.Diff([]string{"1", "3"}, eligibleCodes(ev)); diff != "" {
		t.Fatalf("eligible mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Art"}, ev.Conflicts); diff != "" {
		t.Fatalf("conflicts mismatch (-want +got):\n%s", diff)
	}
	if len(ev.Clashes) != 0 {
		t.Fatalf("expected no clashes, got %v", ev.Clashes)
	}

	next, outcome := eval.Apply(st, "2", true)
	if outcome.Applied || outcome.Reason != ReasonIncompatible {
		t.Fatalf("expected Art to be rejected as incompatible, got %+v", outcome)
	}
	if !errors.Is(outcome.Err(), ErrIneligible) {
		t.Fatalf("expected ErrIneligible, got %v", outcome.Err())
	}
	if diff := cmp.Diff(st.Selected(), next.Selected()); diff != "" {
		t.Fatalf("state changed after rejection (-want +got):\n%s", diff)
	}
}

func TestLimitRule(t *testing.T) {
	eval := New(wideCatalog(), DefaultLimit)
	st := State{}
	for _, code := range []string{"10", "12", "15", "16", "17"} {
		var outcome Outcome
		st, outcome = eval.Apply(st, code, true)
		if !outcome.Applied {
			t.Fatalf("select %s: %+v", code, outcome)
		}
	}
	ev := eval.Evaluate(st)
	if !ev.LimitReached {
		t.Fatalf("expected limit reached")
	}
	for _, c := range ev.Courses {
		if c.Selected && !c.Eligible {
			t.Fatalf("selected course %s marked ineligible", c.Code)
		}
		if !c.Selected && c.Reason != ReasonLimit {
			t.Fatalf("course %s reason = %q, want limit", c.Code, c.Reason)
		}
	}
	if _, outcome := eval.Apply(st, "18", true); outcome.Applied || outcome.Reason != ReasonLimit {
		t.Fatalf("expected limit rejection, got %+v", outcome)
	}
	// A blocked course over the limit reports the limit.
	if got := eval.Eligibility(st, "11").Reason; got != ReasonLimit {
		t.Fatalf("reason for blocked course at limit = %q", got)
	}
	st, outcome := eval.Apply(st, "17", false)
	if !outcome.Applied || st.Count() != 4 {
		t.Fatalf("deselect failed: %+v count=%d", outcome, st.Count())
	}
	if !eval.Eligibility(st, "18").Eligible {
		t.Fatalf("expected Italian eligible after deselecting")
	}
}

func TestUnknownReferencesAreIgnored(t *testing.T) {
	eval := New(wideCatalog(), DefaultLimit)
	st := NewState("10", "404")
	if eval.BlockedSet(st).Has("99") {
		t.Fatalf("unknown reference leaked into blocked set")
	}
	ev := eval.Evaluate(st)
	if diff := cmp.Diff([]string{"Biology"}, ev.Conflicts); diff != "" {
		t.Fatalf("conflicts mismatch (-want +got):\n%s", diff)
	}
	if len(ev.Selected) != 1 || ev.Selected[0].Code != "10" {
		t.Fatalf("selected summary = %+v", ev.Selected)
	}
	_, outcome := eval.Apply(st, "404", true)
	if !errors.Is(outcome.Err(), ErrUnknownCourse) {
		t.Fatalf("expected ErrUnknownCourse, got %v", outcome.Err())
	}
}

func TestConflictReportSortedAndDeduplicated(t *testing.T) {
	eval := New(catalog.New([]catalog.Course{
		{Code: "1", Name: "Zoology", Incompatible: []string{"3", "4"}},
		{Code: "2", Name: "Yoga", Incompatible: []string{"3", "4"}},
		{Code: "3", Name: "Botany"},
		{Code: "4", Name: "Anatomy"},
	}), DefaultLimit)
	got := eval.ConflictReport(NewState("1", "2"))
	if diff := cmp.Diff([]string{"Anatomy", "Botany"}, got); diff != "" {
		t.Fatalf("conflicts mismatch (-want +got):\n%s", diff)
	}
}

func TestClashesReportedForExternalStates(t *testing.T) {
	eval := New(sampleCatalog(), DefaultLimit)
	ev := eval.Evaluate(NewState("1", "2"))
	want := []catalog.Pair{{From: "1", To: "2"}}
	if diff := cmp.Diff(want, ev.Clashes); diff != "" {
		t.Fatalf("clashes mismatch (-want +got):\n%s", diff)
	}
	if len(ev.Conflicts) != 0 {
		t.Fatalf("selected courses must not appear in the conflict report: %v", ev.Conflicts)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	eval := New(sampleCatalog(), DefaultLimit)
	base := NewState("3")
	next, _ := eval.Apply(base, "1", true)
	if base.Count() != 1 || next.Count() != 2 {
		t.Fatalf("base=%v next=%v", base.Selected(), next.Selected())
	}
	cleared, _ := eval.Toggle(next, "3")
	if cleared.IsSelected("3") || !next.IsSelected("3") {
		t.Fatalf("toggle mutated its input")
	}
}

func TestApplyDropsUnknownCodesBeforeCountingTheLimit(t *testing.T) {
	eval := New(sampleCatalog(), DefaultLimit)
	external := NewState("900", "901", "902", "903", "904")
	next, outcome := eval.Apply(external, "1", true)
	if !outcome.Applied {
		t.Fatalf("expected Math to apply, got %+v", outcome)
	}
	if diff := cmp.Diff([]string{"1"}, next.Selected()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	full := NewState("900", "1", "3")
	limited := New(sampleCatalog(), 2)
	next, outcome = limited.Apply(full, "2", false)
	if !outcome.Applied || next.Count() != 2 || next.IsSelected("900") {
		t.Fatalf("deselect kept unknown codes: %v", next.Selected())
	}
}

func TestClashesIgnoreRepeatedReferences(t *testing.T) {
	eval := New(catalog.New([]catalog.Course{
		{Code: "1", Name: "Math", Incompatible: []string{"2", "2"}},
		{Code: "2", Name: "Art", Incompatible: []string{"1", "1"}},
	}), DefaultLimit)
	got := eval.Clashes(NewState("1", "2"))
	if diff := cmp.Diff([]catalog.Pair{{From: "1", To: "2"}}, got); diff != "" {
		t.Fatalf("clashes mismatch (-want +got):\n%s", diff)
	}
}

// TestRandomWalkInvariants drives Apply with random decisions and checks the
// guarantees after every step.
func TestRandomWalkInvariants(t *testing.T) {
	cat := wideCatalog()
	courses := cat.Courses()
	rng := rand.New(rand.NewSource(42))
	for _, limit := range []int{1, 3, DefaultLimit} {
		eval := New(cat, limit)
		st := State{}
		for step := 0; step < 2000; step++ {
			code := courses[rng.Intn(len(courses))].Code
			st, _ = eval.Apply(st, code, rng.Intn(3) > 0)
			ev := eval.Evaluate(st)

			if st.Count() > limit {
				t.Fatalf("limit %d: count %d after step %d", limit, st.Count(), step)
			}
			if len(ev.Clashes) != 0 {
				t.Fatalf("Apply produced clashing state %v", st.Selected())
			}
			blocked := eval.BlockedSet(st)
			conflicts := map[string]bool{}
			for _, name := range ev.Conflicts {
				conflicts[name] = true
			}
			for _, c := range ev.Courses {
				if c.Selected && !c.Eligible {
					t.Fatalf("selected %s marked ineligible", c.Code)
				}
				if blocked.Has(c.Code) && !c.Selected && c.Eligible {
					t.Fatalf("blocked %s marked eligible", c.Code)
				}
				wantConflict := blocked.Has(c.Code) && !c.Selected
				if conflicts[c.Name] != wantConflict {
					t.Fatalf("conflict membership for %s = %v, want %v", c.Name, conflicts[c.Name], wantConflict)
				}
			}
		}
	}
}

func TestLimitFallsBackToDefault(t *testing.T) {
	eval := New(sampleCatalog(), 0)
	if got := eval.Evaluate(State{}).Limit; got != DefaultLimit {
		t.Fatalf("limit = %d, want %d", got, DefaultLimit)
	}
}
