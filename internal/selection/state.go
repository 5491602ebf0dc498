// Package selection holds the selection state and the compatibility rules
// evaluated against it. Everything here is a pure function of a catalog and
// a State value; nothing is cached between calls.
package selection

// State is the set of selected course codes, kept in the order they were
// selected. The zero value is the all-unselected state. State is a value:
// operations that change it return a new State.
type State struct {
	codes []string
}

// NewState builds a state from codes, dropping empty and repeated entries.
func NewState(codes ...string) State {
	var st State
	for _, code := range codes {
		if code == "" || st.IsSelected(code) {
			continue
		}
		st.codes = append(st.codes, code)
	}
	return st
}

// IsSelected reports the decision recorded for code.
func (s State) IsSelected(code string) bool {
	for _, c := range s.codes {
		if c == code {
			return true
		}
	}
	return false
}

// Selected returns the selected codes in selection order.
func (s State) Selected() []string {
	return append([]string(nil), s.codes...)
}

// Count returns the number of selected codes.
func (s State) Count() int {
	return len(s.codes)
}

// Decisions returns the state as a code → selected mapping.
func (s State) Decisions() map[string]bool {
	out := make(map[string]bool, len(s.codes))
	for _, c := range s.codes {
		out[c] = true
	}
	return out
}

func (s State) with(code string) State {
	if s.IsSelected(code) {
		return s
	}
	next := make([]string, len(s.codes), len(s.codes)+1)
	copy(next, s.codes)
	return State{codes: append(next, code)}
}

func (s State) without(code string) State {
	next := make([]string, 0, len(s.codes))
	for _, c := range s.codes {
		if c != code {
			next = append(next, c)
		}
	}
	return State{codes: next}
}
