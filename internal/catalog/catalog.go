// Package catalog loads the course table that every selection is evaluated
// against. A Catalog is built once at startup and never mutated afterwards.
package catalog

// Course is one row of the catalog.
type Course struct {
	Code         string   `json:"code" yaml:"code"`
	Name         string   `json:"name" yaml:"name"`
	Professor    string   `json:"professor,omitempty" yaml:"professor,omitempty"`
	Sessions     string   `json:"sessions,omitempty" yaml:"sessions,omitempty"`
	Incompatible []string `json:"incompatible" yaml:"incompatible"`
}

// IncompatibleWith reports whether code appears in the course's own list.
func (c Course) IncompatibleWith(code string) bool {
	for _, other := range c.Incompatible {
		if other == code {
			return true
		}
	}
	return false
}

// Catalog is an ordered, code-indexed set of courses.
type Catalog struct {
	courses []Course
	index   map[string]int
}

// New builds a catalog from courses in the given order. Later duplicates of
// a code are ignored.
func New(courses []Course) *Catalog {
	cat := &Catalog{
		courses: make([]Course, 0, len(courses)),
		index:   make(map[string]int, len(courses)),
	}
	for _, course := range courses {
		if _, dup := cat.index[course.Code]; dup {
			continue
		}
		course.Incompatible = append([]string(nil), course.Incompatible...)
		cat.index[course.Code] = len(cat.courses)
		cat.courses = append(cat.courses, course)
	}
	return cat
}

// Len returns the number of courses.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.courses)
}

// Courses returns a copy of the courses in load order.
func (c *Catalog) Courses() []Course {
	if c == nil {
		return nil
	}
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Lookup returns the course for code.
func (c *Catalog) Lookup(code string) (Course, bool) {
	if c == nil {
		return Course{}, false
	}
	idx, ok := c.index[code]
	if !ok {
		return Course{}, false
	}
	return c.courses[idx], true
}

// Has reports whether code is in the catalog.
func (c *Catalog) Has(code string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[code]
	return ok
}

// Name resolves a code to its display name.
func (c *Catalog) Name(code string) (string, bool) {
	course, ok := c.Lookup(code)
	if !ok {
		return "", false
	}
	return course.Name, true
}

// Pair is an incompatibility declared by From that To does not declare back.
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Asymmetric lists declarations that are only made in one direction, in
// catalog order.
// References to codes outside the catalog are skipped.
func (c *Catalog) Asymmetric() []Pair {
	if c == nil {
		return nil
	}
	var pairs []Pair
	for _, course := range c.courses {
		for _, other := range course.Incompatible {
			target, ok := c.Lookup(other)
			if !ok {
				continue
			}
			if !target.IncompatibleWith(course.Code) {
				pairs = append(pairs, Pair{From: course.Code, To: other})
			}
		}
	}
	return pairs
}
