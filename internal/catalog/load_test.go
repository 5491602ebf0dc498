package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const exportedCatalog = `Course selection 2024/25;;;;
Generated by registrar;;;;
;;;;
Term: Fall;;;;
;;;;
;;;;
Code;Course Name;Professor;Sessions;Incompatibilities
101;Mathematics;Dr. Ada;12;102, 200F
102;Art History;Prof. Vasari;10;101
103.0;Physical Education;Coach Carter;8;
abc;Broken Row;Nobody;1;
104;;Nobody;1;101
101;Mathematics Again;Dr. Ada;12;
105;Chemistry;Dr. Curie;9;"104, 106, 105, 106, x1"
`

func TestParseSkipsPreambleAndNormalizes(t *testing.T) {
	cat, report, err := Parse(strings.NewReader(exportedCatalog), Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if report.HeaderLine != 7 {
		t.Fatalf("header line = %d, want 7", report.HeaderLine)
	}
	want := []Course{
		{Code: "101", Name: "Mathematics", Professor: "Dr. Ada", Sessions: "12", Incompatible: []string{"102"}},
		{Code: "102", Name: "Art History", Professor: "Prof. Vasari", Sessions: "10", Incompatible: []string{"101"}},
		{Code: "103", Name: "Physical Education", Professor: "Coach Carter", Sessions: "8"},
		{Code: "105", Name: "Chemistry", Professor: "Dr. Curie", Sessions: "9", Incompatible: []string{"104", "106"}},
	}
	if diff := cmp.Diff(want, cat.Courses()); diff != "" {
		t.Fatalf("courses mismatch (-want +got):\n%s", diff)
	}
	if report.Accepted != 4 {
		t.Fatalf("accepted = %d, want 4", report.Accepted)
	}
	reasons := map[DropReason]int{}
	for _, row := range report.Dropped {
		reasons[row.Reason]++
	}
	wantReasons := map[DropReason]int{DropBadCode: 1, DropNoName: 1, DropDuplicate: 1}
	if diff := cmp.Diff(wantReasons, reasons); diff != "" {
		t.Fatalf("drop reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCommaDelimitedWithoutPreamble(t *testing.T) {
	input := "\ufeffCode,Course,Incompatibilities\n1,Math,\"2\"\n2,Art,1\n3,PE,\n"
	cat, _, err := Parse(strings.NewReader(input), Options{Delimiter: ','})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("len = %d, want 3", cat.Len())
	}
	name, ok := cat.Name("2")
	if !ok || name != "Art" {
		t.Fatalf("Name(2) = %q, %v", name, ok)
	}
	math, _ := cat.Lookup("1")
	if !math.IncompatibleWith("2") {
		t.Fatalf("expected Math to list Art as incompatible")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "no header", input: "a;b\n1;2\n", want: ErrNoHeader},
		{name: "no name column", input: "Code;Title\n1;Math\n", want: ErrMissingColumn},
		{name: "no usable rows", input: "Code;Course Name\nx;Math\n1;\n", want: ErrEmptyCatalog},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tc.input), Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "All_Courses.csv"), Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "All_Courses.csv")
	if err := os.WriteFile(path, []byte(exportedCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, _, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cat.Has("105") || cat.Has("abc") {
		t.Fatalf("unexpected membership after load")
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := map[string]struct {
		code string
		ok   bool
	}{
		"101":   {"101", true},
		" 7 ":   {"7", true},
		"101.0": {"101", true},
		"007":   {"7", true},
		"007.0": {"7", true},
		"0":     {"0", true},
		"101.5": {"", false},
		"200F":  {"", false},
		"-3":    {"", false},
		"NaN":   {"", false},
		"":      {"", false},
	}
	for in, want := range tests {
		got, ok := NormalizeCode(in)
		if got != want.code || ok != want.ok {
			t.Errorf("NormalizeCode(%q) = %q, %v; want %q, %v", in, got, ok, want.code, want.ok)
		}
	}
}

func TestLeadingZeroCodesMatchTheirReferences(t *testing.T) {
	cat, _, err := Parse(strings.NewReader("Code;Course Name;Incompatibilities\n007;Math;8\n8;Art;7.0\n"), Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	math, ok := cat.Lookup("7")
	if !ok {
		t.Fatalf("course 007 not stored under 7")
	}
	art, _ := cat.Lookup("8")
	if !art.IncompatibleWith(math.Code) || !math.IncompatibleWith(art.Code) {
		t.Fatalf("references do not match: math=%+v art=%+v", math, art)
	}
	if len(cat.Asymmetric()) != 0 {
		t.Fatalf("asymmetric = %v", cat.Asymmetric())
	}
}

func TestAsymmetric(t *testing.T) {
	cat := New([]Course{
		{Code: "1", Name: "Math", Incompatible: []string{"2", "3", "99"}},
		{Code: "2", Name: "Art", Incompatible: []string{"1"}},
		{Code: "3", Name: "PE"},
	})
	want := []Pair{{From: "1", To: "3"}}
	if diff := cmp.Diff(want, cat.Asymmetric()); diff != "" {
		t.Fatalf("asymmetric mismatch (-want +got):\n%s", diff)
	}
}

func TestNewKeepsFirstDuplicate(t *testing.T) {
	cat := New([]Course{{Code: "1", Name: "Math"}, {Code: "1", Name: "Other"}})
	if cat.Len() != 1 {
		t.Fatalf("len = %d, want 1", cat.Len())
	}
	if name, _ := cat.Name("1"); name != "Math" {
		t.Fatalf("name = %q, want Math", name)
	}
}
