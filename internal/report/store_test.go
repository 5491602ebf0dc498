package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/selection"
)

func fixedClock() time.Time {
	return time.Date(2024, 9, 2, 14, 5, 9, 0, time.UTC)
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	cat := catalog.New([]catalog.Course{
		{Code: "1", Name: "Math", Incompatible: []string{"2"}},
		{Code: "2", Name: "Art", Incompatible: []string{"1"}},
		{Code: "3", Name: "PE"},
	})
	eval := selection.New(cat, selection.DefaultLimit)
	st := selection.NewState("3", "1")

	dir := filepath.Join(t.TempDir(), "reports")
	store := NewStore(dir, WithClock(fixedClock), WithCatalogPath("/data/All_Courses.csv"))
	path, err := store.Write(st, eval.Evaluate(st))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "selection-20240902-140509.md" {
		t.Fatalf("unexpected file name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"coursepick:",
		"catalog: /data/All_Courses.csv",
		"## Selected courses (2/5)",
		"- PE (Code: `3`)",
		"- Art",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}

	meta, loaded, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{"3", "1"}, loaded.Selected()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	if !meta.CreatedAt.Equal(fixedClock()) || meta.Limit != 5 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestParseFrontMatterErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "empty", content: "", want: ErrMissingFrontMatter},
		{name: "no fence", content: "# title\n", want: ErrMissingFrontMatter},
		{name: "unterminated", content: "---\ncoursepick:\n  version: \"1\"\n", want: ErrMalformedFrontMatter},
		{name: "no version", content: "---\nother: 1\n---\nbody", want: ErrMalformedFrontMatter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseFrontMatter([]byte(tc.content))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseFrontMatterAcceptsCRLF(t *testing.T) {
	doc := "---\r\ncoursepick:\r\n  version: \"1\"\r\n  limit: 5\r\n  selected: [\"7\"]\r\n  created: \"2024-09-02T14:05:09Z\"\r\n---\r\n\r\nbody\r\n"
	meta, body, err := ParseFrontMatter([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(meta.Selected) != 1 || meta.Selected[0] != "7" {
		t.Fatalf("selected = %v", meta.Selected)
	}
	if strings.TrimSpace(string(body)) != "body" {
		t.Fatalf("body = %q", body)
	}
}

func TestRenderMarkdownEmptySelection(t *testing.T) {
	out := RenderMarkdown(selection.Evaluation{Limit: 5})
	if !strings.Contains(out, "No courses selected.") || !strings.Contains(out, "Select courses to see incompatibility information.") {
		t.Fatalf("unexpected body:\n%s", out)
	}
}

func TestWriteKeepsReportsSavedInTheSameSecond(t *testing.T) {
	cat := catalog.New([]catalog.Course{{Code: "1", Name: "Math"}, {Code: "3", Name: "PE"}})
	eval := selection.New(cat, selection.DefaultLimit)
	store := NewStore(t.TempDir(), WithClock(fixedClock))

	var names []string
	for _, st := range []selection.State{selection.NewState("1"), selection.NewState("3"), selection.NewState("1", "3")} {
		path, err := store.Write(st, eval.Evaluate(st))
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		names = append(names, filepath.Base(path))
	}
	want := []string{
		"selection-20240902-140509.md",
		"selection-20240902-140509-2.md",
		"selection-20240902-140509-3.md",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("file names mismatch (-want +got):\n%s", diff)
	}
	_, first, err := Read(filepath.Join(store.Dir(), want[0]))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{"1"}, first.Selected()); diff != "" {
		t.Fatalf("first report was overwritten (-want +got):\n%s", diff)
	}
}

func TestRenderMarkdownNamesClashingCourses(t *testing.T) {
	cat := catalog.New([]catalog.Course{
		{Code: "1", Name: "Math", Incompatible: []string{"2"}},
		{Code: "2", Name: "Art", Incompatible: []string{"1"}},
	})
	out := RenderMarkdown(selection.New(cat, selection.DefaultLimit).Evaluate(selection.NewState("1", "2")))
	if !strings.Contains(out, "- Math (`1`) excludes Art (`2`)") {
		t.Fatalf("clash section missing names:\n%s", out)
	}
}
