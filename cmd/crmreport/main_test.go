package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/report"
)

func TestCollectJobs(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b_roads.json": `{"answer":"Roads grew.","rationale":[],"key_metrics":["12% growth in Roads"]}`,
		"a_trees.json": `{"answer":"Trees grew.","rationale":["why"],"key_metrics":[]}`,
		"broken.json":  `{"answer":`,
		"partial.json": `{"answer":"no lists"}`,
		"notes.txt":    `ignored`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	jobs, bad, err := collectJobs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[0].Name != "a_trees" || jobs[1].Name != "b_roads" {
		t.Errorf("jobs: got %+v", jobs)
	}
	if len(bad) != 2 {
		t.Fatalf("bad: got %v", bad)
	}
	for _, name := range []string{"broken", "partial"} {
		if !errors.Is(bad[name], report.ErrInvalidPayload) {
			t.Errorf("%s: got %v, want ErrInvalidPayload", name, bad[name])
		}
	}
}

func TestExtension(t *testing.T) {
	gen := report.New()
	if got := extension(gen); got != ".pdf" {
		t.Errorf("pdf: got %q", got)
	}
	if got := extension(gen.With(report.WithRenderer(document.TextRenderer{}))); got != ".txt" {
		t.Errorf("text: got %q", got)
	}
}

func TestOrDefault(t *testing.T) {
	cases := map[string]string{"": "none", "[]": "none", "[data]": "[data]"}
	for in, want := range cases {
		if got := orDefault(in, "none"); got != want {
			t.Errorf("orDefault(%q): got %q, want %q", in, got, want)
		}
	}
}
