package autofix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reliabot/agent/internal/model"
)

func TestMeetsFloor(t *testing.T) {
	cases := []struct {
		sev   model.Severity
		floor string
		want  bool
	}{
		{model.SeverityLow, "all", true},
		{model.SeverityLow, "", true},
		{model.SeverityLow, "medium", false},
		{model.SeverityHigh, "medium", true},
		{model.SeverityCritical, "critical", true},
		{model.SeverityMedium, "critical", false},
	}
	for _, c := range cases {
		if got := meetsFloor(c.sev, c.floor); got != c.want {
			t.Errorf("meetsFloor(%v, %q) = %v, want %v", c.sev, c.floor, got, c.want)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	inc := model.Incident{Title: "Incident: x (y)", Evidence: []string{"boom", "crash"}}
	q := buildQuery(inc, nil)
	if !strings.Contains(q, "Incident: x (y)") || !strings.Contains(q, "boom") || !strings.Contains(q, "crash") {
		t.Errorf("q = %q", q)
	}

	summary := &model.IncidentSummary{Summary: "root cause is X"}
	q2 := buildQuery(inc, summary)
	if !strings.Contains(q2, "root cause is X") {
		t.Errorf("q2 = %q", q2)
	}
}

func TestBuildPRBody(t *testing.T) {
	p := &model.FixProposal{
		Summary:  "fixed the bug",
		Reason:   "null pointer",
		TestPlan: []string{"run unit tests"},
	}
	body := buildPRBody("", p, true, "all tests passed", 42)
	for _, want := range []string{"## What changed", "fixed the bug", "## Why", "null pointer", "## Test plan", "run unit tests", "all tests passed", "## Safety checks", "proposal kind: diff", "Closes #42"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildPRBody_IncludesTemplate(t *testing.T) {
	body := buildPRBody("## Template header\n", &model.FixProposal{TestPlan: []string{"x"}}, false, "", 1)
	if !strings.HasPrefix(body, "## Template header") {
		t.Errorf("body does not start with template:\n%s", body)
	}
	if !strings.Contains(body, "proposal kind: rewrite") {
		t.Errorf("body missing rewrite kind marker")
	}
}

func TestStageWorkspace_CopiesAndExcludes(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.go"), []byte("package a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "node_modules", "ignored.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, ".env"), []byte("SECRET=1"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, cleanup, err := stageWorkspace(src)
	if err != nil {
		t.Fatalf("stageWorkspace: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(filepath.Join(dir, "a.go")); err != nil {
		t.Errorf("a.go not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "node_modules")); !os.IsNotExist(err) {
		t.Errorf("node_modules should have been excluded")
	}
	if _, err := os.Stat(filepath.Join(dir, ".env")); !os.IsNotExist(err) {
		t.Errorf(".env should have been excluded")
	}
}

func TestWriteRewriteFiles(t *testing.T) {
	dir := t.TempDir()
	err := writeRewriteFiles(dir, []model.RewriteFile{{Path: "nested/a.go", Content: "package a"}})
	if err != nil {
		t.Fatalf("writeRewriteFiles: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nested", "a.go"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "package a" {
		t.Errorf("content = %q", data)
	}
}
