package autofix

import "testing"

func TestValidateDiffShape(t *testing.T) {
	valid := "diff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1 +1 @@\n-a\n+b\n"
	if !ValidateDiffShape(valid) {
		t.Errorf("valid diff rejected")
	}
	if ValidateDiffShape("just some prose") {
		t.Errorf("prose accepted as diff")
	}
}

func TestExtractDiffFiles(t *testing.T) {
	diff := "diff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1 +1 @@\n-a\n+b\ndiff --git a/y.go b/y.go\n--- a/y.go\n+++ b/y.go\n@@ -1 +1 @@\n-c\n+d\n"
	files := ExtractDiffFiles(diff)
	if len(files) != 2 || files[0] != "x.go" || files[1] != "y.go" {
		t.Errorf("files = %v", files)
	}
}

func TestExtractDiffFiles_NoDuplicates(t *testing.T) {
	diff := "diff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1 +1 @@\n-a\n+b\n"
	files := ExtractDiffFiles(diff)
	if len(files) != 1 || files[0] != "x.go" {
		t.Errorf("files = %v", files)
	}
}

func TestStripNonPatchLines(t *testing.T) {
	raw := "Here's the fix:\n```diff\ndiff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1 +1 @@\n-a\n+b\n```\nHope that helps!"
	stripped := stripNonPatchLines(raw)
	if stripped != stripNonPatchLines(stripped) {
		t.Errorf("stripNonPatchLines is not idempotent")
	}
	if !ValidateDiffShape(stripped) {
		t.Errorf("stripped diff lost its shape: %q", stripped)
	}
}
