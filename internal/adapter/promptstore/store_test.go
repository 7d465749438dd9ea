package promptstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListOrdersAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prompt03.txt", "third {text}")
	writeFile(t, dir, "prompt01.txt", "first {text}")
	writeFile(t, dir, "prompt2.txt", "bad name {text}")
	writeFile(t, dir, "notes.md", "not a prompt")
	writeFile(t, dir, "prompt05.txt", "no placeholder here")

	s := NewStore(dir, nil)
	jobs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(jobs) != 2 {
		t.Fatalf("expected 2 valid prompts, got %d", len(jobs))
	}
	if jobs[0].Number != 1 || jobs[1].Number != 3 {
		t.Errorf("expected ascending order [1 3], got [%d %d]", jobs[0].Number, jobs[1].Number)
	}
	if jobs[0].Filename != "prompt01.txt" {
		t.Errorf("unexpected filename %q", jobs[0].Filename)
	}
}

func TestListMissingDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), nil)
	jobs, err := s.List()
	if err != nil || jobs != nil {
		t.Errorf("missing directory should yield empty list, got %v / %v", jobs, err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prompts"), nil)

	if err := s.Save(7, "summarize {text} briefly"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	job, err := s.Load(7)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if job.Content != "summarize {text} briefly" || job.Filename != "prompt07.txt" {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := NewStore(t.TempDir(), nil)

	if err := s.Save(1, "   "); err == nil {
		t.Error("empty prompt should be rejected")
	}
	if err := s.Save(1, "no placeholder"); err == nil {
		t.Error("prompt without {text} should be rejected")
	}
	if err := s.Save(1, strings.Repeat("x", 50001)+"{text}"); err == nil {
		t.Error("oversized prompt should be rejected")
	}
	if err := s.Save(0, "ok {text}"); err == nil {
		t.Error("number 0 should be rejected")
	}
	if err := s.Save(100, "ok {text}"); err == nil {
		t.Error("number 100 should be rejected")
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prompt01.txt", "x {text}")

	s := NewStore(dir, nil)
	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(1); err == nil {
		t.Error("deleting missing prompt should fail")
	}
}

func TestNextAvailableNumber(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prompt01.txt", "a {text}")
	writeFile(t, dir, "prompt02.txt", "b {text}")
	writeFile(t, dir, "prompt04.txt", "c {text}")

	s := NewStore(dir, nil)
	n, err := s.NextAvailableNumber()
	if err != nil {
		t.Fatalf("NextAvailableNumber failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil)

	got, err := s.SystemPrompt()
	if err != nil || got != "" {
		t.Errorf("missing system prompt should be empty, got %q / %v", got, err)
	}

	writeFile(t, dir, SystemPromptFile, "  be precise\n")
	got, err = s.SystemPrompt()
	if err != nil || got != "be precise" {
		t.Errorf("expected trimmed system prompt, got %q / %v", got, err)
	}
}
