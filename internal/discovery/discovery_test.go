package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const questionsJSON = `[{"question_col": "Q1", "instruction": "List habits"}]`

func mustWrite(t *testing.T, root, relPath, contents string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", full, err)
	}
}

func TestDiscoverRanksCandidatesDeterministically(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	mustWrite(t, tmpDir, "questions_config.json", questionsJSON)
	mustWrite(t, tmpDir, "config/coder.yaml", "questions:\n  - question_col: Q1\n    instruction: x\n")
	mustWrite(t, tmpDir, "settings.json", questionsJSON)
	mustWrite(t, tmpDir, "categories_cache.json", `{"Q1": ["Password Management"]}`)
	mustWrite(t, tmpDir, "notes.txt", "question_col")
	mustWrite(t, tmpDir, ".hidden/questions.json", questionsJSON)
	mustWrite(t, tmpDir, "node_modules/questions.json", questionsJSON)

	candidates, err := Discover(DefaultConfig(tmpDir))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	var paths []string
	for _, c := range candidates {
		paths = append(paths, c.Path)
	}
	want := []string{"questions_config.json", "config/coder.yaml", "settings.json"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("candidates = %v, want %v", paths, want)
	}

	if candidates[0].Score <= candidates[len(candidates)-1].Score {
		t.Fatalf("expected first candidate to have highest score")
	}
	if !strings.Contains(candidates[0].Reason, "question") {
		t.Errorf("reason should explain the score, got %q", candidates[0].Reason)
	}

	again, err := Discover(DefaultConfig(tmpDir))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	for i := range again {
		if again[i] != candidates[i] {
			t.Fatalf("discovery is not deterministic: %v vs %v", again[i], candidates[i])
		}
	}
}

func TestDiscoverRespectsMaxDepth(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	mustWrite(t, tmpDir, "a/b/c/questions.json", questionsJSON)

	candidates, err := Discover(DefaultConfig(tmpDir))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected deep file to be skipped, got %v", candidates)
	}
}

func TestFindConfig(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	mustWrite(t, tmpDir, "config/questions.yaml", "- question_col: Q1\n  instruction: x\n")

	path, err := FindConfig(tmpDir)
	if err != nil {
		t.Fatalf("FindConfig() error = %v", err)
	}
	if filepath.Base(path) != "questions.yaml" || !filepath.IsAbs(path) {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestFindConfigNone(t *testing.T) {
	t.Parallel()

	_, err := FindConfig(t.TempDir())
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
}

func TestDiscoverErrors(t *testing.T) {
	t.Parallel()

	if _, err := Discover(Config{}); err == nil {
		t.Fatal("expected error for empty root")
	}

	file := filepath.Join(t.TempDir(), "file.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Discover(DefaultConfig(file)); err == nil {
		t.Fatal("expected error when root is a file")
	}
}
