package runstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
)

func TestNewRunState(t *testing.T) {
	state := NewRunState("run-abc123", "in.csv", "out.csv")

	if state.RunID != "run-abc123" {
		t.Errorf("RunID = %s, want run-abc123", state.RunID)
	}
	if state.Status != StatusRunning {
		t.Errorf("Status = %s, want %s", state.Status, StatusRunning)
	}
	if state.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}
	if state.Questions == nil {
		t.Error("Questions should be an empty slice, not nil")
	}
}

func TestSaveAndLoadRunState(t *testing.T) {
	tmpDir := t.TempDir()
	statePath := PathFor(filepath.Join(tmpDir, "out", "coded.csv"))

	original := NewRunState("run-001", "in.csv", "coded.csv")
	original.Model = "azure~openai.gpt-4o-mini"
	q := original.Question("Q1")
	q.Column = "Q1 [Codes]"
	q.Passes = 2

	if err := SaveRunState(original, statePath); err != nil {
		t.Fatalf("SaveRunState() error = %v", err)
	}

	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		t.Fatal("state file not created")
	}

	loaded, err := LoadRunState(statePath)
	if err != nil {
		t.Fatalf("LoadRunState() error = %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID = %s, want %s", loaded.RunID, original.RunID)
	}
	if loaded.Model != original.Model {
		t.Errorf("Model = %s, want %s", loaded.Model, original.Model)
	}
	if len(loaded.Questions) != 1 || loaded.Questions[0].Column != "Q1 [Codes]" {
		t.Errorf("Questions = %+v, want one entry for Q1 [Codes]", loaded.Questions)
	}
	if loaded.Questions[0].Passes != 2 {
		t.Errorf("Passes = %d, want 2", loaded.Questions[0].Passes)
	}
}

func TestLoadRunStateErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadRunState(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRunState(bad); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestMarkCompleted(t *testing.T) {
	state := &RunState{
		RunID:     "run-001",
		Status:    StatusRunning,
		StartedAt: time.Now().UTC().Add(-1 * time.Hour),
	}

	state.MarkCompleted()

	if state.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", state.Status, StatusCompleted)
	}
	if state.CompletedAt == nil {
		t.Fatal("CompletedAt is nil")
	}
	if !state.CompletedAt.After(state.StartedAt) {
		t.Error("CompletedAt should be after StartedAt")
	}
}

func TestMarkFailedAndAborted(t *testing.T) {
	failed := &RunState{RunID: "run-001", Status: StatusRunning}
	failed.MarkFailed()
	if failed.Status != StatusFailed || failed.CompletedAt == nil {
		t.Errorf("MarkFailed: status=%s completed_at=%v", failed.Status, failed.CompletedAt)
	}

	aborted := &RunState{RunID: "run-002", Status: StatusRunning}
	aborted.MarkAborted()
	if aborted.Status != StatusAborted || aborted.CompletedAt == nil {
		t.Errorf("MarkAborted: status=%s completed_at=%v", aborted.Status, aborted.CompletedAt)
	}
}

func TestQuestionIsStable(t *testing.T) {
	state := NewRunState("run-001", "in.csv", "out.csv")

	a := state.Question("Q1")
	b := state.Question("Q1")
	if a != b {
		t.Error("Question should return the same entry for the same name")
	}
	if a.Status != QuestionPending {
		t.Errorf("Status = %s, want %s", a.Status, QuestionPending)
	}

	state.Skip("Q9", "column not found")
	if got := state.Question("Q9"); got.Status != QuestionSkipped || got.LastError != "column not found" {
		t.Errorf("Skip: got %+v", got)
	}
	if len(state.Questions) != 2 {
		t.Errorf("len(Questions) = %d, want 2", len(state.Questions))
	}
}

func TestApplyEvents(t *testing.T) {
	state := NewRunState("run-001", "in.csv", "out.csv")

	for _, e := range []events.Event{
		{Kind: events.KindPassStarted, Question: "Q1", Column: "Q1 [Codes]", Pass: 1, Blank: 3},
		{Kind: events.KindRowLabeled, Question: "Q1", Row: events.RowPtr(0)},
		{Kind: events.KindBatchDegraded, Question: "Q1"},
		{Kind: events.KindPassFailed, Question: "Q1", Pass: 1, Error: "HTTP 502"},
		{Kind: events.KindCheckpoint, Question: "Q1", Path: "out.csv", SHA256: "sha256:abc", Size: 42},
		{Kind: events.KindPassStarted, Question: "Q1", Pass: 2, Blank: 2},
		{Kind: events.KindRowLabeled, Question: "Q1", Row: events.RowPtr(1)},
		{Kind: events.KindRowLabeled, Question: "Q1", Row: events.RowPtr(2)},
		{Kind: events.KindPassCompleted, Question: "Q1", Pass: 2},
		{Kind: events.KindQuestionDone, Question: "Q1"},
	} {
		state.Apply(e)
	}

	q := state.Question("Q1")
	if q.Status != QuestionDone {
		t.Errorf("Status = %s, want %s", q.Status, QuestionDone)
	}
	if q.Column != "Q1 [Codes]" {
		t.Errorf("Column = %s", q.Column)
	}
	if q.Passes != 2 || q.FailedPasses != 1 || q.DegradedBatches != 1 {
		t.Errorf("passes=%d failed=%d degraded=%d", q.Passes, q.FailedPasses, q.DegradedBatches)
	}
	if q.RowsLabeled != 3 || q.Remaining != 0 {
		t.Errorf("rows_labeled=%d remaining=%d", q.RowsLabeled, q.Remaining)
	}
	if q.LastError != "" {
		t.Errorf("LastError should clear on success, got %q", q.LastError)
	}
	if state.LastCheckpoint == nil || state.LastCheckpoint.Size != 42 {
		t.Errorf("LastCheckpoint = %+v", state.LastCheckpoint)
	}
}

func TestApplyQuestionFailure(t *testing.T) {
	state := NewRunState("run-001", "in.csv", "out.csv")
	state.Apply(events.Event{Kind: events.KindQuestionDone, Question: "Q1", Blank: 4, Error: "retries exhausted"})

	q := state.Question("Q1")
	if q.Status != QuestionFailed || q.Remaining != 4 || q.LastError != "retries exhausted" {
		t.Errorf("got %+v", q)
	}
}

func TestTrackerPersistsAtPassBoundaries(t *testing.T) {
	path := PathFor(filepath.Join(t.TempDir(), "out.csv"))
	tracker := NewTracker(NewRunState("run-001", "in.csv", "out.csv"), path, nil)

	tracker.Observe(events.Event{Kind: events.KindRowLabeled, Question: "Q1", Row: events.RowPtr(0)})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("row events should not trigger a save")
	}

	tracker.Observe(events.Event{Kind: events.KindPassCompleted, Question: "Q1", Pass: 1})
	loaded, err := LoadRunState(path)
	if err != nil {
		t.Fatalf("LoadRunState() error = %v", err)
	}
	if loaded.Question("Q1").RowsLabeled != 1 {
		t.Errorf("RowsLabeled = %d, want 1", loaded.Question("Q1").RowsLabeled)
	}

	tracker.Update(func(s *RunState) { s.MarkCompleted() })
	loaded, err = LoadRunState(path)
	if err != nil {
		t.Fatalf("LoadRunState() error = %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", loaded.Status, StatusCompleted)
	}
}
