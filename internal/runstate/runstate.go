package runstate

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/fsutil"
)

// Status represents the overall state of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// QuestionStatus represents the progress of one question
type QuestionStatus string

const (
	QuestionPending QuestionStatus = "pending"
	QuestionRunning QuestionStatus = "running"
	QuestionDone    QuestionStatus = "done"
	QuestionFailed  QuestionStatus = "failed"
	QuestionSkipped QuestionStatus = "skipped"
)

// QuestionState is the persisted progress for one question column
type QuestionState struct {
	Question        string         `json:"question"`
	Column          string         `json:"codes_column,omitempty"`
	Status          QuestionStatus `json:"status"`
	Passes          int            `json:"passes"`
	FailedPasses    int            `json:"failed_passes"`
	DegradedBatches int            `json:"degraded_batches"`
	RowsLabeled     int            `json:"rows_labeled"`
	Remaining       int            `json:"remaining"`
	LastError       string         `json:"last_error,omitempty"`
}

// RunState represents the persisted state of a run
type RunState struct {
	RunID          string           `json:"run_id"`
	Status         Status           `json:"status"`
	Input          string           `json:"input"`
	Output         string           `json:"output"`
	Config         string           `json:"config,omitempty"`
	Sheet          string           `json:"sheet,omitempty"`
	Cache          string           `json:"cache,omitempty"`
	CacheBackend   string           `json:"cache_backend,omitempty"`
	Events         string           `json:"events,omitempty"`
	Provider       string           `json:"provider,omitempty"`
	Model          string           `json:"model,omitempty"`
	BatchSize      int              `json:"batch_size,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Questions      []*QuestionState `json:"questions"`
	LastCheckpoint *fsutil.Artifact `json:"last_checkpoint,omitempty"`
}

// NewRunState creates a new run state
func NewRunState(runID, input, output string) *RunState {
	return &RunState{
		RunID:     runID,
		Status:    StatusRunning,
		Input:     input,
		Output:    output,
		StartedAt: time.Now().UTC(),
		Questions: []*QuestionState{},
	}
}

// SaveRunState writes run state to disk atomically
func SaveRunState(state *RunState, path string) error {
	_, err := fsutil.AtomicWriteJSON(path, state)
	return err
}

// LoadRunState reads run state from disk
func LoadRunState(path string) (*RunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
	}

	if state.Questions == nil {
		state.Questions = []*QuestionState{}
	}

	return &state, nil
}

// PathFor returns the run state path kept beside an output dataset
func PathFor(output string) string {
	return output + ".run.json"
}

// MarkCompleted marks the run as completed
func (s *RunState) MarkCompleted() {
	s.Status = StatusCompleted
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// MarkFailed marks the run as failed
func (s *RunState) MarkFailed() {
	s.Status = StatusFailed
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// MarkAborted marks the run as aborted
func (s *RunState) MarkAborted() {
	s.Status = StatusAborted
	now := time.Now().UTC()
	s.CompletedAt = &now
}

// Question returns the state for question, adding a pending entry if absent
func (s *RunState) Question(question string) *QuestionState {
	for _, q := range s.Questions {
		if q.Question == question {
			return q
		}
	}
	q := &QuestionState{Question: question, Status: QuestionPending}
	s.Questions = append(s.Questions, q)
	return q
}

// Skip records that question was not processed
func (s *RunState) Skip(question, reason string) {
	q := s.Question(question)
	q.Status = QuestionSkipped
	q.LastError = reason
}

// Apply folds one engine event into the state
func (s *RunState) Apply(e events.Event) {
	if e.Kind == events.KindCheckpoint {
		s.LastCheckpoint = &fsutil.Artifact{Path: e.Path, SHA256: e.SHA256, Size: e.Size}
		return
	}
	if e.Question == "" {
		return
	}

	q := s.Question(e.Question)
	if e.Column != "" {
		q.Column = e.Column
	}

	switch e.Kind {
	case events.KindPassStarted:
		q.Status = QuestionRunning
		q.Passes = e.Pass
		q.Remaining = e.Blank
	case events.KindRowLabeled:
		q.RowsLabeled++
		if q.Remaining > 0 {
			q.Remaining--
		}
	case events.KindBatchDegraded:
		q.DegradedBatches++
	case events.KindPassFailed:
		q.FailedPasses++
		q.LastError = e.Error
	case events.KindPassCompleted:
		q.Remaining = e.Blank
	case events.KindQuestionDone:
		q.Remaining = e.Blank
		if e.Error != "" {
			q.Status = QuestionFailed
			q.LastError = e.Error
		} else {
			q.Status = QuestionDone
			q.LastError = ""
		}
	}
}
