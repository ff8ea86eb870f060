// Package events defines the progress notifications the labeling engine
// emits and the observers that consume them.
package events

import "time"

// Kind identifies an engine event.
type Kind string

const (
	KindPassStarted   Kind = "pass_started"
	KindRowLabeled    Kind = "row_labeled"
	KindBatchDegraded Kind = "batch_degraded"
	KindPassFailed    Kind = "pass_failed"
	KindPassCompleted Kind = "pass_completed"
	KindCheckpoint    Kind = "checkpoint"
	KindQuestionDone  Kind = "question_done"
)

// Event is one engine notification. Fields irrelevant to a kind are left
// zero and omitted from the encoded form.
type Event struct {
	Kind      Kind      `json:"kind"`
	Time      time.Time `json:"time"`
	Question  string    `json:"question"`
	Column    string    `json:"column,omitempty"`
	Pass      int       `json:"pass,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	SessionID string    `json:"session_id,omitempty"`

	// Row-level fields.
	Row    *int   `json:"row,omitempty"`
	Answer string `json:"answer,omitempty"`
	Labels string `json:"labels,omitempty"`

	// Pass and batch counters.
	Rows    []int `json:"rows,omitempty"`
	Blank   int   `json:"blank,omitempty"`
	Labeled int   `json:"labeled,omitempty"`
	Unknown int   `json:"unknown,omitempty"`

	// Checkpoint target.
	Path   string `json:"path,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	Size   int64  `json:"size,omitempty"`

	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// RowPtr returns a pointer to row for Event.Row.
func RowPtr(row int) *int { return &row }

// Observer receives engine events. Observe is called synchronously from the
// engine goroutine and must not block for long.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Multi fans an event out to several observers in order. Nil entries are
// skipped.
type Multi []Observer

func (m Multi) Observe(e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Recorder keeps every event it sees. Useful in tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Observe(e Event) { r.Events = append(r.Events, e) }

// Count returns how many recorded events have kind k.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Of returns the recorded events of kind k.
func (r *Recorder) Of(k Kind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
