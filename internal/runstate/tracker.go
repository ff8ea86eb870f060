package runstate

import (
	"log/slog"
	"sync"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
)

// Tracker is an events.Observer that keeps a RunState current and saves it
// whenever a pass boundary or checkpoint is reached.
type Tracker struct {
	mu     sync.Mutex
	state  *RunState
	path   string
	logger *slog.Logger
}

// NewTracker creates a tracker persisting state to path
func NewTracker(state *RunState, path string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{state: state, path: path, logger: logger}
}

// Observe implements events.Observer
func (t *Tracker) Observe(e events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Apply(e)
	if e.Kind == events.KindRowLabeled {
		return
	}
	t.saveLocked()
}

// Update applies fn to the state under the tracker lock and saves it
func (t *Tracker) Update(fn func(*RunState)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn(t.state)
	t.saveLocked()
}

// Save persists the current state
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return SaveRunState(t.state, t.path)
}

func (t *Tracker) saveLocked() {
	if err := SaveRunState(t.state, t.path); err != nil {
		t.logger.Warn("failed to save run state", "path", t.path, "error", err)
	}
}
