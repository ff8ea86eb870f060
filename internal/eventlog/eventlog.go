// Package eventlog appends engine events to an NDJSON file and reads them
// back.
package eventlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/ndjson"
)

// EventLog writes engine events to an NDJSON file
type EventLog struct {
	file    *os.File
	encoder *ndjson.Encoder
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewEventLog opens logPath for appending, creating it if needed
func NewEventLog(logPath string, logger *slog.Logger) (*EventLog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &EventLog{
		file:    file,
		encoder: ndjson.NewEncoder(file, logger),
		logger:  logger,
	}, nil
}

// Write appends one event to the log
func (l *EventLog) Write(evt events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New("event log is closed")
	}
	return l.encoder.Encode(evt)
}

// Observe implements events.Observer. Write failures are logged, not
// propagated, so a full disk never stops labeling.
func (l *EventLog) Observe(evt events.Event) {
	if err := l.Write(evt); err != nil {
		l.logger.Warn("failed to write event", "kind", evt.Kind, "error", err)
	}
}

// Close closes the event log file
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadAll decodes every event in the log at path.
func ReadAll(path string) ([]events.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	dec := ndjson.NewDecoder(f, nil)
	var out []events.Event
	for {
		var evt events.Event
		err := dec.Decode(&evt)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, evt)
	}
}
