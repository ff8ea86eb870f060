// Package transcript renders engine events as a human-readable console
// narration.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
)

const rule = "----------------------"

// Formatter formats engine events for console output
type Formatter struct{}

// NewFormatter creates a new transcript formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatEvent formats an event for console display. Row events render as a
// multi-line block; everything else is a single line. An empty string means
// the event has no console form.
func (f *Formatter) FormatEvent(evt events.Event) string {
	switch evt.Kind {
	case events.KindRowLabeled:
		return f.FormatRow(evt)

	case events.KindPassStarted:
		return fmt.Sprintf("[%s] pass %d: %d blank row(s) in %s",
			evt.Question, evt.Pass, evt.Blank, evt.Column)

	case events.KindPassCompleted:
		return fmt.Sprintf("[%s] pass %d complete: labeled %d, %d remaining",
			evt.Question, evt.Pass, evt.Labeled, evt.Blank)

	case events.KindPassFailed:
		return fmt.Sprintf("[pass aborted for '%s'] %s; restarting pass (attempt %d)",
			evt.Question, evt.Error, evt.Attempt)

	case events.KindBatchDegraded:
		return fmt.Sprintf("[%s] unparseable batch reply, rows %s left for next pass",
			evt.Question, formatRows(evt.Rows))

	case events.KindCheckpoint:
		return fmt.Sprintf("[%s] checkpoint: %s (%s)",
			evt.Question, evt.Path, f.formatSize(evt.Size))

	case events.KindQuestionDone:
		if evt.Error != "" {
			return fmt.Sprintf("[%s] failed: %s (%d row(s) still blank)", evt.Question, evt.Error, evt.Blank)
		}
		return fmt.Sprintf("[%s] done: %s", evt.Question, evt.Column)

	default:
		return ""
	}
}

// FormatRow renders the per-row block shown for every labeled answer
func (f *Formatter) FormatRow(evt events.Event) string {
	row := -1
	if evt.Row != nil {
		row = *evt.Row
	}

	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "Q: %s\n", evt.Question)
	fmt.Fprintf(&b, "Row: %d\n", row)
	fmt.Fprintf(&b, "A: %s\n", evt.Answer)
	fmt.Fprintf(&b, "LLM: %s\n", evt.Labels)
	b.WriteString(rule + "\n")
	return b.String()
}

func formatRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprint(r)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatSize formats a byte size in a human-readable format
func (f *Formatter) formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Console is an events.Observer that prints the transcript to a writer.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	f       *Formatter
}

// NewConsole creates a console observer. When verbose is false, per-row
// blocks are suppressed and only pass-level lines are printed.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose, f: NewFormatter()}
}

// Observe implements events.Observer
func (c *Console) Observe(evt events.Event) {
	if evt.Kind == events.KindRowLabeled && !c.verbose {
		return
	}
	line := c.f.FormatEvent(evt)
	if line == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}
