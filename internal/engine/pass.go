package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/dataset"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/request"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/response"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/sanitize"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/taxonomy"
)

// maxReplyInEvent bounds the reply text attached to batch_degraded events.
const maxReplyInEvent = 200

// questionState is the working state for one LabelQuestion call.
type questionState struct {
	q      Question
	col    string
	tax    *taxonomy.Set
	pass   int
	logger *slog.Logger
}

// reseed adds every label already written in the codes column.
func (st *questionState) reseed(ds *dataset.Dataset) {
	values, err := ds.Values(st.col)
	if err != nil {
		return
	}
	st.tax.AddCells(values...)
}

// runPass opens a session and works through the current backlog of blank
// rows in batches. It returns how many rows were labeled.
func (e *Engine) runPass(ctx context.Context, ds *dataset.Dataset, st *questionState) (int, error) {
	st.pass++
	blank := ds.BlankRows(st.col)

	sessionID, err := e.client.OpenSession(ctx, e.opts.Model, "coding:"+st.q.Column)
	if err != nil {
		return 0, fmt.Errorf("open session: %w", err)
	}

	st.reseed(ds)
	e.emit(events.Event{
		Kind:      events.KindPassStarted,
		Question:  st.q.Column,
		Column:    st.col,
		Pass:      st.pass,
		SessionID: sessionID,
		Blank:     len(blank),
	})
	st.logger.Debug("pass started", "pass", st.pass, "blank", len(blank), "session_id", sessionID)

	labeled := 0
	for chunk := range slices.Chunk(blank, e.opts.BatchSize) {
		var n int
		if e.opts.BatchSize == 1 {
			n, err = e.labelRow(ctx, ds, st, sessionID, chunk[0])
		} else {
			n, err = e.labelBatch(ctx, ds, st, sessionID, chunk)
		}
		labeled += n
		if err != nil {
			return labeled, err
		}
	}

	e.emit(events.Event{
		Kind:     events.KindPassCompleted,
		Question: st.q.Column,
		Column:   st.col,
		Pass:     st.pass,
		Labeled:  labeled,
		Blank:    len(ds.BlankRows(st.col)),
	})
	return labeled, nil
}

func (e *Engine) labelRow(ctx context.Context, ds *dataset.Dataset, st *questionState, sessionID string, row int) (int, error) {
	answer := sanitize.Clean(ds.Cell(row, st.q.Column))

	payload, err := request.Single(st.q.Instruction, st.q.Column, answer, st.tax.Labels())
	if err != nil {
		return 0, err
	}
	reply, err := e.client.Send(ctx, sessionID, payload)
	if err != nil {
		return 0, fmt.Errorf("send row %d: %w", row, err)
	}

	cell := response.Single(reply)
	if cell == "" {
		st.logger.Debug("empty label, row left blank", "row", row, "request", request.Fingerprint(payload))
		return 0, nil
	}
	return 1, e.write(ds, st, row, answer, cell)
}

func (e *Engine) labelBatch(ctx context.Context, ds *dataset.Dataset, st *questionState, sessionID string, rows []int) (int, error) {
	items := make([]request.Item, len(rows))
	answers := make(map[int]string, len(rows))
	for i, r := range rows {
		answers[r] = sanitize.Clean(ds.Cell(r, st.q.Column))
		items[i] = request.Item{Row: r, Answer: answers[r]}
	}

	payload, err := request.Batch(st.q.Instruction, st.q.Column, items, st.tax.Labels())
	if err != nil {
		return 0, err
	}
	reply, err := e.client.Send(ctx, sessionID, payload)
	if err != nil {
		return 0, fmt.Errorf("send batch of %d: %w", len(rows), err)
	}

	parsed := response.ParseBatch(reply, rows)
	if parsed.Degraded {
		e.emit(events.Event{
			Kind:     events.KindBatchDegraded,
			Question: st.q.Column,
			Column:   st.col,
			Pass:     st.pass,
			Rows:     rows,
			Reply:    excerpt(reply, maxReplyInEvent),
		})
		st.logger.Warn("unparseable batch reply, rows left blank",
			"rows", len(rows), "request", request.Fingerprint(payload))
		return 0, nil
	}
	if parsed.Unknown > 0 {
		st.logger.Debug("discarded results for rows not in batch", "count", parsed.Unknown)
	}

	labeled := 0
	for _, r := range rows {
		cell, ok := parsed.Labels[r]
		if !ok {
			continue
		}
		if err := e.write(ds, st, r, answers[r], cell); err != nil {
			return labeled, err
		}
		labeled++
	}
	if labeled < len(rows) {
		st.logger.Debug("batch reply omitted rows", "sent", len(rows), "labeled", labeled)
	}
	return labeled, nil
}

// write stores a normalized cell and grows the taxonomy.
func (e *Engine) write(ds *dataset.Dataset, st *questionState, row int, answer, cell string) error {
	if err := ds.SetCell(row, st.col, cell); err != nil {
		return err
	}
	st.tax.AddCells(cell)
	e.emit(events.Event{
		Kind:     events.KindRowLabeled,
		Question: st.q.Column,
		Column:   st.col,
		Pass:     st.pass,
		Row:      events.RowPtr(row),
		Answer:   answer,
		Labels:   cell,
	})
	return nil
}

// excerpt cuts s to at most n bytes without splitting a UTF-8 sequence.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
