// Package engine runs the iterative labeling loop: it sends blank rows to the
// oracle pass after pass until every row of a question has codes, growing the
// question's taxonomy and checkpointing as it goes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/dataset"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/oracle"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/taxonomy"
)

var (
	// ErrRetriesExhausted is returned when a question hits the retry
	// policy's attempt ceiling without completing a pass.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrStalled is returned when consecutive passes complete without
	// labeling any row.
	ErrStalled = errors.New("labeling stalled")
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "azure~openai.gpt-4o-mini"

// Question is one labeling target.
type Question struct {
	Column      string
	Instruction string
}

// RetryPolicy controls how failed passes are retried.
type RetryPolicy struct {
	// MaxAttempts caps consecutive failed passes. Zero retries forever.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	return b
}

// Options configures an Engine.
type Options struct {
	Model string
	// BatchSize is the number of rows per request. 1 selects the single-row
	// request form.
	BatchSize int
	// OutputPath receives checkpoints. Empty disables dataset snapshots.
	OutputPath        string
	AutosaveEveryPass bool
	Retry             RetryPolicy
	// MaxStalledPasses stops a question after this many consecutive passes
	// that label nothing. Zero disables the guard.
	MaxStalledPasses int
	Logger           *slog.Logger
	Observer         events.Observer
}

// Engine labels questions of a dataset through an oracle.
type Engine struct {
	client oracle.Client
	store  taxonomy.Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Engine.
func New(client oracle.Client, store taxonomy.Store, opts Options) *Engine {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.Observer == nil {
		opts.Observer = events.Multi{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if store == nil {
		store = taxonomy.NewMemoryStore()
	}
	return &Engine{
		client: client,
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Outcome reports what happened to one question in Run.
type Outcome struct {
	Question string
	Column   string
	Skipped  bool
	Err      error
}

// Run labels each question in order. Questions whose column is missing are
// skipped with a warning. A question that fails does not stop the others;
// its error is included in the joined error returned at the end. Context
// cancellation stops the run immediately.
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, questions []Question) ([]Outcome, error) {
	var (
		outcomes []Outcome
		errs     []error
	)
	for _, q := range questions {
		if !ds.HasColumn(q.Column) {
			e.logger.Warn("skipping missing column", "question", q.Column)
			outcomes = append(outcomes, Outcome{Question: q.Column, Skipped: true})
			continue
		}

		col, err := e.LabelQuestion(ctx, ds, q)
		outcomes = append(outcomes, Outcome{Question: q.Column, Column: col, Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return outcomes, err
			}
			errs = append(errs, fmt.Errorf("%s: %w", q.Column, err))
		}
	}
	return outcomes, errors.Join(errs...)
}

// LabelQuestion fills the codes column for q until no blank rows remain and
// returns the codes column name. Work done before a failure is checkpointed
// and kept even when an error is returned.
func (e *Engine) LabelQuestion(ctx context.Context, ds *dataset.Dataset, q Question) (string, error) {
	col, created, err := ds.EnsureCodesColumn(q.Column)
	if err != nil {
		return "", err
	}
	logger := e.logger.With("question", q.Column, "codes_column", col)
	if created {
		logger.Info("created codes column")
	} else {
		logger.Info("reusing codes column")
	}

	st := &questionState{
		q:      q,
		col:    col,
		tax:    taxonomy.NewSet(),
		logger: logger,
	}
	st.reseed(ds)
	st.tax.Add(e.store.Get(q.Column)...)

	stalled := 0
	for len(ds.BlankRows(col)) > 0 {
		if err := ctx.Err(); err != nil {
			return col, e.fail(ds, st, err)
		}

		labeled, err := e.passWithRetry(ctx, ds, st)
		if err != nil {
			return col, e.fail(ds, st, err)
		}

		e.mergeTaxonomy(st)
		if e.opts.AutosaveEveryPass {
			if err := e.checkpoint(ds, st); err != nil {
				logger.Warn("autosave failed", "error", err)
			}
		}

		if labeled > 0 {
			stalled = 0
			continue
		}
		stalled++
		logger.Warn("pass labeled no rows", "consecutive", stalled)
		if e.opts.MaxStalledPasses > 0 && stalled >= e.opts.MaxStalledPasses {
			return col, e.fail(ds, st, fmt.Errorf("%w: %d consecutive passes labeled no rows", ErrStalled, stalled))
		}
	}

	e.mergeTaxonomy(st)
	if e.opts.OutputPath != "" {
		if err := e.checkpoint(ds, st); err != nil {
			return col, fmt.Errorf("final save: %w", err)
		}
	}

	e.emit(events.Event{Kind: events.KindQuestionDone, Question: q.Column, Column: col, Pass: st.pass})
	logger.Info("question complete", "passes", st.pass, "taxonomy_size", st.tax.Len())
	return col, nil
}

// passWithRetry runs one pass, retrying failed passes per the retry policy.
// Each failure is checkpointed before the next attempt. A failed pass that
// labeled rows returns its count without error, so the caller starts the
// next pass with a fresh attempt budget; only passes that fail without
// labeling anything count toward MaxAttempts.
func (e *Engine) passWithRetry(ctx context.Context, ds *dataset.Dataset, st *questionState) (int, error) {
	attempt := 0
	op := func() (int, error) {
		attempt++
		labeled, err := e.runPass(ctx, ds, st)
		if err == nil {
			return labeled, nil
		}

		e.mergeTaxonomy(st)
		if cerr := e.checkpoint(ds, st); cerr != nil {
			st.logger.Error("checkpoint after failed pass", "error", cerr)
		}
		e.emit(events.Event{
			Kind:     events.KindPassFailed,
			Question: st.q.Column,
			Column:   st.col,
			Pass:     st.pass,
			Attempt:  attempt,
			Error:    err.Error(),
		})
		st.logger.Warn("pass aborted", "pass", st.pass, "attempt", attempt, "labeled", labeled, "error", err)

		if ctx.Err() != nil {
			return 0, backoff.Permanent(err)
		}
		if labeled > 0 {
			return labeled, nil
		}
		return 0, err
	}

	policy := e.opts.Retry
	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxElapsedTime(0),
	}
	if policy.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(policy.MaxAttempts)))
	}

	labeled, err := backoff.Retry(ctx, op, opts...)
	if err == nil {
		return labeled, nil
	}
	if ctx.Err() != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, attempt, err)
}

// fail checkpoints and reports a question that will not converge.
func (e *Engine) fail(ds *dataset.Dataset, st *questionState, err error) error {
	e.mergeTaxonomy(st)
	if cerr := e.checkpoint(ds, st); cerr != nil {
		st.logger.Error("checkpoint after failure", "error", cerr)
	}
	blank := len(ds.BlankRows(st.col))
	e.emit(events.Event{
		Kind:     events.KindQuestionDone,
		Question: st.q.Column,
		Column:   st.col,
		Pass:     st.pass,
		Blank:    blank,
		Error:    err.Error(),
	})
	st.logger.Error("question failed", "remaining", blank, "error", err)
	return err
}

// mergeTaxonomy records the current taxonomy in the store. Persist errors
// are logged and otherwise ignored.
func (e *Engine) mergeTaxonomy(st *questionState) {
	e.store.Merge(st.q.Column, st.tax.Labels())
	if err := e.store.Persist(); err != nil {
		st.logger.Warn("taxonomy persist failed", "error", err)
	}
}

// checkpoint snapshots the dataset to the output path.
func (e *Engine) checkpoint(ds *dataset.Dataset, st *questionState) error {
	if e.opts.OutputPath == "" {
		return nil
	}
	artifact, err := ds.Save(e.opts.OutputPath)
	if err != nil {
		return err
	}
	e.emit(events.Event{
		Kind:     events.KindCheckpoint,
		Question: st.q.Column,
		Column:   st.col,
		Pass:     st.pass,
		Path:     artifact.Path,
		SHA256:   artifact.SHA256,
		Size:     artifact.Size,
	})
	return nil
}

func (e *Engine) emit(evt events.Event) {
	if evt.Time.IsZero() {
		evt.Time = e.now().UTC()
	}
	e.opts.Observer.Observe(evt)
}
