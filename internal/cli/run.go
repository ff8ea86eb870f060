package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/config"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/dataset"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/discovery"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/engine"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/eventlog"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/events"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/runstate"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/taxonomy"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/transcript"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Label every configured question column of a dataset",
	Long: `Run sends the blank rows of each configured question column to the chat
model, writes the returned labels into a "<question> [Codes]" column, and
repeats until no blank rows remain.

The output file is rewritten after every pass. Re-running against the output
file only labels rows that are still blank.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("input", "i", "", "Input dataset (.csv or .xlsx)")
	runCmd.Flags().StringP("output", "o", "", "Output dataset (.csv or .xlsx)")
	runCmd.Flags().StringP("config", "c", "", "Question config file (JSON or YAML; discovered when omitted)")
	runCmd.Flags().String("sheet", "", "Spreadsheet tab to read (first tab when empty)")
	runCmd.Flags().String("model", "", "Model id (overrides policy.model)")
	runCmd.Flags().Int("batch-size", 0, "Rows per request (overrides policy.batch_size)")
	runCmd.Flags().Int("max-attempts", 0, "Consecutive failed passes before giving up, 0 for unlimited (overrides policy.retry.max_attempts)")
	runCmd.Flags().String("provider", "", "Chat provider: aibots or openai (overrides CODER_PROVIDER)")
	runCmd.Flags().String("cache", taxonomy.DefaultCachePath, "Taxonomy cache path")
	runCmd.Flags().String("cache-backend", backendJSON, "Taxonomy cache backend: json or sqlite")
	runCmd.Flags().String("events", "", "Append an NDJSON event log to this path")
	runCmd.Flags().Bool("no-verbose", false, "Print pass summaries only, not every labeled row")
}

// runJob is everything one labeling run needs, whether it came from flags
// or from a saved run state
type runJob struct {
	RunID        string
	Input        string
	Output       string
	ConfigPath   string
	Sheet        string
	Model        string
	BatchSize    int
	MaxAttempts  int
	Provider     string
	Cache        string
	CacheBackend string
	Events       string
	Verbose      bool

	// set explicitly by flag rather than defaulted
	hasMaxAttempts bool
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	job, err := jobFromFlags(cmd)
	if err != nil {
		return err
	}
	return executeJob(cmd, job, logger)
}

func jobFromFlags(cmd *cobra.Command) (runJob, error) {
	flags := cmd.Flags()
	input, _ := flags.GetString("input")
	output, _ := flags.GetString("output")
	if input == "" || output == "" {
		return runJob{}, fmt.Errorf("configuration error: --input and --output are required\n\nHint: coder run --input survey.xlsx --output survey_coded.xlsx --config questions_config.json")
	}

	job := runJob{
		RunID:  newRunID(),
		Input:  input,
		Output: output,
	}
	job.ConfigPath, _ = flags.GetString("config")
	job.Sheet, _ = flags.GetString("sheet")
	job.Model, _ = flags.GetString("model")
	job.BatchSize, _ = flags.GetInt("batch-size")
	job.Provider, _ = flags.GetString("provider")
	job.Cache, _ = flags.GetString("cache")
	job.CacheBackend, _ = flags.GetString("cache-backend")
	job.Events, _ = flags.GetString("events")

	if flags.Changed("max-attempts") {
		job.MaxAttempts, _ = flags.GetInt("max-attempts")
		job.hasMaxAttempts = true
	}
	noVerbose, _ := flags.GetBool("no-verbose")
	job.Verbose = !noVerbose

	return job, nil
}

func newRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.New().String()[:8])
}

// loadJobConfig resolves the config path (discovering one when unset),
// loads it, and applies flag overrides to its policy
func loadJobConfig(job *runJob, logger *slog.Logger) (*config.Config, error) {
	if job.ConfigPath == "" {
		found, err := discovery.FindConfig(".")
		if err != nil {
			if errors.Is(err, discovery.ErrNoConfig) {
				return nil, fmt.Errorf("configuration error: no question config found\n\nHint: Pass one explicitly:\n  coder run --config questions_config.json ...")
			}
			return nil, err
		}
		logger.Info("using discovered question config", "path", found)
		job.ConfigPath = found
	}

	cfg, err := config.LoadFromFile(job.ConfigPath)
	if err != nil {
		return nil, err
	}

	if job.Model != "" {
		cfg.Policy.Model = job.Model
	}
	if job.BatchSize != 0 {
		cfg.Policy.BatchSize = job.BatchSize
	}
	if job.hasMaxAttempts {
		cfg.Policy.Retry.MaxAttempts = job.MaxAttempts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Record the effective values so resume replays the same run
	job.Model = cfg.Policy.Model
	job.BatchSize = cfg.Policy.BatchSize
	job.MaxAttempts = cfg.Policy.Retry.MaxAttempts
	job.hasMaxAttempts = true
	return cfg, nil
}

// checkPaths rejects dataset paths Load or Save cannot handle, before any
// oracle call is made
func checkPaths(job runJob) error {
	if err := dataset.CheckFormat(job.Input); err != nil {
		return fmt.Errorf("configuration error: --input %s: %w\n\nHint: Use a .csv, .xlsx or .xlsm file", job.Input, err)
	}
	if err := dataset.CheckFormat(job.Output); err != nil {
		return fmt.Errorf("configuration error: --output %s: %w\n\nHint: Use a .csv, .xlsx or .xlsm output path:\n  coder run --output survey_coded.csv ...", job.Output, err)
	}
	return nil
}

func retryPolicy(r config.Retry) engine.RetryPolicy {
	return engine.RetryPolicy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: time.Duration(r.Backoff.InitialMs) * time.Millisecond,
		MaxInterval:     time.Duration(r.Backoff.MaxMs) * time.Millisecond,
		Multiplier:      r.Backoff.Multiplier,
	}
}

func questions(cfg *config.Config) []engine.Question {
	qs := make([]engine.Question, 0, len(cfg.Questions))
	for _, q := range cfg.Questions {
		qs = append(qs, engine.Question{Column: q.Column, Instruction: q.Instruction})
	}
	return qs
}

// executeJob runs the engine for job and records progress beside the output
func executeJob(cmd *cobra.Command, job runJob, logger *slog.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if err := checkPaths(job); err != nil {
		return err
	}

	cfg, err := loadJobConfig(&job, logger)
	if err != nil {
		return err
	}

	env := config.LoadOracleEnv(os.Getenv)
	if job.Provider != "" {
		env.Provider = strings.ToLower(strings.TrimSpace(job.Provider))
	}
	if err := env.Validate(); err != nil {
		return err
	}
	job.Provider = env.Provider

	ds, err := dataset.Load(job.Input, dataset.LoadOptions{Sheet: job.Sheet})
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}
	logger.Info("loaded dataset", "path", job.Input, "rows", ds.Len(), "columns", len(ds.Columns()))

	store, closeStore, err := openStore(job.CacheBackend, job.Cache, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close taxonomy cache", "error", err)
		}
	}()

	client, err := newOracle(env, logger)
	if err != nil {
		return err
	}

	state := runstate.NewRunState(job.RunID, job.Input, job.Output)
	state.Config = job.ConfigPath
	state.Sheet = job.Sheet
	state.Cache = job.Cache
	state.CacheBackend = job.CacheBackend
	state.Events = job.Events
	state.Provider = job.Provider
	state.Model = job.Model
	state.BatchSize = job.BatchSize
	for _, q := range cfg.Questions {
		state.Question(q.Column)
	}

	tracker := runstate.NewTracker(state, runstate.PathFor(job.Output), logger)
	if err := tracker.Save(); err != nil {
		logger.Warn("failed to save run state", "error", err)
	}

	observers := events.Multi{
		transcript.NewConsole(out, job.Verbose),
		tracker,
	}
	if job.Events != "" {
		evlog, err := eventlog.NewEventLog(job.Events, logger)
		if err != nil {
			return err
		}
		defer evlog.Close()
		observers = append(observers, evlog)
	}

	eng := engine.New(client, store, engine.Options{
		Model:             cfg.Policy.Model,
		BatchSize:         cfg.Policy.BatchSize,
		OutputPath:        job.Output,
		AutosaveEveryPass: cfg.Policy.AutosaveEveryPass,
		Retry:             retryPolicy(cfg.Policy.Retry),
		MaxStalledPasses:  cfg.Policy.MaxStalledPasses,
		Logger:            logger,
		Observer:          observers,
	})

	logger.Info("starting run", "run_id", job.RunID, "provider", job.Provider, "model", job.Model, "batch_size", job.BatchSize, "questions", len(cfg.Questions))

	outcomes, runErr := eng.Run(ctx, ds, questions(cfg))
	for _, o := range outcomes {
		if o.Skipped {
			tracker.Update(func(s *runstate.RunState) {
				s.Skip(o.Question, "column not found in input")
			})
		}
	}

	artifact, saveErr := ds.Save(job.Output)
	if saveErr != nil {
		logger.Error("failed to save output", "path", job.Output, "error", saveErr)
	} else {
		tracker.Update(func(s *runstate.RunState) {
			s.LastCheckpoint = &artifact
		})
		fmt.Fprintf(out, "Done. Saved to %s\n", job.Output)
	}

	switch {
	case ctx.Err() != nil:
		tracker.Update((*runstate.RunState).MarkAborted)
		return fmt.Errorf("run interrupted: %w", ctx.Err())
	case runErr != nil || saveErr != nil:
		tracker.Update((*runstate.RunState).MarkFailed)
		return errors.Join(runErr, saveErr)
	default:
		tracker.Update((*runstate.RunState).MarkCompleted)
		logger.Info("run completed", "run_id", job.RunID, "output", job.Output)
		return nil
	}
}
