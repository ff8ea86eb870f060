package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoQuestions is returned when a config lists no questions.
var ErrNoQuestions = errors.New("no questions configured")

// Config is the question config file: the questions to label plus an
// optional labeling policy. A file may also be a bare list of questions.
type Config struct {
	Questions []QuestionSpec `json:"questions" yaml:"questions"`
	Policy    Policy         `json:"policy" yaml:"policy"`
}

// QuestionSpec names a question column and the instruction sent with it
type QuestionSpec struct {
	Column      string `json:"question_col" yaml:"question_col"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// Policy contains labeling policy settings
type Policy struct {
	Model             string `json:"model" yaml:"model"`
	BatchSize         int    `json:"batch_size" yaml:"batch_size"`
	AutosaveEveryPass bool   `json:"autosave_every_pass" yaml:"autosave_every_pass"`
	MaxStalledPasses  int    `json:"max_stalled_passes" yaml:"max_stalled_passes"`
	Retry             Retry  `json:"retry" yaml:"retry"`
}

// Retry contains retry policy configuration
type Retry struct {
	MaxAttempts int     `json:"max_attempts" yaml:"max_attempts"`
	Backoff     Backoff `json:"backoff" yaml:"backoff"`
}

// Backoff contains exponential backoff configuration
type Backoff struct {
	InitialMs  int     `json:"initial_ms" yaml:"initial_ms"`
	MaxMs      int     `json:"max_ms" yaml:"max_ms"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// GenerateDefault creates a new Config with default policy values and no questions
func GenerateDefault() *Config {
	return &Config{
		Questions: []QuestionSpec{},
		Policy: Policy{
			Model:             "azure~openai.gpt-4o-mini",
			BatchSize:         1,
			AutosaveEveryPass: true,
			MaxStalledPasses:  5,
			Retry: Retry{
				MaxAttempts: 5,
				Backoff: Backoff{
					InitialMs:  1000,
					MaxMs:      30000,
					Multiplier: 2.0,
				},
			},
		},
	}
}

// Validate checks the configuration for errors and returns user-friendly error messages
func (c *Config) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("configuration error: %w\n\nHint: List the columns to label:\n  [\n    {\"question_col\": \"Q1\", \"instruction\": \"List security habits\"}\n  ]", ErrNoQuestions)
	}

	seen := make(map[string]struct{}, len(c.Questions))
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Column) == "" {
			return fmt.Errorf("configuration error: question %d has empty 'question_col'\n\nHint: Set it to the exact header of the column to label:\n  {\"question_col\": \"Q1\", \"instruction\": \"...\"}", i+1)
		}
		if _, dup := seen[q.Column]; dup {
			return fmt.Errorf("configuration error: question column %q is listed more than once\n\nHint: Merge the instructions into a single entry for %q", q.Column, q.Column)
		}
		seen[q.Column] = struct{}{}
	}

	return c.Policy.Validate()
}

// Validate checks the policy section
func (p *Policy) Validate() error {
	if p.BatchSize < 1 {
		return fmt.Errorf("configuration error: invalid 'policy.batch_size' value: %d\n\nHint: Use 1 for one row per request, or a larger number to batch:\n  \"policy\": {\n    \"batch_size\": 10\n  }", p.BatchSize)
	}

	if p.MaxStalledPasses < 0 {
		return fmt.Errorf("configuration error: invalid 'policy.max_stalled_passes' value: %d\n\nHint: Use 0 to disable the stall guard, or a positive pass count", p.MaxStalledPasses)
	}

	if p.Retry.MaxAttempts < 0 {
		return fmt.Errorf("configuration error: invalid 'policy.retry.max_attempts' value: %d\n\nHint: Use 0 to retry failed passes forever, or a positive attempt count:\n  \"retry\": {\n    \"max_attempts\": 5\n  }", p.Retry.MaxAttempts)
	}

	b := p.Retry.Backoff
	if b.InitialMs <= 0 || b.MaxMs < b.InitialMs {
		return fmt.Errorf("configuration error: invalid 'policy.retry.backoff' interval: initial_ms=%d max_ms=%d\n\nHint: initial_ms must be positive and no larger than max_ms:\n  \"backoff\": {\n    \"initial_ms\": 1000,\n    \"max_ms\": 30000\n  }", b.InitialMs, b.MaxMs)
	}

	if b.Multiplier < 1 {
		return fmt.Errorf("configuration error: invalid 'policy.retry.backoff.multiplier' value: %g\n\nHint: The multiplier must be at least 1, e.g. 2.0", b.Multiplier)
	}

	return nil
}

// LoadFromFile loads a question config from a JSON or YAML file. Values
// absent from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config bytes, accepting either a bare question list or a
// {questions, policy} object.
func Parse(data []byte, asYAML bool) (*Config, error) {
	unmarshal := json.Unmarshal
	if asYAML {
		unmarshal = yaml.Unmarshal
	}

	cfg := GenerateDefault()

	var list []QuestionSpec
	if err := unmarshal(data, &list); err == nil {
		cfg.Questions = list
		return cfg, nil
	}

	if err := unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Questions == nil {
		cfg.Questions = []QuestionSpec{}
	}
	return cfg, nil
}

// SaveToFile writes the configuration as JSON or YAML, by extension, with
// 0600 permissions
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
