// Package discovery locates a question config file when none is given on
// the command line. Given a root, it walks a curated set of directories,
// keeps JSON and YAML files that declare question columns, and ranks them
// with deterministic filename and location heuristics. The same directory
// tree always yields the same candidate order.
package discovery

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoConfig is returned by FindConfig when no candidate is found.
var ErrNoConfig = errors.New("no question config found")

// DefaultSearchPaths enumerates the directories inspected (relative to root).
var DefaultSearchPaths = []string{".", "config", "configs"}

// DefaultIgnoredDirs lists directory names that are skipped during discovery.
var DefaultIgnoredDirs = []string{".git", "node_modules", ".venv", "venv", "__pycache__", "dist", "build"}

// DefaultExtensions enumerates file extensions considered for discovery.
var DefaultExtensions = []string{".json", ".yaml", ".yml"}

// marker must appear in a file for it to count as a question config.
const marker = "question_col"

// maxPeekBytes bounds how much of each file is read when checking for marker.
const maxPeekBytes = 64 * 1024

// Config configures deterministic discovery.
type Config struct {
	Root        string
	SearchPaths []string
	IgnoreDirs  []string
	Extensions  []string
	// MaxDepth limits recursion below each search path. Zero means only the
	// search path itself.
	MaxDepth      int
	MaxCandidates int
}

// DefaultConfig returns a Config populated with deterministic defaults.
func DefaultConfig(root string) Config {
	return Config{
		Root:          root,
		SearchPaths:   append([]string{}, DefaultSearchPaths...),
		IgnoreDirs:    append([]string{}, DefaultIgnoredDirs...),
		Extensions:    append([]string{}, DefaultExtensions...),
		MaxDepth:      1,
		MaxCandidates: 10,
	}
}

// Candidate is a ranked question config file.
type Candidate struct {
	Path   string  `json:"path"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Discover scans the configured root and returns ranked candidates, best
// first. Paths are relative to the root, slash-separated.
func Discover(cfg Config) ([]Candidate, error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, errors.New("discovery: root is required")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discovery: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discovery: root is not a directory: %s", root)
	}

	searchPaths := cfg.SearchPaths
	if len(searchPaths) == 0 {
		searchPaths = DefaultSearchPaths
	}
	ignoreDirs := make(map[string]struct{}, len(cfg.IgnoreDirs))
	for _, name := range cfg.IgnoreDirs {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			ignoreDirs[trimmed] = struct{}{}
		}
	}
	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	w := walker{root: root, ignoreDirs: ignoreDirs, extSet: extSet, seen: make(map[string]struct{})}
	for _, rel := range searchPaths {
		joined := filepath.Clean(filepath.Join(root, rel))
		if joined != root && !strings.HasPrefix(joined, root+string(os.PathSeparator)) {
			// Protect against path traversal in configuration.
			continue
		}
		if _, err := os.Stat(joined); os.IsNotExist(err) {
			continue
		}
		if err := w.walk(joined, cfg.MaxDepth); err != nil {
			return nil, err
		}
	}

	candidates := w.candidates
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})

	limit := cfg.MaxCandidates
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// FindConfig returns the absolute path of the best candidate under root.
func FindConfig(root string) (string, error) {
	candidates, err := Discover(DefaultConfig(root))
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w under %s", ErrNoConfig, root)
	}
	abs, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(candidates[0].Path)))
	if err != nil {
		return "", fmt.Errorf("discovery: resolve candidate: %w", err)
	}
	return abs, nil
}

type walker struct {
	root       string
	ignoreDirs map[string]struct{}
	extSet     map[string]struct{}
	seen       map[string]struct{}
	candidates []Candidate
}

func (w *walker) walk(path string, depth int) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("discovery: read dir %s: %w", path, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			// Ignore hidden files and directories.
			continue
		}
		full := filepath.Join(path, name)
		if entry.IsDir() {
			if _, ignored := w.ignoreDirs[name]; ignored || depth <= 0 {
				continue
			}
			if err := w.walk(full, depth-1); err != nil {
				return err
			}
			continue
		}

		if _, ok := w.extSet[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if _, dup := w.seen[full]; dup {
			continue
		}
		w.seen[full] = struct{}{}

		if !containsMarker(full) {
			continue
		}

		rel, err := filepath.Rel(w.root, full)
		if err != nil {
			return fmt.Errorf("discovery: relative path error for %s: %w", full, err)
		}
		score, reason := scoreCandidate(rel)
		w.candidates = append(w.candidates, Candidate{
			Path:   filepath.ToSlash(rel),
			Score:  score,
			Reason: reason,
		})
	}

	return nil
}

func containsMarker(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPeekBytes))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), marker)
}

func scoreCandidate(relPath string) (float64, string) {
	score := 0.5
	var reasons []string

	base := strings.ToLower(filepath.Base(relPath))
	segments := strings.Split(relPath, string(filepath.Separator))

	if strings.Contains(base, "question") {
		score += 0.25
		reasons = append(reasons, "filename contains 'question'")
	} else if strings.Contains(base, "coder") {
		score += 0.2
		reasons = append(reasons, "filename contains 'coder'")
	} else if strings.Contains(base, "config") {
		score += 0.1
		reasons = append(reasons, "filename contains 'config'")
	}

	for _, seg := range segments[:len(segments)-1] {
		lower := strings.ToLower(seg)
		if lower == "config" || lower == "configs" {
			score += 0.05
			reasons = append(reasons, fmt.Sprintf("located under '%s'", lower))
			break
		}
	}

	depth := len(segments) - 1
	if depth > 0 {
		penalty := float64(depth) * 0.04
		score -= penalty
		reasons = append(reasons, fmt.Sprintf("depth penalty -%.2f", penalty))
	}

	score = min(max(score, 0), 1)
	reasons = append(reasons, fmt.Sprintf("score=%.2f", score))
	return score, strings.Join(reasons, "; ")
}
