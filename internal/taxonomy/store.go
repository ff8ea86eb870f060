package taxonomy

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/fsutil"
)

// DefaultCachePath is where FileStore keeps labels when no path is given.
const DefaultCachePath = "categories_cache.json"

// Store holds the taxonomy snapshot of every question across runs.
// Merge only ever adds labels.
type Store interface {
	Get(question string) []string
	Merge(question string, labels []string)
	Persist() error
}

// MemoryStore keeps taxonomies in process memory. Persist is a no-op.
type MemoryStore struct {
	mu   sync.Mutex
	sets map[string]*Set
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]*Set)}
}

// Get returns the known labels for question in first-seen order.
func (m *MemoryStore) Get(question string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sets[question]; ok {
		return s.Labels()
	}
	return nil
}

// Merge adds labels to question's taxonomy.
func (m *MemoryStore) Merge(question string, labels []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sets[question]
	if !ok {
		s = NewSet()
		m.sets[question] = s
	}
	s.Add(labels...)
}

// Persist does nothing for an in-memory store.
func (m *MemoryStore) Persist() error { return nil }

// Snapshot copies every taxonomy out of the store.
func (m *MemoryStore) Snapshot() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]string, len(m.sets))
	for q, s := range m.sets {
		out[q] = s.Labels()
	}
	return out
}

// FileStore persists taxonomies as a JSON object {question: [labels]}.
type FileStore struct {
	*MemoryStore
	path string
}

// OpenFileStore loads the cache at path. A missing or corrupt file yields an
// empty store; reading never fails.
func OpenFileStore(path string, logger *slog.Logger) *FileStore {
	if path == "" {
		path = DefaultCachePath
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fs := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("taxonomy cache unreadable, starting empty", "path", path, "error", err)
		}
		return fs
	}

	var cached map[string][]string
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.Warn("taxonomy cache corrupt, starting empty", "path", path, "error", err)
		return fs
	}
	for q, ls := range cached {
		fs.Merge(q, ls)
	}

	logger.Debug("taxonomy cache loaded", "path", path, "questions", len(cached))
	return fs
}

// Path returns the cache file location.
func (f *FileStore) Path() string { return f.path }

// Persist writes the whole cache atomically.
func (f *FileStore) Persist() error {
	_, err := fsutil.AtomicWriteJSON(f.path, f.Snapshot())
	return err
}
