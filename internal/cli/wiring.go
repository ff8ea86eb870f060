package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/config"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/oracle"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/oracle/aibots"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/oracle/openai"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/taxonomy"
)

// Cache backends
const (
	backendJSON   = "json"
	backendSQLite = "sqlite"
)

// newOracle builds the chat client selected by env.Provider
func newOracle(env config.OracleEnv, logger *slog.Logger) (oracle.Client, error) {
	switch env.Provider {
	case config.ProviderAIBots:
		return aibots.New(aibots.Config{
			BaseURL: env.AIBotsBaseURL,
			Version: env.AIBotsVersion,
			APIKey:  env.AIBotsAPIKey,
			Verify:  env.AIBotsVerify,
			Logger:  logger,
		}), nil
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  env.OpenAIAPIKey,
			BaseURL: env.OpenAIBaseURL,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", env.Provider)
	}
}

// openStore opens the taxonomy cache. The returned close func is never nil.
// A SQLite database that cannot be opened falls back to an in-memory store,
// since cache failures never stop a run.
func openStore(backend, path string, logger *slog.Logger) (taxonomy.Store, func() error, error) {
	nop := func() error { return nil }

	switch backend {
	case "", backendJSON:
		return taxonomy.OpenFileStore(path, logger), nop, nil
	case backendSQLite:
		dbPath := sqlitePath(path)
		store, err := taxonomy.OpenSQLiteStore(dbPath, logger)
		if err != nil {
			logger.Warn("taxonomy database unavailable, using in-memory cache", "path", dbPath, "error", err)
			return taxonomy.NewMemoryStore(), nop, nil
		}
		return store, store.Close, nil
	default:
		return nil, nop, fmt.Errorf("configuration error: unknown cache backend %q\n\nHint: Use --cache-backend %s or --cache-backend %s", backend, backendJSON, backendSQLite)
	}
}

// sqlitePath swaps a .json cache path for .db so both backends can share
// the --cache default
func sqlitePath(path string) string {
	if path == "" {
		path = taxonomy.DefaultCachePath
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
	}
	return path
}
