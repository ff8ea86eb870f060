package config

import (
	"fmt"
	"strings"
)

// Oracle providers
const (
	ProviderAIBots = "aibots"
	ProviderOpenAI = "openai"
)

// Environment defaults for the hosted chat service
const (
	DefaultAIBotsBaseURL = "https://api.uat.aibots.gov.sg"
	DefaultAIBotsVersion = "v1.0"
)

// OracleEnv holds oracle connection settings read from the environment
type OracleEnv struct {
	Provider      string
	AIBotsAPIKey  string
	AIBotsBaseURL string
	AIBotsVersion string
	AIBotsVerify  bool
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// LoadOracleEnv reads oracle settings through getenv, normally os.Getenv
func LoadOracleEnv(getenv func(string) string) OracleEnv {
	env := OracleEnv{
		Provider:      strings.ToLower(strings.TrimSpace(getenv("CODER_PROVIDER"))),
		AIBotsAPIKey:  getenv("AIBOTS_API_KEY"),
		AIBotsBaseURL: getenv("AIBOTS_BASE_URL"),
		AIBotsVersion: getenv("AIBOTS_VERSION"),
		AIBotsVerify:  truthy(getenv("AIBOTS_VERIFY")),
		OpenAIAPIKey:  getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL"),
	}
	if env.Provider == "" {
		env.Provider = ProviderAIBots
	}
	if env.AIBotsBaseURL == "" {
		env.AIBotsBaseURL = DefaultAIBotsBaseURL
	}
	if env.AIBotsVersion == "" {
		env.AIBotsVersion = DefaultAIBotsVersion
	}
	return env
}

// Validate checks that the selected provider has credentials
func (e OracleEnv) Validate() error {
	switch e.Provider {
	case ProviderAIBots:
		if e.AIBotsAPIKey == "" {
			return fmt.Errorf("configuration error: AIBOTS_API_KEY is not set\n\nHint: Export your API key before running:\n  export AIBOTS_API_KEY=...")
		}
	case ProviderOpenAI:
		if e.OpenAIAPIKey == "" && e.OpenAIBaseURL == "" {
			return fmt.Errorf("configuration error: OPENAI_API_KEY is not set\n\nHint: Export your API key, or point OPENAI_BASE_URL at a local gateway:\n  export OPENAI_API_KEY=...")
		}
	default:
		return fmt.Errorf("configuration error: unknown provider %q\n\nHint: Set CODER_PROVIDER (or --provider) to %q or %q", e.Provider, ProviderAIBots, ProviderOpenAI)
	}
	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
