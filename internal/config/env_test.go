package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadOracleEnvDefaults(t *testing.T) {
	env := LoadOracleEnv(envFrom(nil))

	assert.Equal(t, ProviderAIBots, env.Provider)
	assert.Equal(t, DefaultAIBotsBaseURL, env.AIBotsBaseURL)
	assert.Equal(t, DefaultAIBotsVersion, env.AIBotsVersion)
	assert.False(t, env.AIBotsVerify)
	assert.ErrorContains(t, env.Validate(), "AIBOTS_API_KEY")
}

func TestLoadOracleEnv(t *testing.T) {
	env := LoadOracleEnv(envFrom(map[string]string{
		"CODER_PROVIDER":  " OpenAI ",
		"AIBOTS_VERIFY":   "Yes",
		"OPENAI_API_KEY":  "sk-test",
		"OPENAI_BASE_URL": "http://localhost:8080/v1",
	}))

	assert.Equal(t, ProviderOpenAI, env.Provider)
	assert.True(t, env.AIBotsVerify)
	assert.Equal(t, "http://localhost:8080/v1", env.OpenAIBaseURL)
	assert.NoError(t, env.Validate())
}

func TestOracleEnvValidate(t *testing.T) {
	tests := []struct {
		name string
		env  OracleEnv
		want string
	}{
		{"aibots ok", OracleEnv{Provider: ProviderAIBots, AIBotsAPIKey: "k"}, ""},
		{"openai gateway without key", OracleEnv{Provider: ProviderOpenAI, OpenAIBaseURL: "http://gw"}, ""},
		{"openai missing key", OracleEnv{Provider: ProviderOpenAI}, "OPENAI_API_KEY"},
		{"unknown provider", OracleEnv{Provider: "bard"}, "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
