package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("VERCEL_TOKEN", "vercel-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "Sites", cfg.DynamoDBSitesTable)
	assert.Equal(t, 5*time.Second, cfg.DeployPollInterval)
	assert.Equal(t, 60, cfg.DeployPollAttempts)
	assert.Equal(t, "site", cfg.ProjectPrefix)
	assert.Equal(t, int64(0), cfg.ThinkingBudgetTokens)
	assert.Equal(t, "https://api.vercel.com", cfg.VercelAPIURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DEPLOY_POLL_INTERVAL", "250ms")
	t.Setenv("DEPLOY_POLL_ATTEMPTS", "3")
	t.Setenv("THINKING_BUDGET_TOKENS", "4000")
	t.Setenv("WORKER_COUNT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.DeployPollInterval)
	assert.Equal(t, 3, cfg.DeployPollAttempts)
	assert.Equal(t, int64(4000), cfg.ThinkingBudgetTokens)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing credentials",
			env:     map[string]string{"ANTHROPIC_API_KEY": "", "VERCEL_TOKEN": ""},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "bad integer",
			env:     map[string]string{"DEPLOY_POLL_ATTEMPTS": "many"},
			wantErr: "DEPLOY_POLL_ATTEMPTS must be an integer",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"DEPLOY_POLL_INTERVAL": "soon"},
			wantErr: "DEPLOY_POLL_INTERVAL must be a duration",
		},
		{
			name:    "zero attempts",
			env:     map[string]string{"DEPLOY_POLL_ATTEMPTS": "0"},
			wantErr: "at least 1",
		},
		{
			name:    "thinking budget above max tokens",
			env:     map[string]string{"THINKING_BUDGET_TOKENS": "64000"},
			wantErr: "must be below GENERATE_MAX_TOKENS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewPanicsOnMissingConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("VERCEL_TOKEN", "")

	assert.Panics(t, func() { New() })
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, splitList(" https://a.example.com, ,https://b.example.com "))
	assert.Nil(t, splitList(""))
}
