package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "durak.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, 2, cfg.Match.Players)
	assert.True(t, cfg.Match.Rematch)
	assert.Equal(t, DefaultBotNames, cfg.BotNames)

	timing, err := cfg.Match.Timing()
	require.NoError(t, err)
	assert.Equal(t, Timing{
		ActionTimeout:    30 * time.Second,
		DecisionTime:     1500 * time.Millisecond,
		FakeDecisionTime: 500 * time.Millisecond,
		ResumeGrace:      2 * time.Second,
		ReconnectWindow:  5 * time.Minute,
	}, timing)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

match {
  players        = 4
  action_timeout = "20s"
  decision_time  = "2s"
  support_turns  = true
  seed           = 99
}

bot_names = ["Ann", "Bob"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 4, cfg.Match.Players)
	assert.True(t, cfg.Match.SupportTurns)
	assert.False(t, cfg.Match.Rematch)
	assert.Equal(t, int64(99), cfg.Match.Seed)
	assert.Equal(t, []string{"Ann", "Bob"}, cfg.BotNames)

	timing, err := cfg.Match.Timing()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, timing.ActionTimeout)
	assert.Equal(t, 2*time.Second, timing.DecisionTime)
	assert.Equal(t, 500*time.Millisecond, timing.FakeDecisionTime, "defaulted")
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `server { port = }`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `table "main" {}`))
	assert.Error(t, err, "unknown blocks are rejected")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"one player", func(c *Config) { c.Match.Players = 1 }},
		{"too many players", func(c *Config) { c.Match.Players = 7 }},
		{"bad duration", func(c *Config) { c.Match.ActionTimeout = "soon" }},
		{"zero timeout", func(c *Config) { c.Match.ActionTimeout = "0s" }},
		{"bots slower than the deadline", func(c *Config) { c.Match.DecisionTime = "40s" }},
		{"negative reconnect window", func(c *Config) { c.Match.ReconnectWindow = "-1s" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
