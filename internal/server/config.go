package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/durak/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server   *ServerSettings `hcl:"server,block"`
	Match    *MatchSettings  `hcl:"match,block"`
	BotNames []string        `hcl:"bot_names,optional"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// MatchSettings configures every match the server hosts. Durations are Go
// duration strings such as "30s".
type MatchSettings struct {
	Players          int    `hcl:"players,optional"`
	ActionTimeout    string `hcl:"action_timeout,optional"`
	DecisionTime     string `hcl:"decision_time,optional"`
	FakeDecisionTime string `hcl:"fake_decision_time,optional"`
	ResumeGrace      string `hcl:"resume_grace,optional"`
	ReconnectWindow  string `hcl:"reconnect_window,optional"`
	SupportTurns     bool   `hcl:"support_turns,optional"`
	Rematch          bool   `hcl:"rematch,optional"`
	Seed             int64  `hcl:"seed,optional"`
}

// Timing is the parsed form of the match durations
type Timing struct {
	ActionTimeout    time.Duration
	DecisionTime     time.Duration
	FakeDecisionTime time.Duration
	ResumeGrace      time.Duration
	// ReconnectWindow is how long an unseated player's connection id stays
	// valid after the socket closes
	ReconnectWindow time.Duration
}

// DefaultBotNames are used when the configuration lists none
var DefaultBotNames = []string{
	"Anya", "Boris", "Dasha", "Egor", "Fedya", "Galya", "Ilya", "Katya",
	"Lev", "Masha", "Nadya", "Oleg", "Pasha", "Sveta", "Tolya", "Vera",
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Match: &MatchSettings{
			Players:          2,
			ActionTimeout:    "30s",
			DecisionTime:     "1.5s",
			FakeDecisionTime: "500ms",
			ResumeGrace:      "2s",
			ReconnectWindow:  "5m",
			Rematch:          true,
		},
		BotNames: DefaultBotNames,
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Server == nil {
		c.Server = defaults.Server
	}
	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaults.Server.LogLevel
	}

	if c.Match == nil {
		c.Match = defaults.Match
	}
	if c.Match.Players == 0 {
		c.Match.Players = defaults.Match.Players
	}
	if c.Match.ActionTimeout == "" {
		c.Match.ActionTimeout = defaults.Match.ActionTimeout
	}
	if c.Match.DecisionTime == "" {
		c.Match.DecisionTime = defaults.Match.DecisionTime
	}
	if c.Match.FakeDecisionTime == "" {
		c.Match.FakeDecisionTime = defaults.Match.FakeDecisionTime
	}
	if c.Match.ResumeGrace == "" {
		c.Match.ResumeGrace = defaults.Match.ResumeGrace
	}
	if c.Match.ReconnectWindow == "" {
		c.Match.ReconnectWindow = defaults.Match.ReconnectWindow
	}

	if len(c.BotNames) == 0 {
		c.BotNames = defaults.BotNames
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server == nil || c.Match == nil {
		return fmt.Errorf("server and match blocks are required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Match.Players < 2 || c.Match.Players > game.MaxPlayers {
		return fmt.Errorf("match: players must be between 2 and %d", game.MaxPlayers)
	}

	timing, err := c.Match.Timing()
	if err != nil {
		return err
	}
	if timing.ActionTimeout <= 0 {
		return fmt.Errorf("match: action_timeout must be positive")
	}
	if timing.DecisionTime < 0 || timing.FakeDecisionTime < 0 || timing.ResumeGrace < 0 || timing.ReconnectWindow < 0 {
		return fmt.Errorf("match: durations must not be negative")
	}
	if timing.DecisionTime+timing.FakeDecisionTime >= timing.ActionTimeout {
		return fmt.Errorf("match: bots must answer within action_timeout (%s + %s >= %s)",
			timing.DecisionTime, timing.FakeDecisionTime, timing.ActionTimeout)
	}
	return nil
}

// Timing parses the configured durations
func (m *MatchSettings) Timing() (Timing, error) {
	var t Timing
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"action_timeout", m.ActionTimeout, &t.ActionTimeout},
		{"decision_time", m.DecisionTime, &t.DecisionTime},
		{"fake_decision_time", m.FakeDecisionTime, &t.FakeDecisionTime},
		{"resume_grace", m.ResumeGrace, &t.ResumeGrace},
		{"reconnect_window", m.ReconnectWindow, &t.ReconnectWindow},
	} {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return Timing{}, fmt.Errorf("match: invalid %s %q: %w", d.name, d.value, err)
		}
		*d.dst = parsed
	}
	return t, nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
