package client

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ClientConfig represents the complete client configuration
type ClientConfig struct {
	Server *ServerConnection `hcl:"server,block"`
	Player *PlayerSettings   `hcl:"player,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL      string `hcl:"url,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// PlayerSettings contains player-specific settings
type PlayerSettings struct {
	Name     string `hcl:"name,optional"`
	Strategy string `hcl:"strategy,optional"`
	// Bots is the number of server bots to play against
	Bots int `hcl:"bots,optional"`
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server: &ServerConnection{
			URL:      "http://localhost:8080",
			LogLevel: "info",
		},
		Player: &PlayerSettings{
			Name:     "Remote",
			Strategy: "heuristic",
			Bots:     1,
		},
	}
}

// LoadClientConfig loads client configuration from HCL file
func LoadClientConfig(filename string) (*ClientConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultClientConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ClientConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *ClientConfig) applyDefaults() {
	defaults := DefaultClientConfig()
	if c.Server == nil {
		c.Server = defaults.Server
	}
	if c.Player == nil {
		c.Player = defaults.Player
	}

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaults.Server.LogLevel
	}
	if c.Player.Name == "" {
		c.Player.Name = defaults.Player.Name
	}
	if c.Player.Strategy == "" {
		c.Player.Strategy = defaults.Player.Strategy
	}
	if c.Player.Bots == 0 {
		c.Player.Bots = defaults.Player.Bots
	}
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Player.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if c.Player.Bots < 1 {
		return fmt.Errorf("at least one bot is required, got %d", c.Player.Bots)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	return nil
}
