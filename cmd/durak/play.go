package main

import (
	"fmt"

	"github.com/lox/durak/internal/bot"
	"github.com/lox/durak/internal/client"
	"github.com/lox/durak/internal/randutil"
)

// PlayCmd connects to a server and plays one match with a bot strategy
type PlayCmd struct {
	Config   string `kong:"default='durak-client.hcl',help='HCL client configuration file'"`
	URL      string `kong:"help='Server URL, overrides the configuration'"`
	Name     string `kong:"help='Player name, overrides the configuration'"`
	Strategy string `kong:"help='Strategy: heuristic, rand, passive'"`
	Bots     int    `kong:"help='Server bots to play against'"`
	Seed     int64  `kong:"help='Seed for the rand strategy (0 for random)'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return err
	}
	if c.URL != "" {
		cfg.Server.URL = c.URL
	}
	if c.Name != "" {
		cfg.Player.Name = c.Name
	}
	if c.Strategy != "" {
		cfg.Player.Strategy = c.Strategy
	}
	if c.Bots > 0 {
		cfg.Player.Bots = c.Bots
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := setupLogger(cfg.Server.LogLevel, c.Debug)
	if err != nil {
		return err
	}

	strategy, err := newStrategy(cfg.Player.Strategy, bot.DefaultTuning(), randutil.New(randutil.Seed(c.Seed)), logger)
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	conn := client.NewClient(cfg.Server.URL, logger)
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	result, err := client.NewPlayer(conn, *cfg.Player, strategy, logger).Play(ctx)
	if err != nil {
		return err
	}

	switch {
	case result.Loser == "":
		fmt.Printf("Match %s ended in a draw\n", result.MatchID)
	case result.Lost:
		fmt.Printf("Match %s: %s is the durak\n", result.MatchID, cfg.Player.Name)
	default:
		fmt.Printf("Match %s: %s got out, %s is the durak\n", result.MatchID, cfg.Player.Name, result.Loser)
	}
	return nil
}
