package main

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/durak/internal/server"
)

// ServerCmd runs the websocket match server
type ServerCmd struct {
	Config  string `kong:"default='durak.hcl',help='HCL configuration file'"`
	Addr    string `kong:"help='Listen address, overrides the configuration'"`
	Players int    `kong:"help='Seats per match, overrides the configuration'"`
	Seed    int64  `kong:"help='Seed for shuffles and bot timing (0 uses the configuration)'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Players > 0 {
		cfg.Match.Players = c.Players
	}
	if c.Seed != 0 {
		cfg.Match.Seed = c.Seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := setupLogger(cfg.Server.LogLevel, c.Debug)
	if err != nil {
		return err
	}

	timing, err := cfg.Match.Timing()
	if err != nil {
		return err
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	srv := server.NewServer(addr, logger)
	service := server.NewGameService(ctx, server.RoomConfig{
		Timing:       timing,
		SupportTurns: cfg.Match.SupportTurns,
		Rematch:      cfg.Match.Rematch,
		Seed:         cfg.Match.Seed,
	}, cfg.Match.Players, cfg.BotNames, srv, quartz.NewReal(), logger)
	srv.SetGameService(service)

	logger.Info("Durak server starting",
		"addr", addr,
		"players", cfg.Match.Players,
		"action_timeout", timing.ActionTimeout,
		"support_turns", cfg.Match.SupportTurns)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Stop(shutdownCtx)
	})

	err = g.Wait()
	cancel()
	service.Wait()
	return err
}
