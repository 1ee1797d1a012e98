package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/bot"
	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/server"
)

// ErrMatchAborted is returned when the server gives up on the match
var ErrMatchAborted = errors.New("match aborted by the server")

// Result is the outcome of a played match
type Result struct {
	PlayerID string
	MatchID  string
	Loser    string
	Lost     bool
}

// Player plays matches on a durak server with a bot strategy. It asks for
// the full game state whenever an offer arrives and answers from that.
type Player struct {
	client   *Client
	cfg      PlayerSettings
	strategy bot.Strategy
	logger   *log.Logger

	mu      sync.Mutex
	result  Result
	pending *server.ValidActionsData
	done    chan error
	once    sync.Once
}

// NewPlayer creates a player driving client with strategy
func NewPlayer(client *Client, cfg PlayerSettings, strategy bot.Strategy, logger *log.Logger) *Player {
	p := &Player{
		client:   client,
		cfg:      cfg,
		strategy: strategy,
		logger:   logger.WithPrefix("player").With("name", cfg.Name),
		done:     make(chan error, 1),
	}

	client.On(server.MessageTypeSetID, p.handleSetID)
	client.On(server.MessageTypeMatchStarted, p.handleMatchStarted)
	client.On(server.MessageTypeValidActions, p.handleValidActions)
	client.On(server.MessageTypeGameInfo, p.handleGameInfo)
	client.On(server.MessageTypeNotification, p.handleNotification)
	client.On(server.MessageTypeLateness, p.handleLateness)
	client.On(server.MessageTypeError, p.handleError)
	return p
}

// Play registers with the server, starts a match against bots and plays
// it to the end
func (p *Player) Play(ctx context.Context) (Result, error) {
	if err := p.client.Hello(p.cfg.Name); err != nil {
		return Result{}, err
	}

	var err error
	select {
	case err = <-p.done:
	case <-p.client.Done():
		err = errors.New("connection closed")
	case <-ctx.Done():
		err = ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, err
}

func (p *Player) finish(err error) {
	p.once.Do(func() { p.done <- err })
}

func (p *Player) handleSetID(msg *server.Message) {
	var data server.SetIDData
	if err := Decode(msg, &data); err != nil {
		p.finish(err)
		return
	}

	p.mu.Lock()
	p.result.PlayerID = data.PlayerID
	p.mu.Unlock()

	p.logger.Info("Registered", "player", data.PlayerID)
	if err := p.client.StartMatch(p.cfg.Bots); err != nil {
		p.finish(err)
	}
}

func (p *Player) handleMatchStarted(msg *server.Message) {
	var data server.MatchStartedData
	if err := Decode(msg, &data); err != nil {
		p.finish(err)
		return
	}
	p.mu.Lock()
	p.result.MatchID = data.MatchID
	p.mu.Unlock()
	p.logger.Info("Match started", "match", data.MatchID, "game", data.Game, "seats", len(data.Seats))
}

func (p *Player) handleValidActions(msg *server.Message) {
	var data server.ValidActionsData
	if err := Decode(msg, &data); err != nil {
		p.finish(err)
		return
	}

	p.mu.Lock()
	p.pending = &data
	p.mu.Unlock()

	if err := p.client.RequestGameInfo(); err != nil {
		p.finish(err)
	}
}

func (p *Player) handleGameInfo(msg *server.Message) {
	var data server.GameInfoData
	if err := Decode(msg, &data); err != nil {
		p.finish(err)
		return
	}

	p.mu.Lock()
	offer := p.pending
	p.pending = nil
	pid := p.result.PlayerID
	p.mu.Unlock()
	if offer == nil || len(offer.Actions) == 0 {
		return
	}

	view := game.ViewFromInfo(pid, data.GameInfo)
	action := p.strategy.Choose(view, offer.Actions)
	p.logger.Debug("Responding", "seq", offer.Seq, "stage", offer.TurnStage, "action", action.Type, "cid", action.CID)
	if err := p.client.Respond(offer.Seq, &action); err != nil {
		p.finish(err)
	}
}

func (p *Player) handleNotification(msg *server.Message) {
	var data server.NotificationData
	if err := Decode(msg, &data); err != nil {
		p.finish(err)
		return
	}

	switch data.Note {
	case game.NoteMatchEnded:
		p.mu.Lock()
		p.result.Loser = data.Loser
		p.result.Lost = data.Loser != "" && data.Loser == p.result.PlayerID
		p.mu.Unlock()

		p.logger.Info("Match ended", "loser", data.Loser)
		p.finish(nil)

	case game.NoteRematch:
		if err := p.client.AnswerNote(game.NoteRematch, game.ChoiceDecline); err != nil {
			p.logger.Debug("Failed to decline rematch", "error", err)
		}
	}
}

func (p *Player) handleLateness(msg *server.Message) {
	var data server.LatenessData
	if err := Decode(msg, &data); err != nil {
		return
	}
	p.logger.Warn("Response arrived late", "seq", data.Seq, "message", data.Message)
}

func (p *Player) handleError(msg *server.Message) {
	var data server.ErrorData
	if err := Decode(msg, &data); err != nil {
		p.finish(err)
		return
	}

	p.logger.Warn("Server error", "code", data.Code, "message", data.Message)
	switch data.Code {
	case "match_aborted":
		p.finish(ErrMatchAborted)
	case "already_playing", "not_registered", "request_failed":
		p.finish(fmt.Errorf("server rejected request: %s", data.Message))
	}
}
