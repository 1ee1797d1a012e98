package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/durak/internal/bot"
	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/gameid"
	"github.com/lox/durak/internal/randutil"
)

var (
	ErrUnknownConnection = errors.New("unknown connection id")
	ErrAlreadyPlaying    = errors.New("player is already in a match")
)

type session struct {
	playerID string
	name     string
	expiry   *quartz.Timer // armed while no socket holds the connection id
	expired  bool          // the window ended while the player was seated
}

// GameService manages the rooms hosted by the server and maps connection ids
// to players so clients can reconnect.
type GameService struct {
	ctx     context.Context
	cfg     RoomConfig
	players int
	sender  Sender
	clock   quartz.Clock
	names   *bot.NamePool
	logger  *log.Logger

	mu       sync.RWMutex
	sessions map[string]session // connection id -> session
	rooms    map[string]*Room   // room id -> room
	seated   map[string]*Room   // player id -> room
	wg       sync.WaitGroup
}

// NewGameService creates a game service. Rooms stop when ctx is cancelled.
func NewGameService(ctx context.Context, cfg RoomConfig, players int, botNames []string, sender Sender, clock quartz.Clock, logger *log.Logger) *GameService {
	return &GameService{
		ctx:      ctx,
		cfg:      cfg,
		players:  players,
		sender:   sender,
		clock:    clock,
		names:    bot.NewNamePool(botNames, randutil.New(randutil.Seed(cfg.Seed))),
		logger:   logger.WithPrefix("game-service"),
		sessions: make(map[string]session),
		rooms:    make(map[string]*Room),
		seated:   make(map[string]*Room),
	}
}

// Hello registers a new client and returns its connection and player ids
func (gs *GameService) Hello(name string) (connectionID, playerID string) {
	connectionID = uuid.NewString()
	playerID = gameid.New(gameid.Player)
	if strings.TrimSpace(name) == "" {
		name = "Player"
	}

	gs.mu.Lock()
	gs.sessions[connectionID] = session{playerID: playerID, name: name}
	gs.mu.Unlock()

	gs.logger.Info("Client registered", "connection", connectionID, "player", playerID, "name", name)
	return connectionID, playerID
}

// Reconnect maps a prior connection id back to its player
func (gs *GameService) Reconnect(connectionID string) (string, error) {
	gs.mu.Lock()
	s, ok := gs.sessions[connectionID]
	if ok && s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
		s.expired = false
		gs.sessions[connectionID] = s
	}
	gs.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConnection, connectionID)
	}
	gs.logger.Info("Client reconnected", "connection", connectionID, "player", s.playerID)
	return s.playerID, nil
}

// Disconnect starts the reconnect window of a closed connection. When it
// ends the session is dropped unless the player is still seated, in which
// case it lives until the room stops.
func (gs *GameService) Disconnect(connectionID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	s, ok := gs.sessions[connectionID]
	if !ok {
		return
	}
	if s.expiry != nil {
		s.expiry.Stop()
	}
	var expiry *quartz.Timer
	expiry = gs.clock.AfterFunc(gs.cfg.ReconnectWindow, func() {
		gs.expire(connectionID, expiry)
	}, "session", connectionID)
	s.expiry = expiry
	s.expired = false
	gs.sessions[connectionID] = s
}

func (gs *GameService) expire(connectionID string, expiry *quartz.Timer) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	s, ok := gs.sessions[connectionID]
	if !ok || s.expiry != expiry {
		return
	}
	if _, seated := gs.seated[s.playerID]; seated {
		s.expired = true
		gs.sessions[connectionID] = s
		return
	}
	delete(gs.sessions, connectionID)
	gs.logger.Debug("Session expired", "connection", connectionID, "player", s.playerID)
}

// Sessions returns the number of connection ids that can still reconnect
func (gs *GameService) Sessions() int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.sessions)
}

// Resync asks the player's room to re-send the game info and any pending
// offer
func (gs *GameService) Resync(playerID string) error {
	room, err := gs.Room(playerID)
	if err != nil {
		return err
	}
	return room.Resync(playerID)
}

// StartMatch seats the player with the given number of bots and starts the
// room. A non-positive bots count fills the configured number of seats.
func (gs *GameService) StartMatch(playerID string, bots int) (*Room, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, ok := gs.seated[playerID]; ok {
		return nil, ErrAlreadyPlaying
	}
	name := "Player"
	for _, s := range gs.sessions {
		if s.playerID == playerID {
			name = s.name
			break
		}
	}
	if bots <= 0 {
		bots = gs.players - 1
	}

	room, err := NewRoom(gameid.New(gameid.Match), []SeatInfo{{PID: playerID, Name: name}}, bots, gs.cfg, gs.sender, gs.names, gs.clock, gs.logger)
	if err != nil {
		return nil, err
	}
	gs.rooms[room.ID()] = room
	gs.seated[playerID] = room
	gs.run(room)
	return room, nil
}

// AddRoom starts a room built by the caller, such as a bot-only room
func (gs *GameService) AddRoom(room *Room) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.rooms[room.ID()] = room
	for _, s := range room.Seats() {
		if !s.Bot {
			gs.seated[s.PID] = room
		}
	}
	gs.run(room)
}

func (gs *GameService) run(room *Room) {
	gs.wg.Add(1)
	go func() {
		defer gs.wg.Done()
		if err := room.Run(gs.ctx); err != nil {
			gs.logger.Error("Room stopped", "room", room.ID(), "error", err)
		}
		gs.removeRoom(room)
	}()
}

func (gs *GameService) removeRoom(room *Room) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	delete(gs.rooms, room.ID())
	for pid, r := range gs.seated {
		if r == room {
			delete(gs.seated, pid)
		}
	}
	gs.pruneLocked()
}

// pruneLocked drops the sessions of disconnected players whose reconnect
// window ran out while they were seated
func (gs *GameService) pruneLocked() {
	for id, s := range gs.sessions {
		if !s.expired {
			continue
		}
		if _, seated := gs.seated[s.playerID]; seated {
			continue
		}
		delete(gs.sessions, id)
		gs.logger.Debug("Session expired", "connection", id, "player", s.playerID)
	}
}

// Room returns the room the player is seated in
func (gs *GameService) Room(playerID string) (*Room, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	room, ok := gs.seated[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not seated", game.ErrNoActiveMatch, playerID)
	}
	return room, nil
}

// Respond forwards a player's response to their room
func (gs *GameService) Respond(playerID string, data ResponseData) error {
	room, err := gs.Room(playerID)
	if err != nil {
		return err
	}
	return room.Submit(playerID, data.Seq, data.Action)
}

// AnswerNote forwards a notification answer to the player's room
func (gs *GameService) AnswerNote(playerID string, data NoteResponseData) error {
	room, err := gs.Room(playerID)
	if err != nil {
		return err
	}
	return room.Vote(playerID, data.Note, data.Choice)
}

// RequestGameInfo asks the player's room for a game_info message
func (gs *GameService) RequestGameInfo(playerID string) error {
	room, err := gs.Room(playerID)
	if err != nil {
		return err
	}
	return room.RequestGameInfo(playerID)
}

// Pause pauses the player's room
func (gs *GameService) Pause(playerID string) error {
	room, err := gs.Room(playerID)
	if err != nil {
		return err
	}
	return room.Pause(playerID)
}

// Resume resumes the player's room
func (gs *GameService) Resume(playerID string) error {
	room, err := gs.Room(playerID)
	if err != nil {
		return err
	}
	return room.Resume(playerID)
}

// ListRooms returns every running room ordered by id
func (gs *GameService) ListRooms() []RoomInfo {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	rooms := make([]RoomInfo, 0, len(gs.rooms))
	for _, room := range gs.rooms {
		rooms = append(rooms, room.Info())
	}
	slices.SortFunc(rooms, func(a, b RoomInfo) int { return strings.Compare(a.ID, b.ID) })
	return rooms
}

// Wait blocks until every room has stopped
func (gs *GameService) Wait() {
	gs.wg.Wait()
}
