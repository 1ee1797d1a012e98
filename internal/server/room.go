package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/durak/internal/bot"
	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/gameid"
	"github.com/lox/durak/internal/randutil"
	"github.com/lox/durak/internal/timer"
)

// RoomStatus is the lifecycle state of a room
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomVoting   RoomStatus = "voting"
	RoomFinished RoomStatus = "finished"
	RoomAborted  RoomStatus = "aborted"
)

const voteKey = "vote"

func deadlineKey(pid string) string {
	return "deadline:" + pid
}

// RoomConfig configures the matches played in a room
type RoomConfig struct {
	Timing
	SupportTurns bool
	Rematch      bool
	Seed         int64

	// NewStrategy picks the strategy of the i-th bot; nil plays the
	// heuristic bot everywhere
	NewStrategy func(i int, rng *rand.Rand, logger *log.Logger) bot.Strategy

	// Deck and FirstAttacker preset the first game
	Deck          []*deck.Card
	FirstAttacker string
}

// Seat is one player of a room, either a remote client or a bot
type Seat struct {
	SeatInfo
	agent *bot.Agent
	net   *NetworkAgent
}

func (s *Seat) subscriber() game.EventSubscriber {
	if s.net != nil {
		return s.net
	}
	return s.agent
}

// Room is the single authoritative owner of a match. Every mutation happens
// on the room's timer loop: responses, deadlines, bot answers, pause and the
// rematch vote are all serialized there.
type Room struct {
	id     string
	cfg    RoomConfig
	loop   *timer.Loop
	sender Sender
	names  *bot.NamePool
	logger *log.Logger
	rng    *rand.Rand
	cancel context.CancelFunc

	seats       []*Seat
	match       *game.Match
	game        int
	deadlinePID string
	votes       map[string]game.Choice
	held        []func()

	mu   sync.RWMutex
	info RoomInfo
}

// NewRoom seats the humans in order followed by the given number of bots
func NewRoom(id string, humans []SeatInfo, bots int, cfg RoomConfig, sender Sender, names *bot.NamePool, clock quartz.Clock, logger *log.Logger) (*Room, error) {
	total := len(humans) + bots
	if total < 2 || total > game.MaxPlayers {
		return nil, fmt.Errorf("a room seats 2 to %d players, got %d", game.MaxPlayers, total)
	}

	r := &Room{
		id:     id,
		cfg:    cfg,
		loop:   timer.New(clock, cfg.ResumeGrace, logger.With("room", id)),
		sender: sender,
		names:  names,
		logger: logger.WithPrefix("room").With("id", id),
		rng:    randutil.New(randutil.Seed(cfg.Seed)),
	}

	for _, h := range humans {
		h.Bot = false
		r.seats = append(r.seats, &Seat{
			SeatInfo: h,
			net:      NewNetworkAgent(h.PID, sender, r.deadline, logger),
		})
	}

	tuning := bot.DefaultTuning()
	tuning.SupportTurns = cfg.SupportTurns
	agentCfg := bot.AgentConfig{
		DecisionTime: cfg.DecisionTime,
		MinDelay:     cfg.FakeDecisionTime,
		BotOnly:      len(humans) == 0,
	}
	for i := range bots {
		pid := gameid.New(gameid.Bot)
		name := names.Take(pid)
		rng := randutil.New(r.rng.Int64())

		var strategy bot.Strategy = bot.NewHeuristic(tuning, logger)
		if cfg.NewStrategy != nil {
			strategy = cfg.NewStrategy(i, rng, logger)
		}
		r.seats = append(r.seats, &Seat{
			SeatInfo: SeatInfo{PID: pid, Name: name, Bot: true},
			agent:    bot.NewAgent(pid, name, strategy, r, r.loop, rng, agentCfg, logger),
		})
	}

	r.info = RoomInfo{ID: id, Status: RoomWaiting, Seats: r.seatInfos()}
	return r, nil
}

// ID returns the room id
func (r *Room) ID() string {
	return r.id
}

// Seats returns the seats in playing order
func (r *Room) Seats() []SeatInfo {
	return r.seatInfos()
}

// Info returns a snapshot of the room for listings
func (r *Room) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := r.info
	info.Paused = r.loop.Paused()
	return info
}

// Run starts the first game and serves the room until it finishes, is
// aborted or ctx is cancelled.
func (r *Room) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.cancel = cancel

	if err := r.loop.Post(r.startGame); err != nil {
		return err
	}
	err := r.loop.Run(ctx)
	r.release()

	r.mu.RLock()
	status := r.info.Status
	r.mu.RUnlock()
	if status == RoomAborted {
		return fmt.Errorf("room %s aborted", r.id)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Match returns the current or last game. It must only be read once Run
// has returned.
func (r *Room) Match() *game.Match {
	return r.match
}

// Done is closed once the room stopped
func (r *Room) Done() <-chan struct{} {
	return r.loop.Done()
}

// Submit queues a client's response to the offer numbered seq
func (r *Room) Submit(pid string, seq uint64, action *game.Action) error {
	return r.loop.Post(func() { r.Respond(pid, seq, action) })
}

// Vote queues a client's answer to a notification
func (r *Room) Vote(pid string, note game.NoteType, choice game.Choice) error {
	return r.loop.Post(func() { r.AnswerNote(pid, note, choice) })
}

// RequestGameInfo queues sending the current game info to pid
func (r *Room) RequestGameInfo(pid string) error {
	return r.loop.Post(func() { r.sendGameInfo(pid) })
}

// Resync re-sends the game info and any pending offer to a reconnected player
func (r *Room) Resync(pid string) error {
	return r.loop.Post(func() {
		r.send(pid, MessageTypeMatchStarted, MatchStartedData{MatchID: r.id, Game: r.game, Seats: r.seatInfos()})
		r.sendGameInfo(pid)
		r.resendOffer(pid)
	})
}

// Pause freezes every timer of the room. Responses arriving while paused
// are held and applied in order on Resume.
func (r *Room) Pause(pid string) error {
	return r.loop.Post(func() { r.pause(pid) })
}

// Resume re-arms the frozen timers after the grace delay
func (r *Room) Resume(pid string) error {
	return r.loop.Post(func() { r.resume(pid) })
}

func (r *Room) pause(pid string) {
	if r.loop.Paused() {
		return
	}
	r.loop.Pause()
	r.logger.Info("Room paused", "by", pid)
	r.broadcast(MessageTypeMatchPaused, PauseData{MatchID: r.id, By: pid})
}

func (r *Room) resume(pid string) {
	if !r.loop.Paused() {
		return
	}
	r.loop.Resume()
	r.logger.Info("Room resumed", "by", pid, "held", len(r.held))
	r.broadcast(MessageTypeMatchResumed, PauseData{MatchID: r.id, By: pid})
	if r.match == nil {
		r.held = nil
		return
	}

	var seq uint64
	if offer := r.match.Offer(); offer != nil {
		seq = offer.Seq
	}
	held := r.held
	r.held = nil
	for _, fn := range held {
		fn()
	}

	// a replayed response already sent the next offer
	if offer := r.match.Offer(); offer != nil && offer.Seq == seq {
		r.resendOffer(offer.PID)
	}
}

// hold defers fn until the room resumes. It reports whether fn was held.
func (r *Room) hold(fn func()) bool {
	if !r.loop.Paused() {
		return false
	}
	r.held = append(r.held, fn)
	return true
}

// View implements bot.Responder
func (r *Room) View(pid string) game.View {
	if r.match == nil {
		return game.View{PID: pid}
	}
	return r.match.View(pid)
}

// Respond applies a response on the loop. It implements bot.Responder.
func (r *Room) Respond(pid string, seq uint64, action *game.Action) {
	if r.hold(func() { r.Respond(pid, seq, action) }) {
		r.logger.Debug("Holding response while paused", "player", pid, "seq", seq)
		return
	}
	if r.match == nil {
		r.logger.Debug("Dropping response", "player", pid, "error", game.ErrNoActiveMatch)
		return
	}
	if err := r.match.Apply(pid, seq, action); err != nil {
		r.handleApplyError(pid, seq, err)
	}
}

// AnswerNote records a notification answer. It implements bot.Responder.
func (r *Room) AnswerNote(pid string, note game.NoteType, choice game.Choice) {
	if r.hold(func() { r.AnswerNote(pid, note, choice) }) {
		return
	}
	if note != game.NoteRematch || r.votes == nil {
		r.logger.Debug("Ignoring notification answer", "player", pid, "note", note)
		return
	}
	if r.seat(pid) == nil {
		return
	}
	r.votes[pid] = choice
	r.logger.Debug("Rematch vote", "player", pid, "choice", choice)

	if choice != game.ChoiceAccept || len(r.votes) == len(r.seats) {
		r.concludeVote()
	}
}

// OnEvent implements game.EventSubscriber. It runs before the seats'
// subscribers so deadlines are armed by the time offers go out.
func (r *Room) OnEvent(event game.Event) {
	switch e := event.(type) {
	case game.ValidActionsEvent:
		r.armDeadline(e.Offer)
		r.updateInfo()
	case game.CompleteActionEvent:
		if e.Action.PID != "" && e.Action.PID == r.deadlinePID {
			r.cancelDeadline()
		}
	case game.MatchEndEvent:
		r.cancelDeadline()
		r.updateInfo()
		r.logger.Info("Game finished", "game", r.game, "loser", e.Loser, "finished", e.Finished)
		if err := r.loop.Post(r.afterGame); err != nil {
			r.logger.Warn("Failed to queue rematch", "error", err)
		}
	}
}

func (r *Room) startGame() {
	r.game++
	r.votes = nil
	r.held = nil

	cfg := game.MatchConfig{Seed: r.rng.Int64()}
	if r.game == 1 {
		cfg.Deck = r.cfg.Deck
		cfg.FirstAttacker = r.cfg.FirstAttacker
	}

	m, err := game.NewMatch(cfg, r.pids(), r.logger)
	if err != nil {
		r.abort(err)
		return
	}
	m.Subscribe(r)
	for _, s := range r.seats {
		m.Subscribe(s.subscriber())
	}
	r.match = m
	r.setStatus(RoomPlaying)

	r.logger.Info("Starting game", "game", r.game, "seats", len(r.seats))
	r.broadcast(MessageTypeMatchStarted, MatchStartedData{MatchID: r.id, Game: r.game, Seats: r.seatInfos()})
	if err := m.Start(); err != nil {
		r.abort(err)
	}
}

func (r *Room) armDeadline(offer game.Offer) {
	r.cancelDeadline()
	r.deadlinePID = offer.PID
	pid, seq := offer.PID, offer.Seq
	r.loop.AfterFunc(deadlineKey(pid), r.cfg.ActionTimeout, func() { r.expire(pid, seq) })
}

func (r *Room) cancelDeadline() {
	if r.deadlinePID != "" {
		r.loop.Cancel(deadlineKey(r.deadlinePID))
		r.deadlinePID = ""
	}
}

func (r *Room) deadline(pid string) (time.Time, bool) {
	return r.loop.Deadline(deadlineKey(pid))
}

// expire applies the default action once the offer numbered seq timed out
func (r *Room) expire(pid string, seq uint64) {
	r.deadlinePID = ""
	if r.match == nil {
		return
	}
	offer := r.match.Offer()
	if offer == nil || offer.PID != pid || offer.Seq != seq {
		return
	}

	action := r.match.DefaultAction()
	if action == nil {
		r.abort(fmt.Errorf("%w: no default action in %s", game.ErrInconsistentState, offer.Stage))
		return
	}
	r.logger.Info("Action deadline expired", "player", pid, "seq", seq, "stage", offer.Stage, "default", action.Type)
	if err := r.match.Apply(pid, seq, action); err != nil {
		r.handleApplyError(pid, seq, err)
	}
}

func (r *Room) handleApplyError(pid string, seq uint64, err error) {
	switch {
	case errors.Is(err, game.ErrStaleResponse):
		r.logger.Debug("Dropping stale response", "player", pid, "seq", seq)
		r.send(pid, MessageTypeLateness, LatenessData{Seq: seq, Message: "the offer was already closed"})
	case errors.Is(err, game.ErrIllegalAction):
		r.logger.Warn("Rejected illegal action", "player", pid, "seq", seq, "error", err)
		r.send(pid, MessageTypeError, ErrorData{Code: "illegal_action", Message: err.Error()})
		r.resendOffer(pid)
	case errors.Is(err, game.ErrNoActiveMatch):
		r.logger.Debug("Dropping response", "player", pid, "error", err)
	default:
		r.abort(err)
	}
}

func (r *Room) resendOffer(pid string) {
	if r.match == nil {
		return
	}
	offer := r.match.Offer()
	if offer == nil || offer.PID != pid {
		return
	}
	if s := r.seat(pid); s != nil && s.net != nil {
		s.net.SendOffer(*offer)
	}
}

func (r *Room) sendGameInfo(pid string) {
	if r.match == nil {
		return
	}
	r.send(pid, MessageTypeGameInfo, GameInfoData{MatchID: r.id, GameInfo: r.match.GameInfo(pid)})
}

// afterGame asks every seat for a rematch or closes the room
func (r *Room) afterGame() {
	r.detach()
	if !r.cfg.Rematch {
		r.finish()
		return
	}

	r.votes = make(map[string]game.Choice, len(r.seats))
	r.setStatus(RoomVoting)
	event := game.NewNotificationEvent(game.Note{
		Type:    game.NoteRematch,
		Loser:   r.match.Loser(),
		Choices: []game.Choice{game.ChoiceAccept, game.ChoiceDecline},
	})
	for _, s := range r.seats {
		s.subscriber().OnEvent(event)
	}
	r.loop.AfterFunc(voteKey, r.cfg.ActionTimeout, r.concludeVote)
}

// detach unsubscribes the room and its seats from the finished match
func (r *Room) detach() {
	r.match.Unsubscribe(r)
	for _, s := range r.seats {
		r.match.Unsubscribe(s.subscriber())
	}
}

func (r *Room) concludeVote() {
	if r.votes == nil {
		return
	}
	r.loop.Cancel(voteKey)

	accepted := len(r.votes) == len(r.seats)
	for _, choice := range r.votes {
		if choice != game.ChoiceAccept {
			accepted = false
		}
	}
	r.votes = nil

	if !accepted {
		r.logger.Info("Rematch declined")
		r.finish()
		return
	}
	r.startGame()
}

func (r *Room) finish() {
	r.setStatus(RoomFinished)
	r.logger.Info("Room finished", "games", r.game)
	r.cancel()
}

// abort stops the room after an internal defect. Players only learn that
// the match is over.
func (r *Room) abort(err error) {
	r.logger.Error("Room aborted", "game", r.game, "error", err)
	r.setStatus(RoomAborted)
	r.cancelDeadline()
	r.broadcast(MessageTypeError, ErrorData{Code: "match_aborted", Message: "the match cannot continue"})
	r.cancel()
}

func (r *Room) release() {
	for _, s := range r.seats {
		if s.agent != nil && s.Name != s.PID {
			r.names.Release(s.Name)
		}
	}
}

func (r *Room) seat(pid string) *Seat {
	for _, s := range r.seats {
		if s.PID == pid {
			return s
		}
	}
	return nil
}

func (r *Room) pids() []string {
	pids := make([]string, len(r.seats))
	for i, s := range r.seats {
		pids[i] = s.PID
	}
	return pids
}

func (r *Room) seatInfos() []SeatInfo {
	infos := make([]SeatInfo, len(r.seats))
	for i, s := range r.seats {
		infos[i] = s.SeatInfo
	}
	return infos
}

func (r *Room) send(pid string, messageType MessageType, data any) {
	if s := r.seat(pid); s != nil && s.net != nil {
		s.net.Send(messageType, data)
	}
}

func (r *Room) broadcast(messageType MessageType, data any) {
	for _, s := range r.seats {
		if s.net != nil {
			s.net.Send(messageType, data)
		}
	}
}

func (r *Room) setStatus(status RoomStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info.Status = status
	r.info.Game = r.game
}

func (r *Room) updateInfo() {
	if r.match == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info.TurnIndex = r.match.TurnIndex()
	r.info.Loser = r.match.Loser()
}
