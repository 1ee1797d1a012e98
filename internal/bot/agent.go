package bot

import (
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/timer"
)

// DefaultDecisionTime is the random part of a bot's thinking time
const DefaultDecisionTime = 1500 * time.Millisecond

// Responder is the match owner a bot answers to. It is only called on the
// owner's timer loop.
type Responder interface {
	View(pid string) game.View
	Respond(pid string, seq uint64, action *game.Action)
	AnswerNote(pid string, note game.NoteType, choice game.Choice)
}

// AgentConfig controls bot timing
type AgentConfig struct {
	// DecisionTime is the random part of the delay
	DecisionTime time.Duration
	// MinDelay is added to every delay. Zero makes every bot answer at once.
	MinDelay time.Duration
	// BotOnly marks test and bot-only matches; bots accept the first choice
	// of a notification there and decline otherwise.
	BotOnly bool
}

// Delay returns how long a bot waits before answering: a random share of
// decisionTime plus minDelay, or zero when minDelay is zero.
func Delay(rng *rand.Rand, decisionTime, minDelay time.Duration) time.Duration {
	if minDelay <= 0 {
		return 0
	}
	return time.Duration(rng.Float64()*float64(decisionTime)) + minDelay
}

// Agent plays one seat for a bot. It reacts to match events delivered on the
// owner's timer loop and answers after a human-like delay. At most one
// answer is pending at a time; a new offer, completed action or
// notification cancels it.
type Agent struct {
	id        string
	name      string
	strategy  Strategy
	responder Responder
	loop      *timer.Loop
	rng       *rand.Rand
	cfg       AgentConfig
	logger    *log.Logger

	key string
	gen uint64
}

// NewAgent creates a bot agent for the seat id
func NewAgent(id, name string, strategy Strategy, responder Responder, loop *timer.Loop, rng *rand.Rand, cfg AgentConfig, logger *log.Logger) *Agent {
	if cfg.DecisionTime == 0 {
		cfg.DecisionTime = DefaultDecisionTime
	}
	return &Agent{
		id:        id,
		name:      name,
		strategy:  strategy,
		responder: responder,
		loop:      loop,
		rng:       rng,
		cfg:       cfg,
		logger:    logger.WithPrefix("bot").With("id", id, "name", name),
		key:       "decide:" + id,
	}
}

// ID returns the seat id
func (a *Agent) ID() string {
	return a.id
}

// Name returns the display name
func (a *Agent) Name() string {
	return a.name
}

// OnEvent implements game.EventSubscriber
func (a *Agent) OnEvent(event game.Event) {
	switch e := event.(type) {
	case game.ValidActionsEvent:
		a.Cancel()
		if e.Offer.PID == a.id && len(e.Offer.Actions) > 0 {
			a.decide(e.Offer)
		}
	case game.CompleteActionEvent:
		a.Cancel()
	case game.NotificationEvent:
		if len(e.Note.Choices) > 0 {
			a.Cancel()
			a.answer(e.Note)
		}
	case game.MatchEndEvent:
		a.Cancel()
	}
}

// Cancel drops the pending answer, if any
func (a *Agent) Cancel() {
	a.gen++
	a.loop.Cancel(a.key)
}

func (a *Agent) decide(offer game.Offer) {
	delay := Delay(a.rng, a.cfg.DecisionTime, a.cfg.MinDelay)
	a.schedule(delay, func() {
		view := a.responder.View(a.id)
		action := a.strategy.Choose(view, offer.Actions)
		a.logger.Debug("Responding", "seq", offer.Seq, "action", action.Type, "cid", action.CID, "field", action.Field)
		a.responder.Respond(a.id, offer.Seq, &action)
	})
}

func (a *Agent) answer(note game.Note) {
	idx := 1
	if a.cfg.BotOnly {
		idx = 0
	}
	idx = min(idx, len(note.Choices)-1)
	choice := note.Choices[idx]

	a.schedule(a.cfg.MinDelay, func() {
		a.logger.Debug("Answering notification", "note", note.Type, "choice", choice)
		a.responder.AnswerNote(a.id, note.Type, choice)
	})
}

func (a *Agent) schedule(delay time.Duration, fn func()) {
	a.gen++
	gen := a.gen
	run := func() {
		if gen != a.gen {
			return
		}
		fn()
	}

	if delay <= 0 {
		if err := a.loop.Post(run); err != nil {
			a.logger.Warn("Dropping answer", "error", err)
		}
		return
	}
	a.loop.AfterFunc(a.key, delay, run)
}
