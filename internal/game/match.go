package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/randutil"
)

// TurnStage is the phase of the current round
type TurnStage string

const (
	StageInitialAttack   TurnStage = "INITIAL_ATTACK"
	StageRepeatingAttack TurnStage = "REPEATING_ATTACK"
	StageDefense         TurnStage = "DEFENSE"
	StageFollowup        TurnStage = "FOLLOWUP"
	StageEnd             TurnStage = "END"
)

// String returns the string representation of the stage
func (s TurnStage) String() string {
	return string(s)
}

// Offer is the legal action set currently offered to one player
type Offer struct {
	Seq       uint64    `json:"seq"`
	PID       string    `json:"pid"`
	Actions   []Action  `json:"actions"`
	Roles     RolesInfo `json:"roles"`
	TurnIndex int       `json:"turnIndex"`
	Stage     TurnStage `json:"turnStage"`
}

// Has reports whether the offer contains an action of the given type
func (o *Offer) Has(t ActionType) bool {
	return slices.ContainsFunc(o.Actions, func(a Action) bool { return a.Type == t })
}

// Find returns the offered action designating the same move as a, if any
func (o *Offer) Find(a Action) (Action, bool) {
	for _, offered := range o.Actions {
		if offered.Matches(a) {
			return offered, true
		}
	}
	return Action{}, false
}

// MatchConfig configures a match
type MatchConfig struct {
	Seed           int64        // shuffle seed, 0 for random
	Deck           []*deck.Card // preset deck order, top first; overrides Seed
	FirstAttacker  string       // overrides the lowest-trump rule when set
	TableLength    int          // number of table slots, defaults to MaxTableLength
	NormalHandSize int          // defaults to NormalHandSize
}

// Match is the authoritative state of one durak match. It is not safe for
// concurrent use: the owner applies exactly one accepted action at a time.
type Match struct {
	cfg     MatchConfig
	players []string
	cards   *Cards
	log     *ActionLog
	roles   Roles
	bus     EventBus
	logger  *log.Logger
	rng     *rand.Rand

	stage      TurnStage
	turnIndex  int
	attackTurn int  // index into the attackers during REPEATING_ATTACK/FOLLOWUP
	taking     bool // defender declared TAKE this round

	offer  *Offer
	seq    uint64
	active bool

	finished []string
	loser    string
	ended    bool
}

// NewMatch creates a match for 2 or more players
func NewMatch(cfg MatchConfig, players []string, logger *log.Logger) (*Match, error) {
	if len(players) < 2 || len(players) > MaxPlayers {
		return nil, fmt.Errorf("a match needs 2 to %d players, got %d", MaxPlayers, len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, pid := range players {
		if pid == "" || seen[pid] {
			return nil, fmt.Errorf("invalid or duplicate player id %q", pid)
		}
		seen[pid] = true
	}
	if cfg.TableLength == 0 {
		cfg.TableLength = MaxTableLength
	}
	if cfg.NormalHandSize == 0 {
		cfg.NormalHandSize = NormalHandSize
	}

	actionLog := NewActionLog()
	return &Match{
		cfg:     cfg,
		players: slices.Clone(players),
		cards:   NewCards(players, cfg.TableLength, cfg.NormalHandSize, actionLog),
		log:     actionLog,
		bus:     NewEventBus(),
		logger:  logger.WithPrefix("match"),
		rng:     randutil.New(randutil.Seed(cfg.Seed)),
	}, nil
}

// Subscribe registers a subscriber for match events
func (m *Match) Subscribe(s EventSubscriber) {
	m.bus.Subscribe(s)
}

// Unsubscribe stops delivering match events to a subscriber. It must not be
// called from inside OnEvent.
func (m *Match) Unsubscribe(s EventSubscriber) {
	m.bus.Unsubscribe(s)
}

// Players returns the players in seating order
func (m *Match) Players() []string {
	return m.players
}

// Cards returns the card containers
func (m *Match) Cards() *Cards {
	return m.cards
}

// ActionLog returns the card transition log
func (m *Match) ActionLog() *ActionLog {
	return m.log
}

// Roles returns the current roles
func (m *Match) Roles() *Roles {
	return &m.roles
}

// Stage returns the current turn stage
func (m *Match) Stage() TurnStage {
	return m.stage
}

// TurnIndex returns the number of completed rounds
func (m *Match) TurnIndex() int {
	return m.turnIndex
}

// Active reports whether the match accepts responses
func (m *Match) Active() bool {
	return m.active
}

// Ended reports whether the match reached its end
func (m *Match) Ended() bool {
	return m.ended
}

// Loser returns the player left holding cards, empty for a draw or while running
func (m *Match) Loser() string {
	return m.loser
}

// Finished returns players in the order they got rid of their cards
func (m *Match) Finished() []string {
	return m.finished
}

// Offer returns the pending offer, or nil when nobody is asked to act
func (m *Match) Offer() *Offer {
	return m.offer
}

// Start creates and deals the cards, selects the first attacker and makes
// the first offer.
func (m *Match) Start() error {
	if err := m.cards.Make(m.rng, m.cfg.Deck); err != nil {
		return err
	}
	m.active = true
	m.logger.Info("Match started",
		"players", len(m.players),
		"deck", m.cards.Deck().Len(),
		"trump", m.cards.TrumpSuit().String())

	requests := make([]Deal, 0, len(m.players))
	for _, pid := range m.players {
		requests = append(requests, Deal{PID: pid, NumOfCards: m.cfg.NormalHandSize})
	}
	if deals := m.cards.Deal(requests); len(deals) > 0 {
		m.publish(DealInfoEvent{Deals: deals, timestamp: time.Now()})
	}

	first := m.cfg.FirstAttacker
	if first == "" || !slices.Contains(m.players, first) {
		first = m.lowestTrumpHolder()
	}
	return m.startRound(first)
}

// lowestTrumpHolder returns the player holding the lowest trump, or the
// first player when nobody holds one.
func (m *Match) lowestTrumpHolder() string {
	holder := m.players[0]
	lowest := deck.MaxValue + 1
	for _, pid := range m.players {
		for _, c := range m.cards.Hand(pid) {
			if c.Suit == m.cards.TrumpSuit() && c.Value < lowest {
				lowest = c.Value
				holder = pid
			}
		}
	}
	return holder
}

// isIn reports whether a player still takes part: holds cards or can still
// draw from the deck.
func (m *Match) isIn(pid string) bool {
	return len(m.cards.Hand(pid)) > 0 || !m.cards.Deck().IsEmpty()
}

// nextIn returns the first player after pid in seating order who is still in
func (m *Match) nextIn(pid string) string {
	start := slices.Index(m.players, pid)
	for i := 1; i <= len(m.players); i++ {
		next := m.players[(start+i)%len(m.players)]
		if m.isIn(next) {
			return next
		}
	}
	return ""
}

// assignRoles makes attacker the main attacker, the next player the
// defender and the player after the defender the supporting attacker.
func (m *Match) assignRoles(attacker string) error {
	defender := m.nextIn(attacker)
	if defender == "" || defender == attacker {
		return fmt.Errorf("%w: no defender for attacker %s", ErrInconsistentState, attacker)
	}

	attackers := []string{attacker}
	if support := m.nextIn(defender); support != "" && support != attacker && support != defender {
		attackers = append(attackers, support)
	}
	if err := m.roles.SetAttackers(attackers...); err != nil {
		return err
	}
	m.roles.SetDefender(defender)
	return nil
}

func (m *Match) startRound(attacker string) error {
	if !m.isIn(attacker) {
		attacker = m.nextIn(attacker)
	}
	if err := m.assignRoles(attacker); err != nil {
		return m.fail(err)
	}
	m.roles.SnapshotOriginal()
	m.stage = StageInitialAttack
	m.attackTurn = 0
	m.taking = false

	m.logger.Debug("Round started",
		"turn", m.turnIndex,
		"attackers", m.roles.Attackers(),
		"defender", m.roles.Defender(),
		"fullLength", m.cards.Table().FullLength())

	return m.advance()
}

// attackLimitReached reports whether the defender cannot be given more
// cards: undefended cards already match the defender's hand size.
func (m *Match) attackLimitReached() bool {
	undefended := len(m.cards.Table().DefenseFields())
	return undefended >= len(m.cards.Hand(m.roles.Defender()))
}

// actionsFor builds the legal action set for the stage's actor
func (m *Match) actionsFor(pid string) []Action {
	switch m.stage {
	case StageInitialAttack:
		return m.cards.AttackActions(m.cards.Hand(pid))

	case StageDefense:
		hand := m.cards.Hand(pid)
		actions := m.cards.DefenseActions(hand)
		actions = append(actions, m.cards.TransferActions(hand, m.nextDefenderHandSize(), actions)...)
		return append(actions, Action{Type: ActionTake})

	case StageRepeatingAttack, StageFollowup:
		if m.attackLimitReached() {
			return nil
		}
		return m.cards.AttackActions(m.cards.Hand(pid))
	}
	return nil
}

// nextDefenderHandSize returns the hand size of the player a transfer would
// make the defender.
func (m *Match) nextDefenderHandSize() int {
	return len(m.cards.Hand(m.nextIn(m.roles.Defender())))
}

// advance makes the next offer, skipping attackers that can only pass, and
// ends the round when every attacker is done.
func (m *Match) advance() error {
	for {
		var pid string
		switch m.stage {
		case StageInitialAttack:
			pid = m.roles.Attacker(0)
		case StageDefense:
			pid = m.roles.Defender()
		case StageRepeatingAttack, StageFollowup:
			if m.attackTurn >= len(m.roles.Attackers()) {
				return m.endRound()
			}
			pid = m.roles.Attacker(m.attackTurn)
		default:
			return nil
		}

		actions := m.actionsFor(pid)
		if len(actions) == 0 {
			if m.stage == StageInitialAttack {
				return m.fail(fmt.Errorf("%w: attacker %s has no opening move", ErrInconsistentState, pid))
			}
			m.attackTurn++
			continue
		}
		if m.stage == StageRepeatingAttack || m.stage == StageFollowup {
			actions = append(actions, Action{Type: ActionPass})
		}

		m.seq++
		m.offer = &Offer{
			Seq:       m.seq,
			PID:       pid,
			Actions:   actions,
			Roles:     m.roles.Info(),
			TurnIndex: m.turnIndex,
			Stage:     m.stage,
		}
		m.publish(ValidActionsEvent{Offer: *m.offer, timestamp: time.Now()})
		return nil
	}
}

// Apply applies a response to the current offer. A nil action is an
// explicit pass. Responses for another offer are stale; responses that do
// not match an offered action are illegal and leave the match untouched.
func (m *Match) Apply(pid string, seq uint64, action *Action) error {
	if !m.active {
		return fmt.Errorf("%w: match is not running", ErrNoActiveMatch)
	}
	if m.offer == nil || m.offer.PID != pid || m.offer.Seq != seq {
		return fmt.Errorf("%w: %s has no pending offer %d", ErrStaleResponse, pid, seq)
	}

	var requested Action
	if action == nil {
		if !m.offer.Has(ActionPass) {
			return fmt.Errorf("%w: pass is not allowed in %s", ErrIllegalAction, m.stage)
		}
		requested = Action{Type: ActionPass}
	} else {
		requested = *action
	}

	chosen, ok := m.offer.Find(requested)
	if !ok {
		return fmt.Errorf("%w: %s %s onto %s was not offered", ErrIllegalAction, requested.Type, requested.CID, requested.Field)
	}

	offer := m.offer
	m.offer = nil
	if err := m.execute(pid, chosen); err != nil {
		if errors.Is(err, ErrIllegalAction) {
			m.offer = offer
		}
		return err
	}
	return nil
}

// DefaultAction returns the action applied when the offer's deadline expires
func (m *Match) DefaultAction() *Action {
	if m.offer == nil {
		return nil
	}
	switch m.offer.Stage {
	case StageDefense:
		return &Action{Type: ActionTake}
	case StageRepeatingAttack, StageFollowup:
		return &Action{Type: ActionPass}
	}

	// The opening attack is mandatory: play the lowest card, non-trumps first.
	var best *Action
	var bestCard *deck.Card
	trump := m.cards.TrumpSuit()
	for i, a := range m.offer.Actions {
		card := m.findCard(m.offer.PID, a.CID)
		if card == nil {
			continue
		}
		if bestCard == nil || lessCard(card, bestCard, trump) {
			best, bestCard = &m.offer.Actions[i], card
		}
	}
	if best == nil {
		return nil
	}
	a := *best
	return &a
}

func lessCard(a, b *deck.Card, trump deck.Suit) bool {
	aTrump, bTrump := a.Suit == trump, b.Suit == trump
	if aTrump != bTrump {
		return !aTrump
	}
	return a.Value < b.Value
}

func (m *Match) findCard(pid, cid string) *deck.Card {
	for _, c := range m.cards.Hand(pid) {
		if c.ID == cid {
			return c
		}
	}
	return nil
}

func (m *Match) execute(pid string, a Action) error {
	role, _ := m.roles.RoleOf(pid)

	switch a.Type {
	case ActionAttack:
		if err := m.cards.PlaceAttack(pid, a.CID, a.Field); err != nil {
			return err
		}
		m.complete(Action{
			Type:        ActionAttack,
			CID:         a.CID,
			Field:       a.Field,
			LinkedField: a.LinkedField,
			Cards:       []CardInfo{cardInfo(m.cards.Table().Slot(a.Field).Attack)},
			PID:         pid,
		})

		switch {
		case role == RoleDefender:
			if err := m.transfer(); err != nil {
				return m.fail(err)
			}
			m.stage = StageDefense
		case m.stage == StageFollowup:
			// the defender takes everything later; the same attacker may continue
		default:
			m.stage = StageDefense
		}

	case ActionDefense:
		if err := m.cards.PlaceDefense(pid, a.CID, a.Field); err != nil {
			return err
		}
		m.complete(Action{
			Type:  ActionDefense,
			CID:   a.CID,
			Field: a.Field,
			Cards: []CardInfo{cardInfo(m.cards.Table().Slot(a.Field).Defense)},
			PID:   pid,
		})
		if len(m.cards.Table().DefenseFields()) == 0 {
			m.stage = StageRepeatingAttack
			m.attackTurn = 0
		}

	case ActionTake:
		m.taking = true
		m.complete(Action{Type: ActionTake, PID: pid})
		m.stage = StageFollowup
		m.attackTurn = 0

	case ActionPass:
		m.complete(Action{Type: ActionPass, PID: pid})
		m.attackTurn++

	default:
		return fmt.Errorf("%w: unsupported action type %s", ErrIllegalAction, a.Type)
	}

	return m.advance()
}

// transfer forwards the attack: the defender becomes the main attacker and
// the next player defends. Original attackers are kept for the deal order.
func (m *Match) transfer() error {
	from := m.roles.Defender()
	if err := m.assignRoles(from); err != nil {
		return err
	}
	m.logger.Debug("Attack transferred", "from", from, "to", m.roles.Defender())
	return nil
}

// endRound clears the table, refills hands, detects finished players and
// either ends the match or starts the next round.
func (m *Match) endRound() error {
	m.stage = StageEnd
	defender := m.roles.Defender()

	var next string
	if m.taking {
		next = m.take(defender)
	} else if discard := m.cards.Discard(); discard != nil {
		if discard.UnlockedField != "" {
			m.logger.Debug("Discard unlocked slot", "field", discard.UnlockedField, "fullLength", m.cards.Table().FullLength())
		}
		m.complete(*discard)
		next = defender
	} else {
		next = m.take(defender)
	}

	if deals := m.cards.DealTillFullHand(&m.roles); len(deals) > 0 {
		m.publish(DealInfoEvent{Deals: deals, timestamp: time.Now()})
	}

	if err := m.cards.Validate(); err != nil {
		return m.fail(err)
	}

	m.turnIndex++
	if m.checkFinished() {
		return nil
	}
	return m.startRound(next)
}

// take moves the table into the defender's hand and returns the player who
// attacks next: the one after the defender.
func (m *Match) take(defender string) string {
	m.complete(m.cards.Take(defender))
	return m.nextIn(defender)
}

// checkFinished records players who got rid of all their cards and ends the
// match when at most one player is left holding cards.
func (m *Match) checkFinished() bool {
	var remaining []string
	for _, pid := range m.players {
		if m.isIn(pid) {
			remaining = append(remaining, pid)
			continue
		}
		if !slices.Contains(m.finished, pid) {
			m.finished = append(m.finished, pid)
			m.publish(NotificationEvent{
				Note:      Note{Type: NotePlayerFinished, PID: pid},
				timestamp: time.Now(),
			})
		}
	}

	if len(remaining) > 1 {
		return false
	}
	if len(remaining) == 1 {
		m.loser = remaining[0]
	}
	m.active = false
	m.ended = true
	m.offer = nil
	m.logger.Info("Match ended", "loser", m.loser, "turns", m.turnIndex)
	m.publish(NotificationEvent{
		Note:      Note{Type: NoteMatchEnded, Loser: m.loser},
		timestamp: time.Now(),
	})
	m.publish(MatchEndEvent{Finished: slices.Clone(m.finished), Loser: m.loser, timestamp: time.Now()})
	return true
}

// fail stops the match after a bookkeeping defect
func (m *Match) fail(err error) error {
	m.active = false
	m.offer = nil
	m.logger.Error("Match aborted", "error", err)
	return err
}

func (m *Match) complete(a Action) {
	m.publish(CompleteActionEvent{Action: a, timestamp: time.Now()})
}

func (m *Match) publish(e Event) {
	m.bus.Publish(e)
}
