package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func hand(prefix, s string) []deck.Card {
	var cards []deck.Card
	for _, c := range deck.MustParseCards(prefix, s) {
		c.Field = "bot"
		cards = append(cards, *c)
	}
	return cards
}

func slot(i int, attack, defense string) game.TableSlot {
	s := game.TableSlot{ID: deck.TableField(i)}
	if attack != "" {
		c := deck.MustParseCards("a", attack)[0]
		c.ID = "t" + attack
		s.Attack = c
	}
	if defense != "" {
		c := deck.MustParseCards("d", defense)[0]
		c.ID = "t" + defense
		s.Defense = c
	}
	return s
}

func attacks(cards []deck.Card, field deck.Field) []game.Action {
	var actions []game.Action
	for _, c := range cards {
		actions = append(actions, game.Action{Type: game.ActionAttack, CID: c.ID, Field: field})
	}
	return actions
}

func defenses(cards []deck.Card, field deck.Field) []game.Action {
	var actions []game.Action
	for _, c := range cards {
		actions = append(actions, game.Action{Type: game.ActionDefense, CID: c.ID, Field: field})
	}
	return actions
}

func attackerView(h []deck.Card, stage game.TurnStage, defenderHand int, table ...game.TableSlot) game.View {
	return game.View{
		PID:              "bot",
		Hand:             h,
		Table:            table,
		TrumpSuit:        deck.Hearts,
		DeckSize:         10,
		Stage:            stage,
		Role:             game.RoleAttacker,
		DefenderHandSize: defenderHand,
	}
}

func defenderView(h []deck.Card, deckSize int, table ...game.TableSlot) game.View {
	used := 0
	for _, s := range table {
		if s.Attack != nil {
			used++
		}
	}
	return game.View{
		PID:        "bot",
		Hand:       h,
		Table:      table,
		TrumpSuit:  deck.Hearts,
		DeckSize:   deckSize,
		UsedFields: used,
		Stage:      game.StageDefense,
		Role:       game.RoleDefender,
	}
}

func TestHeuristicOpensWithCommonSuitOfLargestGroup(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	// b0=6s b1=6d b2=7d b3=9d b4=Kc b5=8h
	cards := hand("b", "6s 6d 7d 9d Kc 8h")
	view := attackerView(cards, game.StageInitialAttack, 6)

	a := h.Choose(view, attacks(cards, "TABLE0"))
	assert.Equal(t, "b1", a.CID, "6d: pair of sixes, diamonds most common")
}

func TestHeuristicOpensWithCheapestNonTrump(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "Qs 2h 9c Kc")
	view := attackerView(cards, game.StageInitialAttack, 6)

	a := h.Choose(view, attacks(cards, "TABLE0"))
	assert.Equal(t, "b2", a.CID)
}

func TestHeuristicPassesWithOnlyTrumpsToThrowIn(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "7h Ks")
	view := attackerView(cards, game.StageRepeatingAttack, 2, slot(0, "7s", "9s"))

	actions := append(attacks(cards[:1], "TABLE1"), game.Action{Type: game.ActionPass})
	assert.Equal(t, game.ActionPass, h.Choose(view, actions).Type)
}

func TestHeuristicThrowsInAgainstShortHandedDefender(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "7d Ks")
	actions := append(attacks(cards[:1], "TABLE1"), game.Action{Type: game.ActionPass})

	view := attackerView(cards, game.StageRepeatingAttack, 2, slot(0, "7s", "9s"))
	a := h.Choose(view, actions)
	assert.Equal(t, game.ActionAttack, a.Type)
	assert.Equal(t, "b0", a.CID)

	view = attackerView(cards, game.StageRepeatingAttack, 6, slot(0, "7s", "9s"))
	assert.Equal(t, game.ActionPass, h.Choose(view, actions).Type, "defender still has plenty of cards")

	view = attackerView(cards, game.StageFollowup, 2, slot(0, "7s", ""))
	assert.Equal(t, game.ActionPass, h.Choose(view, actions).Type, "never feed a taking defender")
}

func TestHeuristicTakesUnbeatableTable(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "Ts 6c")
	view := defenderView(cards, 10, slot(0, "9s", ""), slot(1, "Kd", ""))

	actions := append(defenses(cards[:1], "TABLE0"), game.Action{Type: game.ActionTake})
	assert.Equal(t, game.ActionTake, h.Choose(view, actions).Type)
}

func TestHeuristicSavesLoneTrumpEarly(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "Th 6c 7c")
	actions := append(defenses(cards[:1], "TABLE0"), game.Action{Type: game.ActionTake})

	early := defenderView(cards, 10, slot(0, "9s", ""))
	assert.Equal(t, game.ActionTake, h.Choose(early, actions).Type)

	late := defenderView(cards, 2, slot(0, "9s", ""))
	a := h.Choose(late, actions)
	assert.Equal(t, game.ActionDefense, a.Type)
	assert.Equal(t, "b0", a.CID)
}

func TestHeuristicTransfersWithNonTrump(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "7d 9s Ah")
	view := defenderView(cards, 10, slot(0, "7s", ""))

	actions := defenses(cards[1:], "TABLE0")
	actions = append(actions, attacks(cards[:1], "TABLE1")...)
	actions = append(actions, game.Action{Type: game.ActionTake})

	a := h.Choose(view, actions)
	assert.Equal(t, game.Action{Type: game.ActionAttack, CID: "b0", Field: "TABLE1"}, a)
}

func TestHeuristicSkipsTrumpTransferWhenOthersCanDefend(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	// the trump 7 could transfer, but the lone attack card is beatable by
	// the 9s too, so the trump only covers the seven already on the table
	cards := hand("b", "7h 9s")
	view := defenderView(cards, 10, slot(0, "7s", ""))

	actions := defenses(cards, "TABLE0")
	actions = append(actions, attacks(cards[:1], "TABLE1")...)
	actions = append(actions, game.Action{Type: game.ActionTake})

	a := h.Choose(view, actions)
	assert.Equal(t, game.Action{Type: game.ActionDefense, CID: "b0", Field: "TABLE0"}, a)
}

func TestHeuristicTransfersTrumpWhenItIsTheOnlyDefense(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "7h 6c")
	view := defenderView(cards, 10, slot(0, "7s", ""))

	actions := defenses(cards[:1], "TABLE0")
	actions = append(actions, attacks(cards[:1], "TABLE1")...)
	actions = append(actions, game.Action{Type: game.ActionTake})

	a := h.Choose(view, actions)
	assert.Equal(t, game.Action{Type: game.ActionAttack, CID: "b0", Field: "TABLE1"}, a)
}

func TestHeuristicReusesValueOnTable(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "Jd Qd")
	view := defenderView(cards, 10, slot(0, "Qs", "Ks"), slot(1, "9d", ""))

	actions := append(defenses(cards, "TABLE1"), game.Action{Type: game.ActionTake})
	a := h.Choose(view, actions)
	assert.Equal(t, "b1", a.CID, "queen is already on the table")
}

func TestHeuristicSupportTurn(t *testing.T) {
	tuning := DefaultTuning()
	tuning.SupportTurns = true
	h := NewHeuristic(tuning, testLogger())

	cards := hand("b", "7d 7h")
	view := attackerView(cards, game.StageRepeatingAttack, 6, slot(0, "7s", "9s"))
	view.RoleIndex = 1
	require.Equal(t, TurnSupport, h.TurnType(&view))

	actions := append(attacks(cards, "TABLE1"), game.Action{Type: game.ActionPass})
	assert.Equal(t, "b0", h.Choose(view, actions).CID)

	actions = append(attacks(cards[1:], "TABLE1"), game.Action{Type: game.ActionPass})
	assert.Equal(t, game.ActionPass, h.Choose(view, actions).Type, "support never spends trumps")

	h = NewHeuristic(DefaultTuning(), testLogger())
	assert.Equal(t, TurnAttack, h.TurnType(&view), "support turns are off by default")
}

func TestHeuristicStage(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	assert.Equal(t, EarlyGame, h.Stage(&game.View{DeckSize: 5}))
	assert.Equal(t, EndGame, h.Stage(&game.View{DeckSize: 4}))
}

func TestHeuristicIsDeterministic(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	cards := hand("b", "6s 6d 7d 9d Kc 8h")
	view := defenderView(cards, 10, slot(0, "6c", ""), slot(1, "5d", "9d"))

	actions := defenses(cards, "TABLE0")
	actions = append(actions, attacks(cards[:2], "TABLE2")...)
	actions = append(actions, game.Action{Type: game.ActionTake})

	first := h.Choose(view, actions)
	for range 20 {
		assert.Equal(t, first, h.Choose(view, actions))
	}
}

func TestHeuristicEmptyActions(t *testing.T) {
	h := NewHeuristic(DefaultTuning(), testLogger())
	assert.Equal(t, game.Action{}, h.Choose(game.View{}, nil))
}

func TestPassiveBot(t *testing.T) {
	p := NewPassiveBot(testLogger())
	cards := hand("b", "7d")

	assert.Equal(t, game.ActionPass, p.Choose(game.View{}, append(attacks(cards, "TABLE1"), game.Action{Type: game.ActionPass})).Type)
	assert.Equal(t, game.ActionTake, p.Choose(game.View{}, append(defenses(cards, "TABLE0"), game.Action{Type: game.ActionTake})).Type)
	assert.Equal(t, "b0", p.Choose(game.View{}, attacks(cards, "TABLE0")).CID)
}

func TestRandBotPicksOfferedActions(t *testing.T) {
	r := NewRandBot(randutil.New(3), testLogger())
	actions := append(attacks(hand("b", "7d 8d 9d"), "TABLE0"), game.Action{Type: game.ActionPass})

	seen := make(map[string]bool)
	for range 100 {
		a := r.Choose(game.View{}, actions)
		assert.Contains(t, actions, a)
		seen[string(a.Type)+a.CID] = true
	}
	assert.Len(t, seen, len(actions))
	assert.Equal(t, game.Action{}, r.Choose(game.View{}, nil))
}
