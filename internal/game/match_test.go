package game

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

type recorder struct {
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) completed() []Action {
	var actions []Action
	for _, e := range r.events {
		if ce, ok := e.(CompleteActionEvent); ok {
			actions = append(actions, ce.Action)
		}
	}
	return actions
}

func (r *recorder) deals() [][]Deal {
	var deals [][]Deal
	for _, e := range r.events {
		if de, ok := e.(DealInfoEvent); ok {
			deals = append(deals, de.Deals)
		}
	}
	return deals
}

func newTestMatch(t *testing.T, cfg MatchConfig, players ...string) (*Match, *recorder) {
	t.Helper()
	m, err := NewMatch(cfg, players, testLogger())
	require.NoError(t, err)
	rec := &recorder{}
	m.Subscribe(rec)
	require.NoError(t, m.Start())
	return m, rec
}

func apply(t *testing.T, m *Match, a Action) {
	t.Helper()
	offer := m.Offer()
	require.NotNil(t, offer)
	require.NoError(t, m.Apply(offer.PID, offer.Seq, &a))
}

func TestNewMatchRejectsBadPlayers(t *testing.T) {
	_, err := NewMatch(MatchConfig{}, []string{"p1"}, testLogger())
	assert.Error(t, err)

	_, err = NewMatch(MatchConfig{}, []string{"p1", "p1"}, testLogger())
	assert.Error(t, err)
}

func TestStartOffersOpeningAttack(t *testing.T) {
	m, rec := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")

	require.Len(t, rec.deals(), 1)
	assert.Equal(t, []Deal{{PID: "p1", NumOfCards: 6}, {PID: "p2", NumOfCards: 6}}, stripCards(rec.deals()[0]))

	offer := m.Offer()
	require.NotNil(t, offer)
	assert.Equal(t, "p1", offer.PID, "nobody holds a trump, first seat attacks")
	assert.Equal(t, StageInitialAttack, offer.Stage)
	assert.Equal(t, "p2", offer.Roles.Defender)
	assert.Equal(t, []string{"p1"}, offer.Roles.Attackers)
	assert.Len(t, offer.Actions, 6*5)
	assert.False(t, offer.Has(ActionPass), "opening attack is mandatory")

	ve, ok := rec.events[len(rec.events)-1].(ValidActionsEvent)
	require.True(t, ok)
	assert.Equal(t, *offer, ve.Offer)
}

func stripCards(deals []Deal) []Deal {
	out := make([]Deal, len(deals))
	for i, d := range deals {
		out[i] = Deal{PID: d.PID, NumOfCards: d.NumOfCards}
	}
	return out
}

func TestLowestTrumpHolderAttacksFirst(t *testing.T) {
	// p2 holds the only trump 7h
	m, _ := newTestMatch(t, MatchConfig{
		Deck:           deck.MustParseCards("c", "8h 2c 3c 7h 7d 4c 7s"),
		NormalHandSize: 3,
	}, "p1", "p2")

	assert.Equal(t, "p2", m.Offer().PID)
	assert.Equal(t, "p1", m.Offer().Roles.Defender)
}

func TestDefendedRoundEndsWithDiscard(t *testing.T) {
	m, rec := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")

	apply(t, m, Action{Type: ActionAttack, CID: "c1", Field: "TABLE0"}) // 6s

	offer := m.Offer()
	require.Equal(t, "p2", offer.PID)
	assert.Equal(t, StageDefense, offer.Stage)
	assert.Equal(t, []Action{
		{Type: ActionDefense, CID: "c6", Field: "TABLE0"},
		{Type: ActionTake},
	}, offer.Actions)

	apply(t, m, Action{Type: ActionDefense, CID: "c6", Field: "TABLE0"}) // Js

	offer = m.Offer()
	require.Equal(t, "p1", offer.PID)
	assert.Equal(t, StageRepeatingAttack, offer.Stage)
	// 6c and 6d onto TABLE1..TABLE4, plus pass
	assert.Len(t, offer.Actions, 9)
	assert.True(t, offer.Has(ActionPass))

	require.NoError(t, m.Apply("p1", offer.Seq, nil))

	completed := rec.completed()
	require.Len(t, completed, 4)
	assert.Equal(t, []CardInfo{{CID: "c1", Suit: deck.Spades, Value: deck.Six}}, completed[0].Cards)
	assert.Equal(t, []CardInfo{{CID: "c6", Suit: deck.Spades, Value: deck.Jack}}, completed[1].Cards)
	discard := completed[3]
	assert.Equal(t, ActionDiscard, discard.Type)
	assert.Equal(t, []string{"c1", "c6"}, discard.IDs)
	assert.Equal(t, deck.Field("TABLE5"), discard.UnlockedField)
	assert.Equal(t, 6, m.Cards().Table().FullLength())

	deals := rec.deals()
	require.Len(t, deals, 2)
	assert.Equal(t, []Deal{{PID: "p1", NumOfCards: 1}, {PID: "p2", NumOfCards: 1}}, stripCards(deals[1]))
	assert.True(t, m.Cards().Deck().IsEmpty())

	offer = m.Offer()
	assert.Equal(t, 1, m.TurnIndex())
	assert.Equal(t, "p2", offer.PID, "successful defender attacks next")
	assert.Equal(t, StageInitialAttack, offer.Stage)
	require.NoError(t, m.Cards().Validate())
}

func TestTakeRoundWithFollowup(t *testing.T) {
	m, rec := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")

	apply(t, m, Action{Type: ActionAttack, CID: "c13", Field: "TABLE0"}) // 6c
	assert.Equal(t, []Action{{Type: ActionTake}}, m.Offer().Actions, "p2 cannot beat a club")

	apply(t, m, Action{Type: ActionTake})
	offer := m.Offer()
	require.Equal(t, "p1", offer.PID)
	assert.Equal(t, StageFollowup, offer.Stage)

	// throw in 6s while the defender takes
	apply(t, m, Action{Type: ActionAttack, CID: "c1", Field: "TABLE1"})
	offer = m.Offer()
	require.Equal(t, "p1", offer.PID)
	assert.Equal(t, StageFollowup, offer.Stage)

	apply(t, m, Action{Type: ActionPass})

	completed := rec.completed()
	take := completed[len(completed)-1]
	assert.Equal(t, ActionTake, take.Type)
	assert.Equal(t, "p2", take.PID)
	assert.Len(t, take.Cards, 2)

	assert.Len(t, m.Cards().Hand("p2"), 8)
	assert.Len(t, m.Cards().Hand("p1"), 6)
	assert.Equal(t, 5, m.Cards().Table().FullLength(), "take does not unlock a slot")
	assert.Equal(t, "p1", m.Offer().PID, "player after the taker attacks next")
	require.NoError(t, m.Cards().Validate())
}

func TestTransferForwardsTheAttack(t *testing.T) {
	// p1: 7s(c6) 2c(c1) 3c(c2), p2: 7h(c3) 7d(c4) 4c(c5), trump 8h(c0)
	m, rec := newTestMatch(t, MatchConfig{
		Deck:           deck.MustParseCards("c", "8h 2c 3c 7h 7d 4c 7s"),
		NormalHandSize: 3,
		FirstAttacker:  "p1",
	}, "p1", "p2")

	apply(t, m, Action{Type: ActionAttack, CID: "c6", Field: "TABLE0"})

	offer := m.Offer()
	require.Equal(t, "p2", offer.PID)
	// trump defense, 7h and 7d onto TABLE1..TABLE4, take
	assert.Len(t, offer.Actions, 1+8+1)

	apply(t, m, Action{Type: ActionAttack, CID: "c4", Field: "TABLE1"})

	offer = m.Offer()
	require.Equal(t, "p1", offer.PID)
	assert.Equal(t, StageDefense, offer.Stage)
	assert.Equal(t, []string{"p2"}, offer.Roles.Attackers)
	assert.Equal(t, []string{"p1"}, offer.Roles.OriginalAttackers)
	assert.Equal(t, "p1", offer.Roles.Defender)
	assert.Equal(t, []Action{{Type: ActionTake}}, offer.Actions)

	apply(t, m, Action{Type: ActionTake})

	// p1 holds two cards facing two undefended ones: no room to throw in
	assert.Len(t, m.Cards().Hand("p1"), 4)
	assert.Len(t, m.Cards().Hand("p2"), 3, "refilled with the trump card")
	assert.True(t, m.Cards().Deck().IsEmpty())

	offer = m.Offer()
	require.NotNil(t, offer)
	assert.Equal(t, "p2", offer.PID)
	assert.Equal(t, StageInitialAttack, offer.Stage)

	var types []ActionType
	for _, a := range rec.completed() {
		types = append(types, a.Type)
	}
	assert.Equal(t, []ActionType{ActionAttack, ActionAttack, ActionTake, ActionTake}, types)
}

func TestSupportAttackerThrowsInMatchingValue(t *testing.T) {
	// p1: 6s(c6) 2c(c1), p2: 9s(c2) 3c(c3), p3: 6d(c4) 4c(c5), trump 8h(c0)
	m, rec := newTestMatch(t, MatchConfig{
		Deck:           deck.MustParseCards("c", "8h 2c 9s 3c 6d 4c 6s"),
		NormalHandSize: 2,
		FirstAttacker:  "p1",
	}, "p1", "p2", "p3")

	offer := m.Offer()
	assert.Equal(t, []string{"p1", "p3"}, offer.Roles.Attackers)
	assert.Equal(t, "p2", offer.Roles.Defender)

	apply(t, m, Action{Type: ActionAttack, CID: "c6", Field: "TABLE0"})
	apply(t, m, Action{Type: ActionDefense, CID: "c2", Field: "TABLE0"})

	// p1 has nothing matching 6 or 9, so the turn moves to the supporter
	offer = m.Offer()
	require.Equal(t, "p3", offer.PID)
	assert.Equal(t, StageRepeatingAttack, offer.Stage)
	assert.Len(t, offer.Actions, 4+1, "6d onto TABLE1..TABLE4, pass")
	assert.True(t, offer.Has(ActionPass))

	apply(t, m, Action{Type: ActionAttack, CID: "c4", Field: "TABLE1"})

	completed := rec.completed()
	support := completed[len(completed)-1]
	assert.Equal(t, ActionAttack, support.Type)
	assert.Equal(t, "p3", support.PID)
	assert.Equal(t, []CardInfo{{CID: "c4", Suit: deck.Diamonds, Value: deck.Six}}, support.Cards)

	offer = m.Offer()
	require.Equal(t, "p2", offer.PID)
	assert.Equal(t, StageDefense, offer.Stage)
	assert.Equal(t, []Action{{Type: ActionTake}}, offer.Actions, "3c beats nothing")
	require.NoError(t, m.Cards().Validate())
}

func TestTransferRefusedWhenNextDefenderHandTooSmall(t *testing.T) {
	// p1: 7s(c6) 2c(c1), p2: 7d(c2) 3c(c3), p3: 7c(c4) 4c(c5), trump 8h(c0)
	m, _ := newTestMatch(t, MatchConfig{
		Deck:           deck.MustParseCards("c", "8h 2c 7d 3c 7c 4c 7s"),
		NormalHandSize: 2,
		FirstAttacker:  "p1",
	}, "p1", "p2", "p3")

	apply(t, m, Action{Type: ActionAttack, CID: "c6", Field: "TABLE0"})

	// p3 holds two cards against one on the table: p2 may transfer
	offer := m.Offer()
	require.Equal(t, "p2", offer.PID)
	assert.Len(t, offer.Actions, 4+1, "7d onto TABLE1..TABLE4, take")

	apply(t, m, Action{Type: ActionAttack, CID: "c2", Field: "TABLE1"})

	// p1 is left with one card against two on the table: p3 must not transfer
	offer = m.Offer()
	require.Equal(t, "p3", offer.PID)
	assert.Equal(t, StageDefense, offer.Stage)
	assert.Equal(t, "p1", m.nextIn(m.Roles().Defender()))
	assert.Len(t, m.Cards().Hand("p1"), 1)
	assert.Equal(t, 2, m.Cards().Table().UsedFields())
	assert.Contains(t, cardIDs(m.Cards().Hand("p3")), "c4", "p3 holds a matching seven")
	assert.Equal(t, []Action{{Type: ActionTake}}, offer.Actions)
	require.NoError(t, m.Cards().Validate())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m, rec := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")
	other := &recorder{}
	m.Subscribe(other)

	m.Unsubscribe(rec)
	seen := len(rec.events)
	apply(t, m, Action{Type: ActionAttack, CID: "c1", Field: "TABLE0"})

	assert.Len(t, rec.events, seen)
	assert.Len(t, other.completed(), 1, "remaining subscribers still receive events")
}

func TestApplyRejectsStaleAndIllegalResponses(t *testing.T) {
	m, _ := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")
	offer := m.Offer()

	assert.ErrorIs(t, m.Apply("p2", offer.Seq, &Action{Type: ActionTake}), ErrStaleResponse)
	assert.ErrorIs(t, m.Apply("p1", offer.Seq+1, &offer.Actions[0]), ErrStaleResponse)
	assert.ErrorIs(t, m.Apply("p1", offer.Seq, nil), ErrIllegalAction, "pass is not offered")
	assert.ErrorIs(t, m.Apply("p1", offer.Seq, &Action{Type: ActionAttack, CID: "c1", Field: "TABLE5"}), ErrIllegalAction)
	assert.ErrorIs(t, m.Apply("p1", offer.Seq, &Action{Type: ActionAttack, CID: "c6", Field: "TABLE0"}), ErrIllegalAction)
	assert.Same(t, offer, m.Offer(), "illegal responses leave the offer pending")

	require.NoError(t, m.Apply("p1", offer.Seq, &offer.Actions[0]))
	assert.ErrorIs(t, m.Apply("p1", offer.Seq, &offer.Actions[0]), ErrStaleResponse, "accepted at most once")
}

func TestApplyWithoutRunningMatch(t *testing.T) {
	m, err := NewMatch(MatchConfig{}, []string{"p1", "p2"}, testLogger())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Apply("p1", 1, nil), ErrNoActiveMatch)
}

func TestDefaultActions(t *testing.T) {
	m, _ := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")

	def := m.DefaultAction()
	require.NotNil(t, def)
	assert.Equal(t, Action{Type: ActionAttack, CID: "c13", Field: "TABLE0", LinkedField: "TABLE0"}, *def)

	apply(t, m, *def)
	assert.Equal(t, &Action{Type: ActionTake}, m.DefaultAction())

	apply(t, m, Action{Type: ActionTake})
	assert.Equal(t, &Action{Type: ActionPass}, m.DefaultAction())
}

func TestDefaultActionPrefersNonTrump(t *testing.T) {
	// p2: 7h(c3) 7d(c4) 4c(c5) with hearts trump
	m, _ := newTestMatch(t, MatchConfig{
		Deck:           deck.MustParseCards("c", "8h 2c 3c 7h 7d 4c 7s"),
		NormalHandSize: 3,
	}, "p1", "p2")

	def := m.DefaultAction()
	require.NotNil(t, def)
	assert.Equal(t, "c5", def.CID)
}

// playOut drives a match to its end, choosing uniformly among offered
// actions, and checks the invariants after every step.
func playOut(t *testing.T, m *Match, seed int64) {
	t.Helper()
	rng := randutil.New(seed)
	trump := m.Cards().TrumpSuit()
	fullLength := m.Cards().Table().FullLength()
	total := len(m.Cards().All())

	for step := 0; !m.Ended(); step++ {
		require.Less(t, step, 20000, "match did not finish")
		offer := m.Offer()
		require.NotNil(t, offer)
		require.NotEmpty(t, offer.Actions)

		a := offer.Actions[rng.IntN(len(offer.Actions))]
		require.NoError(t, m.Apply(offer.PID, offer.Seq, &a))

		require.NoError(t, m.Cards().Validate())
		require.Equal(t, trump, m.Cards().TrumpSuit())
		require.GreaterOrEqual(t, m.Cards().Table().FullLength(), fullLength)
		fullLength = m.Cards().Table().FullLength()
		require.Len(t, m.Cards().All(), total)

		for _, slot := range m.Cards().Table().Slots() {
			if slot.Defense != nil {
				require.True(t, Beats(slot.Defense, slot.Attack, trump))
			}
		}
	}
}

func TestRandomMatchesFinish(t *testing.T) {
	for _, players := range [][]string{
		{"p1", "p2"},
		{"p1", "p2", "p3"},
		{"p1", "p2", "p3", "p4"},
		{"p1", "p2", "p3", "p4", "p5"},
	} {
		for seed := int64(1); seed <= 5; seed++ {
			m, rec := newTestMatch(t, MatchConfig{Seed: seed}, players...)
			playOut(t, m, seed)

			assert.False(t, m.Active())
			assert.Nil(t, m.Offer())
			assert.Equal(t, StageEnd, m.Stage())
			if m.Loser() != "" {
				assert.NotContains(t, m.Finished(), m.Loser())
				assert.Len(t, m.Finished(), len(players)-1)
			}

			last, ok := rec.events[len(rec.events)-1].(MatchEndEvent)
			require.True(t, ok)
			assert.Equal(t, m.Loser(), last.Loser)
			assert.ErrorIs(t, m.Apply("p1", 0, nil), ErrNoActiveMatch)
		}
	}
}

func TestViewCopiesState(t *testing.T) {
	m, _ := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")
	apply(t, m, Action{Type: ActionAttack, CID: "c1", Field: "TABLE0"})

	v := m.View("p2")
	assert.Equal(t, RoleDefender, v.Role)
	assert.Equal(t, StageDefense, v.Stage)
	assert.Equal(t, 2, v.DeckSize)
	assert.Equal(t, 1, v.UsedFields)
	assert.Equal(t, deck.Hearts, v.TrumpSuit)
	assert.Len(t, v.Hand, 6)

	attack, ok := v.AttackOn("TABLE0")
	require.True(t, ok)
	assert.Equal(t, "c1", attack.ID)

	v.Hand[0].Field = "elsewhere"
	assert.Equal(t, deck.Field("p2"), m.Cards().Hand("p2")[0].Field)
}

func TestGameInfoHidesOpponentCards(t *testing.T) {
	m, _ := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")

	info := m.GameInfo("p1")
	assert.Equal(t, 2, info.DeckSize)
	assert.Equal(t, []deck.Field{"TABLE5"}, info.LockedFields)
	require.NotNil(t, info.TrumpCard)
	assert.Equal(t, "c0", info.TrumpCard.ID)
	require.Len(t, info.Players, 2)
	assert.Equal(t, PlayerInfo{PID: "p2", HandSize: 6}, info.Players[1])

	for _, c := range info.Cards {
		if c.Field == "p2" {
			assert.Nil(t, c.Value)
		}
		if c.Field == "p1" {
			assert.NotNil(t, c.Value)
		}
	}
}

func TestViewFromInfoMatchesView(t *testing.T) {
	m, _ := newTestMatch(t, MatchConfig{Deck: deck.MustParseCards("c", twoPlayerDeck)}, "p1", "p2")
	apply(t, m, Action{Type: ActionAttack, CID: "c1", Field: "TABLE0"})
	apply(t, m, Action{Type: ActionDefense, CID: "c6", Field: "TABLE0"})

	for _, pid := range []string{"p1", "p2"} {
		want := m.View(pid)
		got := ViewFromInfo(pid, m.GameInfo(pid))

		assert.Equal(t, want.Hand, got.Hand, pid)
		assert.Equal(t, want.Table, got.Table, pid)
		assert.Equal(t, want.Role, got.Role, pid)
		assert.Equal(t, want.RoleIndex, got.RoleIndex, pid)
		assert.Equal(t, want.Stage, got.Stage, pid)
		assert.Equal(t, want.DeckSize, got.DeckSize, pid)
		assert.Equal(t, want.UsedFields, got.UsedFields, pid)
		assert.Equal(t, want.FullLength, got.FullLength, pid)
		assert.Equal(t, want.TrumpSuit, got.TrumpSuit, pid)
		assert.Equal(t, want.TrumpCard.ID, got.TrumpCard.ID, pid)
		assert.Equal(t, want.DefenderHandSize, got.DefenderHandSize, pid)
	}
}
