package game

import (
	"slices"

	"github.com/lox/durak/internal/deck"
)

// View is a read-only snapshot of the match from one player's seat. Cards
// are copies, so holders may keep a View after the match moved on.
type View struct {
	PID              string
	Hand             []deck.Card
	Table            []TableSlot
	TrumpSuit        deck.Suit
	TrumpCard        deck.Card
	DeckSize         int
	DiscardSize      int
	UsedFields       int
	FullLength       int
	Stage            TurnStage
	Role             Role
	RoleIndex        int
	DefenderHandSize int
}

// Card returns the hand card with the given id
func (v *View) Card(cid string) (deck.Card, bool) {
	idx := slices.IndexFunc(v.Hand, func(c deck.Card) bool { return c.ID == cid })
	if idx < 0 {
		return deck.Card{}, false
	}
	return v.Hand[idx], true
}

// AttackOn returns the attack card lying in the given slot
func (v *View) AttackOn(field deck.Field) (deck.Card, bool) {
	for _, s := range v.Table {
		if s.ID == field && s.Attack != nil {
			return *s.Attack, true
		}
	}
	return deck.Card{}, false
}

// TableValues returns the values of every card on the table
func (v *View) TableValues() []deck.Value {
	var values []deck.Value
	for _, s := range v.Table {
		if s.Attack != nil {
			values = append(values, s.Attack.Value)
		}
		if s.Defense != nil {
			values = append(values, s.Defense.Value)
		}
	}
	return values
}

// View returns the match as seen by pid
func (m *Match) View(pid string) View {
	role, idx := m.roles.RoleOf(pid)
	v := View{
		PID:              pid,
		TrumpSuit:        m.cards.TrumpSuit(),
		DeckSize:         m.cards.Deck().Len(),
		DiscardSize:      len(m.cards.DiscardPile()),
		UsedFields:       m.cards.Table().UsedFields(),
		FullLength:       m.cards.Table().FullLength(),
		Stage:            m.stage,
		Role:             role,
		RoleIndex:        idx,
		DefenderHandSize: len(m.cards.Hand(m.roles.Defender())),
	}
	if tc := m.cards.TrumpCard(); tc != nil {
		v.TrumpCard = *tc
	}
	for _, c := range m.cards.Hand(pid) {
		v.Hand = append(v.Hand, *c)
	}
	for _, s := range m.cards.Table().Slots() {
		slot := TableSlot{ID: s.ID}
		if s.Attack != nil {
			attack := *s.Attack
			slot.Attack = &attack
		}
		if s.Defense != nil {
			defense := *s.Defense
			slot.Defense = &defense
		}
		v.Table = append(v.Table, slot)
	}
	return v
}

// PlayerInfo is the public state of one seat
type PlayerInfo struct {
	PID      string `json:"pid"`
	HandSize int    `json:"handSize"`
	Finished bool   `json:"finished"`
}

// GameInfo is the full state of a match as visible to one player, sent on
// request and after reconnecting.
type GameInfo struct {
	Players      []PlayerInfo `json:"players"`
	Cards        []deck.Info  `json:"cards"`
	TrumpCard    *deck.Info   `json:"trumpCard,omitempty"`
	DeckSize     int          `json:"deckSize"`
	DiscardSize  int          `json:"discardSize"`
	TableLength  int          `json:"tableLength"`
	FullLength   int          `json:"fullLength"`
	LockedFields []deck.Field `json:"lockedFields"`
	Roles        RolesInfo    `json:"roles"`
	TurnIndex    int          `json:"turnIndex"`
	Stage        TurnStage    `json:"turnStage"`
	Loser        string       `json:"loser,omitempty"`
}

// GameInfo returns the match state visible to pid. The deck is face down
// except for the revealed trump.
func (m *Match) GameInfo(pid string) GameInfo {
	info := GameInfo{
		Cards:        m.cards.Info(pid, false),
		DeckSize:     m.cards.Deck().Len(),
		DiscardSize:  len(m.cards.DiscardPile()),
		TableLength:  m.cards.Table().MaxLength(),
		FullLength:   m.cards.Table().FullLength(),
		LockedFields: m.cards.Table().LockedFieldIDs(),
		Roles:        m.roles.Info(),
		TurnIndex:    m.turnIndex,
		Stage:        m.stage,
		Loser:        m.loser,
	}
	for _, p := range m.players {
		info.Players = append(info.Players, PlayerInfo{
			PID:      p,
			HandSize: len(m.cards.Hand(p)),
			Finished: slices.Contains(m.finished, p),
		})
	}
	if tc := m.cards.TrumpCard(); tc != nil {
		ti := tc.Info()
		info.TrumpCard = &ti
	}
	return info
}

// ViewFromInfo rebuilds pid's View from the game info sent over the wire.
// Remote players use it to run the same strategies as in-process bots.
func ViewFromInfo(pid string, info GameInfo) View {
	v := View{
		PID:         pid,
		DeckSize:    info.DeckSize,
		DiscardSize: info.DiscardSize,
		FullLength:  info.FullLength,
		Stage:       info.Stage,
	}
	if info.TrumpCard != nil {
		if tc, ok := cardFromInfo(*info.TrumpCard); ok {
			v.TrumpCard = tc
			v.TrumpSuit = tc.Suit
		}
	}

	roles := Roles{defender: info.Roles.Defender}
	roles.numAttackers = copy(roles.attackers[:], info.Roles.Attackers)
	v.Role, v.RoleIndex = roles.RoleOf(pid)

	for _, p := range info.Players {
		if p.PID == info.Roles.Defender {
			v.DefenderHandSize = p.HandSize
		}
	}

	for i := range info.TableLength {
		v.Table = append(v.Table, TableSlot{ID: deck.TableField(i)})
	}
	for _, ci := range info.Cards {
		c, ok := cardFromInfo(ci)
		if !ok {
			continue
		}
		switch {
		case ci.Field == deck.Field(pid):
			v.Hand = append(v.Hand, c)
		case ci.Field.IsTable():
			// attack cards precede the defense of their slot
			idx := slices.IndexFunc(v.Table, func(s TableSlot) bool { return s.ID == ci.Field })
			if idx < 0 {
				continue
			}
			if v.Table[idx].Attack == nil {
				v.Table[idx].Attack = &c
				v.UsedFields++
			} else {
				v.Table[idx].Defense = &c
			}
		}
	}
	return v
}

func cardFromInfo(info deck.Info) (deck.Card, bool) {
	if info.Suit == nil || info.Value == nil {
		return deck.Card{}, false
	}
	return deck.Card{ID: info.ID, Suit: *info.Suit, Value: *info.Value, Field: info.Field}, true
}
