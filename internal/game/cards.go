package game

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/lox/durak/internal/deck"
)

// Deal describes cards dispatched to one player
type Deal struct {
	PID        string       `json:"pid"`
	NumOfCards int          `json:"numOfCards"`
	Cards      []*deck.Card `json:"-"`
}

// Cards owns every card of a match and the containers they move between:
// deck, hands, table slots and discard pile. Each card is held by exactly one
// container and its Field tag names that container.
type Cards struct {
	all         []*deck.Card
	deck        *deck.Deck
	pids        []string
	hands       map[string][]*deck.Card
	table       *Table
	discardPile []*deck.Card
	trumpSuit   deck.Suit
	trumpCard   *deck.Card
	log         *ActionLog

	normalHandSize int
	lowestValue    deck.Value
}

// NewCards creates empty containers for the given players
func NewCards(pids []string, tableLength, normalHandSize int, log *ActionLog) *Cards {
	c := &Cards{
		pids:           slices.Clone(pids),
		hands:          make(map[string][]*deck.Card, len(pids)),
		table:          NewTable(tableLength),
		log:            log,
		normalHandSize: normalHandSize,
		lowestValue:    deck.LowestValue(len(pids)),
	}
	for _, pid := range pids {
		c.hands[pid] = nil
	}
	return c
}

// Make creates the deck (or adopts a preset one), selects the trump and
// resets the table. preset, when non-empty, is used in the given order.
func (c *Cards) Make(rng *rand.Rand, preset []*deck.Card) error {
	if len(preset) > 0 {
		c.deck = deck.FromCards(preset)
	} else {
		c.deck = deck.New(c.lowestValue, rng)
	}
	c.all = slices.Clone(c.deck.Cards())
	c.discardPile = nil
	for pid := range c.hands {
		c.hands[pid] = nil
	}
	c.table.Reset()

	c.trumpCard = c.deck.SelectTrump()
	if c.trumpCard == nil {
		return fmt.Errorf("cannot select trump from an empty deck")
	}
	c.trumpSuit = c.trumpCard.Suit
	return nil
}

// TrumpSuit returns the suit selected for this deal cycle
func (c *Cards) TrumpSuit() deck.Suit {
	return c.trumpSuit
}

// TrumpCard returns the revealed bottom card
func (c *Cards) TrumpCard() *deck.Card {
	return c.trumpCard
}

// LowestValue returns the lowest card value in this match
func (c *Cards) LowestValue() deck.Value {
	return c.lowestValue
}

// Table returns the table
func (c *Cards) Table() *Table {
	return c.table
}

// Deck returns the deck
func (c *Cards) Deck() *deck.Deck {
	return c.deck
}

// Hand returns the cards held by a player
func (c *Cards) Hand(pid string) []*deck.Card {
	return c.hands[pid]
}

// DiscardPile returns the discarded cards in discard order
func (c *Cards) DiscardPile() []*deck.Card {
	return c.discardPile
}

// All returns every card of the match
func (c *Cards) All() []*deck.Card {
	return c.all
}

// Deal draws the requested number of cards for each entry in order. The deal
// loop stops naturally when the deck runs out; entries that received nothing
// are omitted from the result.
func (c *Cards) Deal(requests []Deal) []Deal {
	var deals []Deal
	for _, req := range requests {
		drawn := c.deck.Draw(req.NumOfCards)
		if len(drawn) == 0 {
			break
		}
		for _, card := range drawn {
			c.log.LogAction(card, ActionDeal, card.Field, deck.PlayerField(req.PID))
		}
		c.hands[req.PID] = append(c.hands[req.PID], drawn...)
		deals = append(deals, Deal{PID: req.PID, NumOfCards: len(drawn), Cards: drawn})
	}
	return deals
}

// DealTillFullHand refills hands to the normal size, visiting original
// attackers first, then attackers not yet visited, then the defender. An
// empty result means there was nothing to deal.
func (c *Cards) DealTillFullHand(roles *Roles) []Deal {
	var sequence []string
	visit := func(pid string) {
		if pid != "" && !slices.Contains(sequence, pid) {
			sequence = append(sequence, pid)
		}
	}
	for _, pid := range roles.OriginalAttackers() {
		visit(pid)
	}
	for _, pid := range roles.Attackers() {
		visit(pid)
	}
	visit(roles.Defender())

	var requests []Deal
	for _, pid := range sequence {
		if deficit := c.normalHandSize - len(c.hands[pid]); deficit > 0 {
			requests = append(requests, Deal{PID: pid, NumOfCards: deficit})
		}
	}
	if len(requests) == 0 || c.deck.IsEmpty() {
		return nil
	}
	return c.Deal(requests)
}

func (c *Cards) removeFromHand(pid, cid string) (*deck.Card, error) {
	hand := c.hands[pid]
	for i, card := range hand {
		if card.ID == cid {
			c.hands[pid] = slices.Delete(hand, i, i+1)
			return card, nil
		}
	}
	return nil, fmt.Errorf("%w: card %s is not in hand of %s", ErrIllegalAction, cid, pid)
}

// PlaceAttack moves a card from a hand onto an empty unlocked slot
func (c *Cards) PlaceAttack(pid, cid string, field deck.Field) error {
	idx := c.table.SlotIndex(field)
	if idx < 0 {
		return fmt.Errorf("%w: unknown slot %s", ErrIllegalAction, field)
	}
	if c.table.IsLocked(idx) {
		return fmt.Errorf("%w: slot %s is locked", ErrIllegalAction, field)
	}
	slot := c.table.slots[idx]
	if !slot.IsEmpty() {
		return fmt.Errorf("%w: slot %s is occupied", ErrIllegalAction, field)
	}

	card, err := c.removeFromHand(pid, cid)
	if err != nil {
		return err
	}
	c.log.LogAction(card, ActionAttack, card.Field, slot.ID)
	slot.Attack = card
	return nil
}

// PlaceDefense moves a card from a hand onto an undefended slot it beats
func (c *Cards) PlaceDefense(pid, cid string, field deck.Field) error {
	slot := c.table.Slot(field)
	if slot == nil || !slot.IsUndefended() {
		return fmt.Errorf("%w: slot %s has nothing to defend", ErrIllegalAction, field)
	}

	idx := slices.IndexFunc(c.hands[pid], func(card *deck.Card) bool { return card.ID == cid })
	if idx < 0 {
		return fmt.Errorf("%w: card %s is not in hand of %s", ErrIllegalAction, cid, pid)
	}
	if !Beats(c.hands[pid][idx], slot.Attack, c.trumpSuit) {
		return fmt.Errorf("%w: %s does not beat %s", ErrIllegalAction, c.hands[pid][idx], slot.Attack)
	}

	card, err := c.removeFromHand(pid, cid)
	if err != nil {
		return err
	}
	c.log.LogAction(card, ActionDefense, card.Field, slot.ID)
	slot.Defense = card
	return nil
}

// Discard moves every table card to the discard pile. After a clearance
// that removed at least one card, one more slot is unlocked if capacity is
// below maximum. It returns nil when the table was empty, in which case the
// caller routes to the take phase instead.
func (c *Cards) Discard() *Action {
	if c.table.IsEmpty() {
		return nil
	}
	action := &Action{Type: ActionDiscard}

	for _, slot := range c.table.slots {
		for _, card := range []*deck.Card{slot.Attack, slot.Defense} {
			if card == nil {
				continue
			}
			c.log.LogAction(card, ActionDiscard, card.Field, deck.FieldDiscardPile)
			action.IDs = append(action.IDs, card.ID)
			c.discardPile = append(c.discardPile, card)
		}
		slot.Attack = nil
		slot.Defense = nil
	}

	if unlocked, ok := c.table.Unlock(); ok {
		action.UnlockedField = unlocked
	}
	return action
}

// Take moves every table card into the player's hand and returns the TAKE
// action listing the moved cards face up.
func (c *Cards) Take(pid string) Action {
	action := Action{Type: ActionTake, PID: pid}

	for _, slot := range c.table.slots {
		for _, card := range []*deck.Card{slot.Attack, slot.Defense} {
			if card == nil {
				continue
			}
			c.log.LogAction(card, ActionTake, card.Field, deck.PlayerField(pid))
			c.hands[pid] = append(c.hands[pid], card)
			action.Cards = append(action.Cards, cardInfo(card))
		}
		slot.Attack = nil
		slot.Defense = nil
	}
	return action
}

// Validate checks the partition invariant: every card is held by exactly one
// container and its field tag names that container.
func (c *Cards) Validate() error {
	holders := make(map[string]deck.Field, len(c.all))
	hold := func(card *deck.Card, field deck.Field) error {
		if prev, ok := holders[card.ID]; ok {
			return fmt.Errorf("%w: card %s held by both %s and %s", ErrInconsistentState, card.ID, prev, field)
		}
		holders[card.ID] = field
		if card.Field != field {
			return fmt.Errorf("%w: card %s tagged %s but held by %s", ErrInconsistentState, card.ID, card.Field, field)
		}
		return nil
	}

	bottom := c.deck.Bottom()
	for _, card := range c.deck.Cards() {
		field := deck.FieldDeck
		if card == c.trumpCard && card == bottom {
			field = deck.FieldBottom
		}
		if err := hold(card, field); err != nil {
			return err
		}
	}
	for _, pid := range c.pids {
		for _, card := range c.hands[pid] {
			if err := hold(card, deck.PlayerField(pid)); err != nil {
				return err
			}
		}
	}
	for _, slot := range c.table.slots {
		if slot.Defense != nil && slot.Attack == nil {
			return fmt.Errorf("%w: slot %s is defended without an attack", ErrInconsistentState, slot.ID)
		}
		for _, card := range []*deck.Card{slot.Attack, slot.Defense} {
			if card == nil {
				continue
			}
			if err := hold(card, slot.ID); err != nil {
				return err
			}
		}
	}
	for _, card := range c.discardPile {
		if err := hold(card, deck.FieldDiscardPile); err != nil {
			return err
		}
	}

	if len(holders) != len(c.all) {
		return fmt.Errorf("%w: %d cards held, %d exist", ErrInconsistentState, len(holders), len(c.all))
	}
	return nil
}

// Info returns the cards visible to pid: the deck face down except for the
// revealed bottom card, pid's own hand face up, other hands face down, and
// the table face up. With reveal every card is face up.
func (c *Cards) Info(pid string, reveal bool) []deck.Info {
	var infos []deck.Info

	bottom := c.deck.Bottom()
	for _, card := range c.deck.Cards() {
		info := card.Hidden()
		if card == bottom || reveal {
			info = card.Info()
		}
		if info.Field == deck.FieldBottom {
			info.Field = deck.FieldDeck
		}
		infos = append(infos, info)
	}

	for _, owner := range c.pids {
		for _, card := range c.hands[owner] {
			if owner == pid || reveal {
				infos = append(infos, card.Info())
			} else {
				infos = append(infos, card.Hidden())
			}
		}
	}

	for _, card := range c.table.Cards() {
		infos = append(infos, card.Info())
	}
	return infos
}
