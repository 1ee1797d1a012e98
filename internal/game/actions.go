package game

import (
	"slices"

	"github.com/lox/durak/internal/deck"
)

// ActionType identifies what an action does
type ActionType string

const (
	ActionAttack  ActionType = "ATTACK"
	ActionDefense ActionType = "DEFENSE"
	ActionTake    ActionType = "TAKE"
	ActionPass    ActionType = "PASS"
	ActionDiscard ActionType = "DISCARD"
	// ActionDeal only appears in the action log
	ActionDeal ActionType = "DEAL"
)

// String returns the string representation of the action type
func (t ActionType) String() string {
	return string(t)
}

// CardInfo is a face-up card carried by a completed ATTACK, DEFENSE or TAKE
type CardInfo struct {
	CID   string     `json:"cid"`
	Suit  deck.Suit  `json:"suit"`
	Value deck.Value `json:"value"`
}

func cardInfo(c *deck.Card) CardInfo {
	return CardInfo{CID: c.ID, Suit: c.Suit, Value: c.Value}
}

// Action is both an offered legal move and a completed move broadcast to
// players. Which fields are set depends on the type.
type Action struct {
	Type          ActionType `json:"type"`
	CID           string     `json:"cid,omitempty"`
	Field         deck.Field `json:"field,omitempty"`
	LinkedField   deck.Field `json:"linkedField,omitempty"`
	UnlockedField deck.Field `json:"unlockedField,omitempty"`
	IDs           []string   `json:"ids,omitempty"`
	Cards         []CardInfo `json:"cards,omitempty"`
	PID           string     `json:"pid,omitempty"`
}

// Matches reports whether a response designates the same move as an offered
// action. Linked fields are presentation hints and are not compared.
func (a Action) Matches(other Action) bool {
	return a.Type == other.Type && a.CID == other.CID && a.Field == other.Field
}

func linkedFieldID(t *Table) deck.Field {
	if s := t.FirstEmpty(); s != nil {
		return s.ID
	}
	return ""
}

// AttackActions returns the attack actions available for a hand. On an empty
// table any card may open; otherwise only cards whose value is already on the
// table. Every eligible card is offered onto each empty unlocked slot.
func (c *Cards) AttackActions(hand []*deck.Card) []Action {
	values := c.table.Values()
	targets := c.table.EmptyUnlocked()
	linked := linkedFieldID(c.table)

	var actions []Action
	for _, card := range hand {
		if len(values) > 0 && !slices.Contains(values, card.Value) {
			continue
		}
		for _, slot := range targets {
			actions = append(actions, Action{
				Type:        ActionAttack,
				CID:         card.ID,
				Field:       slot.ID,
				LinkedField: linked,
			})
		}
	}
	return actions
}

// Beats reports whether card beats the attack card under the given trump:
// a trump beats any non-trump, otherwise the suit must match and the value
// must be strictly greater.
func Beats(card, attack *deck.Card, trump deck.Suit) bool {
	if card.Suit == trump && attack.Suit != trump {
		return true
	}
	return card.Suit == attack.Suit && card.Value > attack.Value
}

// DefenseActions pairs every undefended slot with every hand card able to beat it
func (c *Cards) DefenseActions(hand []*deck.Card) []Action {
	var actions []Action
	for _, slot := range c.table.DefenseFields() {
		for _, card := range hand {
			if Beats(card, slot.Attack, c.trumpSuit) {
				actions = append(actions, Action{
					Type:  ActionDefense,
					CID:   card.ID,
					Field: slot.ID,
				})
			}
		}
	}
	return actions
}

// TransferActions returns the ATTACK actions that forward the current attack
// to the next player instead of defending. A transfer needs the next player
// to hold more cards than are already attacking, no slot may be defended yet,
// and the card must match the value of an undefended attack card. existing
// holds actions already offered to the defender; their slots are skipped.
func (c *Cards) TransferActions(hand []*deck.Card, nextAttackerHandSize int, existing []Action) []Action {
	used := c.table.UsedFields()
	if nextAttackerHandSize <= used || used >= c.table.MaxLength() {
		return nil
	}
	if c.table.HasDefense() {
		return nil
	}

	targeted := make(map[deck.Field]bool, len(existing))
	for _, a := range existing {
		targeted[a.Field] = true
	}

	targets := c.table.EmptyUnlocked()
	linked := linkedFieldID(c.table)

	var actions []Action
	offered := make(map[string]bool)
	for _, slot := range c.table.DefenseFields() {
		for _, card := range hand {
			if card.Value != slot.Attack.Value || offered[card.ID] {
				continue
			}
			offered[card.ID] = true
			for _, target := range targets {
				if targeted[target.ID] {
					continue
				}
				actions = append(actions, Action{
					Type:        ActionAttack,
					CID:         card.ID,
					Field:       target.ID,
					LinkedField: linked,
				})
			}
		}
	}
	return actions
}
