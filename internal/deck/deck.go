package deck

import (
	"fmt"
	"math/rand/v2"
)

// LowestValue returns the lowest card value used for a match with the given
// number of players. Fewer players get a smaller, higher-value deck.
func LowestValue(players int) Value {
	if players > 3 {
		return Two
	}
	return Six
}

// Deck represents an ordered pile of face-down cards. Index 0 is the top.
type Deck struct {
	cards []*Card
}

// New creates every card in [lowest, MaxValue] for each suit exactly once and
// shuffles them with rng.
func New(lowest Value, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]*Card, 0, int(MaxValue-lowest+1)*NumSuits)}

	id := 0
	for suit := Spades; suit <= Clubs; suit++ {
		for value := lowest; value <= MaxValue; value++ {
			d.cards = append(d.cards, NewCard(fmt.Sprintf("c%d", id), suit, value))
			id++
		}
	}

	if rng != nil {
		d.Shuffle(rng)
	}
	return d
}

// FromCards builds a deck with a fixed order, top first. Used by tests and
// replays that need a known deal.
func FromCards(cards []*Card) *Deck {
	d := &Deck{cards: make([]*Card, len(cards))}
	copy(d.cards, cards)
	for _, c := range d.cards {
		c.Field = FieldDeck
	}
	return d
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// SelectTrump finds the first card that is not an ace, swaps it into the
// last position and marks it as the revealed bottom card. It returns the
// bottom card, or nil for an empty deck.
func (d *Deck) SelectTrump() *Card {
	if len(d.cards) == 0 {
		return nil
	}

	last := len(d.cards) - 1
	for i, c := range d.cards {
		if c.Value != MaxValue {
			d.cards[i], d.cards[last] = d.cards[last], d.cards[i]
			break
		}
	}

	bottom := d.cards[last]
	bottom.Field = FieldBottom
	return bottom
}

// Draw removes and returns up to n cards from the top of the deck. Fewer
// cards are returned once the deck runs out.
func (d *Deck) Draw(n int) []*Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	if n <= 0 {
		return nil
	}

	drawn := make([]*Card, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn
}

// Cards returns the cards left in the deck, top first
func (d *Deck) Cards() []*Card {
	return d.cards
}

// Len returns the number of cards left in the deck
func (d *Deck) Len() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Bottom returns the revealed trump card if it is still in the deck
func (d *Deck) Bottom() *Card {
	if len(d.cards) == 0 {
		return nil
	}
	c := d.cards[len(d.cards)-1]
	if c.Field != FieldBottom {
		return nil
	}
	return c
}
