package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// NumSuits is the number of suits in a durak deck
const NumSuits = 4

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Value is the face value of a card. Aces are high.
type Value int

const (
	Two Value = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// MaxValue is the highest card value in every deck size
const MaxValue = Ace

// String returns the string representation of a value
func (v Value) String() string {
	switch {
	case v >= Two && v <= Nine:
		return fmt.Sprintf("%d", int(v))
	case v == Ten:
		return "T"
	case v == Jack:
		return "J"
	case v == Queen:
		return "Q"
	case v == King:
		return "K"
	case v == Ace:
		return "A"
	default:
		return "?"
	}
}

// Field is the location tag of a card: which container holds it right now.
type Field string

const (
	FieldDeck        Field = "DECK"
	FieldBottom      Field = "BOTTOM"
	FieldDiscardPile Field = "DISCARD_PILE"
)

// TableField returns the field tag of the i-th table slot
func TableField(i int) Field {
	return Field(fmt.Sprintf("TABLE%d", i))
}

// PlayerField returns the field tag of a player's hand
func PlayerField(pid string) Field {
	return Field(pid)
}

// IsTable reports whether the field tag names a table slot
func (f Field) IsTable() bool {
	return strings.HasPrefix(string(f), "TABLE")
}

// Card represents a playing card. Cards are created once per match and only
// ever move between containers, updating Field as they go.
type Card struct {
	ID    string `json:"cid"`
	Suit  Suit   `json:"suit"`
	Value Value  `json:"value"`
	Field Field  `json:"field"`
}

// NewCard creates a new card in the deck
func NewCard(id string, suit Suit, value Value) *Card {
	return &Card{ID: id, Suit: suit, Value: value, Field: FieldDeck}
}

// String returns the string representation of a card (e.g., "A♠")
func (c *Card) String() string {
	return fmt.Sprintf("%s%s", c.Value, c.Suit)
}

// IsRed returns true if the card is red
func (c *Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Info is the public description of a card sent to clients. Value and Suit
// are nil when the card is face down for the receiving player.
type Info struct {
	ID    string `json:"cid"`
	Field Field  `json:"field"`
	Suit  *Suit  `json:"suit"`
	Value *Value `json:"value"`
}

// Info returns the face-up description of the card
func (c *Card) Info() Info {
	suit, value := c.Suit, c.Value
	return Info{ID: c.ID, Field: c.Field, Suit: &suit, Value: &value}
}

// Hidden returns the face-down description of the card
func (c *Card) Hidden() Info {
	return Info{ID: c.ID, Field: c.Field}
}

// ParseCard parses a two character card like "7h" or "Ts". The returned card
// has no id and lives in the deck.
func ParseCard(s string) (*Card, error) {
	if len(s) != 2 {
		return nil, fmt.Errorf("invalid card %q", s)
	}

	var value Value
	switch s[0] {
	case 'T', 't':
		value = Ten
	case 'J', 'j':
		value = Jack
	case 'Q', 'q':
		value = Queen
	case 'K', 'k':
		value = King
	case 'A', 'a':
		value = Ace
	default:
		if s[0] < '2' || s[0] > '9' {
			return nil, fmt.Errorf("invalid value in card %q", s)
		}
		value = Value(s[0] - '0')
	}

	var suit Suit
	switch s[1] {
	case 's':
		suit = Spades
	case 'h':
		suit = Hearts
	case 'd':
		suit = Diamonds
	case 'c':
		suit = Clubs
	default:
		return nil, fmt.Errorf("invalid suit in card %q", s)
	}

	return &Card{Suit: suit, Value: value, Field: FieldDeck}, nil
}

// MustParseCards parses space separated cards and assigns ids with the given
// prefix. It panics on malformed input and is meant for tests and fixtures.
func MustParseCards(prefix, s string) []*Card {
	fields := strings.Fields(s)
	cards := make([]*Card, 0, len(fields))
	for i, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		c.ID = fmt.Sprintf("%s%d", prefix, i)
		cards = append(cards, c)
	}
	return cards
}
