package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/game"
)

// Styles contains the styling used to render a match
type Styles struct {
	Header    lipgloss.Style
	RedCard   lipgloss.Style
	BlackCard lipgloss.Style
	Trump     lipgloss.Style
	Field     lipgloss.Style
	Action    lipgloss.Style
	Loser     lipgloss.Style
}

// NewStyles returns the default styles
func NewStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true),
		RedCard: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
		BlackCard: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true),
		Trump: lipgloss.NewStyle().
			Underline(true),
		Field: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")),
		Action: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Loser: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
	}
}

// Card renders a card in its suit colour, underlined when it is a trump
func (s *Styles) Card(c *deck.Card, trump deck.Suit) string {
	style := s.BlackCard
	if c.IsRed() {
		style = s.RedCard
	}
	if c.Suit == trump {
		style = style.Inherit(s.Trump)
	}
	return style.Render(c.String())
}

// Cards renders cards separated by spaces
func (s *Styles) Cards(cards []*deck.Card, trump deck.Suit) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = s.Card(c, trump)
	}
	return strings.Join(parts, " ")
}

// Entry renders one card transition of the action log
func (s *Styles) Entry(e game.LogEntry, card *deck.Card, trump deck.Suit) string {
	name := e.CardID
	if card != nil {
		name = s.Card(card, trump)
	}
	return fmt.Sprintf("%-8s %s %s -> %s",
		s.Action.Render(string(e.Type)),
		name,
		s.Field.Render(string(e.From)),
		s.Field.Render(string(e.To)))
}

// Replay writes the full action log of a match followed by its outcome.
// The match must not be mutated while it is rendered.
func Replay(w io.Writer, m *game.Match, s *Styles) {
	cards := m.Cards()
	trump := cards.TrumpSuit()

	byID := make(map[string]*deck.Card)
	for _, c := range cards.All() {
		byID[c.ID] = c
	}

	fmt.Fprintln(w, s.Header.Render("Durak replay"))
	fmt.Fprintf(w, "Players: %s\n", strings.Join(m.Players(), ", "))
	if tc := cards.TrumpCard(); tc != nil {
		fmt.Fprintf(w, "Trump: %s\n", s.Card(tc, trump))
	}
	fmt.Fprintln(w)

	for _, e := range m.ActionLog().Entries() {
		fmt.Fprintln(w, s.Entry(e, byID[e.CardID], trump))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Turns: %d\n", m.TurnIndex())
	switch loser := m.Loser(); {
	case loser != "":
		fmt.Fprintf(w, "Durak: %s\n", s.Loser.Render(loser))
	case m.Ended():
		fmt.Fprintln(w, "Draw")
	}
	for _, pid := range m.Players() {
		if hand := cards.Hand(pid); len(hand) > 0 {
			fmt.Fprintf(w, "%s holds %s\n", pid, s.Cards(hand, trump))
		}
	}
}
