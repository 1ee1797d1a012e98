package game

import "github.com/lox/durak/internal/deck"

// LogEntry records one card moving between containers
type LogEntry struct {
	CardID string     `json:"cid"`
	Type   ActionType `json:"type"`
	From   deck.Field `json:"from"`
	To     deck.Field `json:"to"`
}

// ActionLog is the ordered history of card field transitions in a match
type ActionLog struct {
	entries []LogEntry
}

// NewActionLog creates an empty log
func NewActionLog() *ActionLog {
	return &ActionLog{}
}

// LogAction records a transition and updates the card's field tag, keeping
// the tag equal to the card's actual container.
func (l *ActionLog) LogAction(card *deck.Card, actionType ActionType, from, to deck.Field) {
	l.entries = append(l.entries, LogEntry{
		CardID: card.ID,
		Type:   actionType,
		From:   from,
		To:     to,
	})
	card.Field = to
}

// Entries returns the recorded transitions
func (l *ActionLog) Entries() []LogEntry {
	return l.entries
}

// Len returns the number of recorded transitions
func (l *ActionLog) Len() int {
	return len(l.entries)
}
