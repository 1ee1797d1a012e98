package game

import "github.com/lox/durak/internal/deck"

const (
	// MaxTableLength is the number of table slots
	MaxTableLength = 6

	// NormalHandSize is the hand size players are refilled to
	NormalHandSize = 6

	// MaxPlayers is the most players a match seats
	MaxPlayers = 6
)

// TableSlot holds one attack card and, once beaten, one defense card.
type TableSlot struct {
	ID      deck.Field `json:"id"`
	Attack  *deck.Card `json:"attack"`
	Defense *deck.Card `json:"defense"`
}

// IsEmpty reports whether the slot holds no cards
func (s *TableSlot) IsEmpty() bool {
	return s.Attack == nil && s.Defense == nil
}

// IsUndefended reports whether the slot holds an attack card that is not beaten yet
func (s *TableSlot) IsUndefended() bool {
	return s.Attack != nil && s.Defense == nil
}

// Table is a fixed-capacity ordered sequence of slots. Only slots below
// FullLength are legal targets; capacity starts one below the maximum and
// grows by one with each successful discard.
type Table struct {
	slots      []*TableSlot
	maxLength  int
	fullLength int
}

// NewTable creates a table with maxLength slots
func NewTable(maxLength int) *Table {
	t := &Table{maxLength: maxLength}
	t.Reset()
	return t
}

// Reset recreates every slot and locks capacity back to its starting value
func (t *Table) Reset() {
	t.slots = make([]*TableSlot, t.maxLength)
	for i := range t.slots {
		t.slots[i] = &TableSlot{ID: deck.TableField(i)}
	}
	t.fullLength = max(t.maxLength-1, 1)
}

// Slots returns all slots, locked ones included
func (t *Table) Slots() []*TableSlot {
	return t.slots
}

// MaxLength returns the total number of slots
func (t *Table) MaxLength() int {
	return t.maxLength
}

// FullLength returns the number of currently unlocked slots
func (t *Table) FullLength() int {
	return t.fullLength
}

// Unlock grows capacity by one slot and returns the id of the slot that
// became available. ok is false when the table is already at full capacity.
func (t *Table) Unlock() (deck.Field, bool) {
	if t.fullLength >= t.maxLength {
		return "", false
	}
	t.fullLength++
	return t.slots[t.fullLength-1].ID, true
}

// UsedFields returns the number of slots holding an attack card
func (t *Table) UsedFields() int {
	used := 0
	for _, s := range t.slots {
		if s.Attack != nil {
			used++
		}
	}
	return used
}

// Slot returns the slot with the given id, or nil
func (t *Table) Slot(id deck.Field) *TableSlot {
	for _, s := range t.slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SlotIndex returns the index of the slot with the given id, or -1
func (t *Table) SlotIndex(id deck.Field) int {
	for i, s := range t.slots {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// FirstEmpty returns the first unlocked slot with neither attack nor
// defense, or nil when every unlocked slot is in use.
func (t *Table) FirstEmpty() *TableSlot {
	for i, s := range t.slots {
		if i < t.fullLength && s.IsEmpty() {
			return s
		}
	}
	return nil
}

// EmptyUnlocked returns every unlocked slot that holds no cards
func (t *Table) EmptyUnlocked() []*TableSlot {
	var slots []*TableSlot
	for i, s := range t.slots {
		if i < t.fullLength && s.IsEmpty() {
			slots = append(slots, s)
		}
	}
	return slots
}

// DefenseFields returns the slots whose attack card is not beaten yet
func (t *Table) DefenseFields() []*TableSlot {
	var slots []*TableSlot
	for _, s := range t.slots {
		if s.IsUndefended() {
			slots = append(slots, s)
		}
	}
	return slots
}

// HasDefense reports whether any slot already holds a defense card
func (t *Table) HasDefense() bool {
	for _, s := range t.slots {
		if s.Defense != nil {
			return true
		}
	}
	return false
}

// LockedFieldIDs returns the ids of slots that are not legal targets yet
func (t *Table) LockedFieldIDs() []deck.Field {
	var ids []deck.Field
	for i := t.fullLength; i < t.maxLength; i++ {
		ids = append(ids, t.slots[i].ID)
	}
	return ids
}

// IsLocked reports whether a slot index is beyond the unlocked capacity
func (t *Table) IsLocked(index int) bool {
	return index >= t.fullLength
}

// Values returns the values of every card on the table
func (t *Table) Values() []deck.Value {
	var values []deck.Value
	for _, s := range t.slots {
		if s.Attack != nil {
			values = append(values, s.Attack.Value)
		}
		if s.Defense != nil {
			values = append(values, s.Defense.Value)
		}
	}
	return values
}

// Cards returns every card on the table, attack before defense per slot
func (t *Table) Cards() []*deck.Card {
	var cards []*deck.Card
	for _, s := range t.slots {
		if s.Attack != nil {
			cards = append(cards, s.Attack)
		}
		if s.Defense != nil {
			cards = append(cards, s.Defense)
		}
	}
	return cards
}

// IsEmpty reports whether no card is on the table
func (t *Table) IsEmpty() bool {
	for _, s := range t.slots {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}
