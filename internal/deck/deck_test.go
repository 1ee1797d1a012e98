package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/durak/internal/randutil"
)

func TestLowestValue(t *testing.T) {
	assert.Equal(t, Six, LowestValue(2))
	assert.Equal(t, Six, LowestValue(3))
	assert.Equal(t, Two, LowestValue(4))
	assert.Equal(t, Two, LowestValue(6))
}

func TestNewDeckSizes(t *testing.T) {
	tests := []struct {
		name    string
		players int
		size    int
	}{
		{"two players", 2, 36},
		{"three players", 3, 36},
		{"four players", 4, 52},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(LowestValue(tt.players), randutil.New(1))
			require.Equal(t, tt.size, d.Len())

			seen := make(map[string]bool)
			for _, c := range d.Cards() {
				assert.False(t, seen[c.ID], "duplicate card id %s", c.ID)
				seen[c.ID] = true
				assert.Equal(t, FieldDeck, c.Field)
				assert.GreaterOrEqual(t, c.Value, LowestValue(tt.players))
				assert.LessOrEqual(t, c.Value, MaxValue)
			}
		})
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := New(Six, randutil.New(42))
	b := New(Six, randutil.New(42))

	for i := range a.Cards() {
		assert.Equal(t, a.Cards()[i].ID, b.Cards()[i].ID)
	}
}

func TestSelectTrumpSkipsAces(t *testing.T) {
	cards := MustParseCards("c", "As Ah 7d 9c Ks")
	d := FromCards(cards)

	bottom := d.SelectTrump()
	require.NotNil(t, bottom)
	assert.Equal(t, "c2", bottom.ID, "first non-ace is chosen")
	assert.Equal(t, Diamonds, bottom.Suit)
	assert.Equal(t, FieldBottom, bottom.Field)
	assert.Equal(t, bottom, d.Cards()[d.Len()-1])
	assert.Equal(t, "c4", d.Cards()[2].ID, "previous last card takes its place")
}

func TestSelectTrumpAllAces(t *testing.T) {
	d := FromCards(MustParseCards("c", "As Ah"))

	bottom := d.SelectTrump()
	require.NotNil(t, bottom)
	assert.Equal(t, "c1", bottom.ID)
	assert.Equal(t, FieldBottom, bottom.Field)
}

func TestBottomTracksRevealedTrump(t *testing.T) {
	d := FromCards(MustParseCards("c", "6s 7h"))
	assert.Nil(t, d.Bottom(), "nothing revealed before trump selection")

	bottom := d.SelectTrump()
	assert.Equal(t, bottom, d.Bottom())

	d.Draw(1)
	assert.Equal(t, bottom, d.Bottom())

	d.Draw(1)
	assert.Nil(t, d.Bottom())
}

func TestDrawTruncatesAtEmptyDeck(t *testing.T) {
	d := FromCards(MustParseCards("c", "6s 7s 8s"))

	drawn := d.Draw(2)
	require.Len(t, drawn, 2)
	assert.Equal(t, "c0", drawn[0].ID)

	drawn = d.Draw(5)
	require.Len(t, drawn, 1)
	assert.True(t, d.IsEmpty())
	assert.Nil(t, d.Draw(1))
}

func TestParseCard(t *testing.T) {
	c, err := ParseCard("Th")
	require.NoError(t, err)
	assert.Equal(t, Ten, c.Value)
	assert.Equal(t, Hearts, c.Suit)
	assert.Equal(t, "T♥", c.String())

	_, err = ParseCard("1h")
	assert.Error(t, err)
	_, err = ParseCard("7x")
	assert.Error(t, err)
	_, err = ParseCard("7")
	assert.Error(t, err)
}

func TestCardInfoHidesFaceDownCards(t *testing.T) {
	c := NewCard("c1", Clubs, Queen)

	info := c.Hidden()
	assert.Nil(t, info.Value)
	assert.Nil(t, info.Suit)

	info = c.Info()
	require.NotNil(t, info.Value)
	assert.Equal(t, Queen, *info.Value)
}

func TestTableField(t *testing.T) {
	assert.Equal(t, Field("TABLE3"), TableField(3))
	assert.True(t, TableField(0).IsTable())
	assert.False(t, PlayerField("p1").IsTable())
}
