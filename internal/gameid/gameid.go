package gameid

import (
	"encoding/base32"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet, as used by TypeID
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// Kind is the prefix of an identifier
type Kind string

const (
	Match  Kind = "match"
	Bot    Kind = "bot"
	Player Kind = "player"
)

// suffixLen is the length of a base32 encoded UUIDv7
const suffixLen = 26

// Generator creates time-sortable identifiers. A nil reader uses crypto/rand.
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a generator reading randomness from r
func NewGenerator(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// New creates an identifier of the given kind using crypto/rand
func New(kind Kind) string {
	return NewGenerator(nil).New(kind)
}

// New creates an identifier like "match_01j2..." from a UUIDv7
func (g *Generator) New(kind Kind) string {
	var (
		id  uuid.UUID
		err error
	)
	if g.rand != nil {
		id, err = uuid.NewV7FromReader(g.rand)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("failed to generate id: " + err.Error())
	}
	return string(kind) + "_" + encoding.EncodeToString(id[:])
}

// Parse splits an identifier into its kind and validates the suffix
func Parse(id string) (Kind, error) {
	kind, suffix, ok := strings.Cut(id, "_")
	if !ok {
		return "", fmt.Errorf("id %q has no kind prefix", id)
	}
	if len(suffix) != suffixLen {
		return "", fmt.Errorf("id suffix must be exactly %d characters, got %d", suffixLen, len(suffix))
	}
	for i, r := range suffix {
		if !strings.ContainsRune(alphabet, r) {
			return "", fmt.Errorf("invalid character %c at position %d", r, i)
		}
	}
	return Kind(kind), nil
}

// IsBot reports whether the id was issued to a server-side bot
func IsBot(id string) bool {
	kind, err := Parse(id)
	return err == nil && kind == Bot
}
