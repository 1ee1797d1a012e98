package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/game"
)

// RandBot is a simple bot that makes uniform random legal actions
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger}
}

// Choose picks a random offered action
func (r *RandBot) Choose(view game.View, actions []game.Action) game.Action {
	if len(actions) == 0 {
		return game.Action{}
	}
	return actions[r.rng.IntN(len(actions))]
}
