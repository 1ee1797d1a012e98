package bot

import (
	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/game"
)

// PassiveBot passes whenever it may and takes instead of defending. It only
// plays a card when the opening attack forces it to.
type PassiveBot struct {
	logger *log.Logger
}

// NewPassiveBot creates a new PassiveBot instance
func NewPassiveBot(logger *log.Logger) *PassiveBot {
	return &PassiveBot{logger: logger}
}

// Choose prefers PASS, then TAKE, then the first offered action
func (p *PassiveBot) Choose(view game.View, actions []game.Action) game.Action {
	for _, t := range []game.ActionType{game.ActionPass, game.ActionTake} {
		for _, a := range actions {
			if a.Type == t {
				return a
			}
		}
	}
	if len(actions) > 0 {
		return actions[0]
	}
	return game.Action{}
}
