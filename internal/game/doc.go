// Package game implements the authoritative rules of durak.
//
// The main type is Match, which owns the cards of one match (deck, hands,
// table and discard pile), the attacker/defender roles and the turn stage.
// It offers one legal action set at a time and mutates state only in
// response to an accepted action.
//
// # Basic Usage
//
//	m, err := game.NewMatch(game.MatchConfig{Seed: 42}, []string{"alice", "bob"}, logger)
//	m.Subscribe(subscriber)
//	err = m.Start()
//	offer := m.Offer()
//	err = m.Apply(offer.PID, offer.Seq, &offer.Actions[0])
//
// # Deterministic Testing
//
// MatchConfig.Seed drives the shuffle. A pre-ordered deck can be supplied
// through MatchConfig.Deck for complete control:
//
//	cfg := game.MatchConfig{Deck: deck.MustParseCards("c", "6s 7h ...")}
//
// # Architecture
//
// Match delegates to specialized components:
//   - Cards: deck, hands, table and discard pile with the card partition invariant
//   - Table: fixed-capacity slots with progressively unlocked capacity
//   - Roles: ordered attackers (at most two), original attackers and defender
//   - action generators: attack, defense, transfer and take
//
// Timers, transport and bots live outside this package; they talk to a Match
// through Offer, Apply and the event bus.
package game
