package bot

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/game"
)

// Strategy picks one action out of an offered legal set
type Strategy interface {
	Choose(view game.View, actions []game.Action) game.Action
}

// TurnType is the kind of decision a bot is making
type TurnType string

const (
	TurnAttack  TurnType = "ATTACK"
	TurnDefense TurnType = "DEFENSE"
	TurnSupport TurnType = "SUPPORT"
)

// GameStage splits a match by how many cards are left to draw
type GameStage string

const (
	EarlyGame GameStage = "EARLY_GAME"
	EndGame   GameStage = "END_GAME"
)

// Tuning holds the heuristic thresholds of the Heuristic strategy
type Tuning struct {
	// EndGameDeckSize: a deck smaller than this means END_GAME
	EndGameDeckSize int
	// HighValue: cards at or above this value (jack) are held back
	HighValue deck.Value
	// GroupSpread: a group may be this much above the cheapest playable card
	GroupSpread deck.Value

	// Attacking pays off while the defender holds fewer cards than these
	// cutoffs: any non-trump or a trump below AttackTrumpBelow[0] under
	// AttackDefenderHand[0], a trump below AttackTrumpBelow[1] under
	// AttackDefenderHand[1], only non-trumps under AttackDefenderHand[2].
	AttackDefenderHand [3]int
	AttackTrumpBelow   [2]deck.Value

	// PassAbove: passing beats throwing in a card above this value
	PassAbove deck.Value

	// TakeHandBelow: with one attack card and fewer cards than this, take
	// rather than spend the cheapest trump
	TakeHandBelow int

	// TransferTrumpBelow: trumps below this may be used to transfer early on
	TransferTrumpBelow deck.Value

	// TableValueSpread: max distance between a defense card and the attack
	// card it beats when reusing a value already on the table
	TableValueSpread deck.Value

	// SupportTurns lets the supporting attacker play the SUPPORT policy
	SupportTurns bool
}

// DefaultTuning returns the thresholds the bots ship with
func DefaultTuning() Tuning {
	return Tuning{
		EndGameDeckSize:    5,
		HighValue:          deck.Jack,
		GroupSpread:        2,
		AttackDefenderHand: [3]int{3, 4, 5},
		AttackTrumpBelow:   [2]deck.Value{deck.Jack, deck.Six},
		PassAbove:          10,
		TakeHandBelow:      7,
		TransferTrumpBelow: 5,
		TableValueSpread:   3,
	}
}

// candidate is an offered card action together with the card it plays
type candidate struct {
	action game.Action
	card   deck.Card
}

// decision is the evaluation context of one Choose call
type decision struct {
	view    *game.View
	actions []game.Action
	tuning  *Tuning
	stage   GameStage
	trump   deck.Suit

	min     *candidate
	pass    *game.Action
	take    *game.Action
	maxQty  *deck.Card
	allowed []string
}

// rule returns an action when it applies
type rule func(d *decision) (game.Action, bool)

type policyKey struct {
	turn  TurnType
	stage GameStage
}

var (
	attackRules  = []rule{passRule, maxQtyRule, minRule}
	supportRules = []rule{supportMinRule, supportPassRule}
	defenseRules = []rule{transferRule, takeRule, tableValueRule, maxQtyRule, minRule}
)

// policies lists the ordered rules for every turn type and game stage. The
// stage also feeds into the individual predicates.
var policies = map[policyKey][]rule{
	{TurnAttack, EarlyGame}:  attackRules,
	{TurnAttack, EndGame}:    attackRules,
	{TurnSupport, EarlyGame}: supportRules,
	{TurnSupport, EndGame}:   supportRules,
	{TurnDefense, EarlyGame}: defenseRules,
	{TurnDefense, EndGame}:   defenseRules,
}

// Heuristic is the rule-based durak bot. Choose is a pure function of the
// view and the offered actions.
type Heuristic struct {
	tuning Tuning
	logger *log.Logger
}

// NewHeuristic creates a heuristic strategy
func NewHeuristic(tuning Tuning, logger *log.Logger) *Heuristic {
	return &Heuristic{
		tuning: tuning,
		logger: logger.WithPrefix("heuristic"),
	}
}

// TurnType returns the kind of decision the viewer faces
func (h *Heuristic) TurnType(view *game.View) TurnType {
	if view.Role == game.RoleDefender {
		return TurnDefense
	}
	if h.tuning.SupportTurns && view.Role == game.RoleAttacker && view.RoleIndex >= 1 {
		return TurnSupport
	}
	return TurnAttack
}

// Stage returns the game stage for the viewer
func (h *Heuristic) Stage(view *game.View) GameStage {
	if view.DeckSize < h.tuning.EndGameDeckSize {
		return EndGame
	}
	return EarlyGame
}

// Choose returns the most beneficial action. It returns the zero Action
// when actions is empty.
func (h *Heuristic) Choose(view game.View, actions []game.Action) game.Action {
	if len(actions) == 0 {
		return game.Action{}
	}

	d := &decision{
		view:    &view,
		actions: actions,
		tuning:  &h.tuning,
		stage:   h.Stage(&view),
		trump:   view.TrumpSuit,
	}
	d.min = d.findMin(false, false)
	d.pass = d.find(game.ActionPass)
	d.take = d.find(game.ActionTake)
	d.allowed = allowedCardIDs(actions)
	d.maxQty = d.findMaxQtyCard()

	turn := h.TurnType(&view)
	for _, r := range policies[policyKey{turn, d.stage}] {
		if a, ok := r(d); ok {
			h.logger.Debug("Bot decision made",
				"pid", view.PID,
				"turn", turn,
				"stage", d.stage,
				"action", a.Type,
				"cid", a.CID,
				"field", a.Field)
			return a
		}
	}
	return actions[0]
}

func (d *decision) find(t game.ActionType) *game.Action {
	for i := range d.actions {
		if d.actions[i].Type == t {
			return &d.actions[i]
		}
	}
	return nil
}

func allowedCardIDs(actions []game.Action) []string {
	var ids []string
	for _, a := range actions {
		if a.CID != "" && !slices.Contains(ids, a.CID) {
			ids = append(ids, a.CID)
		}
	}
	return ids
}

func (d *decision) isTrump(c deck.Card) bool {
	return c.Suit == d.trump
}

// less orders cards by (isTrump, value): every non-trump before any trump
func (d *decision) less(a, b deck.Card) bool {
	aTrump, bTrump := d.isTrump(a), d.isTrump(b)
	if aTrump != bTrump {
		return !aTrump
	}
	return a.Value < b.Value
}

// findMin returns the cheapest card action. TAKE and PASS never qualify.
// With onTable only DEFENSE actions whose card value is already on the table
// qualify; with transfer only ATTACK actions do.
func (d *decision) findMin(onTable, transfer bool) *candidate {
	var tableValues []deck.Value
	if onTable {
		tableValues = d.view.TableValues()
	}

	var best *candidate
	for _, a := range d.actions {
		if a.Type == game.ActionTake || a.Type == game.ActionPass {
			continue
		}
		if transfer && a.Type != game.ActionAttack {
			continue
		}
		card, ok := d.view.Card(a.CID)
		if !ok {
			continue
		}
		if onTable && (a.Type != game.ActionDefense || !slices.Contains(tableValues, card.Value)) {
			continue
		}
		if best == nil || d.less(card, best.card) {
			best = &candidate{action: a, card: card}
		}
	}
	return best
}

// findMaxQtyCard returns a card from the largest group of equal-value
// non-trump cards close to the cheapest playable card. Ties between groups
// go to the lower value; within a group the hand's most common suit wins,
// else any suit but the rarest, else the first card.
func (d *decision) findMaxQtyCard() *deck.Card {
	if d.min == nil {
		return nil
	}

	groups := make(map[deck.Value][]deck.Card)
	for _, c := range d.view.Hand {
		if d.isTrump(c) {
			continue
		}
		if d.stage != EndGame && c.Value >= d.tuning.HighValue {
			continue
		}
		if c.Value > d.min.card.Value+d.tuning.GroupSpread || !slices.Contains(d.allowed, c.ID) {
			continue
		}
		groups[c.Value] = append(groups[c.Value], c)
	}

	var best []deck.Card
	for v := deck.Two; v <= deck.MaxValue; v++ {
		if len(groups[v]) > len(best) {
			best = groups[v]
		}
	}
	if len(best) == 0 {
		return nil
	}

	rare, common := d.rareSuit(), d.commonSuit()
	for i := range best {
		if best[i].Suit == common {
			return &best[i]
		}
	}
	for i := range best {
		if best[i].Suit != rare {
			return &best[i]
		}
	}
	return &best[0]
}

func (d *decision) suitCounts() [deck.NumSuits]int {
	var counts [deck.NumSuits]int
	for _, c := range d.view.Hand {
		if !d.isTrump(c) {
			counts[c.Suit]++
		}
	}
	return counts
}

// rareSuit returns the first least frequent non-trump suit in hand
func (d *decision) rareSuit() deck.Suit {
	counts := d.suitCounts()
	rare, lowest := deck.Suit(-1), 0
	for s := range counts {
		if deck.Suit(s) == d.trump {
			continue
		}
		if rare < 0 || counts[s] < lowest {
			rare, lowest = deck.Suit(s), counts[s]
		}
	}
	return rare
}

// commonSuit returns the first most frequent non-trump suit in hand
func (d *decision) commonSuit() deck.Suit {
	counts := d.suitCounts()
	common, highest := deck.Suit(-1), 0
	for s := range counts {
		if deck.Suit(s) == d.trump {
			continue
		}
		if common < 0 || counts[s] > highest {
			common, highest = deck.Suit(s), counts[s]
		}
	}
	return common
}

func (d *decision) trumpCount() int {
	n := 0
	for _, c := range d.view.Hand {
		if d.isTrump(c) {
			n++
		}
	}
	return n
}

// actionFor returns the first offered action playing the card
func (d *decision) actionFor(c *deck.Card) (game.Action, bool) {
	for _, a := range d.actions {
		if a.CID == c.ID {
			return a, true
		}
	}
	return game.Action{}, false
}

// defendedFields returns the distinct slots covered by DEFENSE actions,
// skipping those that play the given card.
func (d *decision) defendedFields(exceptCID string) []deck.Field {
	var fields []deck.Field
	for _, a := range d.actions {
		if a.Type != game.ActionDefense || a.CID == exceptCID {
			continue
		}
		if !slices.Contains(fields, a.Field) {
			fields = append(fields, a.Field)
		}
	}
	return fields
}

func (d *decision) undefendedCount() int {
	n := 0
	for _, s := range d.view.Table {
		if s.IsUndefended() {
			n++
		}
	}
	return n
}

// isNotBeatable reports whether some attack card cannot be beaten at all
func (d *decision) isNotBeatable() bool {
	return len(d.defendedFields("")) != d.undefendedCount()
}

// isBeatableOnlyByThis reports whether some attack card can only be beaten
// with the candidate's card.
func (d *decision) isBeatableOnlyByThis(c *candidate) bool {
	return len(d.defendedFields(c.card.ID)) != d.undefendedCount()
}

func (d *decision) isAttackBeneficial() bool {
	if d.min == nil || d.view.Stage == game.StageFollowup {
		return false
	}
	hand := d.view.DefenderHandSize
	trump := d.isTrump(d.min.card)
	v := d.min.card.Value
	t := d.tuning

	if hand < t.AttackDefenderHand[0] && (!trump || v < t.AttackTrumpBelow[0]) {
		return true
	}
	if hand < t.AttackDefenderHand[1] && (!trump || v < t.AttackTrumpBelow[1]) {
		return true
	}
	return hand < t.AttackDefenderHand[2] && !trump
}

func (d *decision) isPassBeneficial() bool {
	return d.min == nil || d.isTrump(d.min.card) || d.min.card.Value > d.tuning.PassAbove
}

func (d *decision) isTakeBeneficial() bool {
	if d.isNotBeatable() {
		return true
	}
	if d.stage == EndGame || !d.isTrump(d.min.card) {
		return false
	}
	switch d.view.UsedFields {
	case 1:
		return len(d.view.Hand) < d.tuning.TakeHandBelow
	case 2:
		return d.min.card.Value > d.tuning.PassAbove
	}
	return false
}

func (d *decision) isTransferBeneficial(c *candidate) bool {
	trump := d.isTrump(c.card)
	v := c.card.Value
	t := d.tuning

	switch d.stage {
	case EarlyGame:
		return !trump ||
			(v < t.TransferTrumpBelow && d.trumpCount() > 1) ||
			(v < t.HighValue && (d.view.UsedFields > 1 || d.isBeatableOnlyByThis(c)))
	case EndGame:
		return !trump ||
			(v < t.HighValue && (d.trumpCount() > 0 || d.isBeatableOnlyByThis(c)))
	}
	return false
}

func (d *decision) isTableValueBeneficial(c *candidate) bool {
	attack, ok := d.view.AttackOn(c.action.Field)
	if !ok {
		return false
	}
	trump := d.isTrump(c.card)
	return c.card.Value-attack.Value <= d.tuning.TableValueSpread &&
		((d.stage == EarlyGame && !trump) || c.card.Value < d.tuning.HighValue || !trump)
}

func passRule(d *decision) (game.Action, bool) {
	if d.pass != nil && (!d.isAttackBeneficial() || d.isPassBeneficial()) {
		return *d.pass, true
	}
	return game.Action{}, false
}

func maxQtyRule(d *decision) (game.Action, bool) {
	if d.maxQty == nil {
		return game.Action{}, false
	}
	return d.actionFor(d.maxQty)
}

func minRule(d *decision) (game.Action, bool) {
	if d.min == nil {
		return game.Action{}, false
	}
	return d.min.action, true
}

func supportMinRule(d *decision) (game.Action, bool) {
	if d.min != nil && d.min.card.Value < d.tuning.HighValue && !d.isTrump(d.min.card) {
		return d.min.action, true
	}
	return game.Action{}, false
}

func supportPassRule(d *decision) (game.Action, bool) {
	if d.pass == nil {
		return game.Action{}, false
	}
	return *d.pass, true
}

func transferRule(d *decision) (game.Action, bool) {
	best := d.findMin(false, true)
	if best != nil && d.isTransferBeneficial(best) {
		return best.action, true
	}
	return game.Action{}, false
}

func takeRule(d *decision) (game.Action, bool) {
	if d.take != nil && (d.min == nil || d.isTakeBeneficial()) {
		return *d.take, true
	}
	return game.Action{}, false
}

func tableValueRule(d *decision) (game.Action, bool) {
	best := d.findMin(true, false)
	if best != nil && d.isTableValueBeneficial(best) {
		return best.action, true
	}
	return game.Action{}, false
}
