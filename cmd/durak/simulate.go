package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"

	"github.com/lox/durak/internal/bot"
	"github.com/lox/durak/internal/display"
	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/gameid"
	"github.com/lox/durak/internal/randutil"
	"github.com/lox/durak/internal/server"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	drawStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// SimulateCmd plays bot-only matches without delays and reports how often
// each strategy ends up the durak
type SimulateCmd struct {
	Matches     int      `kong:"default='1000',help='Number of matches to play'"`
	Players     int      `kong:"default='2',help='Seats per match'"`
	Strategies  []string `kong:"default='heuristic,rand',help='Strategies seated in rotation: heuristic, rand, passive'"`
	Seed        int64    `kong:"default='0',help='RNG seed (0 for random)'"`
	Concurrency int      `kong:"default='4',help='Matches played in parallel'"`
	Support     bool     `kong:"help='Enable support turns'"`
	Trace       bool     `kong:"help='Print the action log of the first match'"`
	NoColor     bool     `kong:"help='Disable colored output'"`
	Verbose     bool     `short:"V" help:"Verbose logging"`
}

// matchResult is the outcome of one simulated match
type matchResult struct {
	Strategies []string
	Loser      int
	Turns      int
}

// tally aggregates match results per strategy
type tally struct {
	mu      sync.Mutex
	matches int
	draws   int
	turns   int
	seats   map[string]int
	losses  map[string]int
}

func newTally() *tally {
	return &tally{seats: make(map[string]int), losses: make(map[string]int)}
}

func (t *tally) Add(r matchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.matches++
	t.turns += r.Turns
	for _, name := range r.Strategies {
		t.seats[name]++
	}
	if r.Loser < 0 {
		t.draws++
		return
	}
	t.losses[r.Strategies[r.Loser]]++
}

// LossRate is the share of seats played by name that lost
func (t *tally) LossRate(name string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seats[name] == 0 {
		return 0
	}
	return float64(t.losses[name]) / float64(t.seats[name])
}

// LossInterval95 is the normal approximation of the 95% confidence interval
// of LossRate
func (t *tally) LossInterval95(name string) (float64, float64) {
	rate := t.LossRate(name)
	t.mu.Lock()
	n := t.seats[name]
	t.mu.Unlock()
	if n == 0 {
		return 0, 0
	}
	margin := 1.96 * math.Sqrt(rate*(1-rate)/float64(n))
	return max(rate-margin, 0), min(rate+margin, 1)
}

func (t *tally) names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.seats))
	for name := range t.seats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newStrategy(name string, tuning bot.Tuning, rng *rand.Rand, logger *log.Logger) (bot.Strategy, error) {
	switch name {
	case "heuristic":
		return bot.NewHeuristic(tuning, logger), nil
	case "rand":
		return bot.NewRandBot(rng, logger), nil
	case "passive":
		return bot.NewPassiveBot(logger), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// seatStrategies rotates the strategy list so every strategy takes every
// seat across matches
func seatStrategies(strategies []string, players, match int) []string {
	seats := make([]string, players)
	for i := range seats {
		seats[i] = strategies[(i+match)%len(strategies)]
	}
	return seats
}

func (c *SimulateCmd) Run() error {
	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	level := log.WarnLevel
	if c.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})

	if c.Players < 2 || c.Players > game.MaxPlayers {
		return fmt.Errorf("players must be between 2 and %d", game.MaxPlayers)
	}
	if len(c.Strategies) == 0 {
		return errors.New("at least one strategy is required")
	}
	tuning := bot.DefaultTuning()
	tuning.SupportTurns = c.Support
	for _, name := range c.Strategies {
		if _, err := newStrategy(name, tuning, nil, logger); err != nil {
			return err
		}
	}

	seed := randutil.Seed(c.Seed)
	fmt.Printf("Simulating %d matches, %d players, strategies %s (seed: %d)\n",
		c.Matches, c.Players, strings.Join(c.Strategies, ","), seed)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	start := time.Now()
	results := newTally()
	err := simulate(ctx, simulation{
		Matches:     c.Matches,
		Players:     c.Players,
		Strategies:  c.Strategies,
		Tuning:      tuning,
		Seed:        seed,
		Concurrency: c.Concurrency,
		Trace:       traceWriter(c.Trace),
	}, results, logger)
	if err != nil {
		return err
	}

	printResults(os.Stdout, results, time.Since(start))
	return nil
}

type simulation struct {
	Matches     int
	Players     int
	Strategies  []string
	Tuning      bot.Tuning
	Seed        int64
	Concurrency int
	// Trace receives the replay of the first match when set
	Trace io.Writer
}

func traceWriter(enabled bool) io.Writer {
	if !enabled {
		return nil
	}
	return os.Stdout
}

func simulate(ctx context.Context, sim simulation, results *tally, logger *log.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(sim.Concurrency, 1))

	names := bot.NewNamePool(nil, randutil.New(sim.Seed))
	for i := range sim.Matches {
		g.Go(func() error {
			result, err := playMatch(gctx, sim, i, names, logger)
			if err != nil {
				return fmt.Errorf("match %d: %w", i, err)
			}
			results.Add(result)
			return nil
		})
	}
	return g.Wait()
}

func playMatch(ctx context.Context, sim simulation, i int, names *bot.NamePool, logger *log.Logger) (matchResult, error) {
	seats := seatStrategies(sim.Strategies, sim.Players, i)
	cfg := server.RoomConfig{
		Timing:       server.Timing{ActionTimeout: 30 * time.Second},
		SupportTurns: sim.Tuning.SupportTurns,
		Seed:         randutil.Derive(sim.Seed, i),
		NewStrategy: func(seat int, rng *rand.Rand, logger *log.Logger) bot.Strategy {
			strategy, _ := newStrategy(seats[seat], sim.Tuning, rng, logger)
			return strategy
		},
	}

	room, err := server.NewRoom(gameid.New(gameid.Match), nil, sim.Players, cfg, discardSender{}, names, quartz.NewReal(), logger)
	if err != nil {
		return matchResult{}, err
	}
	if err := room.Run(ctx); err != nil {
		return matchResult{}, err
	}

	info := room.Info()
	if info.Status != server.RoomFinished {
		return matchResult{}, ctx.Err()
	}
	if i == 0 && sim.Trace != nil {
		display.Replay(sim.Trace, room.Match(), display.NewStyles())
	}
	result := matchResult{Strategies: seats, Loser: -1, Turns: info.TurnIndex}
	for j, s := range info.Seats {
		if s.PID == info.Loser {
			result.Loser = j
		}
	}
	return result, nil
}

// discardSender drops messages; bot-only rooms have nobody to send to
type discardSender struct{}

func (discardSender) SendToPlayer(string, *server.Message) error { return nil }

func printResults(w io.Writer, t *tally, duration time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("=== Simulation Results ==="))
	fmt.Fprintf(w, "Matches: %d in %.1fs\n", t.matches, duration.Seconds())
	if t.matches > 0 {
		fmt.Fprintf(w, "Average turns: %.1f\n", float64(t.turns)/float64(t.matches))
	}
	fmt.Fprintf(w, "Draws: %s\n", drawStyle.Render(fmt.Sprintf("%d", t.draws)))
	fmt.Fprintln(w)

	for _, name := range t.names() {
		lo, hi := t.LossInterval95(name)
		fmt.Fprintf(w, "%-10s seats %6d  durak %6d  %s  (95%% CI %.1f%% - %.1f%%)\n",
			nameStyle.Render(name),
			t.seats[name],
			t.losses[name],
			lossStyle.Render(fmt.Sprintf("%5.1f%%", t.LossRate(name)*100)),
			lo*100, hi*100)
	}
}
