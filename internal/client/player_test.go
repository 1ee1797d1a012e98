package client

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/durak/internal/bot"
	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/server"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func startServer(t *testing.T, cfg server.RoomConfig) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	srv := server.NewServer("127.0.0.1:0", testLogger())
	service := server.NewGameService(ctx, cfg, 2, []string{"Zoe"}, srv, quartz.NewReal(), testLogger())
	srv.SetGameService(service)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Stop(context.Background())
		cancel()
		service.Wait()
	})
	return ts.URL
}

func fastTiming() server.Timing {
	return server.Timing{
		ActionTimeout:    10 * time.Second,
		DecisionTime:     5 * time.Millisecond,
		FakeDecisionTime: time.Millisecond,
		ResumeGrace:      time.Millisecond,
	}
}

func playOnce(t *testing.T, url string) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	c := NewClient(url, testLogger())
	require.NoError(t, c.Connect(ctx))
	defer func() { _ = c.Disconnect() }()

	settings := DefaultClientConfig().Player
	player := NewPlayer(c, *settings, bot.NewHeuristic(bot.DefaultTuning(), testLogger()), testLogger())
	result, err := player.Play(ctx)
	require.NoError(t, err)
	return result
}

func TestPlayerPlaysPresetMatch(t *testing.T) {
	url := startServer(t, server.RoomConfig{
		Timing: fastTiming(),
		Deck:   deck.MustParseCards("c", "7h 6s 7s 8s 9s 6d Js 7d 8d 9d Td Jd Qd 6c"),
	})

	result := playOnce(t, url)
	assert.True(t, strings.HasPrefix(result.PlayerID, "player_"))
	assert.True(t, strings.HasPrefix(result.MatchID, "match_"))
	assert.Equal(t, result.Lost, result.Loser == result.PlayerID)
}

func TestPlayerPlaysShuffledMatch(t *testing.T) {
	url := startServer(t, server.RoomConfig{Timing: fastTiming(), Seed: 5})

	result := playOnce(t, url)
	assert.NotEmpty(t, result.MatchID)
}

func TestPlayerStopsWhenContextEnds(t *testing.T) {
	url := startServer(t, server.RoomConfig{Timing: fastTiming()})

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(url, testLogger())
	require.NoError(t, c.Connect(ctx))
	defer func() { _ = c.Disconnect() }()

	player := NewPlayer(c, PlayerSettings{Name: "Ann", Bots: 1}, bot.NewPassiveBot(testLogger()), testLogger())
	cancel()
	_, err := player.Play(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
