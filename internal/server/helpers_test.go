package server

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

// p1 attacks first with 6c(c13); p2 holds Js 7d 8d 9d Td Jd and can only
// take. Hearts are trump.
const twoPlayerDeck = "7h 6s 7s 8s 9s 6d Js 7d 8d 9d Td Jd Qd 6c"

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

type sentMessage struct {
	pid string
	msg *Message
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendToPlayer(pid string, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{pid: pid, msg: msg})
	return nil
}

func (f *fakeSender) messages(pid string, messageType MessageType) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var msgs []*Message
	for _, s := range f.sent {
		if s.pid == pid && s.msg.Type == messageType {
			msgs = append(msgs, s.msg)
		}
	}
	return msgs
}

func (f *fakeSender) last(t *testing.T, pid string, messageType MessageType) *Message {
	t.Helper()
	msgs := f.messages(pid, messageType)
	require.NotEmpty(t, msgs, "no %s message for %s", messageType, pid)
	return msgs[len(msgs)-1]
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var data T
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	return data
}
