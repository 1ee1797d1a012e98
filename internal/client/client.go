package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/durak/internal/game"
	"github.com/lox/durak/internal/server" // Reuse message types
)

// Client represents a WebSocket client for the durak server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once

	handlers map[server.MessageType][]Handler
}

// Handler handles an incoming message. Handlers run one at a time in the
// order messages arrive.
type Handler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
		handlers:  make(map[server.MessageType][]Handler),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed once the connection is gone
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// On registers a handler for a message type
func (c *Client) On(messageType server.MessageType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[messageType] = append(c.handlers[messageType], handler)
}

// SendMessage queues a message for the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Send wraps data in a message of the given type and queues it
func (c *Client) Send(messageType server.MessageType, data any) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Hello registers a new player
func (c *Client) Hello(name string) error {
	return c.Send(server.MessageTypeHello, server.HelloData{Name: name})
}

// Reconnect resumes the player of an earlier connection
func (c *Client) Reconnect(connectionID string) error {
	return c.Send(server.MessageTypeReconnect, server.ReconnectData{ConnectionID: connectionID})
}

// StartMatch asks for a new match against bots
func (c *Client) StartMatch(bots int) error {
	return c.Send(server.MessageTypeStartMatch, server.StartMatchData{Bots: bots})
}

// Respond answers the offer numbered seq. A nil action passes.
func (c *Client) Respond(seq uint64, action *game.Action) error {
	return c.Send(server.MessageTypeResponse, server.ResponseData{Seq: seq, Action: action})
}

// AnswerNote answers a notification that asked for a choice
func (c *Client) AnswerNote(note game.NoteType, choice game.Choice) error {
	return c.Send(server.MessageTypeNoteResponse, server.NoteResponseData{Note: note, Choice: choice})
}

// RequestGameInfo asks for the full match state
func (c *Client) RequestGameInfo() error {
	return c.Send(server.MessageTypeRequestGameInfo, struct{}{})
}

// Pause freezes the match timers
func (c *Client) Pause() error {
	return c.Send(server.MessageTypePause, struct{}{})
}

// Resume restarts the match timers
func (c *Client) Resume() error {
	return c.Send(server.MessageTypeResume, struct{}{})
}

// readPump reads messages and dispatches them to the handlers
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.cancel()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *server.Message) {
	c.mu.RLock()
	handlers := c.handlers[msg.Type]
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Decode unmarshals the data of msg into v
func Decode(msg *server.Message, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return nil
}
