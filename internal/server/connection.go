package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/durak/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn         *websocket.Conn
	send         chan *Message
	connectionID string
	playerID     string
	logger       *log.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	closeOnce    sync.Once
	server       *Server
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		server: server,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		close(c.send)
		c.send = nil
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.send == nil {
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		go func() { _ = c.Close() }()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(connectionID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectionID = connectionID
	c.playerID = playerID
}

// ConnectionID returns the connection id bound by hello or reconnect
func (c *Connection) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectionID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	c.mu.RLock()
	send := c.send
	c.mu.RUnlock()
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeHello:
		var data HelloData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError("invalid_message", "Failed to parse hello data")
				return
			}
		}
		c.handleHello(data)

	case MessageTypeReconnect:
		var data ReconnectData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse reconnect data")
			return
		}
		c.handleReconnect(data)

	case MessageTypeStartMatch:
		var data StartMatchData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError("invalid_message", "Failed to parse start match data")
				return
			}
		}
		c.withPlayer(func(playerID string) error {
			_, err := c.server.gameService.StartMatch(playerID, data.Bots)
			return err
		})

	case MessageTypeResponse:
		var data ResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse response data")
			return
		}
		c.withPlayer(func(playerID string) error {
			return c.server.gameService.Respond(playerID, data)
		})

	case MessageTypeNoteResponse:
		var data NoteResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse note response data")
			return
		}
		c.withPlayer(func(playerID string) error {
			return c.server.gameService.AnswerNote(playerID, data)
		})

	case MessageTypeRequestGameInfo:
		c.withPlayer(c.server.gameService.RequestGameInfo)

	case MessageTypePause:
		c.withPlayer(c.server.gameService.Pause)

	case MessageTypeResume:
		c.withPlayer(c.server.gameService.Resume)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// withPlayer runs fn for the authenticated player and reports its error
func (c *Connection) withPlayer(fn func(playerID string) error) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_registered", "Send hello or reconnect first")
		return
	}

	err := fn(playerID)
	switch {
	case err == nil:
	case errors.Is(err, game.ErrNoActiveMatch):
		c.logger.Info("Dropping message without an active match", "player", playerID, "error", err)
	case errors.Is(err, ErrAlreadyPlaying):
		c.sendError("already_playing", err.Error())
	default:
		c.logger.Warn("Request failed", "player", playerID, "error", err)
		c.sendError("request_failed", err.Error())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleHello(data HelloData) {
	connectionID, playerID := c.server.gameService.Hello(data.Name)
	c.server.bindPlayer(c, connectionID, playerID)
	c.logger.Info("Hello", "name", data.Name, "player", playerID)

	response, _ := NewMessage(MessageTypeSetID, SetIDData{
		ConnectionID: connectionID,
		PlayerID:     playerID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleReconnect(data ReconnectData) {
	playerID, err := c.server.gameService.Reconnect(data.ConnectionID)
	if err != nil {
		c.logger.Info("Reconnect rejected", "connection", data.ConnectionID, "error", err)
		c.sendError("unknown_connection", "Unknown connection id, send hello")
		return
	}
	c.server.bindPlayer(c, data.ConnectionID, playerID)

	response, _ := NewMessage(MessageTypeUpdateID, UpdateIDData{PlayerID: playerID})
	_ = c.SendMessage(response)

	if err := c.server.gameService.Resync(playerID); err != nil && !errors.Is(err, game.ErrNoActiveMatch) {
		c.logger.Warn("Failed to resync player", "player", playerID, "error", err)
	}
}
