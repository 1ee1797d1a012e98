package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeHello           MessageType = "hello"
	MessageTypeReconnect       MessageType = "reconnect"
	MessageTypeStartMatch      MessageType = "start_match"
	MessageTypeResponse        MessageType = "response"
	MessageTypeRequestGameInfo MessageType = "request_game_info"
	MessageTypeNoteResponse    MessageType = "note_response"
	MessageTypePause           MessageType = "pause"
	MessageTypeResume          MessageType = "resume"

	// Server to client messages
	MessageTypeSetID          MessageType = "set_id"
	MessageTypeUpdateID       MessageType = "update_id"
	MessageTypeMatchStarted   MessageType = "match_started"
	MessageTypeValidActions   MessageType = "valid_actions"
	MessageTypeDealInfo       MessageType = "deal_info"
	MessageTypeCompleteAction MessageType = "complete_action"
	MessageTypeNotification   MessageType = "notification"
	MessageTypeGameInfo       MessageType = "game_info"
	MessageTypeLateness       MessageType = "lateness"
	MessageTypeMatchPaused    MessageType = "match_paused"
	MessageTypeMatchResumed   MessageType = "match_resumed"
	MessageTypeError          MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
