package server

import (
	"encoding/json"
	"time"

	"github.com/lox/durak/internal/deck"
	"github.com/lox/durak/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type HelloData struct {
	Name string `json:"name,omitempty"`
}

type ReconnectData struct {
	ConnectionID string `json:"connectionId"`
}

type StartMatchData struct {
	Bots int `json:"bots"`
}

// ResponseData answers the offer numbered Seq. A null action is an explicit
// pass.
type ResponseData struct {
	Seq    uint64       `json:"seq"`
	Action *game.Action `json:"action"`
}

type NoteResponseData struct {
	Note   game.NoteType `json:"note"`
	Choice game.Choice   `json:"choice"`
}

// Server → Client Messages

type SetIDData struct {
	ConnectionID string `json:"connectionId"`
	PlayerID     string `json:"playerId"`
}

type UpdateIDData struct {
	PlayerID string `json:"playerId"`
}

type SeatInfo struct {
	PID  string `json:"pid"`
	Name string `json:"name"`
	Bot  bool   `json:"bot"`
}

type MatchStartedData struct {
	MatchID string     `json:"matchId"`
	Game    int        `json:"game"`
	Seats   []SeatInfo `json:"seats"`
}

type ValidActionsData struct {
	Seq       uint64         `json:"seq"`
	Actions   []game.Action  `json:"actions"`
	Deadline  *time.Time     `json:"deadline,omitempty"`
	Roles     game.RolesInfo `json:"roles"`
	TurnIndex int            `json:"turnIndex"`
	TurnStage game.TurnStage `json:"turnStage"`
}

type DealData struct {
	PID        string      `json:"pid"`
	NumOfCards int         `json:"numOfCards"`
	Cards      []deck.Info `json:"cards,omitempty"` // only for the receiving player
}

type DealInfoData struct {
	Deals []DealData `json:"deals"`
}

type CompleteActionData struct {
	Action game.Action `json:"action"`
}

type NotificationData struct {
	Note    game.NoteType `json:"note"`
	PID     string        `json:"pid,omitempty"`
	Message string        `json:"message,omitempty"`
	Loser   string        `json:"loser,omitempty"`
	Actions []game.Choice `json:"actions,omitempty"`
}

type GameInfoData struct {
	MatchID string `json:"matchId"`
	game.GameInfo
}

type LatenessData struct {
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

type PauseData struct {
	MatchID string `json:"matchId"`
	By      string `json:"by"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomInfo describes a room for the /matches listing
type RoomInfo struct {
	ID        string     `json:"id"`
	Status    RoomStatus `json:"status"`
	Seats     []SeatInfo `json:"seats"`
	Game      int        `json:"game"`
	TurnIndex int        `json:"turnIndex"`
	Loser     string     `json:"loser,omitempty"`
	Paused    bool       `json:"paused"`
}

// Helper functions to convert between internal types and message types

// DealDataFromGame converts deals for the player pid, revealing only the
// cards pid received.
func DealDataFromGame(deals []game.Deal, pid string) DealInfoData {
	data := DealInfoData{Deals: make([]DealData, 0, len(deals))}
	for _, d := range deals {
		dd := DealData{PID: d.PID, NumOfCards: d.NumOfCards}
		if d.PID == pid {
			for _, c := range d.Cards {
				dd.Cards = append(dd.Cards, c.Info())
			}
		}
		data.Deals = append(data.Deals, dd)
	}
	return data
}

func NotificationDataFromGame(note game.Note) NotificationData {
	return NotificationData{
		Note:    note.Type,
		PID:     note.PID,
		Message: note.Message,
		Loser:   note.Loser,
		Actions: note.Choices,
	}
}

func ValidActionsDataFromGame(offer game.Offer, deadline time.Time, hasDeadline bool) ValidActionsData {
	data := ValidActionsData{
		Seq:       offer.Seq,
		Actions:   offer.Actions,
		Roles:     offer.Roles,
		TurnIndex: offer.TurnIndex,
		TurnStage: offer.Stage,
	}
	if hasDeadline {
		data.Deadline = &deadline
	}
	return data
}
