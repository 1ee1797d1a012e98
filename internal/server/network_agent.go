package server

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/durak/internal/game"
)

// Sender delivers messages to connected players
type Sender interface {
	SendToPlayer(playerID string, msg *Message) error
}

// NetworkAgent represents a server-side seat that forwards match events to a
// remote client. Decisions come back through the room, not the agent.
type NetworkAgent struct {
	playerID string
	sender   Sender
	deadline func(pid string) (time.Time, bool)
	logger   *log.Logger
}

// NewNetworkAgent creates a new network agent for a remote player
func NewNetworkAgent(playerID string, sender Sender, deadline func(pid string) (time.Time, bool), logger *log.Logger) *NetworkAgent {
	return &NetworkAgent{
		playerID: playerID,
		sender:   sender,
		deadline: deadline,
		logger:   logger.WithPrefix("network-agent").With("player", playerID),
	}
}

// OnEvent implements game.EventSubscriber
func (na *NetworkAgent) OnEvent(event game.Event) {
	switch e := event.(type) {
	case game.ValidActionsEvent:
		if e.Offer.PID == na.playerID {
			na.SendOffer(e.Offer)
		}
	case game.DealInfoEvent:
		na.send(MessageTypeDealInfo, DealDataFromGame(e.Deals, na.playerID))
	case game.CompleteActionEvent:
		na.send(MessageTypeCompleteAction, CompleteActionData{Action: e.Action})
	case game.NotificationEvent:
		na.send(MessageTypeNotification, NotificationDataFromGame(e.Note))
	}
}

// SendOffer sends the legal action set with its current deadline
func (na *NetworkAgent) SendOffer(offer game.Offer) {
	deadline, ok := na.deadline(na.playerID)
	na.logger.Debug("Requesting decision from remote player",
		"seq", offer.Seq,
		"stage", offer.Stage,
		"validActions", len(offer.Actions))
	na.send(MessageTypeValidActions, ValidActionsDataFromGame(offer, deadline, ok))
}

// Send sends an arbitrary message to the player
func (na *NetworkAgent) Send(messageType MessageType, data any) {
	na.send(messageType, data)
}

func (na *NetworkAgent) send(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		na.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	if err := na.sender.SendToPlayer(na.playerID, msg); err != nil {
		// the player may be reconnecting; deadlines keep the match moving
		na.logger.Debug("Failed to send message to player", "type", messageType, "error", err)
	}
}
