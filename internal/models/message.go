package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxMessageLength bounds direct-message content.
const MaxMessageLength = 1000

// Message is an append-only direct message. ReadBy lists the participants
// who have seen it; the sender is never auto-added.
type Message struct {
	ID             primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID   `json:"conversation_id" bson:"conversation_id"`
	SenderID       primitive.ObjectID   `json:"sender_id" bson:"sender_id"`
	Content        string               `json:"content" bson:"content"`
	ReadBy         []primitive.ObjectID `json:"read_by" bson:"read_by"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
}

// ReadByUser reports whether id is recorded as having seen the message.
func (m *Message) ReadByUser(id primitive.ObjectID) bool {
	for _, r := range m.ReadBy {
		if r == id {
			return true
		}
	}
	return false
}

// SendMessageRequest defines the request body for create-or-send
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required"`
}

// MessageView is a message with its sender resolved.
type MessageView struct {
	Message
	Sender UserCompact `json:"sender"`
}
