package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation holds exactly two participants, stored sorted by hex id
// so the pair is order-independent. A unique index over the participants
// array guarantees at most one document per pair. DeletedBy is the
// per-participant soft-delete marker.
type Conversation struct {
	ID           primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	LastMessage  *primitive.ObjectID  `json:"last_message,omitempty" bson:"last_message,omitempty"`
	DeletedBy    []primitive.ObjectID `json:"deleted_by" bson:"deleted_by"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" bson:"updated_at"`
}

// CanonicalPair sorts two user ids into the stable order used as the
// conversation uniqueness key.
func CanonicalPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if a.Hex() <= b.Hex() {
		return []primitive.ObjectID{a, b}
	}
	return []primitive.ObjectID{b, a}
}

// HasParticipant reports whether id is one of the two participants.
func (c *Conversation) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// OtherParticipant returns the peer of id in this conversation.
func (c *Conversation) OtherParticipant(id primitive.ObjectID) primitive.ObjectID {
	for _, p := range c.Participants {
		if p != id {
			return p
		}
	}
	return id
}

// DeletedFor reports whether id has archived this conversation.
func (c *Conversation) DeletedFor(id primitive.ObjectID) bool {
	for _, d := range c.DeletedBy {
		if d == id {
			return true
		}
	}
	return false
}

// ConversationView is a conversation annotated with resolved participant
// profiles and its last message, as returned by the conversations list.
type ConversationView struct {
	ID           primitive.ObjectID `json:"id"`
	Participants []UserCompact      `json:"participants"`
	LastMessage  *MessageView       `json:"last_message,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
