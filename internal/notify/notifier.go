// Package notify is the notification center: domain handlers report what
// happened, the notifier decides whether an alert record is created.
package notify

import (
	"log"

	"github.com/sociuslabs/socius/backend/internal/models"
	"github.com/sociuslabs/socius/backend/internal/repositories"
)

// Event describes a domain action that may fan out to a recipient.
// RecipientID, SenderID and RefID are user/entity hex ids.
type Event struct {
	RecipientID string
	SenderID    string
	Type        string
	RefID       string
	Message     string
}

// Notifier persists notification records. Self-action suppression and
// best-effort delivery live here so the triggering operations stay
// decoupled from alert bookkeeping.
type Notifier struct {
	notifications repositories.NotificationRepository
}

func NewNotifier(notificationRepo repositories.NotificationRepository) *Notifier {
	return &Notifier{notifications: notificationRepo}
}

// Emit records a notification for the event. Acting on yourself never
// produces one. Persistence failures are logged and swallowed — a
// notification must never fail the operation that triggered it.
func (n *Notifier) Emit(e Event) {
	if e.RecipientID == "" || e.RecipientID == e.SenderID {
		return
	}

	notification := &models.Notification{
		RecipientID: e.RecipientID,
		SenderID:    e.SenderID,
		Type:        e.Type,
		RefID:       e.RefID,
		Message:     e.Message,
	}
	if err := n.notifications.CreateNotification(notification); err != nil {
		log.Printf("[Notify] failed to persist %s notification for %s: %v", e.Type, e.RecipientID, err)
	}
}
