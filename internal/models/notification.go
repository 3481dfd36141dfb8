package models

import "time"

// Notification types emitted by the domain handlers.
const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeFollow  = "follow"
	NotificationTypePost    = "post"
)

// Notification represents a user notification (PostgreSQL). Recipient,
// sender and ref ids are MongoDB ObjectID hex strings.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecipientID string    `json:"recipient_id" gorm:"size:24;index"`
	SenderID    string    `json:"sender_id" gorm:"size:24"`
	Type        string    `json:"type" gorm:"size:20;index"` // like, comment, follow, post
	RefID       string    `json:"ref_id" gorm:"size:24"`
	Message     string    `json:"message"`
	Read        bool      `json:"read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
