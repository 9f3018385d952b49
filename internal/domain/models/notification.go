// internal/domain/models/notification.go
package models

import "time"

// NotificationType is open-ended; unknown types are stored and listed but
// have no navigation target.
type NotificationType string

const (
	NotifyConnectionRequest  NotificationType = "connection_request"
	NotifyConnectionAccepted NotificationType = "connection_accepted"
	NotifyMessage            NotificationType = "message"
	NotifyJobRecommendation  NotificationType = "job_recommendation"
	NotifyEventInvite        NotificationType = "event_invite"
	NotifyPostLike           NotificationType = "post_like"
	NotifyPostComment        NotificationType = "post_comment"
)

// Payload keys used by the core.
const (
	PayloadSenderID    = "senderId"
	PayloadSenderName  = "senderName"
	PayloadSenderPhoto = "senderPhoto"
	PayloadThreadID    = "threadId"
	PayloadPreview     = "preview"
	PayloadPostID      = "postId"
)

// Notification is addressed to one user.
type Notification struct {
	ID        string            `bson:"_id" json:"id"`
	UserID    string            `bson:"user_id" json:"user_id"`
	Type      NotificationType  `bson:"type" json:"type"`
	Payload   map[string]string `bson:"payload,omitempty" json:"payload,omitempty"`
	Read      bool              `bson:"read" json:"read"`
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
}
