// internal/domain/models/conversation.go
package models

import "time"

// Conversation is a one-to-one chat thread keyed by pairkey.Pair of its
// participants. Names and photos are snapshots taken at creation, indexed
// like Participants.
type Conversation struct {
	ID                string         `bson:"_id" json:"id"`
	Participants      []string       `bson:"participants" json:"participants"`
	ParticipantNames  []string       `bson:"participant_names" json:"participant_names"`
	ParticipantPhotos []string       `bson:"participant_photos" json:"participant_photos"`
	LastMessage       string         `bson:"last_message" json:"last_message"`
	LastMessageTime   time.Time      `bson:"last_message_time" json:"last_message_time"`
	LastMessageSender string         `bson:"last_message_sender,omitempty" json:"last_message_sender,omitempty"`
	UnreadCounts      map[string]int `bson:"unread_counts" json:"unread_counts"`
	CreatedAt         time.Time      `bson:"created_at" json:"created_at"`
}

// Unread returns the unread count for user (0 when absent).
func (c Conversation) Unread(user string) int {
	return c.UnreadCounts[user]
}
