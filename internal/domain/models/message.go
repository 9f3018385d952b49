// internal/domain/models/message.go
package models

import "time"

// Message belongs to exactly one thread. Timestamp is assigned by the store
// and strictly increases in write order.
type Message struct {
	ID         string     `bson:"_id" json:"id"`
	ThreadID   string     `bson:"thread_id" json:"thread_id"`
	SenderID   string     `bson:"sender_id" json:"sender_id"`
	SenderName string     `bson:"sender_name" json:"sender_name"`
	Text       string     `bson:"text" json:"text"`
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
	Read       bool       `bson:"read" json:"read"`
	ReadTime   *time.Time `bson:"read_time,omitempty" json:"read_time,omitempty"`
}
