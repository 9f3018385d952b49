// internal/domain/models/connection.go
package models

import "time"

// RequestStatus is the lifecycle state of a ConnectionRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// ConnectionRequest is keyed by pairkey.Directed(sender, receiver), so a
// repeated request overwrites the previous one.
type ConnectionRequest struct {
	ID            string        `bson:"_id" json:"id"`
	SenderID      string        `bson:"sender_id" json:"sender_id"`
	SenderName    string        `bson:"sender_name" json:"sender_name"`
	SenderPhoto   string        `bson:"sender_photo,omitempty" json:"sender_photo,omitempty"`
	ReceiverID    string        `bson:"receiver_id" json:"receiver_id"`
	ReceiverName  string        `bson:"receiver_name" json:"receiver_name"`
	ReceiverPhoto string        `bson:"receiver_photo,omitempty" json:"receiver_photo,omitempty"`
	Status        RequestStatus `bson:"status" json:"status"`
	SentAt        time.Time     `bson:"sent_at" json:"sent_at"`
	AcceptedAt    *time.Time    `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	DeclinedAt    *time.Time    `bson:"declined_at,omitempty" json:"declined_at,omitempty"`
}

// ConnectionStatus is the state of an established Connection.
type ConnectionStatus string

const (
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRemoved  ConnectionStatus = "removed"
)

// Connection is keyed by pairkey.Pair of its two users.
type Connection struct {
	ID          string            `bson:"_id" json:"id"`
	Users       []string          `bson:"users" json:"users"`
	UserNames   map[string]string `bson:"user_names" json:"user_names"`
	UserPhotos  map[string]string `bson:"user_photos,omitempty" json:"user_photos,omitempty"`
	Status      ConnectionStatus  `bson:"status" json:"status"`
	ConnectedAt time.Time         `bson:"connected_at" json:"connected_at"`
	RemovedAt   *time.Time        `bson:"removed_at,omitempty" json:"removed_at,omitempty"`
}

// Other returns the id of the user on the other side from self.
func (c Connection) Other(self string) string {
	for _, u := range c.Users {
		if u != self {
			return u
		}
	}
	return ""
}
