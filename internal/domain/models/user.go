// internal/domain/models/user.go
package models

import "time"

// User is a student or professional profile. Only the fields the social
// core snapshots into connections and threads live here.
type User struct {
	ID          string `bson:"_id" json:"id"`
	DisplayName string `bson:"display_name" json:"display_name"`
	PhotoURL    string `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Headline    string `bson:"headline,omitempty" json:"headline,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ParticipantInfo is the display snapshot of one side of a thread or
// connection.
type ParticipantInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Info returns u's display snapshot.
func (u User) Info() ParticipantInfo {
	return ParticipantInfo{ID: u.ID, Name: u.DisplayName, PhotoURL: u.PhotoURL}
}
