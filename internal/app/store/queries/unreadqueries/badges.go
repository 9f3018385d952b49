// Package unreadqueries derives the unread badges shown in the navigation
// bar from the thread and notification feeds.
package unreadqueries

import (
	"context"

	conversationstore "github.com/dalemusser/campuslink/internal/app/store/conversations"
	notificationstore "github.com/dalemusser/campuslink/internal/app/store/notifications"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/domain/models"
)

// Badges holds the two independent unread counters.
type Badges struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
}

type Aggregator struct {
	threads *conversationstore.Store
	notes   *notificationstore.Store
}

func New(threads *conversationstore.Store, notes *notificationstore.Store) *Aggregator {
	return &Aggregator{threads: threads, notes: notes}
}

// BadgeCounts is a live view of user's badges. It emits once both counters
// are known and again whenever either changes.
func (a *Aggregator) BadgeCounts(ctx context.Context, user string) *live.Feed[Badges] {
	messages := live.Map(a.threads.List(ctx, user), func(threads []models.Conversation) int {
		return UnreadMessages(threads, user)
	})
	return live.Combine(messages, a.notes.UnreadCount(ctx, user), func(m, n int) Badges {
		return Badges{Messages: m, Notifications: n}
	})
}

// UnreadMessages sums user's unread counters across threads.
func UnreadMessages(threads []models.Conversation, user string) int {
	total := 0
	for _, t := range threads {
		total += t.Unread(user)
	}
	return total
}
