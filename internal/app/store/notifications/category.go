package notificationstore

import "github.com/dalemusser/campuslink/internal/domain/models"

// Category is a notification-list filter tab.
type Category string

const (
	CategoryAll           Category = "all"
	CategoryUnread        Category = "unread"
	CategoryConnections   Category = "connections"
	CategoryMessages      Category = "messages"
	CategoryOpportunities Category = "opportunities"
)

// ParseCategory maps a query value to a Category. Empty means all.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case "":
		return CategoryAll, true
	case CategoryAll, CategoryUnread, CategoryConnections, CategoryMessages, CategoryOpportunities:
		return c, true
	}
	return "", false
}

// Matches reports whether n belongs in c.
func (c Category) Matches(n models.Notification) bool {
	switch c {
	case CategoryAll, "":
		return true
	case CategoryUnread:
		return !n.Read
	case CategoryConnections:
		return n.Type == models.NotifyConnectionRequest || n.Type == models.NotifyConnectionAccepted
	case CategoryMessages:
		return n.Type == models.NotifyMessage
	case CategoryOpportunities:
		return n.Type == models.NotifyJobRecommendation || n.Type == models.NotifyEventInvite
	}
	return false
}
