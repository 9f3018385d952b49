package notificationstore

import (
	"net/url"

	"github.com/dalemusser/campuslink/internal/domain/models"
)

// Route is where activating a notification takes the user.
type Route struct {
	View string `json:"view"`
	Path string `json:"path"`
}

// Dispatch maps a notification to its navigation target. ok is false for
// types with no target, including post notifications without a postId.
func Dispatch(n models.Notification) (Route, bool) {
	switch n.Type {
	case models.NotifyConnectionRequest, models.NotifyConnectionAccepted:
		return Route{View: "network", Path: "/network"}, true
	case models.NotifyMessage:
		return Route{View: "messages", Path: "/messages"}, true
	case models.NotifyJobRecommendation:
		return Route{View: "jobs", Path: "/jobs"}, true
	case models.NotifyEventInvite:
		return Route{View: "events", Path: "/events"}, true
	case models.NotifyPostLike, models.NotifyPostComment:
		postID := n.Payload[models.PayloadPostID]
		if postID == "" {
			return Route{}, false
		}
		return Route{View: "post", Path: "/post/" + url.PathEscape(postID)}, true
	}
	return Route{}, false
}
