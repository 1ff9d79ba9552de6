package app

import (
	"encoding/json"

	"github.com/yemenflix/yflix/internal/ports"
)

// Topics publiés sur le bus.
const (
	TopicContentCreated      = "content.created"
	TopicContentUpdated      = "content.updated"
	TopicContentDeleted      = "content.deleted"
	TopicContentModerated    = "content.moderated"
	TopicReviewCreated       = "review.created"
	TopicReviewModerated     = "review.moderated"
	TopicNotificationCreated = "notification.created"
	TopicSubscriptionUpdated = "subscription.updated"
	TopicSecurityAlert       = "security.alert"
	TopicDownloadUpdated     = "download.updated"
	TopicDownloadCompleted   = "download.completed"
	TopicChatMessage         = "chat.message"
	TopicChatDeleted         = "chat.deleted"
	TopicLiveUpdated         = "live.updated"
	TopicMaintenanceReport   = "maintenance.report"
	TopicSettingsUpdated     = "settings.updated"
)

func publish(bus ports.EventBus, topic string, v any) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}
