package ports

import "context"

// Collections connues du store.
const (
	CollectionContent        = "content"
	CollectionReviews        = "reviews"
	CollectionNotifications  = "notifications"
	CollectionUsers          = "users"
	CollectionSubscriptions  = "subscriptions"
	CollectionSecurityAlerts = "security_alerts"
	CollectionDownloads      = "downloads"
	CollectionChatMessages   = "chat_messages"
	CollectionLiveStreams    = "live_streams"
	CollectionViewEvents     = "view_events"
	CollectionSettings       = "settings"
)

func Collections() []string {
	return []string{
		CollectionContent, CollectionReviews, CollectionNotifications, CollectionUsers,
		CollectionSubscriptions, CollectionSecurityAlerts, CollectionDownloads,
		CollectionChatMessages, CollectionLiveStreams, CollectionViewEvents, CollectionSettings,
	}
}

// DocumentStore stocke des documents JSON rangés par collection.
// Get renvoie ErrNotFound si le document n'existe pas, Delete aussi.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	List(ctx context.Context, collection string) ([][]byte, error)
	Put(ctx context.Context, collection, id string, body []byte) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
	Close() error
}
