package domain

import "time"

type NotificationKind string

const (
	NotificationInfo         NotificationKind = "info"
	NotificationNewContent   NotificationKind = "new_content"
	NotificationSystem       NotificationKind = "system"
	NotificationDownload     NotificationKind = "download"
	NotificationSubscription NotificationKind = "subscription"
	NotificationSecurity     NotificationKind = "security"
)

type Notification struct {
	ID string `json:"id" validate:"required"`
	// UserID vide = diffusion à tous les utilisateurs.
	UserID string           `json:"userId,omitempty"`
	Kind   NotificationKind `json:"kind" validate:"required,oneof=info new_content system download subscription security"`
	Title  string           `json:"title" validate:"required,max=160"`
	Body   string           `json:"body,omitempty" validate:"max=2000"`
	Link   string           `json:"link,omitempty"`

	// Read pour une notification personnelle, ReadBy pour une diffusion.
	Read   bool     `json:"read"`
	ReadBy []string `json:"readBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (n Notification) IsBroadcast() bool {
	return n.UserID == ""
}

func (n Notification) VisibleTo(userID string) bool {
	return n.IsBroadcast() || n.UserID == userID
}

func (n Notification) ReadFor(userID string) bool {
	if !n.IsBroadcast() {
		return n.Read
	}
	for _, id := range n.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// MarkReadFor renvoie false si rien n'a changé.
func (n *Notification) MarkReadFor(userID string) bool {
	if n.ReadFor(userID) {
		return false
	}
	if n.IsBroadcast() {
		n.ReadBy = append(n.ReadBy, userID)
	} else {
		n.Read = true
	}
	return true
}
