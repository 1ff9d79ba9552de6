package domain

import "time"

type LiveStatus string

const (
	LiveScheduled LiveStatus = "scheduled"
	LiveOnAir     LiveStatus = "live"
	LiveEnded     LiveStatus = "ended"
)

type LiveStream struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	StreamURL   string     `json:"streamUrl" validate:"required,url"`
	Thumbnail   string     `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Status      LiveStatus `json:"status" validate:"required,oneof=scheduled live ended"`
	ViewerCount int        `json:"viewerCount" validate:"min=0"`

	ScheduledAt time.Time `json:"scheduledAt,omitzero"`
	StartedAt   time.Time `json:"startedAt,omitzero"`
	EndedAt     time.Time `json:"endedAt,omitzero"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChatRoom est le salon de chat associé au direct.
func (l LiveStream) ChatRoom() string {
	return "live:" + l.ID
}

func CanTransitionLive(from, to LiveStatus) bool {
	switch from {
	case LiveScheduled:
		return to == LiveOnAir || to == LiveEnded
	case LiveOnAir:
		return to == LiveEnded
	default:
		return false
	}
}
