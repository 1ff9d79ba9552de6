package domain

import "time"

type ViewEvent struct {
	ID        string    `json:"id" validate:"required"`
	ContentID string    `json:"contentId" validate:"required"`
	UserID    string    `json:"userId,omitempty"`
	At        time.Time `json:"at"`
}
