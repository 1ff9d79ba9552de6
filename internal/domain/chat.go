package domain

import "time"

const DefaultChatRoom = "general"

type ChatMessage struct {
	ID        string    `json:"id" validate:"required"`
	Room      string    `json:"room" validate:"required,max=64"`
	UserID    string    `json:"userId" validate:"required"`
	Author    string    `json:"author" validate:"required"`
	Body      string    `json:"body" validate:"required,min=1,max=500"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
}
