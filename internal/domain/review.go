package domain

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type Review struct {
	ID        string       `json:"id" validate:"required"`
	ContentID string       `json:"contentId" validate:"required"`
	UserID    string       `json:"userId" validate:"required"`
	Author    string       `json:"author" validate:"required"`
	Rating    int          `json:"rating" validate:"min=1,max=10"`
	Comment   string       `json:"comment,omitempty" validate:"max=2000"`
	Status    ReviewStatus `json:"status" validate:"required,oneof=pending approved rejected"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
