package domain

import "time"

type DownloadState string

const (
	DownloadQueued      DownloadState = "queued"
	DownloadDownloading DownloadState = "downloading"
	DownloadPaused      DownloadState = "paused"
	DownloadCompleted   DownloadState = "completed"
	DownloadFailed      DownloadState = "failed"
	DownloadCanceled    DownloadState = "canceled"
)

func (s DownloadState) IsTerminal() bool {
	return s == DownloadCompleted || s == DownloadFailed || s == DownloadCanceled
}

type DownloadItem struct {
	ID        string        `json:"id" validate:"required"`
	UserID    string        `json:"userId" validate:"required"`
	ContentID string        `json:"contentId" validate:"required"`
	Title     string        `json:"title" validate:"required"`
	Quality   Quality       `json:"quality" validate:"required,oneof=SD HD FHD 4K"`
	State     DownloadState `json:"state" validate:"required,oneof=queued downloading paused completed failed canceled"`
	Progress  float64       `json:"progress" validate:"min=0,max=1"`
	SizeBytes int64         `json:"sizeBytes" validate:"min=0"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func CanTransition(from, to DownloadState) bool {
	if from == to {
		return true
	}
	switch from {
	case DownloadQueued:
		return to == DownloadDownloading || to == DownloadCanceled || to == DownloadFailed
	case DownloadDownloading:
		return to == DownloadPaused || to == DownloadCompleted || to == DownloadCanceled || to == DownloadFailed
	case DownloadPaused:
		return to == DownloadDownloading || to == DownloadCanceled || to == DownloadFailed
	case DownloadCompleted, DownloadCanceled, DownloadFailed:
		return false
	default:
		return false
	}
}
