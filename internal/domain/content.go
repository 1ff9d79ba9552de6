package domain

import (
	"strings"
	"time"
)

type ContentKind string

const (
	KindMovie  ContentKind = "movie"
	KindSeries ContentKind = "series"
	KindShow   ContentKind = "show"
	KindMix    ContentKind = "mix"
)

var ContentKinds = []ContentKind{KindMovie, KindSeries, KindShow, KindMix}

func (k ContentKind) Valid() bool {
	for _, known := range ContentKinds {
		if k == known {
			return true
		}
	}
	return false
}

type Quality string

const (
	QualitySD  Quality = "SD"
	QualityHD  Quality = "HD"
	QualityFHD Quality = "FHD"
	Quality4K  Quality = "4K"
)

// Rank ordonne les qualités (SD < HD < FHD < 4K). 0 = inconnue.
func (q Quality) Rank() int {
	switch Quality(strings.ToUpper(string(q))) {
	case QualitySD:
		return 1
	case QualityHD:
		return 2
	case QualityFHD:
		return 3
	case Quality4K:
		return 4
	default:
		return 0
	}
}

type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPending   ContentStatus = "pending"
	ContentPublished ContentStatus = "published"
	ContentRejected  ContentStatus = "rejected"
)

func (s ContentStatus) Valid() bool {
	switch s {
	case ContentDraft, ContentPending, ContentPublished, ContentRejected:
		return true
	}
	return false
}

type ModerationAction string

const (
	ModerationApprove   ModerationAction = "approve"
	ModerationReject    ModerationAction = "reject"
	ModerationUnpublish ModerationAction = "unpublish"
	ModerationSubmit    ModerationAction = "submit"
)

// NextContentStatus applique une action de modération.
// draft -> pending (submit), pending -> published|rejected,
// published -> pending (unpublish), rejected -> pending (submit).
func NextContentStatus(from ContentStatus, action ModerationAction) (ContentStatus, error) {
	switch action {
	case ModerationSubmit:
		if from == ContentDraft || from == ContentRejected {
			return ContentPending, nil
		}
	case ModerationApprove:
		if from == ContentPending {
			return ContentPublished, nil
		}
	case ModerationReject:
		if from == ContentPending {
			return ContentRejected, nil
		}
	case ModerationUnpublish:
		if from == ContentPublished {
			return ContentPending, nil
		}
	}
	return from, ErrInvalidTransition
}

type Content struct {
	ID            string      `json:"id" validate:"required"`
	Kind          ContentKind `json:"kind" validate:"required,oneof=movie series show mix"`
	Title         string      `json:"title" validate:"required,max=200"`
	OriginalTitle string      `json:"originalTitle,omitempty" validate:"max=200"`
	Overview      string      `json:"overview,omitempty" validate:"max=5000"`
	Poster        string      `json:"poster,omitempty" validate:"omitempty,url"`
	Backdrop      string      `json:"backdrop,omitempty" validate:"omitempty,url"`
	TrailerURL    string      `json:"trailerUrl,omitempty" validate:"omitempty,url"`
	StreamURL     string      `json:"streamUrl,omitempty" validate:"omitempty,url"`

	Year     int      `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Rating   float64  `json:"rating" validate:"min=0,max=10"`
	Genres   []string `json:"genres,omitempty" validate:"dive,required,max=40"`
	Cast     []string `json:"cast,omitempty" validate:"dive,required,max=80"`
	Country  string   `json:"country,omitempty"`
	Language string   `json:"language,omitempty"`
	Quality  Quality  `json:"quality,omitempty" validate:"omitempty,oneof=SD HD FHD 4K"`
	Duration int      `json:"duration,omitempty" validate:"min=0"`

	// Séries / émissions.
	Seasons  int `json:"seasons,omitempty" validate:"min=0"`
	Episodes int `json:"episodes,omitempty" validate:"min=0"`

	// Mix: liste ordonnée d'IDs de contenus.
	Items []string `json:"items,omitempty"`

	Status         ContentStatus `json:"status" validate:"required,oneof=draft pending published rejected"`
	ModerationNote string        `json:"moderationNote,omitempty"`
	Featured       bool          `json:"featured"`

	ViewCount   int64   `json:"viewCount"`
	UserRating  float64 `json:"userRating"`
	ReviewCount int     `json:"reviewCount"`

	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

func (c Content) IsPublished() bool {
	return c.Status == ContentPublished
}

// HasGenre compare sans tenir compte de la casse.
func (c Content) HasGenre(genre string) bool {
	for _, g := range c.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}
