package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

type ReviewService struct {
	logger  zerolog.Logger
	items   collection[domain.Review]
	content *ContentService
	bus     ports.EventBus
	now     func() time.Time

	// garantit un avis par utilisateur et par contenu.
	mu sync.Mutex
}

func NewReviewService(logger zerolog.Logger, store ports.DocumentStore, content *ContentService, bus ports.EventBus) *ReviewService {
	return &ReviewService{
		logger:  logger,
		items:   newCollection(store, ports.CollectionReviews, func(r domain.Review) string { return r.ID }),
		content: content,
		bus:     bus,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *ReviewService) Create(ctx context.Context, actor Actor, contentID string, in ReviewInput) (domain.Review, error) {
	if actor.Anonymous() {
		return domain.Review{}, ErrUnauthorized
	}
	c, err := s.content.Get(ctx, contentID)
	if err != nil {
		return domain.Review{}, err
	}
	if !c.IsPublished() {
		return domain.Review{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.items.filter(ctx, func(r domain.Review) bool {
		return r.ContentID == contentID && r.UserID == actor.UserID
	})
	if err != nil {
		return domain.Review{}, err
	}
	if len(existing) > 0 {
		return domain.Review{}, fmt.Errorf("%w: already reviewed", ErrConflict)
	}

	now := s.now()
	r := domain.Review{
		ID:        xid.New().String(),
		ContentID: contentID,
		UserID:    actor.UserID,
		Author:    actor.Username,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		Status:    domain.ReviewPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validate.Struct(r); err != nil {
		return domain.Review{}, err
	}
	if err := s.items.put(ctx, r); err != nil {
		return domain.Review{}, err
	}
	publish(s.bus, TopicReviewCreated, r)
	return r, nil
}

// ListForContent: les visiteurs ne voient que les avis approuvés.
func (s *ReviewService) ListForContent(ctx context.Context, contentID string, actor Actor) ([]domain.Review, error) {
	out, err := s.items.filter(ctx, func(r domain.Review) bool {
		if r.ContentID != contentID {
			return false
		}
		return r.Status == domain.ReviewApproved || actor.IsAdmin() || (r.UserID == actor.UserID && !actor.Anonymous())
	})
	if err != nil {
		return nil, err
	}
	sortReviews(out)
	return out, nil
}

// List (admin) filtre par statut, "" = tous.
func (s *ReviewService) List(ctx context.Context, status domain.ReviewStatus) ([]domain.Review, error) {
	out, err := s.items.filter(ctx, func(r domain.Review) bool { return status == "" || r.Status == status })
	if err != nil {
		return nil, err
	}
	sortReviews(out)
	return out, nil
}

func sortReviews(items []domain.Review) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
}

func (s *ReviewService) Moderate(ctx context.Context, id string, status domain.ReviewStatus) (domain.Review, error) {
	switch status {
	case domain.ReviewApproved, domain.ReviewRejected, domain.ReviewPending:
	default:
		return domain.Review{}, invalidParams("unknown review status " + string(status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.items.get(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	r.Status = status
	r.UpdatedAt = s.now()
	if err := s.items.put(ctx, r); err != nil {
		return domain.Review{}, err
	}
	if err := s.recompute(ctx, r.ContentID); err != nil {
		return domain.Review{}, err
	}
	publish(s.bus, TopicReviewModerated, r)
	return r, nil
}

// Delete: l'auteur ou un admin.
func (s *ReviewService) Delete(ctx context.Context, id string, actor Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.items.get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && r.UserID != actor.UserID {
		return ErrForbidden
	}
	if err := s.items.delete(ctx, id); err != nil {
		return err
	}
	return s.recompute(ctx, r.ContentID)
}

// recompute met à jour UserRating (moyenne arrondie à 0.1) et ReviewCount
// à partir des avis approuvés.
func (s *ReviewService) recompute(ctx context.Context, contentID string) error {
	approved, err := s.items.filter(ctx, func(r domain.Review) bool {
		return r.ContentID == contentID && r.Status == domain.ReviewApproved
	})
	if err != nil {
		return err
	}
	mean := 0.0
	if len(approved) > 0 {
		sum := 0
		for _, r := range approved {
			sum += r.Rating
		}
		mean = math.Round(float64(sum)/float64(len(approved))*10) / 10
	}
	_, err = s.content.update(ctx, contentID, func(c *domain.Content) error {
		c.UserRating = mean
		c.ReviewCount = len(approved)
		return nil
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
