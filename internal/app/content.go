package app

import (
	"context"
	"errors"
	"fmt"
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

// ContentObserver reçoit les compteurs du catalogue (jauge Prometheus).
type ContentObserver interface {
	SetContentCounts(counts map[domain.ContentKind]map[domain.ContentStatus]int)
}

type ContentService struct {
	logger   zerolog.Logger
	items    collection[domain.Content]
	reviews  collection[domain.Review]
	index    ports.SearchIndex
	bus      ports.EventBus
	notifier *NotificationService
	observer ContentObserver
	now      func() time.Time

	mu sync.Mutex
}

func NewContentService(logger zerolog.Logger, store ports.DocumentStore, index ports.SearchIndex, bus ports.EventBus, notifier *NotificationService) *ContentService {
	return &ContentService{
		logger:   logger,
		items:    newCollection(store, ports.CollectionContent, func(c domain.Content) string { return c.ID }),
		reviews:  newCollection(store, ports.CollectionReviews, func(r domain.Review) string { return r.ID }),
		index:    index,
		bus:      bus,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ContentService) SetObserver(o ContentObserver) {
	s.observer = o
}

// ContentPatch: seuls les champs non nil sont appliqués.
type ContentPatch struct {
	Kind          *domain.ContentKind `json:"kind"`
	Title         *string             `json:"title"`
	OriginalTitle *string             `json:"originalTitle"`
	Overview      *string             `json:"overview"`
	Poster        *string             `json:"poster"`
	Backdrop      *string             `json:"backdrop"`
	TrailerURL    *string             `json:"trailerUrl"`
	StreamURL     *string             `json:"streamUrl"`
	Year          *int                `json:"year"`
	Rating        *float64            `json:"rating"`
	Genres        *[]string           `json:"genres"`
	Cast          *[]string           `json:"cast"`
	Country       *string             `json:"country"`
	Language      *string             `json:"language"`
	Quality       *domain.Quality     `json:"quality"`
	Duration      *int                `json:"duration"`
	Seasons       *int                `json:"seasons"`
	Episodes      *int                `json:"episodes"`
	Items         *[]string           `json:"items"`
	Featured      *bool               `json:"featured"`
}

func (p ContentPatch) apply(c *domain.Content) {
	setIf(&c.Kind, p.Kind)
	setIf(&c.Title, p.Title)
	setIf(&c.OriginalTitle, p.OriginalTitle)
	setIf(&c.Overview, p.Overview)
	setIf(&c.Poster, p.Poster)
	setIf(&c.Backdrop, p.Backdrop)
	setIf(&c.TrailerURL, p.TrailerURL)
	setIf(&c.StreamURL, p.StreamURL)
	setIf(&c.Year, p.Year)
	setIf(&c.Rating, p.Rating)
	setIf(&c.Genres, p.Genres)
	setIf(&c.Cast, p.Cast)
	setIf(&c.Country, p.Country)
	setIf(&c.Language, p.Language)
	setIf(&c.Quality, p.Quality)
	setIf(&c.Duration, p.Duration)
	setIf(&c.Seasons, p.Seasons)
	setIf(&c.Episodes, p.Episodes)
	setIf(&c.Items, p.Items)
	setIf(&c.Featured, p.Featured)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func normalizeContent(c *domain.Content) {
	c.Title = strings.TrimSpace(c.Title)
	c.OriginalTitle = strings.TrimSpace(c.OriginalTitle)
	c.Overview = strings.TrimSpace(c.Overview)
	c.Kind = domain.ContentKind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	if c.Quality != "" {
		c.Quality = domain.Quality(strings.ToUpper(strings.TrimSpace(string(c.Quality))))
	}
	c.Genres = trimAll(c.Genres)
	c.Cast = trimAll(c.Cast)
	c.Items = trimAll(c.Items)
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// checkContent complète la validation par tags avec les règles inter-documents.
func (s *ContentService) checkContent(ctx context.Context, c domain.Content) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kind != domain.KindMix {
		if len(c.Items) > 0 {
			return validate.Field("items", "only allowed for kind mix")
		}
		return nil
	}
	for i, id := range c.Items {
		if id == c.ID {
			return validate.Field(fmt.Sprintf("items[%d]", i), "a mix cannot contain itself")
		}
		if _, err := s.items.get(ctx, id); errors.Is(err, ErrNotFound) {
			return validate.Field(fmt.Sprintf("items[%d]", i), "unknown content "+id)
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Add crée un contenu. Statut par défaut: pending.
func (s *ContentService) Add(ctx context.Context, in domain.Content) (domain.Content, error) {
	c := in
	c.ID = xid.New().String()
	normalizeContent(&c)
	if c.Status == "" {
		c.Status = domain.ContentPending
	}
	c.ViewCount, c.UserRating, c.ReviewCount = 0, 0, 0
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	c.PublishedAt = time.Time{}
	if c.Status == domain.ContentPublished {
		c.PublishedAt = now
	}
	if err := s.checkContent(ctx, c); err != nil {
		return domain.Content{}, err
	}
	if err := s.items.put(ctx, c); err != nil {
		return domain.Content{}, err
	}
	s.syncIndex(ctx, c)
	s.refreshCounts(ctx)
	publish(s.bus, TopicContentCreated, c)
	return c, nil
}

// Update applique un patch partiel. Un contenu rejeté est resoumis (pending).
func (s *ContentService) Update(ctx context.Context, id string, patch ContentPatch) (domain.Content, error) {
	c, err := s.update(ctx, id, func(c *domain.Content) error {
		patch.apply(c)
		normalizeContent(c)
		if c.Status == domain.ContentRejected {
			if next, err := domain.NextContentStatus(c.Status, domain.ModerationSubmit); err == nil {
				c.Status = next
			}
		}
		c.UpdatedAt = s.now()
		return s.checkContent(ctx, *c)
	})
	if err != nil {
		return domain.Content{}, err
	}
	s.syncIndex(ctx, c)
	s.refreshCounts(ctx)
	publish(s.bus, TopicContentUpdated, c)
	return c, nil
}

// Delete retire le contenu, ses avis et son document de recherche.
func (s *ContentService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.items.delete(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	reviews, err := s.reviews.filter(ctx, func(r domain.Review) bool { return r.ContentID == id })
	if err != nil {
		s.logger.Warn().Err(err).Str("content_id", id).Msg("list reviews of deleted content failed")
	}
	for _, r := range reviews {
		if err := s.reviews.delete(ctx, r.ID); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("review_id", r.ID).Msg("delete review failed")
		}
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("content_id", id).Msg("search delete failed")
		}
	}
	s.refreshCounts(ctx)
	publish(s.bus, TopicContentDeleted, map[string]string{"id": id})
	return nil
}

// Get renvoie le contenu quel que soit son statut.
func (s *ContentService) Get(ctx context.Context, id string) (domain.Content, error) {
	return s.items.get(ctx, id)
}

// GetPublic masque les contenus non publiés aux non-admins.
func (s *ContentService) GetPublic(ctx context.Context, id string, actor Actor) (domain.Content, error) {
	c, err := s.items.get(ctx, id)
	if err != nil {
		return domain.Content{}, err
	}
	if !c.IsPublished() && !actor.IsAdmin() {
		return domain.Content{}, ErrNotFound
	}
	return c, nil
}

type ContentSort string

const (
	SortNewest ContentSort = "newest"
	SortOldest ContentSort = "oldest"
	SortRating ContentSort = "rating"
	SortViews  ContentSort = "views"
	SortTitle  ContentSort = "title"
)

type ContentFilter struct {
	Kind      domain.ContentKind
	Genre     string
	Year      int
	MinRating float64
	Quality   domain.Quality
	Status    domain.ContentStatus
	Featured  *bool
	Query     string
	Sort      ContentSort
	Page      int
	PageSize  int
}

func (f ContentFilter) match(c domain.Content) bool {
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if f.Genre != "" && !c.HasGenre(f.Genre) {
		return false
	}
	if f.Year != 0 && c.Year != f.Year {
		return false
	}
	if f.MinRating > 0 && c.Rating < f.MinRating {
		return false
	}
	if f.Quality != "" && !strings.EqualFold(string(c.Quality), string(f.Quality)) {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Featured != nil && c.Featured != *f.Featured {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.OriginalTitle), q) {
			return false
		}
	}
	return true
}

func sortContent(items []domain.Content, by ContentSort) {
	var less func(a, b domain.Content) bool
	switch by {
	case SortOldest:
		less = func(a, b domain.Content) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortRating:
		less = func(a, b domain.Content) bool { return a.Rating > b.Rating }
	case SortViews:
		less = func(a, b domain.Content) bool { return a.ViewCount > b.ViewCount }
	case SortTitle:
		less = func(a, b domain.Content) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		less = func(a, b domain.Content) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	// ordre stable: l'id (xid, croissant dans le temps) départage.
	sort.SliceStable(items, func(i, j int) bool {
		if less(items[i], items[j]) {
			return true
		}
		if less(items[j], items[i]) {
			return false
		}
		return items[i].ID < items[j].ID
	})
}

func (s *ContentService) Filter(ctx context.Context, f ContentFilter) (Page[domain.Content], error) {
	switch f.Sort {
	case "", SortNewest, SortOldest, SortRating, SortViews, SortTitle:
	default:
		return Page[domain.Content]{}, invalidParams("unknown sort " + string(f.Sort))
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return Page[domain.Content]{}, invalidParams("unknown kind " + string(f.Kind))
	}
	if f.Status != "" && !f.Status.Valid() {
		return Page[domain.Content]{}, invalidParams("unknown status " + string(f.Status))
	}
	items, err := s.items.filter(ctx, f.match)
	if err != nil {
		return Page[domain.Content]{}, err
	}
	sortContent(items, f.Sort)
	return paginate(items, f.Page, f.PageSize), nil
}

// FilterPublic force le statut published pour les visiteurs.
func (s *ContentService) FilterPublic(ctx context.Context, f ContentFilter, actor Actor) (Page[domain.Content], error) {
	if !actor.IsAdmin() {
		f.Status = domain.ContentPublished
	}
	return s.Filter(ctx, f)
}

func (s *ContentService) Moderate(ctx context.Context, id string, action domain.ModerationAction, note string) (domain.Content, error) {
	var next domain.ContentStatus
	c, err := s.update(ctx, id, func(c *domain.Content) error {
		var err error
		next, err = domain.NextContentStatus(c.Status, action)
		if err != nil {
			return invalidState(fmt.Sprintf("cannot %s content in status %s", action, c.Status))
		}
		now := s.now()
		c.Status = next
		c.ModerationNote = strings.TrimSpace(note)
		c.UpdatedAt = now
		if next == domain.ContentPublished {
			c.PublishedAt = now
		}
		return nil
	})
	if err != nil {
		return domain.Content{}, err
	}
	s.syncIndex(ctx, c)
	s.refreshCounts(ctx)
	publish(s.bus, TopicContentModerated, c)

	if next == domain.ContentPublished && s.notifier != nil {
		title := "New on YEMEN FLIX: " + c.Title
		if _, err := s.notifier.Broadcast(ctx, domain.NotificationNewContent, title, c.Overview, "/content/"+c.ID); err != nil {
			s.logger.Warn().Err(err).Str("content_id", c.ID).Msg("new content notification failed")
		}
	}
	return c, nil
}

type ContentStats struct {
	Total    int                          `json:"total"`
	ByKind   map[domain.ContentKind]int   `json:"byKind"`
	ByStatus map[domain.ContentStatus]int `json:"byStatus"`
	Views    int64                        `json:"views"`
}

func (s *ContentService) Stats(ctx context.Context) (ContentStats, error) {
	all, err := s.items.list(ctx)
	if err != nil {
		return ContentStats{}, err
	}
	out := ContentStats{ByKind: map[domain.ContentKind]int{}, ByStatus: map[domain.ContentStatus]int{}}
	for _, c := range all {
		out.Total++
		out.ByKind[c.Kind]++
		out.ByStatus[c.Status]++
		out.Views += c.ViewCount
	}
	return out, nil
}

// update applique fn au contenu id sous s.mu. Toute écriture d'un contenu
// existant passe par ici, sinon les compteurs (vues, note) sont écrasés.
// Une erreur de fn annule l'écriture.
func (s *ContentService) update(ctx context.Context, id string, fn func(*domain.Content) error) (domain.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.items.get(ctx, id)
	if err != nil {
		return domain.Content{}, err
	}
	if err := fn(&c); err != nil {
		return domain.Content{}, err
	}
	if err := s.items.put(ctx, c); err != nil {
		return domain.Content{}, err
	}
	return c, nil
}

// syncIndex: seuls les contenus publiés sont cherchables.
func (s *ContentService) syncIndex(ctx context.Context, c domain.Content) {
	if s.index == nil {
		return
	}
	var err error
	if c.IsPublished() {
		err = s.index.Index(ctx, c)
	} else {
		err = s.index.Delete(ctx, c.ID)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("content_id", c.ID).Msg("search index sync failed")
	}
}

func (s *ContentService) refreshCounts(ctx context.Context) {
	if s.observer == nil {
		return
	}
	all, err := s.items.list(ctx)
	if err != nil {
		return
	}
	counts := map[domain.ContentKind]map[domain.ContentStatus]int{}
	for _, c := range all {
		if counts[c.Kind] == nil {
			counts[c.Kind] = map[domain.ContentStatus]int{}
		}
		counts[c.Kind][c.Status]++
	}
	s.observer.SetContentCounts(counts)
}

// RefreshMetrics recalcule la jauge (au démarrage).
func (s *ContentService) RefreshMetrics(ctx context.Context) {
	s.refreshCounts(ctx)
}
