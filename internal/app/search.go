package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type SearchService struct {
	logger zerolog.Logger
	items  collection[domain.Content]
	index  ports.SearchIndex
}

func NewSearchService(logger zerolog.Logger, store ports.DocumentStore, index ports.SearchIndex) *SearchService {
	return &SearchService{
		logger: logger,
		items:  newCollection(store, ports.CollectionContent, func(c domain.Content) string { return c.ID }),
		index:  index,
	}
}

// Rebuild indexe tous les contenus publiés (au démarrage).
func (s *SearchService) Rebuild(ctx context.Context) (int, error) {
	published, err := s.items.filter(ctx, domain.Content.IsPublished)
	if err != nil {
		return 0, err
	}
	if err := s.index.IndexBatch(ctx, published); err != nil {
		return 0, err
	}
	s.logger.Info().Int("count", len(published)).Msg("search index rebuilt")
	return len(published), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

// Search renvoie les contenus publiés dans l'ordre de pertinence.
func (s *SearchService) Search(ctx context.Context, q string, limit int) ([]domain.Content, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalidParams("missing q")
	}
	ids, err := s.index.Search(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

func (s *SearchService) Similar(ctx context.Context, id string, limit int) ([]domain.Content, error) {
	c, err := s.items.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublished() {
		return nil, ErrNotFound
	}
	ids, err := s.index.Similar(ctx, c, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

// resolve ignore les ids disparus ou dépubliés entre-temps.
func (s *SearchService) resolve(ctx context.Context, ids []string) ([]domain.Content, error) {
	out := make([]domain.Content, 0, len(ids))
	for _, id := range ids {
		c, err := s.items.get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.IsPublished() {
			out = append(out, c)
		}
	}
	return out, nil
}
