package ports

import (
	"context"

	"github.com/yemenflix/yflix/internal/domain"
)

// SearchIndex indexe les contenus publiés.
type SearchIndex interface {
	Index(ctx context.Context, c domain.Content) error
	IndexBatch(ctx context.Context, items []domain.Content) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, size int) ([]string, error)
	Similar(ctx context.Context, c domain.Content, size int) ([]string, error)
	Close() error
}
