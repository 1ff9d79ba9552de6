package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yemenflix/yflix/internal/domain"
)

func TestSearchService_RebuildAndSearch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addPublished(t, "Arabia Felix", domain.KindMovie, "documentary")
	e.addPublished(t, "Felix returns", domain.KindSeries, "documentary")
	_, _ = e.content.Add(ctx, domain.Content{Kind: domain.KindMovie, Title: "Felix draft"})

	// index vide: Rebuild relit le store.
	e.index = newFakeIndex()
	e.search = NewSearchService(e.search.logger, e.store, e.index)
	n, err := e.search.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 published documents, got %d", n)
	}

	got, err := e.search.Search(ctx, "felix", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if _, err := e.search.Search(ctx, "  ", 10); CodeOf(err) != "invalid_params" {
		t.Fatalf("empty query should be invalid_params, got %v", err)
	}
}

func TestSearchService_SimilarSkipsStaleIDs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.addPublished(t, "A", domain.KindMovie, "war")
	b := e.addPublished(t, "B", domain.KindMovie, "war")
	e.addPublished(t, "C", domain.KindMovie, "romance")

	// B disparaît du store mais reste dans l'index.
	_ = e.store.Delete(ctx, "content", b.ID)

	got, err := e.search.Similar(ctx, a.ID, 5)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected stale id to be skipped, got %+v", got)
	}
	if _, err := e.search.Similar(ctx, "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != defaultSearchLimit || clampLimit(1000) != maxSearchLimit || clampLimit(7) != 7 {
		t.Fatalf("unexpected clamp")
	}
}
