package bleveindex

import (
	"context"
	"testing"

	"github.com/yemenflix/yflix/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	items := []domain.Content{
		{ID: "m1", Kind: domain.KindMovie, Title: "The Dark Knight", Genres: []string{"Action", "Crime"}, Cast: []string{"Christian Bale"}, Overview: "Batman faces the Joker."},
		{ID: "m2", Kind: domain.KindMovie, Title: "Batman Begins", Genres: []string{"Action"}, Cast: []string{"Christian Bale"}, Overview: "The origin of Batman."},
		{ID: "s1", Kind: domain.KindSeries, Title: "Breaking Bad", Genres: []string{"Drama", "Crime"}, Cast: []string{"Bryan Cranston"}, Overview: "A chemistry teacher turns to crime."},
		{ID: "m3", Kind: domain.KindMovie, Title: "Amelie", Genres: []string{"Romance"}, Overview: "A shy waitress in Paris."},
	}
	if err := idx.IndexBatch(context.Background(), items); err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	return idx
}

func TestIndex_SearchExactTitleFirst(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.Search(context.Background(), "breaking bad", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) == 0 || ids[0] != "s1" {
		t.Fatalf("expected s1 first, got %v", ids)
	}
}

func TestIndex_SearchPrefixAndFuzzy(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.Search(context.Background(), "batm", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !contains(ids, "m2") {
		t.Fatalf("prefix search should find m2, got %v", ids)
	}

	ids, err = idx.Search(context.Background(), "amelei", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !contains(ids, "m3") {
		t.Fatalf("fuzzy search should find m3, got %v", ids)
	}
}

func TestIndex_SearchEmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	ids, err := idx.Search(context.Background(), "   ", 10)
	if err != nil || ids != nil {
		t.Fatalf("expected nil result, got %v (%v)", ids, err)
	}
}

func TestIndex_SimilarExcludesSelf(t *testing.T) {
	idx := newTestIndex(t)
	ref := domain.Content{ID: "m1", Kind: domain.KindMovie, Title: "The Dark Knight", Genres: []string{"Action", "Crime"}, Cast: []string{"Christian Bale"}}

	ids, err := idx.Similar(context.Background(), ref, 10)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if contains(ids, "m1") {
		t.Fatalf("reference item must be excluded, got %v", ids)
	}
	if len(ids) == 0 || ids[0] != "m2" {
		t.Fatalf("expected m2 as most similar, got %v", ids)
	}
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, _ := idx.Search(context.Background(), "breaking bad", 10)
	if contains(ids, "s1") {
		t.Fatalf("deleted doc still found")
	}
	n, err := idx.Count()
	if err != nil || n != 3 {
		t.Fatalf("expected 3 docs, got %d (%v)", n, err)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
