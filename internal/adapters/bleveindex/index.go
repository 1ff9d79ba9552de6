// Package bleveindex est l'index de recherche plein texte du catalogue.
package bleveindex

import (
	"context"
	"errors"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/yemenflix/yflix/internal/domain"
)

// Index est un index bleve en mémoire, reconstruit au démarrage.
type Index struct {
	index bleve.Index
}

// document est ce que l'on stocke dans bleve pour chaque contenu.
type document struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	// NameExact aide à remonter les titres exacts.
	NameExact     string   `json:"name_exact"`
	OriginalTitle string   `json:"original_title"`
	Overview      string   `json:"overview"`
	Genres        []string `json:"genres"`
	Cast          []string `json:"cast"`
	Year          int      `json:"year"`
}

func toDocument(c domain.Content) document {
	genres := make([]string, 0, len(c.Genres))
	for _, g := range c.Genres {
		genres = append(genres, strings.ToLower(g))
	}
	return document{
		ID:            c.ID,
		Kind:          string(c.Kind),
		Name:          c.Title,
		NameExact:     strings.ToLower(strings.TrimSpace(c.Title)),
		OriginalTitle: c.OriginalTitle,
		Overview:      c.Overview,
		Genres:        genres,
		Cast:          c.Cast,
		Year:          c.Year,
	}
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// Les titres sont souvent en anglais ou translittérés: analyseur standard.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = false
	text.Index = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	year := bleve.NewNumericFieldMapping()
	year.Store = false

	doc.AddFieldMappingsAt("id", keyword)
	doc.AddFieldMappingsAt("kind", keyword)
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("name_exact", keyword)
	doc.AddFieldMappingsAt("original_title", text)
	doc.AddFieldMappingsAt("overview", text)
	doc.AddFieldMappingsAt("genres", keyword)
	doc.AddFieldMappingsAt("cast", text)
	doc.AddFieldMappingsAt("year", year)

	m.DefaultMapping = doc
	return m
}

func (b *Index) Index(ctx context.Context, c domain.Content) error {
	return b.index.Index(c.ID, toDocument(c))
}

// IndexBatch indexe par lots de 1000.
func (b *Index) IndexBatch(ctx context.Context, items []domain.Content) error {
	batch := b.index.NewBatch()
	for _, c := range items {
		if err := batch.Index(c.ID, toDocument(c)); err != nil {
			return err
		}
		if batch.Size() > 1000 {
			if err := b.index.Batch(batch); err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		return b.index.Batch(batch)
	}
	return nil
}

func (b *Index) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search cherche sur le titre (exact, phrase, préfixe, flou) puis sur le reste.
func (b *Index) Search(ctx context.Context, query string, size int) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if size <= 0 {
		size = 20
	}

	const (
		boostNameExact  = 50.0
		boostNamePhrase = 12.0
		boostNamePrefix = 6.0
		boostNameToken  = 3.0
		boostOther      = 1.0
	)

	q := bleve.NewBooleanQuery()

	exact := bleve.NewTermQuery(query)
	exact.SetField("name_exact")
	exact.SetBoost(boostNameExact)
	q.AddShould(exact)

	phrase := bleve.NewMatchPhraseQuery(query)
	phrase.SetField("name")
	phrase.SetBoost(boostNamePhrase)
	q.AddShould(phrase)

	prefix := bleve.NewPrefixQuery(query)
	prefix.SetField("name")
	prefix.SetBoost(boostNamePrefix)
	q.AddShould(prefix)

	for _, tok := range strings.Fields(query) {
		fuzz := 1
		if len(tok) >= 6 {
			fuzz = 2
		}
		for _, f := range []string{"name", "original_title", "overview", "cast"} {
			boost := boostOther
			if f == "name" || f == "original_title" {
				boost = boostNameToken
			}

			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzz)
			fq.SetBoost(boost)
			q.AddShould(fq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			pq.SetBoost(boost)
			q.AddShould(pq)
		}
		gq := bleve.NewTermQuery(tok)
		gq.SetField("genres")
		gq.SetBoost(boostOther)
		q.AddShould(gq)
	}
	q.SetMinShould(1)

	return b.run(ctx, q, size)
}

// Similar cherche des contenus proches: genres, casting, mots du titre.
func (b *Index) Similar(ctx context.Context, c domain.Content, size int) ([]string, error) {
	if b == nil || b.index == nil || c.ID == "" {
		return nil, errors.New("search index not initialized or invalid content")
	}
	if size <= 0 {
		size = 12
	}

	const (
		boostGenre    = 2.0
		boostCast     = 2.0
		boostTitle    = 1.5
		boostKind     = 1.0
		boostOverview = 0.5
	)

	q := bleve.NewBooleanQuery()

	self := bleve.NewTermQuery(c.ID)
	self.SetField("id")
	q.AddMustNot(self)

	for _, g := range c.Genres {
		if g == "" {
			continue
		}
		tq := bleve.NewTermQuery(strings.ToLower(g))
		tq.SetField("genres")
		tq.SetBoost(boostGenre)
		q.AddShould(tq)
	}
	for _, a := range c.Cast {
		if a == "" {
			continue
		}
		mq := bleve.NewMatchQuery(a)
		mq.SetField("cast")
		mq.SetBoost(boostCast)
		q.AddShould(mq)
	}
	for _, tok := range strings.Fields(c.Title) {
		if len(tok) < 3 {
			continue
		}
		tq := bleve.NewMatchQuery(tok)
		tq.SetField("name")
		tq.SetBoost(boostTitle)
		q.AddShould(tq)
	}
	if c.Kind != "" {
		kq := bleve.NewTermQuery(string(c.Kind))
		kq.SetField("kind")
		kq.SetBoost(boostKind)
		q.AddShould(kq)
	}
	if c.Overview != "" {
		oq := bleve.NewMatchQuery(c.Overview)
		oq.SetField("overview")
		oq.SetBoost(boostOverview)
		q.AddShould(oq)
	}
	q.SetMinShould(1)

	return b.run(ctx, q, size)
}

func (b *Index) run(ctx context.Context, q *query.BooleanQuery, size int) ([]string, error) {
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.SortBy([]string{"-_score", "_id"})
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func (b *Index) Count() (uint64, error) {
	return b.index.DocCount()
}

func (b *Index) Close() error {
	return b.index.Close()
}
