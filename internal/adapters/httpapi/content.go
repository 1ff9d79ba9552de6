package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) contentRoutes(r chi.Router) {
	r.Get("/content", s.handleListContent)
	r.Get("/series", s.handleListSeries)
	r.Get("/content/{id}", s.handleGetContent)
	r.Get("/content/{id}/similar", s.handleSimilar)
	r.Post("/content/{id}/view", s.handleView)
	if s.svc.Search != nil {
		r.Get("/search", s.handleSearch)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/content/stats", s.handleContentStats)
		r.Post("/content", s.handleCreateContent)
		r.Put("/content/{id}", s.handleUpdateContent)
		r.Delete("/content/{id}", s.handleDeleteContent)
		r.Post("/content/{id}/moderate", s.handleModerateContent)
	})
}

// contentFilter lit les paramètres de liste. Sans pageSize, la taille
// par défaut vient des réglages du site.
func (s *Server) contentFilter(r *http.Request) app.ContentFilter {
	q := r.URL.Query()
	f := app.ContentFilter{
		Kind:      domain.ContentKind(strings.TrimSpace(q.Get("kind"))),
		Genre:     strings.TrimSpace(q.Get("genre")),
		Year:      queryInt(r, "year", 0),
		MinRating: queryFloat(r, "minRating"),
		Quality:   domain.Quality(strings.TrimSpace(q.Get("quality"))),
		Status:    domain.ContentStatus(strings.TrimSpace(q.Get("status"))),
		Featured:  queryBool(r, "featured"),
		Query:     strings.TrimSpace(q.Get("q")),
		Sort:      app.ContentSort(strings.TrimSpace(q.Get("sort"))),
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "pageSize", 0),
	}
	if f.PageSize == 0 && s.svc.Settings != nil {
		if st, err := s.svc.Settings.Get(r.Context()); err == nil {
			f.PageSize = st.DefaultPageSize
		}
	}
	return f
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	s.listContent(w, r, s.contentFilter(r))
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	f := s.contentFilter(r)
	f.Kind = domain.KindSeries
	s.listContent(w, r, f)
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request, f app.ContentFilter) {
	page, err := s.svc.Content.FilterPublic(r.Context(), f, actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, page)
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Content.GetPublic(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, c)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.svc.Search == nil {
		httpjson.Write(w, http.StatusOK, []domain.Content{})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Content.GetPublic(r.Context(), id, actorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.svc.Search.Similar(r.Context(), id, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if s.svc.Analytics == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	c, err := s.svc.Analytics.RecordView(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"id": c.ID, "viewCount": c.ViewCount})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Search.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (s *Server) handleContentStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Content.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var in domain.Content
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	c, err := s.svc.Content.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var patch app.ContentPatch
	if err := httpjson.Decode(r, &patch); err != nil {
		writeDecodeError(w, err)
		return
	}
	c, err := s.svc.Content.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, c)
}

func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Content.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moderateRequest struct {
	Action domain.ModerationAction `json:"action"`
	Note   string                  `json:"note"`
}

func (s *Server) handleModerateContent(w http.ResponseWriter, r *http.Request) {
	var in moderateRequest
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	c, err := s.svc.Content.Moderate(r.Context(), chi.URLParam(r, "id"), in.Action, in.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, c)
}
