package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) liveRoutes(r chi.Router) {
	r.Get("/live", s.handleListLive)
	r.Get("/live/{id}", s.handleGetLive)
	r.Post("/live/{id}/join", s.liveAction(s.svc.Live.Join))
	r.Post("/live/{id}/leave", s.liveAction(s.svc.Live.Leave))

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/live", s.handleCreateLive)
		r.Put("/live/{id}", s.handleUpdateLive)
		r.Delete("/live/{id}", s.handleDeleteLive)
		r.Post("/live/{id}/start", s.liveAction(s.svc.Live.Start))
		r.Post("/live/{id}/end", s.liveAction(s.svc.Live.End))
	})
}

func (s *Server) handleListLive(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Live.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (s *Server) handleGetLive(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Live.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, l)
}

func (s *Server) handleCreateLive(w http.ResponseWriter, r *http.Request) {
	var in app.LiveInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	l, err := s.svc.Live.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, l)
}

func (s *Server) handleUpdateLive(w http.ResponseWriter, r *http.Request) {
	var in app.LiveInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	l, err := s.svc.Live.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLive(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Live.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) liveAction(fn func(ctx context.Context, id string) (domain.LiveStream, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpjson.Write(w, http.StatusOK, l)
	}
}
