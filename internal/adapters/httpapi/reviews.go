package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) reviewRoutes(r chi.Router) {
	r.Get("/content/{id}/reviews", s.handleContentReviews)
	r.With(requireUser).Post("/content/{id}/reviews", s.handleCreateReview)
	// L'auteur peut supprimer son avis, le service vérifie.
	r.With(requireUser).Delete("/reviews/{id}", s.handleDeleteReview)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/reviews", s.handleListReviews)
		r.Post("/reviews/{id}/moderate", s.handleModerateReview)
	})
}

func (s *Server) handleContentReviews(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Reviews.ListForContent(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var in app.ReviewInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	rv, err := s.svc.Reviews.Create(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, rv)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Reviews.List(r.Context(), domain.ReviewStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

type reviewModerationRequest struct {
	Status domain.ReviewStatus `json:"status"`
}

func (s *Server) handleModerateReview(w http.ResponseWriter, r *http.Request) {
	var in reviewModerationRequest
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	rv, err := s.svc.Reviews.Moderate(r.Context(), chi.URLParam(r, "id"), in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rv)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reviews.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
