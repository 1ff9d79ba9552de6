package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) downloadRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/downloads", s.handleListDownloads)
		r.Post("/downloads", s.handleCreateDownload)
		r.Post("/downloads/{id}/progress", s.handleDownloadProgress)
		r.Post("/downloads/{id}/{action}", s.handleDownloadAction)
		r.Delete("/downloads/{id}", s.handleDeleteDownload)
	})
}

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Downloads.ListMine(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (s *Server) handleCreateDownload(w http.ResponseWriter, r *http.Request) {
	var in app.DownloadInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	d, err := s.svc.Downloads.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, d)
}

type progressRequest struct {
	Progress float64 `json:"progress"`
}

func (s *Server) handleDownloadProgress(w http.ResponseWriter, r *http.Request) {
	var in progressRequest
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	d, err := s.svc.Downloads.UpdateProgress(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in.Progress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, d)
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

// Corps optionnel: {"reason": "..."} pour fail.
func (s *Server) handleDownloadAction(w http.ResponseWriter, r *http.Request) {
	var in transitionRequest
	if r.ContentLength > 0 {
		if err := httpjson.Decode(r, &in); err != nil {
			writeDecodeError(w, err)
			return
		}
	}
	d, err := s.svc.Downloads.Transition(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "action"), in.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDownload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Downloads.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
