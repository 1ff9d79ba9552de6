package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) chatRoutes(r chi.Router) {
	r.Get("/chat/{room}/messages", s.handleChatHistory)
	r.With(requireUser).Post("/chat/{room}/messages", s.handlePostChat)
	r.With(requireUser).Delete("/chat/messages/{id}", s.handleDeleteChat)
}

// ?before=<RFC3339> pagine vers le passé.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, &app.CodedError{Code: "invalid_params", Message: "before must be RFC3339"})
			return
		}
		before = t
	}
	items, err := s.svc.Chat.List(r.Context(), chi.URLParam(r, "room"), queryInt(r, "limit", 0), before)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

type chatPostRequest struct {
	Body string `json:"body"`
}

func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	var in chatPostRequest
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	m, err := s.svc.Chat.Post(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "room"), in.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, m)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Chat.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
