package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) notificationRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/read-all", s.handleReadAll)
		r.Post("/notifications/{id}/read", s.handleMarkRead)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/notifications", s.handleCreateNotification)
		r.Delete("/notifications/{id}", s.handleDeleteNotification)
	})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := queryBool(r, "unread")
	list, err := s.svc.Notifications.ListFor(r.Context(), actorFrom(r.Context()).UserID, unread != nil && *unread, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notifications.MarkRead(r.Context(), actorFrom(r.Context()).UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Notifications.MarkAllRead(r.Context(), actorFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int{"updated": n})
}

// Sans userId la notification est diffusée à tous.
func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var in app.NotificationInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	n, err := s.svc.Notifications.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notifications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
