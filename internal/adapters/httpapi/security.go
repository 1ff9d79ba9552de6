package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) securityRoutes(r chi.Router) {
	// Un utilisateur connecté peut signaler un contenu.
	r.With(requireUser).Post("/security/alerts", s.handleCreateAlert)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/security/alerts", s.handleListAlerts)
		r.Post("/security/alerts/{id}/resolve", s.handleResolveAlert)
		r.Delete("/security/alerts/{id}", s.handleDeleteAlert)
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := app.AlertFilter{
		Resolved: queryBool(r, "resolved"),
		Severity: domain.Severity(q.Get("severity")),
		Type:     domain.AlertType(q.Get("type")),
	}
	items, err := s.svc.Security.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, items)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var in app.AlertInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	actor := actorFrom(r.Context())
	if !actor.IsAdmin() {
		in.Type = domain.AlertContentReport
		in.Severity = domain.SeverityLow
		in.UserID = actor.UserID
		in.SourceIP = clientIP(r)
	}
	a, err := s.svc.Security.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, a)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Security.Resolve(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Security.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
