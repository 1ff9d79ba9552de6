package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) maintenanceRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/maintenance/report", s.handleMaintenanceReport)
		r.Get("/maintenance/history", s.handleMaintenanceHistory)
		r.Post("/maintenance/run", s.handleMaintenanceRun)
	})
}

func (s *Server) handleMaintenanceReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.svc.Maintenance.Report()
	if !ok {
		httpjson.WriteErrorBody(w, http.StatusNotFound, httpjson.ErrorBody{Error: "no maintenance run yet", Code: "not_found"})
		return
	}
	httpjson.Write(w, http.StatusOK, rep)
}

func (s *Server) handleMaintenanceHistory(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]any{
		"running": s.svc.Maintenance.Running(),
		"targets": s.svc.Maintenance.Targets(),
		"items":   s.svc.Maintenance.History(),
	})
}

// Un passage déjà en cours est réutilisé.
func (s *Server) handleMaintenanceRun(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Maintenance.RunNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rep)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Analytics.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, d)
}
