package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

type SettingsHandler struct {
	settings *app.SettingsService
}

func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Routes: lecture publique (sous-ensemble), écriture admin.
func (h *SettingsHandler) Routes(r chi.Router) {
	r.Get("/settings", h.get)
	r.With(requireAdmin).Put("/settings", h.put)
	// Variante avec slash final (utile selon reverse-proxy / clients).
	r.Get("/settings/", h.get)
	r.With(requireAdmin).Put("/settings/", h.put)
}

func (s *Server) settingsRoutes(r chi.Router) {
	NewSettingsHandler(s.svc.Settings).Routes(r)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if actorFrom(r.Context()).IsAdmin() {
		httpjson.Write(w, http.StatusOK, st)
		return
	}
	httpjson.Write(w, http.StatusOK, st.Public())
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var st domain.Settings
	if err := httpjson.Decode(r, &st); err != nil {
		writeDecodeError(w, err)
		return
	}
	updated, err := h.settings.Put(r.Context(), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
