package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/httpjson"
)

type actorKey struct{}

func actorFrom(ctx context.Context) app.Actor {
	a, _ := ctx.Value(actorKey{}).(app.Actor)
	return a
}

func withActor(ctx context.Context, a app.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	// EventSource ne sait pas envoyer d'en-tête.
	if r.URL.Path == "/api/events" {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// authenticate place l'Actor dans le contexte. Sans jeton la requête
// continue en anonyme, un jeton invalide est refusé.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || s.svc.Auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := s.svc.Auth.Authenticate(r.Context(), token)
		if err != nil {
			httpjson.WriteErrorBody(w, http.StatusUnauthorized, httpjson.ErrorBody{Error: "invalid token", Code: "invalid_token"})
			return
		}
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user_id", actor.UserID)
		})
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actorFrom(r.Context()).Anonymous() {
			httpjson.WriteErrorBody(w, http.StatusUnauthorized, httpjson.ErrorBody{Error: "authentication required", Code: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := actorFrom(r.Context())
		if a.Anonymous() {
			httpjson.WriteErrorBody(w, http.StatusUnauthorized, httpjson.ErrorBody{Error: "authentication required", Code: "unauthorized"})
			return
		}
		if !a.IsAdmin() {
			httpjson.WriteErrorBody(w, http.StatusForbidden, httpjson.ErrorBody{Error: "admin only", Code: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maintenanceGate refuse les écritures non admin quand le site est en maintenance.
// La connexion reste ouverte pour que l'admin puisse se loguer.
func (s *Server) maintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if s.svc.Settings == nil || r.URL.Path == "/api/auth/login" || actorFrom(r.Context()).IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		if s.svc.Settings.MaintenanceMode(r.Context()) {
			w.Header().Set("Retry-After", "300")
			httpjson.WriteErrorBody(w, http.StatusServiceUnavailable, httpjson.ErrorBody{Error: "site under maintenance", Code: "maintenance_mode"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
