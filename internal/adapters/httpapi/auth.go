package httpapi

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) authRoutes(r chi.Router) {
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(requireUser).Get("/auth/me", s.handleMe)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in app.RegisterInput
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	sess, err := s.svc.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, sess)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpjson.Decode(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	sess, err := s.svc.Auth.Login(r.Context(), in.Username, in.Password, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.svc.Auth.Me(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, me)
}

// clientIP lit RemoteAddr, déjà réécrit par middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
