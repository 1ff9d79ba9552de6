package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/yemenflix/yflix/internal/buildinfo"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"status": "ok", "store": "ok"}
	status := http.StatusOK
	if s.opts.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Store.Ping(ctx); err != nil {
			out["status"] = "degraded"
			out["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if s.svc.Maintenance != nil {
		if sum, ok := s.svc.Maintenance.LatestSummary(); ok {
			out["maintenance"] = sum.Health
		}
	}
	httpjson.Write(w, status, out)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

// queryInt renvoie def si le paramètre est absent ou invalide.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, key string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get(key)), 64)
	return f
}

// queryBool renvoie nil si le paramètre est absent.
func queryBool(r *http.Request, key string) *bool {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
