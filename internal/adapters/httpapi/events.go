package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

const sseHeartbeat = 15 * time.Second

// streamFilter décide quels événements du bus partent vers un client SSE.
type streamFilter struct {
	actor  app.Actor
	topics []string
	room   string
}

func newStreamFilter(r *http.Request) streamFilter {
	f := streamFilter{actor: actorFrom(r.Context()), room: strings.TrimSpace(r.URL.Query().Get("room"))}
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.topics = append(f.topics, t)
		}
	}
	return f
}

// Champs lus dans les payloads pour le filtrage.
type eventScope struct {
	UserID string `json:"userId"`
	Room   string `json:"room"`
	Status string `json:"status"`
}

func (f streamFilter) allow(evt ports.Event) bool {
	if len(f.topics) > 0 {
		ok := false
		for _, t := range f.topics {
			// "chat" couvre chat.message et chat.deleted.
			if evt.Topic == t || strings.HasPrefix(evt.Topic, t+".") {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	switch evt.Topic {
	case app.TopicSecurityAlert, app.TopicMaintenanceReport:
		return f.actor.IsAdmin()
	}

	var scope eventScope
	_ = json.Unmarshal(evt.Payload, &scope)

	switch {
	case evt.Topic == app.TopicNotificationCreated:
		return scope.UserID == "" || scope.UserID == f.actor.UserID || f.actor.IsAdmin()
	case strings.HasPrefix(evt.Topic, "download."), evt.Topic == app.TopicSubscriptionUpdated:
		return scope.UserID != "" && scope.UserID == f.actor.UserID
	case strings.HasPrefix(evt.Topic, "chat."):
		return f.room == "" || scope.Room == f.room
	case evt.Topic == app.TopicContentDeleted:
		return true
	case strings.HasPrefix(evt.Topic, "content."):
		// Brouillons, contenus en attente ou rejetés: admins seulement.
		return f.actor.IsAdmin() || scope.Status == string(domain.ContentPublished)
	case strings.HasPrefix(evt.Topic, "review."):
		return f.actor.IsAdmin() || scope.Status == string(domain.ReviewApproved) ||
			(scope.UserID != "" && scope.UserID == f.actor.UserID)
	}
	return true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.bus == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	filter := newStreamFilter(r)
	events, cancel := s.bus.Subscribe()
	defer cancel()

	if s.metrics != nil {
		s.metrics.SSEClients.Inc()
		defer s.metrics.SSEClients.Dec()
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if !filter.allow(evt) {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, evt.Payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
