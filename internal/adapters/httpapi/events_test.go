package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

func TestStreamFilter(t *testing.T) {
	user := app.Actor{UserID: "u1", Role: domain.RoleUser}
	admin := app.Actor{UserID: "a1", Role: domain.RoleAdmin}

	cases := []struct {
		name   string
		filter streamFilter
		evt    ports.Event
		want   bool
	}{
		{"broadcast notification", streamFilter{actor: user}, ports.Event{Topic: app.TopicNotificationCreated, Payload: []byte(`{"title":"x"}`)}, true},
		{"own notification", streamFilter{actor: user}, ports.Event{Topic: app.TopicNotificationCreated, Payload: []byte(`{"userId":"u1"}`)}, true},
		{"foreign notification", streamFilter{actor: user}, ports.Event{Topic: app.TopicNotificationCreated, Payload: []byte(`{"userId":"u2"}`)}, false},
		{"foreign download", streamFilter{actor: user}, ports.Event{Topic: app.TopicDownloadUpdated, Payload: []byte(`{"userId":"u2"}`)}, false},
		{"anonymous download", streamFilter{}, ports.Event{Topic: app.TopicDownloadUpdated, Payload: []byte(`{"userId":""}`)}, false},
		{"alert for user", streamFilter{actor: user}, ports.Event{Topic: app.TopicSecurityAlert, Payload: []byte(`{}`)}, false},
		{"alert for admin", streamFilter{actor: admin}, ports.Event{Topic: app.TopicSecurityAlert, Payload: []byte(`{}`)}, true},
		{"chat other room", streamFilter{room: "general"}, ports.Event{Topic: app.TopicChatMessage, Payload: []byte(`{"room":"live:1"}`)}, false},
		{"chat same room", streamFilter{room: "general"}, ports.Event{Topic: app.TopicChatMessage, Payload: []byte(`{"room":"general"}`)}, true},
		{"topic prefix", streamFilter{topics: []string{"chat"}}, ports.Event{Topic: app.TopicChatDeleted, Payload: []byte(`{}`)}, true},
		{"topic excluded", streamFilter{topics: []string{"chat"}}, ports.Event{Topic: app.TopicLiveUpdated, Payload: []byte(`{}`)}, false},
		{"pending content for anonymous", streamFilter{}, ports.Event{Topic: app.TopicContentCreated, Payload: []byte(`{"id":"c1","status":"pending"}`)}, false},
		{"draft content update for user", streamFilter{actor: user}, ports.Event{Topic: app.TopicContentUpdated, Payload: []byte(`{"id":"c1","status":"draft"}`)}, false},
		{"rejected content for user", streamFilter{actor: user}, ports.Event{Topic: app.TopicContentModerated, Payload: []byte(`{"id":"c1","status":"rejected"}`)}, false},
		{"published content for anonymous", streamFilter{}, ports.Event{Topic: app.TopicContentModerated, Payload: []byte(`{"id":"c1","status":"published"}`)}, true},
		{"pending content for admin", streamFilter{actor: admin}, ports.Event{Topic: app.TopicContentCreated, Payload: []byte(`{"id":"c1","status":"pending"}`)}, true},
		{"content deleted for anonymous", streamFilter{}, ports.Event{Topic: app.TopicContentDeleted, Payload: []byte(`{"id":"c1"}`)}, true},
		{"pending review for anonymous", streamFilter{}, ports.Event{Topic: app.TopicReviewCreated, Payload: []byte(`{"userId":"u2","status":"pending"}`)}, false},
		{"rejected review for other user", streamFilter{actor: user}, ports.Event{Topic: app.TopicReviewModerated, Payload: []byte(`{"userId":"u2","status":"rejected"}`)}, false},
		{"own pending review", streamFilter{actor: user}, ports.Event{Topic: app.TopicReviewCreated, Payload: []byte(`{"userId":"u1","status":"pending"}`)}, true},
		{"approved review for anonymous", streamFilter{}, ports.Event{Topic: app.TopicReviewModerated, Payload: []byte(`{"userId":"u2","status":"approved"}`)}, true},
		{"pending review for admin", streamFilter{actor: admin}, ports.Event{Topic: app.TopicReviewCreated, Payload: []byte(`{"userId":"u2","status":"pending"}`)}, true},
	}
	for _, tc := range cases {
		if got := tc.filter.allow(tc.evt); got != tc.want {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestEvents_StreamsFilteredBusEvents(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?topics=chat&room=general", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: got %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		t.Helper()
		for lines.Scan() {
			if l := lines.Text(); l != "" {
				return l
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if l := next(); l != "event: hello" {
		t.Fatalf("first line: %q", l)
	}
	next()

	// abonné avant le hello: les publications suivantes sont reçues
	api.bus.Publish(app.TopicLiveUpdated, []byte(`{"id":"l1"}`))
	api.bus.Publish(app.TopicChatMessage, []byte(`{"room":"other","body":"no"}`))
	api.bus.Publish(app.TopicChatMessage, []byte(`{"room":"general","body":"salam"}`))

	if l := next(); l != "event: chat.message" {
		t.Fatalf("event line: %q", l)
	}
	if l := next(); !strings.Contains(l, "salam") {
		t.Fatalf("data line: %q", l)
	}
}
