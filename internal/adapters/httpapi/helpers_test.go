package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/adapters/bleveindex"
	"github.com/yemenflix/yflix/internal/adapters/jsonfile"
	"github.com/yemenflix/yflix/internal/adapters/memorybus"
	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/auth"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/metrics"
)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	bus     *memorybus.Bus
	svc     Services
	limiter *app.CheckLimiter
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "database.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	index, err := bleveindex.New()
	if err != nil {
		t.Fatalf("bleve: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })
	issuer, err := auth.NewIssuer("http-test-secret-0123", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	bus := memorybus.New()
	t.Cleanup(bus.Close)

	log := zerolog.Nop()
	notes := app.NewNotificationService(store, bus)
	security := app.NewSecurityService(log, store, bus)
	settings := app.NewSettingsService(store, bus)
	content := app.NewContentService(log, store, index, bus, notes)
	subs := app.NewSubscriptionService(log, store, bus, notes)
	limiter := app.NewCheckLimiter(domain.DefaultSettings().MaxConcurrentChecks)
	settings.OnChange(func(s domain.Settings) { limiter.SetLimit(s.MaxConcurrentChecks) })

	svc := Services{
		Auth:          app.NewAuthService(log, store, issuer, security, settings),
		Content:       content,
		Search:        app.NewSearchService(log, store, index),
		Reviews:       app.NewReviewService(log, store, content, bus),
		Notifications: notes,
		Subscriptions: subs,
		Security:      security,
		Downloads:     app.NewDownloadService(log, store, content, subs, bus),
		Chat:          app.NewChatService(store, bus),
		Live:          app.NewLiveService(store, bus),
		Settings:      settings,
	}
	svc.Analytics = app.NewAnalyticsService(store, content, subs, security, nil)

	srv := NewServer(log, svc, bus, metrics.New(), Options{Store: store})
	return &testAPI{t: t, handler: srv.Router(), bus: bus, svc: svc, limiter: limiter}
}

// do envoie body encodé en JSON; token vide = anonyme.
func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: want %d, got %d (%s)", want, rr.Code, rr.Body.String())
	}
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/auth/register", "", app.RegisterInput{Username: username, Password: "password-" + username})
	expectStatus(a.t, rr, http.StatusCreated)
	return decode[app.Session](a.t, rr).Token
}

func (a *testAPI) admin() string {
	a.t.Helper()
	ctx := context.Background()
	if _, err := a.svc.Auth.CreateUser(ctx, app.RegisterInput{Username: "root", Password: "password-root"}, domain.RoleAdmin); err != nil {
		a.t.Fatalf("CreateUser: %v", err)
	}
	sess, err := a.svc.Auth.Login(ctx, "root", "password-root", "127.0.0.1")
	if err != nil {
		a.t.Fatalf("Login: %v", err)
	}
	return sess.Token
}

// publish crée puis approuve un contenu.
func (a *testAPI) publish(adminToken, title string, kind domain.ContentKind) domain.Content {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/content", adminToken, domain.Content{Kind: kind, Title: title, Quality: domain.QualityHD, Genres: []string{"Drama"}})
	expectStatus(a.t, rr, http.StatusCreated)
	c := decode[domain.Content](a.t, rr)
	rr = a.do(http.MethodPost, "/api/content/"+c.ID+"/moderate", adminToken, map[string]string{"action": "approve"})
	expectStatus(a.t, rr, http.StatusOK)
	return decode[domain.Content](a.t, rr)
}
