package httpapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/httpjson"
)

func TestHealthAndVersion(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(http.MethodGet, "/api/health", "", nil)
	expectStatus(t, rr, http.StatusOK)
	health := decode[map[string]any](t, rr)
	if health["status"] != "ok" || health["store"] != "ok" {
		t.Fatalf("unexpected health %v", health)
	}

	rr = api.do(http.MethodGet, "/api/version", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"goVersion"`) {
		t.Fatalf("version body: %s", rr.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("salem")

	rr := api.do(http.MethodGet, "/api/auth/me", token, nil)
	expectStatus(t, rr, http.StatusOK)
	if me := decode[app.UserView](t, rr); me.Username != "salem" || me.Role != domain.RoleUser {
		t.Fatalf("unexpected me %+v", me)
	}

	expectStatus(t, api.do(http.MethodGet, "/api/auth/me", "", nil), http.StatusUnauthorized)
	rr = api.do(http.MethodGet, "/api/auth/me", "not-a-token", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
	if body := decode[httpjson.ErrorBody](t, rr); body.Code != "invalid_token" {
		t.Fatalf("code: got %q", body.Code)
	}

	rr = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "salem", "password": "wrong"})
	expectStatus(t, rr, http.StatusUnauthorized)
	rr = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "salem", "password": "password-salem"})
	expectStatus(t, rr, http.StatusOK)

	// doublon
	rr = api.do(http.MethodPost, "/api/auth/register", "", app.RegisterInput{Username: "salem", Password: "password-salem"})
	expectStatus(t, rr, http.StatusConflict)
}

func TestContent_AdminOnlyWritesAndModeration(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	user := api.register("huda")

	in := domain.Content{Kind: domain.KindMovie, Title: "Sanaa Nights"}
	expectStatus(t, api.do(http.MethodPost, "/api/content", "", in), http.StatusUnauthorized)
	expectStatus(t, api.do(http.MethodPost, "/api/content", user, in), http.StatusForbidden)

	rr := api.do(http.MethodPost, "/api/content", admin, in)
	expectStatus(t, rr, http.StatusCreated)
	c := decode[domain.Content](t, rr)
	if c.Status != domain.ContentPending {
		t.Fatalf("status: got %q", c.Status)
	}

	// invisible tant que non publié
	expectStatus(t, api.do(http.MethodGet, "/api/content/"+c.ID, user, nil), http.StatusNotFound)
	page := decode[app.Page[domain.Content]](t, api.do(http.MethodGet, "/api/content", "", nil))
	if page.Total != 0 {
		t.Fatalf("pending content leaked: %+v", page)
	}

	rr = api.do(http.MethodPost, "/api/content/"+c.ID+"/moderate", admin, map[string]string{"action": "approve"})
	expectStatus(t, rr, http.StatusOK)
	rr = api.do(http.MethodPost, "/api/content/"+c.ID+"/moderate", admin, map[string]string{"action": "approve"})
	expectStatus(t, rr, http.StatusConflict)

	expectStatus(t, api.do(http.MethodGet, "/api/content/"+c.ID, user, nil), http.StatusOK)

	title := "Sanaa Nights (director's cut)"
	rr = api.do(http.MethodPut, "/api/content/"+c.ID, admin, app.ContentPatch{Title: &title})
	expectStatus(t, rr, http.StatusOK)
	if got := decode[domain.Content](t, rr); got.Title != title || got.Kind != domain.KindMovie {
		t.Fatalf("patch: got %+v", got)
	}

	expectStatus(t, api.do(http.MethodDelete, "/api/content/"+c.ID, admin, nil), http.StatusNoContent)
	expectStatus(t, api.do(http.MethodGet, "/api/content/"+c.ID, admin, nil), http.StatusNotFound)
}

func TestContent_ValidationErrorsListFields(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()

	rr := api.do(http.MethodPost, "/api/content", admin, domain.Content{Kind: "podcast"})
	expectStatus(t, rr, http.StatusBadRequest)
	body := decode[httpjson.ErrorBody](t, rr)
	if body.Code != "validation_failed" || len(body.Fields) == 0 {
		t.Fatalf("unexpected body %+v", body)
	}

	rr = api.do(http.MethodPost, "/api/content", admin, map[string]any{"title": "x", "unknown": 1})
	expectStatus(t, rr, http.StatusBadRequest)
	if decode[httpjson.ErrorBody](t, rr).Code != "invalid_json" {
		t.Fatalf("unknown field should be rejected: %s", rr.Body.String())
	}

	expectStatus(t, api.do(http.MethodGet, "/api/content?sort=random", "", nil), http.StatusBadRequest)
}

func TestContent_ListUsesSettingsPageSizeAndSeriesPreset(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	api.publish(admin, "Aden Harbour", domain.KindMovie)
	api.publish(admin, "Hadramawt Tales", domain.KindSeries)
	api.publish(admin, "Socotra", domain.KindSeries)

	st := domain.DefaultSettings()
	st.DefaultPageSize = 1
	expectStatus(t, api.do(http.MethodPut, "/api/settings", admin, st), http.StatusOK)

	page := decode[app.Page[domain.Content]](t, api.do(http.MethodGet, "/api/content", "", nil))
	if page.PageSize != 1 || len(page.Items) != 1 || page.Total != 3 || page.TotalPages != 3 {
		t.Fatalf("unexpected page %+v", page)
	}

	series := decode[app.Page[domain.Content]](t, api.do(http.MethodGet, "/api/series?pageSize=10&sort=title", "", nil))
	if series.Total != 2 || series.Items[0].Title != "Hadramawt Tales" {
		t.Fatalf("unexpected series %+v", series)
	}

	past := decode[app.Page[domain.Content]](t, api.do(http.MethodGet, "/api/content?page=9", "", nil))
	if len(past.Items) != 0 {
		t.Fatalf("page past the end should be empty, got %+v", past.Items)
	}
}

func TestSearchAndViews(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	c := api.publish(admin, "Marib Dam", domain.KindMovie)

	expectStatus(t, api.do(http.MethodGet, "/api/search", "", nil), http.StatusBadRequest)
	found := decode[[]domain.Content](t, api.do(http.MethodGet, "/api/search?q=marib", "", nil))
	if len(found) != 1 || found[0].ID != c.ID {
		t.Fatalf("search: got %+v", found)
	}

	rr := api.do(http.MethodPost, "/api/content/"+c.ID+"/view", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if v := decode[map[string]any](t, rr); v["viewCount"] != float64(1) {
		t.Fatalf("views: got %v", v)
	}
}

func TestReviews_OnePerUserAndModeration(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	user := api.register("nabil")
	c := api.publish(admin, "Taiz", domain.KindMovie)

	path := "/api/content/" + c.ID + "/reviews"
	expectStatus(t, api.do(http.MethodPost, path, "", app.ReviewInput{Rating: 8}), http.StatusUnauthorized)
	rr := api.do(http.MethodPost, path, user, app.ReviewInput{Rating: 8, Comment: "جميل"})
	expectStatus(t, rr, http.StatusCreated)
	rv := decode[domain.Review](t, rr)
	expectStatus(t, api.do(http.MethodPost, path, user, app.ReviewInput{Rating: 3}), http.StatusConflict)

	pending := decode[[]domain.Review](t, api.do(http.MethodGet, "/api/reviews?status=pending", admin, nil))
	if len(pending) != 1 {
		t.Fatalf("pending reviews: got %d", len(pending))
	}
	rr = api.do(http.MethodPost, "/api/reviews/"+rv.ID+"/moderate", admin, map[string]string{"status": "approved"})
	expectStatus(t, rr, http.StatusOK)

	got := decode[domain.Content](t, api.do(http.MethodGet, "/api/content/"+c.ID, "", nil))
	if got.UserRating != 8 || got.ReviewCount != 1 {
		t.Fatalf("rating not recomputed: %+v", got)
	}
}

func TestNotifications_ReadState(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	user := api.register("amal")

	expectStatus(t, api.do(http.MethodPost, "/api/notifications", user, app.NotificationInput{Kind: "info", Title: "x"}), http.StatusForbidden)
	rr := api.do(http.MethodPost, "/api/notifications", admin, app.NotificationInput{Kind: "info", Title: "Bienvenue"})
	expectStatus(t, rr, http.StatusCreated)
	n := decode[domain.Notification](t, rr)

	list := decode[app.NotificationList](t, api.do(http.MethodGet, "/api/notifications", user, nil))
	if list.Unread != 1 || len(list.Items) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	expectStatus(t, api.do(http.MethodPost, "/api/notifications/"+n.ID+"/read", user, nil), http.StatusNoContent)
	list = decode[app.NotificationList](t, api.do(http.MethodGet, "/api/notifications?unread=true", user, nil))
	if list.Unread != 0 || len(list.Items) != 0 {
		t.Fatalf("expected nothing unread, got %+v", list)
	}
	expectStatus(t, api.do(http.MethodPost, "/api/notifications/missing/read", user, nil), http.StatusNotFound)
}

func TestDownloads_PlanGateAndLifecycle(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	user := api.register("fatima")
	c := api.publish(admin, "Shibam", domain.KindMovie)

	rr := api.do(http.MethodPost, "/api/downloads", user, app.DownloadInput{ContentID: c.ID})
	expectStatus(t, rr, http.StatusForbidden)
	if code := decode[httpjson.ErrorBody](t, rr).Code; code != "plan_required" {
		t.Fatalf("code: got %q", code)
	}

	expectStatus(t, api.do(http.MethodPost, "/api/subscriptions", user, app.SubscribeInput{Plan: domain.PlanBasic}), http.StatusCreated)
	me := decode[mySubscription](t, api.do(http.MethodGet, "/api/subscriptions/me", user, nil))
	if me.Subscription == nil || me.Plan.ID != domain.PlanBasic {
		t.Fatalf("unexpected subscription %+v", me)
	}

	rr = api.do(http.MethodPost, "/api/downloads", user, app.DownloadInput{ContentID: c.ID, Quality: domain.QualityHD})
	expectStatus(t, rr, http.StatusCreated)
	d := decode[domain.DownloadItem](t, rr)

	expectStatus(t, api.do(http.MethodPost, "/api/downloads/"+d.ID+"/pause", user, nil), http.StatusConflict)
	expectStatus(t, api.do(http.MethodPost, "/api/downloads/"+d.ID+"/resume", user, nil), http.StatusOK)
	rr = api.do(http.MethodPost, "/api/downloads/"+d.ID+"/progress", user, map[string]float64{"progress": 1})
	expectStatus(t, rr, http.StatusOK)
	if got := decode[domain.DownloadItem](t, rr); got.State != domain.DownloadCompleted {
		t.Fatalf("state: got %q", got.State)
	}

	other := api.register("karim")
	expectStatus(t, api.do(http.MethodDelete, "/api/downloads/"+d.ID, other, nil), http.StatusNotFound)
	expectStatus(t, api.do(http.MethodDelete, "/api/downloads/"+d.ID, user, nil), http.StatusNoContent)
}

func TestMaintenanceModeBlocksNonAdminWrites(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	user := api.register("yousef")

	st := domain.DefaultSettings()
	st.MaintenanceMode = true
	expectStatus(t, api.do(http.MethodPut, "/api/settings", admin, st), http.StatusOK)

	rr := api.do(http.MethodPost, "/api/chat/general/messages", user, map[string]string{"body": "salam"})
	expectStatus(t, rr, http.StatusServiceUnavailable)
	if decode[httpjson.ErrorBody](t, rr).Code != "maintenance_mode" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	expectStatus(t, api.do(http.MethodGet, "/api/content", user, nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "root", "password": "password-root"}), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, "/api/chat/general/messages", admin, map[string]string{"body": "back soon"}), http.StatusCreated)
}

func TestSettings_PublicSubsetAndLimiter(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()

	st := domain.DefaultSettings()
	st.MaxConcurrentChecks = 7
	expectStatus(t, api.do(http.MethodPut, "/api/settings", "", st), http.StatusUnauthorized)
	expectStatus(t, api.do(http.MethodPut, "/api/settings", admin, st), http.StatusOK)
	if api.limiter.Limit() != 7 {
		t.Fatalf("limiter limit: want 7, got %d", api.limiter.Limit())
	}

	public := decode[map[string]any](t, api.do(http.MethodGet, "/api/settings", "", nil))
	if _, ok := public["maxConcurrentChecks"]; ok {
		t.Fatalf("admin field exposed: %v", public)
	}
	full := decode[domain.Settings](t, api.do(http.MethodGet, "/api/settings", admin, nil))
	if full.MaxConcurrentChecks != 7 {
		t.Fatalf("admin view: got %+v", full)
	}

	st.DefaultPageSize = 1000
	expectStatus(t, api.do(http.MethodPut, "/api/settings", admin, st), http.StatusBadRequest)
}

func TestLiveJoinRequiresLive(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()

	title := "Friday match"
	url := "https://live.example/friday.m3u8"
	rr := api.do(http.MethodPost, "/api/live", admin, app.LiveInput{Title: &title, StreamURL: &url})
	expectStatus(t, rr, http.StatusCreated)
	l := decode[domain.LiveStream](t, rr)

	expectStatus(t, api.do(http.MethodPost, "/api/live/"+l.ID+"/join", "", nil), http.StatusConflict)
	expectStatus(t, api.do(http.MethodPost, "/api/live/"+l.ID+"/start", admin, nil), http.StatusOK)
	rr = api.do(http.MethodPost, "/api/live/"+l.ID+"/join", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[domain.LiveStream](t, rr); got.ViewerCount != 1 {
		t.Fatalf("viewers: got %d", got.ViewerCount)
	}
}

func TestDashboardIsAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	admin := api.admin()
	user := api.register("maha")

	expectStatus(t, api.do(http.MethodGet, "/api/analytics/dashboard", user, nil), http.StatusForbidden)
	rr := api.do(http.MethodGet, "/api/analytics/dashboard", admin, nil)
	expectStatus(t, rr, http.StatusOK)
	if d := decode[app.Dashboard](t, rr); d.Maintenance != nil {
		t.Fatalf("no maintenance summary expected, got %+v", d.Maintenance)
	}
}

func TestOpenAPIListsRoutes(t *testing.T) {
	api := newTestAPI(t)
	doc := decode[map[string]any](t, api.do(http.MethodGet, "/api/openapi.json", "", nil))
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{"/api/content", "/api/content/{id}/reviews", "/api/maintenance/run", "/api/events"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("missing path %s", p)
		}
	}
}
