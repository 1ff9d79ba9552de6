package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/metrics"
	"github.com/yemenflix/yflix/internal/ports"
)

const defaultRequestTimeout = 30 * time.Second

// Services regroupe les services exposés par l'API. Un service nil
// désactive ses routes.
type Services struct {
	Auth          *app.AuthService
	Content       *app.ContentService
	Search        *app.SearchService
	Reviews       *app.ReviewService
	Notifications *app.NotificationService
	Subscriptions *app.SubscriptionService
	Security      *app.SecurityService
	Downloads     *app.DownloadService
	Chat          *app.ChatService
	Live          *app.LiveService
	Analytics     *app.AnalyticsService
	Maintenance   *app.MaintenanceService
	Settings      *app.SettingsService
}

type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	// Store est pingé par /api/health.
	Store interface {
		Ping(ctx context.Context) error
	}
}

type Server struct {
	logger  zerolog.Logger
	svc     Services
	bus     ports.EventBus
	metrics *metrics.Metrics
	opts    Options
}

func NewServer(logger zerolog.Logger, svc Services, bus ports.EventBus, m *metrics.Metrics, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Server{logger: logger, svc: svc, bus: bus, metrics: m, opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(handlers.CORS(
			handlers.AllowedOrigins(s.opts.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		))
	}
	r.Use(s.authenticate)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// SSE: ni timeout ni compression.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
			r.Use(handlers.CompressHandler)
			r.Use(s.maintenanceGate)

			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)

			if s.svc.Auth != nil {
				s.authRoutes(r)
			}
			if s.svc.Content != nil {
				s.contentRoutes(r)
			}
			if s.svc.Reviews != nil {
				s.reviewRoutes(r)
			}
			if s.svc.Notifications != nil {
				s.notificationRoutes(r)
			}
			if s.svc.Subscriptions != nil {
				s.subscriptionRoutes(r)
			}
			if s.svc.Security != nil {
				s.securityRoutes(r)
			}
			if s.svc.Downloads != nil {
				s.downloadRoutes(r)
			}
			if s.svc.Chat != nil {
				s.chatRoutes(r)
			}
			if s.svc.Live != nil {
				s.liveRoutes(r)
			}
			if s.svc.Analytics != nil {
				r.With(requireAdmin).Get("/analytics/dashboard", s.handleDashboard)
			}
			if s.svc.Maintenance != nil {
				s.maintenanceRoutes(r)
			}
			if s.svc.Settings != nil {
				s.settingsRoutes(r)
			}
		})
	})

	return r
}
