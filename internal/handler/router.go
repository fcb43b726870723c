package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	aihandler "github.com/twocards/backoffice/internal/handler/ai"
	authhandler "github.com/twocards/backoffice/internal/handler/auth"
	cataloghandler "github.com/twocards/backoffice/internal/handler/catalog"
	chathandler "github.com/twocards/backoffice/internal/handler/chat"
	"github.com/twocards/backoffice/internal/handler/integrations"
	logshandler "github.com/twocards/backoffice/internal/handler/logs"
	settingshandler "github.com/twocards/backoffice/internal/handler/settings"
	"github.com/twocards/backoffice/internal/handler/stream"
	usershandler "github.com/twocards/backoffice/internal/handler/users"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/ai"
	"github.com/twocards/backoffice/internal/service/audit"
	chatservice "github.com/twocards/backoffice/internal/service/chat"
	"github.com/twocards/backoffice/pkg/utils"
)

// AuthService covers login and token checks.
type AuthService interface {
	authhandler.LoginService
	Authenticate(ctx context.Context, token string) (user.User, error)
}

// Deps are the services the HTTP layer exposes. Generator may be nil when
// no AI provider is configured.
type Deps struct {
	Auth      AuthService
	Users     usershandler.Service
	Catalog   cataloghandler.Service
	Settings  settingshandler.Store
	AuditLog  logshandler.Lister
	Audit     audit.Sink
	Generator ai.Generator
	WhatsApp  integrations.Messenger
	Status    integrations.StatusCollector

	ChatRegistry    *chatservice.Registry
	ChatBroadcaster *chatservice.Broadcaster
	ChatHistory     *chatservice.History

	Ping        func(ctx context.Context) error
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			if err := d.Ping(r.Context()); err != nil {
				logger.Error("health check failed", "error", err)
				utils.RespondError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := authhandler.New(d.Auth)
	chatHandler := chathandler.New(d.ChatRegistry, d.ChatBroadcaster, d.ChatHistory, d.Auth, logger)

	r.Route("/api/v1", func(api chi.Router) {
		// Public routes
		authHandler.RegisterPublicRoutes(api)
		chatHandler.RegisterPublicRoutes(api)

		api.Group(func(p chi.Router) {
			p.Use(middleware.RequireUser(d.Auth))

			authHandler.RegisterRoutes(p)
			chatHandler.RegisterRoutes(p)
			usershandler.New(d.Users).RegisterRoutes(p)
			cataloghandler.New(d.Catalog).RegisterRoutes(p)
			logshandler.New(d.AuditLog).RegisterRoutes(p)
			settingshandler.New(d.Settings, d.Audit).RegisterRoutes(p)
			aihandler.New(d.Generator, d.Audit).RegisterRoutes(p)
			stream.New(d.Generator, d.Audit, logger).RegisterRoutes(p)
			integrations.New(d.WhatsApp, d.Status, d.Audit).RegisterRoutes(p)
		})
	})

	return r
}
