// Package app assembles the back office from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/twocards/backoffice/internal/config"
	"github.com/twocards/backoffice/internal/gateway/status"
	"github.com/twocards/backoffice/internal/gateway/whatsapp"
	"github.com/twocards/backoffice/internal/gateway/zid"
	"github.com/twocards/backoffice/internal/handler"
	"github.com/twocards/backoffice/internal/model/user"
	"github.com/twocards/backoffice/internal/service/ai"
	"github.com/twocards/backoffice/internal/service/audit"
	"github.com/twocards/backoffice/internal/service/auth"
	"github.com/twocards/backoffice/internal/service/catalog"
	chatservice "github.com/twocards/backoffice/internal/service/chat"
	"github.com/twocards/backoffice/internal/service/settings"
	"github.com/twocards/backoffice/internal/service/users"
	"github.com/twocards/backoffice/internal/store/sqlite"
	"github.com/twocards/backoffice/internal/vault"
)

const (
	auditBufferSize  = 1024
	connDrainTimeout = 5 * time.Second
)

// App holds every long-lived component.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB         *sqlite.DB
	UserRepo   user.Repository
	Settings   *settings.Service
	Recorder   *audit.Recorder
	Dispatcher *audit.Dispatcher
	Auth       *auth.Service
	Users      *users.Service
	Catalog    *catalog.Service
	Generator  ai.Generator
	WhatsApp   *whatsapp.Client
	Status     *status.Checker

	ChatRegistry    *chatservice.Registry
	ChatBroadcaster *chatservice.Broadcaster
	ChatHistory     *chatservice.History

	redis     redis.UniversalClient
	closeOnce sync.Once
	closeErr  error
}

// New opens storage, seeds the admin account and wires services. Close
// must be called to drain the audit queue.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, DB: db}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	v, err := vault.New(cfg.Security.EncryptionSecret)
	if err != nil {
		return err
	}
	a.Settings = settings.NewService(sqlite.NewSettingRepo(a.DB), v, cfg.Env(), a.Logger)

	a.Recorder = audit.NewRecorder(sqlite.NewAuditRepo(a.DB), a.Logger)
	a.Dispatcher = audit.NewDispatcher(audit.DispatcherConfig{BufferSize: auditBufferSize}, a.Recorder)

	tokens, err := auth.NewTokens(cfg.Security.SecretKey, cfg.Security.TokenTTL, cfg.Security.Issuer)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswords(auth.DefaultPasswordConfig())
	a.UserRepo = sqlite.NewUserRepo(a.DB)

	a.Auth = auth.NewService(a.UserRepo, passwords, tokens, a.limiter(ctx), a.Dispatcher, a.Logger)
	if err := a.Auth.SeedAdmin(ctx, cfg.Security.AdminPassword); err != nil {
		return err
	}
	a.Users = users.NewService(a.UserRepo, passwords, a.Dispatcher)

	storefront := zid.NewClient(cfg.Integrations.ZidBaseURL, a.Settings)
	a.Catalog = catalog.NewService(sqlite.NewProductRepo(a.DB), sqlite.NewVoucherRepo(a.DB), storefront, a.Dispatcher, a.Logger)

	chatRepo := sqlite.NewChatRepo(a.DB)
	a.ChatRegistry = chatservice.NewRegistry()
	a.ChatBroadcaster = chatservice.NewBroadcaster(a.ChatRegistry, chatRepo, a.Dispatcher, a.Logger)
	a.ChatHistory = chatservice.NewHistory(chatRepo)

	a.WhatsApp = whatsapp.NewClient(cfg.Integrations.WhatsAppBaseURL, a.Settings)
	a.Status = status.NewChecker(status.Endpoints{
		ZidBaseURL:      cfg.Integrations.ZidBaseURL,
		OpenAIBaseURL:   cfg.AI.OpenAIURL,
		WhatsAppBaseURL: cfg.Integrations.WhatsAppBaseURL,
	}, a.Settings)

	a.Generator = a.generator(ctx)
	return nil
}

// limiter uses Redis when configured. An unreachable Redis is logged and
// kept: the limiter fails open per request.
func (a *App) limiter(ctx context.Context) auth.Limiter {
	rc := a.Config.Redis
	if !rc.Enabled() {
		a.Logger.Info("REDIS_ADDR not set, login throttling disabled")
		return auth.NoopLimiter{}
	}

	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		a.Logger.Warn("redis ping failed, throttling will retry per request", "addr", rc.Addr, "error", err)
	}
	a.redis = client
	return auth.NewRedisLimiter(client, rc.MaxLoginAttempts, rc.LoginCooldown)
}

// generator picks the AI provider. It returns nil when the configured
// provider cannot start, which disables the AI endpoints.
func (a *App) generator(ctx context.Context) ai.Generator {
	aiCfg := a.Config.AI
	if aiCfg.Provider != "ark" {
		return ai.NewOpenAI(ai.OpenAIConfig{
			BaseURL:    aiCfg.OpenAIURL,
			Model:      aiCfg.OpenAIModel,
			ImageModel: aiCfg.ImageModel,
		}, a.Settings)
	}

	// Ark keys are read once here; a key changed in settings applies on restart.
	if key, ok := a.Settings.Lookup(ctx, "ARK_API_KEY"); ok {
		aiCfg.APIKey = key
	}
	chatModel, err := aiCfg.NewChatModel(ctx)
	if err != nil {
		a.Logger.Warn("Ark 模型初始化失败，AI 功能不可用", "error", err)
		return nil
	}
	gen, err := ai.NewArk(ctx, chatModel, a.Logger)
	if err != nil {
		a.Logger.Warn("failed to build ark generator", "error", err)
		return nil
	}
	return gen
}

// Handler builds the HTTP router.
func (a *App) Handler() http.Handler {
	return handler.NewRouter(handler.Deps{
		Auth:            a.Auth,
		Users:           a.Users,
		Catalog:         a.Catalog,
		Settings:        a.Settings,
		AuditLog:        a.Recorder,
		Audit:           a.Dispatcher,
		Generator:       a.Generator,
		WhatsApp:        a.WhatsApp,
		Status:          a.Status,
		ChatRegistry:    a.ChatRegistry,
		ChatBroadcaster: a.ChatBroadcaster,
		ChatHistory:     a.ChatHistory,
		Ping:            a.DB.Ping,
		CORSOrigins:     a.Config.Server.CORSOrigins,
		Logger:          a.Logger,
	})
}

// Close ends live chat connections, drains pending audit entries, then
// releases Redis and the database. Calls after the first return its result.
func (a *App) Close() error {
	a.closeOnce.Do(func() { a.closeErr = a.close() })
	return a.closeErr
}

func (a *App) close() error {
	var errs []error
	if a.ChatRegistry != nil {
		a.ChatRegistry.CloseAll()
		ctx, cancel := context.WithTimeout(context.Background(), connDrainTimeout)
		if err := a.ChatRegistry.WaitEmpty(ctx); err != nil {
			a.Logger.Warn("chat connections did not drain", "error", err)
		}
		cancel()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
		if n := a.Dispatcher.Dropped(); n > 0 {
			a.Logger.Warn("audit entries dropped", "count", n)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
