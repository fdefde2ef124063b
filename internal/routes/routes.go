package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
	"github.com/dl-issuer/dl_issuer/internal/application"
	"github.com/dl-issuer/dl_issuer/internal/approval"
	"github.com/dl-issuer/dl_issuer/internal/config"
	"github.com/dl-issuer/dl_issuer/internal/logging"
	"github.com/dl-issuer/dl_issuer/internal/middleware"
	"github.com/dl-issuer/dl_issuer/internal/notification"
	"github.com/dl-issuer/dl_issuer/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. Notifier and
// Applications are optional overrides; when nil they are built from Cfg.
type Deps struct {
	Cfg          config.Config
	DB           *pgxpool.Pool
	Cache        *redis.Client
	Logger       *slog.Logger
	Notifier     notification.Notifier
	Applications application.Repository
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	api := apiclient.New(apiclient.Config{
		WalletURL:   d.Cfg.WalletAPIURL,
		IssuerURL:   d.Cfg.IssuerAPIURL,
		VerifierURL: d.Cfg.VerifierAPIURL,
		APIKeyHash:  d.Cfg.APIKeyHash,
		Timeout:     d.Cfg.HTTPClientTimeout,
		RetryMax:    d.Cfg.HTTPClientRetries,
	}, d.Logger)

	var kv session.KV
	if d.Cache != nil {
		kv = session.NewRedisKV(d.Cache)
	} else {
		kv = session.NewMemoryKV()
	}
	sessionStore := session.NewStore(kv, session.NewSealer(d.Cfg.SessionSecret), d.Cfg.SessionTTL, d.Logger)
	sessionSvc := session.NewService(api, sessionStore)

	appRepo := d.Applications
	if appRepo == nil {
		if d.DB != nil {
			appRepo = application.NewPostgresRepository(d.DB)
		} else {
			appRepo = application.NewMemoryRepository()
		}
	}

	notifier := d.Notifier
	if notifier == nil {
		n, err := buildNotifier(d)
		if err != nil {
			return err
		}
		notifier = n
	}

	var guard approval.Guard
	if d.Cache != nil {
		guard = approval.NewRedisGuard(d.Cache, approvalGuardTTL(d.Cfg), d.Logger)
	} else {
		guard = approval.NewLocalGuard()
	}

	reporter := logging.NewLogReporter(d.Logger)
	applicationSvc := application.NewService(appRepo, reporter)
	approvalSvc := approval.NewService(approval.Deps{
		Repo:      appRepo,
		Clients:   func(sess session.Session) approval.CredentialAPI { return sessionSvc.Client(sess) },
		Notifier:  notifier,
		Reporter:  reporter,
		Guard:     guard,
		WalletURL: d.Cfg.WalletURL,
		Logger:    d.Logger,
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	requireSession := middleware.RequireSession(sessionSvc)
	RegisterAuthRoutes(v1, session.NewHandler(sessionSvc, d.Cfg.SessionTTL),
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger), requireSession)

	// Protected routes
	RegisterApplicationRoutes(v1, application.NewHandler(applicationSvc), requireSession)
	RegisterCredentialRoutes(v1, sessionSvc, requireSession)
	RegisterIssuerRoutes(v1, approval.NewHandler(approvalSvc),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		requireSession, middleware.RequireIssuer(d.Cfg.IssuerUsernames))

	RegisterNotFound(app)
	return nil
}

func buildNotifier(d Deps) (notification.Notifier, error) {
	if !d.Cfg.EmailEnabled() {
		d.Logger.Warn("email delivery disabled, notifications are logged only")
		return notification.NewLoggerNotifier(d.Logger), nil
	}
	client, err := notification.NewSESClient(context.Background(), notification.EmailConfig{
		Region:    d.Cfg.AWSRegion,
		AccessKey: d.Cfg.AWSAccessKeyID,
		SecretKey: d.Cfg.AWSSecretAccessKey,
		Sender:    d.Cfg.EmailSender,
	})
	if err != nil {
		return nil, err
	}
	return notification.NewEmailNotifier(client, d.Cfg.EmailSender, d.Logger), nil
}

// approvalGuardTTL covers the five outbound calls of one approval.
func approvalGuardTTL(cfg config.Config) time.Duration {
	if cfg.HTTPClientTimeout <= 0 {
		return 0
	}
	return time.Duration(cfg.HTTPClientRetries+1) * 5 * cfg.HTTPClientTimeout
}
