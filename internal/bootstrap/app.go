package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/assets"
	googleauth "portfolio-backend/internal/auth"
	"portfolio-backend/internal/contacts"
	"portfolio-backend/internal/notify"
	"portfolio-backend/internal/profile"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/services/health"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/ratelimit"
	"portfolio-backend/internal/shared/server"
	"portfolio-backend/internal/shared/storage/db"
	"portfolio-backend/internal/shared/storage/object"
	localstore "portfolio-backend/internal/shared/storage/object/local"
	s3store "portfolio-backend/internal/shared/storage/object/s3"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/workerproc"
)

// Dispatcher is a contact notifier that can drain its background work.
type Dispatcher interface {
	contacts.Notifier
	Close(ctx context.Context) error
}

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine

	// DB is nil when repositories are in memory.
	DB    *db.Handle
	Store object.Store

	ProfileRepo  profile.Repo
	ContactsRepo contacts.Repo

	ProfileService  *profile.Service
	AssetService    *assets.Service
	ContactsService *contacts.Service

	Mailer     notify.Mailer
	Sender     *notify.Sender
	Dispatcher Dispatcher
	Processor  *workerproc.Processor

	GoogleAuth *googleauth.GoogleService
	Health     *health.Service
}

// Build prepares every dependency and the router. Nothing here dials the
// database; the handle connects on first use.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	handle, err := buildDB(cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := buildMailer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     handle,
		Store:  store,
		Mailer: mailer,
		Sender: &notify.Sender{
			Mailer: mailer,
			Composer: notify.Composer{
				From:      cfg.MailFrom,
				Admin:     cfg.AdminNotifyEmail,
				Signature: cfg.MailSignature,
			},
		},
		Health: health.NewService(),
	}

	app.Dispatcher, err = buildDispatcher(ctx, cfg, app.Sender)
	if err != nil {
		return nil, err
	}

	buildServices(app)

	deps := server.RouterDeps{
		Config:     cfg,
		Health:     app.Health,
		Profile:    profile.NewHandler(app.ProfileService),
		Assets:     assets.NewHandler(app.AssetService),
		Contacts:   contacts.NewHandler(app.ContactsService),
		GoogleAuth: app.GoogleAuth,
	}
	if handle != nil {
		deps.Store = handle
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

// Close drains pending notifications and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		errs = append(errs, a.Dispatcher.Close(ctx))
	}
	if c, ok := a.Mailer.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(cfg config.Config) (*db.Handle, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if db.IsLambdaRuntime() {
		return db.Open(cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()), true), nil
	}
	return db.Open(cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()), false), nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir)
	}
}

func buildMailer(ctx context.Context, cfg config.Config) (notify.Mailer, error) {
	if cfg.NotifyTransport != "log" && strings.TrimSpace(cfg.MailFrom) == "" {
		return nil, fmt.Errorf("NOTIFY_TRANSPORT=%s requires MAIL_FROM", cfg.NotifyTransport)
	}
	switch cfg.NotifyTransport {
	case "ses":
		return notify.NewSESMailer(ctx, cfg.AWSRegion)
	case "smtp":
		return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	default:
		return notify.LogMailer{}, nil
	}
}

func buildDispatcher(ctx context.Context, cfg config.Config, sender *notify.Sender) (Dispatcher, error) {
	if cfg.NotifyQueueURL == "" {
		return notify.NewAsyncDispatcher(sender, cfg.NotifyTimeout), nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.NotifyQueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return notify.NewQueueDispatcher(client, cfg.NotifyTimeout), nil
}

func buildServices(app *App) {
	cfg := app.Config
	if app.DB != nil {
		app.ProfileRepo = &profile.PGRepo{DB: app.DB}
		app.ContactsRepo = &contacts.PGRepo{DB: app.DB}
	} else {
		app.ProfileRepo = profile.NewMemoryRepo()
		app.ContactsRepo = contacts.NewMemoryRepo()
	}

	app.ProfileService = profile.NewService(app.ProfileRepo)
	app.AssetService = assets.NewService(app.ProfileRepo, app.Store, assets.Limits{
		Image:  cfg.MaxImageBytes,
		Resume: cfg.MaxResumeBytes,
	})
	app.ContactsService = contacts.NewService(
		app.ContactsRepo,
		ratelimit.New(cfg.ContactRateLimit, cfg.ContactRateWindow, nil),
		app.Dispatcher,
	)
	app.Processor = &workerproc.Processor{Contacts: app.ContactsRepo, Sender: app.Sender}
	app.GoogleAuth = googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		cfg.AdminEmails,
	)
}
