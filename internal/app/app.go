package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"PublishNotifier/internal/config"
	"PublishNotifier/internal/infrastructure/brevo"
	"PublishNotifier/internal/infrastructure/ratelimit"
	"PublishNotifier/internal/infrastructure/render"
	"PublishNotifier/internal/infrastructure/scheduler"
	"PublishNotifier/internal/infrastructure/storage"
	"PublishNotifier/internal/logging"
	transport "PublishNotifier/internal/transport/http"
	"PublishNotifier/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *storage.DB
	server  *http.Server
	auditor *usecase.Auditor
}

// New opens the database and builds every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	renderer, err := render.New(cfg.Notifications, render.DefaultRegistry())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build renderer: %w", err)
	}

	provider := brevo.NewClient(cfg.Brevo, baseLogger.With("component", "brevo"))
	if cfg.Brevo.APIKey == "" || cfg.Brevo.ListID <= 0 {
		baseLogger.Warn("brevo is not fully configured, notifications will be recorded as rejected",
			"api_key_set", cfg.Brevo.APIKey != "", "list_id", cfg.Brevo.ListID)
	}

	ledger := storage.NewLedger(db)
	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Ledger:   ledger,
		Provider: provider,
		Renderer: renderer,
		ListID:   cfg.Brevo.ListID,
		Flags: usecase.FeatureFlags{
			Article: cfg.Notifications.EnableArticle,
			Video:   cfg.Notifications.EnableVideo,
		},
		Logger: baseLogger,
	})
	watcher := usecase.NewWatcher(dispatcher, baseLogger)

	contact := usecase.NewContactService(usecase.ContactDeps{
		Repository: storage.NewContactRepository(db),
		Notifier:   usecase.NewContactNotifier(provider, renderer, cfg.Contact.AdminEmail, cfg.Contact.AdminName),
		Logger:     baseLogger,
	})

	var auditor *usecase.Auditor
	if err := scheduler.Validate(cfg.Audit.CronExpression); err != nil {
		baseLogger.Warn("ledger audit disabled", "err", err)
	} else {
		driver := scheduler.NewCronScheduler(cfg.Audit.CronExpression, cfg.Audit.Location())
		auditor = usecase.NewAuditor(driver, ledger, cfg.Audit.PendingStaleAfter, baseLogger)
	}

	router := transport.NewRouter(transport.Deps{
		Contact:       contact,
		Watcher:       watcher,
		Ledger:        ledger,
		Resetter:      dispatcher,
		Limiter:       ratelimit.New(cfg.Contact.RateLimit, baseLogger.With("component", "ratelimit")),
		Ready:         db,
		AdminToken:    cfg.HTTP.AdminToken,
		WebhookSecret: cfg.HTTP.WebhookSecret,
		Logger:        baseLogger,

		TrustForwardedFor: cfg.HTTP.TrustForwardedFor,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		cfg:     cfg,
		logger:  baseLogger.With("component", "app"),
		db:      db,
		server:  server,
		auditor: auditor,
	}, nil
}

// Run serves HTTP and the audit schedule until ctx is cancelled, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if a.auditor != nil {
		if err := a.auditor.Start(ctx); err != nil {
			return fmt.Errorf("start audit: %w", err)
		}
	}

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	a.logger.Info("http server listening", "addr", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.auditor != nil {
		if err := a.auditor.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("audit stop: %w", err))
		}
	}
	return errors.Join(errs...)
}
