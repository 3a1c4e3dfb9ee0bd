package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/knsuzuki/shopmail/internal/build"
	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/eventbus"
	"github.com/knsuzuki/shopmail/internal/logger"
	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
	"github.com/knsuzuki/shopmail/internal/storage"
	"github.com/knsuzuki/shopmail/internal/telemetry"
)

// app is everything a command needs once configuration is loaded.
type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	telemetry *telemetry.Telemetry
	renderer  *notification.TemplateRenderer
	mailSvc   service.MailService

	closers []func(context.Context) error
}

// newApp wires the stores, transport, event bus and dispatcher. Callers must
// Close the returned app.
func newApp(ctx context.Context, cfg *config.AppConfig) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.DataDir, err)
	}

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "shopmail",
		ServiceVersion: build.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	a.telemetry = tel
	a.closers = append(a.closers, tel.Shutdown)

	var extra []slog.Handler
	if h := tel.LogHandler("shopmail"); h != nil {
		extra = append(extra, h)
	}
	sysLogger, logFile, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), extra...)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a.logger = sysLogger
	a.closers = append(a.closers, closeWith(logFile))

	shop, err := config.LoadShopConfig(cfg.ShopFilePath())
	if err != nil {
		return nil, err
	}

	db, fresh, err := storage.NewSQLiteDB(ctx, cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, closeWith(db))
	if fresh {
		sysLogger.Info("database created", "path", cfg.DBPath())
	}

	templates := storage.NewSQLiteTemplateStore(db)
	history, err := storage.OpenHistoryStore(ctx, cfg.HistoryDriver, cfg.HistoryDSN, db)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	if c, ok := history.(io.Closer); ok {
		a.closers = append(a.closers, closeWith(c))
	}

	a.renderer, err = notification.NewTemplateRenderer(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("loading mail templates: %w", err)
	}

	transport, err := notification.NewTransport(cfg.Transport(), sysLogger)
	if err != nil {
		return nil, fmt.Errorf("creating mail transport: %w", err)
	}

	bus := eventbus.New(sysLogger)
	bus.Subscribe(eventbus.Wildcard, eventbus.LogListener(sysLogger))

	dispatcher, err := notification.NewDispatcher(notification.Config{
		Shop:      shop.Profile(),
		Settings:  shop.Settings(),
		Templates: templates,
		Renderer:  a.renderer,
		Transport: transport,
		History:   history,
		Events:    bus,
		Logger:    sysLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	a.mailSvc = service.NewMailService(dispatcher, templates, history, sysLogger)

	sysLogger.Info("shopmail initialized",
		slog.String("shop", shop.Name),
		slog.String("transport", transport.Name()),
		slog.String("history_driver", cfg.HistoryDriver),
		slog.String("version", build.Version),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	a.closers = nil
}

func closeWith(c io.Closer) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}
