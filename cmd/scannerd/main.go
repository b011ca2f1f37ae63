package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vam876/lllmscanner/internal/aggregate"
	"github.com/vam876/lllmscanner/internal/config"
	"github.com/vam876/lllmscanner/internal/engine"
	"github.com/vam876/lllmscanner/internal/feed"
	"github.com/vam876/lllmscanner/internal/history"
	"github.com/vam876/lllmscanner/internal/ingest"
	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/notifier"
	"github.com/vam876/lllmscanner/internal/scan"
	"github.com/vam876/lllmscanner/internal/storage"
	"github.com/vam876/lllmscanner/internal/webui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	kv, err := openStorage(cfg)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}
	defer kv.Close()

	hist := history.New(kv, cfg.HistoryLimit)
	if _, err := hist.Load(); err != nil {
		// битая история не блокирует запуск: едем с пустой
		logger.Warnf("history load: %v", err)
	}

	agg := aggregate.New(kv)
	if err := agg.Restore(); err != nil {
		logger.Warnf("restore last scan state: %v", err)
	}

	f := feed.New(cfg.LogDedupWindow, cfg.NotificationTTL())

	eng := engine.NewClient(cfg.Engine.BaseURL, cfg.EngineTimeout())

	var findings notifier.Notifier
	if cfg.Telegram.Enabled {
		findings = notifier.NewTelegramNotifier(cfg)
	}

	ctrl := scan.NewController(eng, agg, hist, f, findings)

	hub := engine.NewHub()
	adapter := ingest.New(hub, ctrl.Handlers(), f)
	adapter.Start()
	defer adapter.Close()

	srv := &http.Server{
		Addr:    cfg.WebUI.Listen,
		Handler: webui.NewServer(cfg, hub, agg, hist, f, ctrl).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("scannerd listening on http://%s", cfg.WebUI.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// openStorage: Postgres если задан dsn, иначе локальный bbolt.
func openStorage(cfg *config.Config) (storage.KV, error) {
	if cfg.Database.DSN != "" {
		pg, err := storage.NewPostgres(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(cfg.Database.MigrationsDir); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, err
	}
	return storage.NewBolt(cfg.DBPath)
}
