package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campusnews/internal/config"
	"campusnews/internal/logger"
	server "campusnews/internal/transport/http"
	"campusnews/internal/worker"
)

const staticDir = "web/static/"

// App представляет основное приложение агрегатора студенческой прессы.
// Координирует работу сессии агрегации, воркера, HTTP-сервера и архива.
type App struct {
	config   *config.Config
	logger   *slog.Logger
	core     *Core
	server   *http.Server
	worker   *worker.Worker
	stopChan chan os.Signal
	wg       sync.WaitGroup
}

// New создает и инициализирует приложение.
// Возвращает ошибку в случае сбоя любой из инициализационных процедур.
func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	slog.SetDefault(appLogger)
	return NewWithLogger(cfg, appLogger)
}

// NewWithLogger создает приложение с готовым логгером.
func NewWithLogger(cfg *config.Config, appLogger *slog.Logger) (*App, error) {
	core, err := NewCore(context.Background(), cfg, appLogger)
	if err != nil {
		return nil, err
	}
	w := worker.New(core.Feed, cfg.App.RefreshIntervalDuration(), appLogger)
	handler := server.NewHandler(appLogger, core.Feed, core.Archived, w, server.Limits{
		Latest:     cfg.App.LatestCount,
		Highlights: cfg.App.HighlightCount,
	})
	router := server.NewServer(appLogger, handler, staticDir)
	return &App{
		config: cfg,
		logger: appLogger,
		core:   core,
		server: &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		worker:   w,
		stopChan: make(chan os.Signal, 1),
	}, nil
}

// Run запускает сессию агрегации и HTTP-сервер и блокируется до сигнала завершения.
func (a *App) Run() error {
	a.logger.Info("Starting campus press aggregator",
		slog.String("component", "app"),
		slog.String("registry", a.config.App.RegistryPath),
		slog.String("refresh_interval", a.worker.GetInterval().String()),
	)
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	a.worker.Start()
	a.logger.Info("HTTP server ready",
		slog.String("component", "server"),
		slog.String("address", listener.Addr().String()),
	)
	serveErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
			serveErr <- err
		}
	}()
	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.stopChan)
	select {
	case sig := <-a.stopChan:
		a.logger.Info("Shutdown signal received",
			slog.String("component", "app"),
			slog.String("signal", sig.String()),
		)
	case err := <-serveErr:
		_ = a.Shutdown()
		return fmt.Errorf("http server: %w", err)
	}
	return a.Shutdown()
}

// Shutdown останавливает воркер, HTTP-сервер и закрывает соединение с БД.
// HTTP-серверу дается 10 секунд на завершение.
func (a *App) Shutdown() error {
	a.logger.Info("Starting graceful shutdown", slog.String("component", "app"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	a.core.Close()
	a.wg.Wait()
	a.logger.Info("Application stopped gracefully", slog.String("component", "app"))
	return nil
}
