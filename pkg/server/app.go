package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	applogger "MarketPulse/pkg/logger"
)

// Component is something App starts and stops.
type Component interface {
	Start(ctx context.Context)
	Stop()
}

// HTTPServer is the listener half of the app.
type HTTPServer interface {
	Start() error
	Stop(ctx context.Context) error
	Errors() <-chan error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	logger    *applogger.Logger
	scheduler Component
	pipeline  Component
	hub       Component
	http      HTTPServer

	collector       *applogger.CollectionConfig
	closers         []closer
	shutdownTimeout time.Duration
}

// New creates an App. The pipeline starts first so the scheduler never
// produces events nobody drains.
func New(l *applogger.Logger, scheduler, pipeline Component, http HTTPServer, hub Component) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		logger:          l,
		scheduler:       scheduler,
		pipeline:        pipeline,
		hub:             hub,
		http:            http,
		shutdownTimeout: 15 * time.Second,
	}
}

// AddCloser registers a resource released after every component stopped,
// in reverse registration order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// WithLogCollector ships aggregated error logs once the app runs.
func (a *App) WithLogCollector(cfg *applogger.CollectionConfig) {
	a.collector = cfg
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx ends or the HTTP
// listener fails, then shuts down in reverse order.
func (a *App) RunContext(ctx context.Context) error {
	if a.collector != nil {
		a.logger.AddCollector(a.collector)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pipeline.Start(runCtx)
	a.scheduler.Start(runCtx)
	a.hub.Start(runCtx)
	if err := a.http.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}
	a.logger.Info("marketpulse started")

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.http.Errors():
		a.logger.Error("http server failed", applogger.Error(runErr))
	}

	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	a.hub.Stop()
	a.scheduler.Stop()
	a.pipeline.Stop()

	a.logger.RemoveCollector()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}
