// Package bootstrap provides application lifecycle helpers.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// App runs a service until it stops or the process is signalled, then
// releases resources through the registered shutdown hooks.
type App struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration

	mu    sync.Mutex
	hooks []shutdownHook
}

// New creates a new App. Shutdown hooks together get at most shutdownTimeout.
func New(logger *zap.Logger, shutdownTimeout time.Duration) *App {
	return &App{logger: logger, shutdownTimeout: shutdownTimeout}
}

// AddShutdownHook registers fn under name. Hooks run in reverse order of
// registration. Safe for concurrent use.
func (a *App) AddShutdownHook(name string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, shutdownHook{name: name, fn: fn})
}

// Run executes run until it returns or SIGINT/SIGTERM arrives, then runs the
// shutdown hooks. The error of run, if any, is joined with hook errors.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down", zap.Error(context.Cause(ctx)))
	case runErr = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancelShutdown()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := make([]shutdownHook, len(a.hooks))
	copy(hooks, a.hooks)
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			a.logger.Error("Shutdown hook failed", zap.String("hook", h.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		a.logger.Debug("Shutdown hook finished", zap.String("hook", h.name))
	}
	return errors.Join(errs...)
}
