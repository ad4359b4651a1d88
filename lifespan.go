package fiberadmin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStopped is returned by Start once the lifespan has been stopped.
var ErrStopped = errors.New("fiberadmin: lifespan already stopped")

// Hook pairs a startup step with its teardown. Either function may be nil.
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Lifespan runs startup hooks in registration order and their teardowns in
// reverse order. Each runs at most once.
type Lifespan struct {
	logger Logger

	// run serializes Start and Stop so Stop waits for a running Start.
	run sync.Mutex

	mu      sync.Mutex
	hooks   []Hook
	started []Hook
	ran     bool
	stopped bool

	startErr error
	stopErr  error
}

// NewLifespan creates an empty lifespan.
func NewLifespan(logger Logger) *Lifespan {
	return &Lifespan{logger: logger}
}

// Append registers a hook. Hooks appended after Start are ignored.
func (l *Lifespan) Append(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ran || l.stopped {
		l.logger.Warn("lifespan hook appended after start, ignoring", "hook", h.Name)
		return
	}
	l.hooks = append(l.hooks, h)
}

// Start runs every OnStart in order. If one fails, the hooks already
// started are stopped in reverse order and the failure is returned wrapped
// with the hook's name. Later calls return the first result.
func (l *Lifespan) Start(ctx context.Context) error {
	l.run.Lock()
	defer l.run.Unlock()

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	if l.ran {
		err := l.startErr
		l.mu.Unlock()
		return err
	}
	l.ran = true
	hooks := append([]Hook(nil), l.hooks...)
	l.mu.Unlock()

	for _, h := range hooks {
		if h.OnStart != nil {
			l.logger.Debug("starting", "hook", h.Name)
			if err := call(ctx, h.OnStart); err != nil {
				startErr := fmt.Errorf("fiberadmin: start %s: %w", h.Name, err)
				l.logger.Error("startup failed, rolling back", "hook", h.Name, "error", err)
				if rerr := l.stopStarted(ctx); rerr != nil {
					l.logger.Error("rollback incomplete", "error", rerr)
				}
				l.mu.Lock()
				l.startErr = startErr
				l.mu.Unlock()
				return startErr
			}
		}
		l.mu.Lock()
		l.started = append(l.started, h)
		l.mu.Unlock()
		l.logger.Info("started", "hook", h.Name)
	}
	return nil
}

// Stop runs OnStop for every started hook in reverse order. Every hook is
// attempted; failures are logged and joined. Later calls return the first
// result. Stop before Start is a no-op and makes later Starts fail.
func (l *Lifespan) Stop(ctx context.Context) error {
	l.run.Lock()
	defer l.run.Unlock()

	l.mu.Lock()
	if l.stopped {
		err := l.stopErr
		l.mu.Unlock()
		return err
	}
	l.stopped = true
	l.mu.Unlock()

	err := l.stopStarted(ctx)

	l.mu.Lock()
	l.stopErr = err
	l.mu.Unlock()
	return err
}

func (l *Lifespan) stopStarted(ctx context.Context) error {
	l.mu.Lock()
	started := l.started
	l.started = nil
	l.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		h := started[i]
		if h.OnStop == nil {
			continue
		}
		if err := call(ctx, h.OnStop); err != nil {
			l.logger.Error("shutdown hook failed", "hook", h.Name, "error", err)
			errs = append(errs, fmt.Errorf("fiberadmin: stop %s: %w", h.Name, err))
			continue
		}
		l.logger.Info("stopped", "hook", h.Name)
	}
	return errors.Join(errs...)
}

// call runs fn and turns a panic into an error.
func call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
