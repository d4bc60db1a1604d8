package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Component is anything with a managed start/stop lifecycle: the event bus,
// the moderation janitor, the metrics server.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime starts components in registration order and stops them in reverse.
// A failed start rolls back the components already running.
type Runtime struct {
	mu         sync.Mutex
	components []Component
	running    []Component
	logger     *log.Entry
}

func NewRuntime(components ...Component) *Runtime {
	r := &Runtime{logger: log.WithField("object", "Runtime")}
	for _, component := range components {
		r.Register(component)
	}
	return r
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			r.logger.WithError(err).Errorln("cant start component, rolling back")
			r.stopRunning(ctx)
			return fmt.Errorf("start component %T: %w", component, err)
		}
		r.running = append(r.running, component)
	}
	r.logger.WithField("components", len(r.running)).Debugln("runtime started")
	return nil
}

// Stop shuts down the started components in reverse order. Safe to call when
// nothing was started.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRunning(ctx)
}

func (r *Runtime) stopRunning(ctx context.Context) error {
	var stopErr error
	for i := len(r.running) - 1; i >= 0; i-- {
		if err := r.running[i].Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop component %T: %w", r.running[i], err))
		}
	}
	r.running = r.running[:0]
	return stopErr
}
