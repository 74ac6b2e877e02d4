// Package session owns process-level lifecycle: the fatal-error supervisor
// shared by both device contexts and the ordered teardown of the bridge.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

// Supervisor turns the first fatal error from any component into the
// cancellation cause of the session context.
type Supervisor struct {
	cancel context.CancelCauseFunc

	mu  sync.Mutex
	err error
}

func NewSupervisor(parent context.Context) (context.Context, *Supervisor) {
	ctx, cancel := context.WithCancelCause(parent)
	return ctx, &Supervisor{cancel: cancel}
}

// Fatal records err and cancels the session. Later calls are logged only.
func (s *Supervisor) Fatal(source string, err error) {
	if err == nil {
		return
	}
	err = fmt.Errorf("%s: %w", source, err)

	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()

	if first {
		logging.Logger().Error("fatal error, shutting down", "err", err)
		s.cancel(err)
		return
	}
	logging.Logger().Warn("additional fatal error", "err", err)
}

// Err returns the first fatal error, or nil.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop cancels the session without recording an error.
func (s *Supervisor) Stop() { s.cancel(nil) }

type Drainer interface {
	Drain() bool
}

// Teardown releases the bridge in dependency order. Nil fields are skipped.
type Teardown struct {
	// StopProducer cancels the producer; the producer closes its channel.
	StopProducer func()
	Channel      Drainer
	// WaitWorkers waits for the producer and the copy loop to return.
	WaitWorkers  func() error
	ProducerIdle func() error
	ConsumerIdle func() error
	Importer     interface{ Destroy() }
	Exporter     interface{ Destroy() error }
}

// Run performs every step even when earlier ones fail and joins their errors.
func (t Teardown) Run() error {
	log := logging.Logger()
	var errs []error

	if t.StopProducer != nil {
		t.StopProducer()
	}
	if t.Channel != nil && t.Channel.Drain() {
		log.Debug("released queued frame during shutdown")
	}
	if t.WaitWorkers != nil {
		if err := t.WaitWorkers(); err != nil {
			errs = append(errs, err)
		}
	}
	// A send racing the cancel can still have queued one frame.
	if t.Channel != nil && t.Channel.Drain() {
		log.Debug("released queued frame during shutdown")
	}
	if t.ProducerIdle != nil {
		if err := t.ProducerIdle(); err != nil {
			errs = append(errs, fmt.Errorf("producer device idle: %w", err))
		}
	}
	if t.ConsumerIdle != nil {
		if err := t.ConsumerIdle(); err != nil {
			errs = append(errs, fmt.Errorf("consumer device idle: %w", err))
		}
	}
	if t.Importer != nil {
		t.Importer.Destroy()
	}
	if t.Exporter != nil {
		if err := t.Exporter.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy exporter: %w", err))
		}
	}

	log.Debug("bridge torn down")
	return errors.Join(errs...)
}
