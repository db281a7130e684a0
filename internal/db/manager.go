package db

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hsm-gustavo/todo-go/internal/config"
	"github.com/hsm-gustavo/todo-go/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// Acquirer hands out the store handle, bootstrapping it on first use.
type Acquirer interface {
	Acquire(ctx context.Context) (*Store, error)
}

type OpenFunc func(ctx context.Context) (*Store, error)

// Manager lazily opens the store and caches it for the life of the process.
// Once a Store is cached it is returned without further attempts; a failed
// bootstrap leaves nothing cached so the next caller starts over.
type Manager struct {
	open      OpenFunc
	attempts  int
	baseDelay time.Duration
	log       zerolog.Logger

	store atomic.Pointer[Store]
	// single slot: at most one bootstrap sequence runs at a time
	sem chan struct{}
}

func NewManager(cfg config.DatabaseConfig, log zerolog.Logger) *Manager {
	open := func(ctx context.Context) (*Store, error) {
		return Open(ctx, cfg)
	}
	return newManager(open, cfg.ConnectAttempts, cfg.ConnectBaseDelay, log)
}

func newManager(open OpenFunc, attempts int, baseDelay time.Duration, log zerolog.Logger) *Manager {
	if attempts < 1 {
		attempts = 1
	}
	return &Manager{
		open:      open,
		attempts:  attempts,
		baseDelay: baseDelay,
		log:       log.With().Str("component", "store").Logger(),
		sem:       make(chan struct{}, 1),
	}
}

// Acquire returns the cached Store, bootstrapping it when needed. Transient
// failures are retried with exponential backoff (baseDelay * 2^attempt).
// Failures are reported as ErrUnavailable.
func (m *Manager) Acquire(ctx context.Context) (*Store, error) {
	if s := m.store.Load(); s != nil {
		return s, nil
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
	defer func() { <-m.sem }()

	// another caller may have finished while we waited
	if s := m.store.Load(); s != nil {
		return s, nil
	}

	m.log.Info().
		Int("attempts", m.attempts).
		Dur("base_delay", m.baseDelay).
		Msg("connecting to store")

	backoff := retry.WithMaxRetries(uint64(m.attempts-1), retry.NewExponential(m.baseDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		s, err := m.open(ctx)
		if err == nil {
			metrics.RecordBootstrapAttempt("success")
			m.store.Store(s)
			return nil
		}
		if !IsTransient(err) {
			metrics.RecordBootstrapAttempt("fatal")
			m.log.Error().Err(err).Int("attempt", attempt).Msg("store bootstrap failed")
			return err
		}
		metrics.RecordBootstrapAttempt("transient")
		m.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", m.attempts).
			Msg("store not ready, retrying")
		return retry.RetryableError(err)
	})
	if err != nil {
		m.log.Error().Err(err).Int("attempts", attempt).Msg("could not connect to store")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	m.log.Info().Int("attempts", attempt).Msg("connected to store")
	return m.store.Load(), nil
}

// Ready reports whether a Store has been cached. It never triggers a bootstrap.
func (m *Manager) Ready() (*Store, bool) {
	s := m.store.Load()
	return s, s != nil
}

func (m *Manager) Close() error {
	if s := m.store.Load(); s != nil {
		return s.Close()
	}
	return nil
}
