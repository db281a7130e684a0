package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	calls atomic.Int32
	// errs are returned in order; once exhausted the opener succeeds
	errs  []error
	delay time.Duration
	mu    sync.Mutex
	// start time of every call
	stamps []time.Time
}

func (f *fakeOpener) open(ctx context.Context) (*Store, error) {
	started := time.Now()
	n := int(f.calls.Add(1))
	f.mu.Lock()
	f.stamps = append(f.stamps, started)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= len(f.errs) {
		return nil, f.errs[n-1]
	}
	return &Store{Tables: Tables{Users: "users", Tasks: "tasks"}}, nil
}

func TestAcquire_CachesAfterFirstSuccess(t *testing.T) {
	f := &fakeOpener{}
	m := newManager(f.open, 3, time.Millisecond, zerolog.Nop())

	first, err := m.Acquire(context.Background())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s, err := m.Acquire(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, s)
	}
	assert.Equal(t, int32(1), f.calls.Load())

	ready, ok := m.Ready()
	assert.True(t, ok)
	assert.Same(t, first, ready)
}

func TestAcquire_RetriesTransientFailures(t *testing.T) {
	f := &fakeOpener{errs: []error{driver.ErrBadConn, driver.ErrBadConn}}
	m := newManager(f.open, 5, time.Millisecond, zerolog.Nop())

	s, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestAcquire_NonTransientStopsImmediately(t *testing.T) {
	denied := errors.New("access denied for user")
	f := &fakeOpener{errs: []error{denied}}
	m := newManager(f.open, 5, time.Millisecond, zerolog.Nop())

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, int32(1), f.calls.Load())

	_, ok := m.Ready()
	assert.False(t, ok)
}

func TestAcquire_ExhaustsRetryBudget(t *testing.T) {
	f := &fakeOpener{errs: []error{driver.ErrBadConn, driver.ErrBadConn, driver.ErrBadConn, driver.ErrBadConn}}
	m := newManager(f.open, 3, time.Millisecond, zerolog.Nop())

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, int32(3), f.calls.Load())

	// the next caller starts a fresh bootstrap and gets through
	s, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, int32(5), f.calls.Load())
}

func TestAcquire_ConcurrentCallersShareOneBootstrap(t *testing.T) {
	f := &fakeOpener{delay: 20 * time.Millisecond}
	m := newManager(f.open, 3, time.Millisecond, zerolog.Nop())

	const callers = 16
	stores := make([]*Store, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Acquire(context.Background())
			assert.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	f := &fakeOpener{delay: 200 * time.Millisecond}
	m := newManager(f.open, 1, time.Millisecond, zerolog.Nop())

	go func() { _, _ = m.Acquire(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseWithoutStore(t *testing.T) {
	m := newManager((&fakeOpener{}).open, 1, time.Millisecond, zerolog.Nop())
	assert.NoError(t, m.Close())
}

func TestAcquire_BackoffDoubles(t *testing.T) {
	const base = 20 * time.Millisecond
	f := &fakeOpener{errs: []error{driver.ErrBadConn, driver.ErrBadConn, driver.ErrBadConn}}
	m := newManager(f.open, 4, base, zerolog.Nop())

	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	require.Len(t, f.stamps, 4)

	// base * 2^attempt: 20ms, 40ms, 80ms
	for i := 1; i < len(f.stamps); i++ {
		gap := f.stamps[i].Sub(f.stamps[i-1])
		want := base << (i - 1)
		assert.GreaterOrEqual(t, gap, want-2*time.Millisecond, "gap %d", i)
		assert.Less(t, gap, want+50*time.Millisecond, "gap %d", i)
	}
	assert.Greater(t, f.stamps[3].Sub(f.stamps[2]), f.stamps[1].Sub(f.stamps[0]))
}
