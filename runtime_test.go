package pagesim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/runtime/execution"
)

const parkedLoops = 3

func newService(t *testing.T, virtual *clock.Virtual, resources ...int) *Service {
	t.Helper()
	config := DefaultConfig()
	config.Scheduler.VerifyInvariants = true
	logger, _ := test.NewNullLogger()
	srv, err := New(
		WithConfig(config),
		WithClock(virtual),
		WithLogger(logger),
		WithAssigner(policy.NewFixed(resources...)),
	)
	require.NoError(t, err)
	return srv
}

// advance moves the clock one second at a time, waiting for every loop to
// park again, until done returns true or the step budget is spent.
func advance(t *testing.T, ctx context.Context, virtual *clock.Virtual, steps int, done func() bool) {
	t.Helper()
	for i := 0; i < steps; i++ {
		require.NoError(t, virtual.WaitForWaiters(ctx, parkedLoops))
		if done() {
			return
		}
		virtual.Advance(time.Second)
	}
	require.NoError(t, virtual.WaitForWaiters(ctx, parkedLoops))
	require.True(t, done(), "simulation did not settle in %d steps", steps)
}

func TestRuntime_MemoryContention(t *testing.T) {
	virtual := clock.NewVirtual(time.Unix(0, 0))
	srv := newService(t, virtual, 0, 1)
	rt := srv.Runtime()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	big, err := rt.Submit(ctx, 950)
	require.NoError(t, err)
	small, err := rt.Submit(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, rt.Start(ctx))
	assert.ErrorIs(t, rt.Start(ctx), ErrAlreadyStarted)

	advance(t, ctx, virtual, 10, func() bool {
		view, _ := rt.Snapshot().Find(big.ID)
		return view.State != execution.StateNew
	})
	snapshot := rt.Snapshot()
	assert.Equal(t, 950, snapshot.MemoryUsedMB)
	view, _ := snapshot.Find(small.ID)
	assert.Equal(t, execution.StateNew, view.State)

	advance(t, ctx, virtual, 200, func() bool {
		return len(rt.Snapshot().Terminated) == 2
	})
	require.NoError(t, rt.Shutdown(ctx))
	assert.NoError(t, rt.Err())
	assert.NoError(t, rt.Verify())

	snapshot = rt.Snapshot()
	assert.Equal(t, 0, snapshot.MemoryUsedMB)
	for _, view := range snapshot.Terminated {
		assert.Equal(t, 3, view.BlockCount)
		assert.False(t, view.HoldsResource)
	}
	counters := snapshot.Counters
	assert.Equal(t, 2, counters.Submitted)
	assert.Equal(t, 2, counters.Admitted)
	assert.Equal(t, 8, counters.Dispatched)
	assert.Equal(t, 6, counters.Blocked)
	assert.Equal(t, 2, counters.Terminated)
	assert.Greater(t, counters.AllocationMiss, 0)

	var bigTerminated, smallReady int
	for i, transition := range rt.Events().Drain() {
		switch {
		case transition.ProcessID == big.ID && transition.To == execution.StateTerminated:
			bigTerminated = i
		case transition.ProcessID == small.ID && transition.To == execution.StateReady && smallReady == 0:
			smallReady = i
		}
	}
	assert.Greater(t, smallReady, bigTerminated, "small process admitted only after the big one freed its pages")
}

func TestRuntime_ResourceContention(t *testing.T) {
	virtual := clock.NewVirtual(time.Unix(0, 0))
	srv := newService(t, virtual, 2, 2, 2)
	rt := srv.Runtime()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, demand := range []int{100, 200, 300} {
		_, err := rt.Submit(ctx, demand)
		require.NoError(t, err)
	}
	require.NoError(t, rt.Start(ctx))
	advance(t, ctx, virtual, 400, func() bool {
		return len(rt.Snapshot().Terminated) == 3
	})
	require.NoError(t, rt.Shutdown(ctx))
	assert.NoError(t, rt.Err())
	snapshot := rt.Snapshot()
	assert.False(t, snapshot.Resources[2].Held())
	assert.Greater(t, snapshot.Counters.AcquisitionMiss, 0)

	removed, err := rt.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, rt.Snapshot().Terminated)
}

func TestRuntime_Submit(t *testing.T) {
	srv := newService(t, clock.NewVirtual(time.Unix(0, 0)), 0)
	rt := srv.Runtime()
	ctx := context.Background()

	_, err := rt.Submit(ctx, 0)
	assert.ErrorIs(t, err, types.ErrInvalidDemand)
	assert.Empty(t, rt.Snapshot().New)

	p, err := rt.SubmitRandom(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Demand, 50)
	assert.LessOrEqual(t, p.Demand, 200)
	assert.NotEmpty(t, rt.ID())
}

type failingLoop struct{ err error }

func (f failingLoop) Start(context.Context) error { return f.err }

func (f failingLoop) Shutdown() {}

func TestRuntime_Faults(t *testing.T) {
	srv := newService(t, clock.NewVirtual(time.Unix(0, 0)), 0)
	rt := srv.Runtime()
	ctx := context.Background()

	rt.wg.Add(3)
	rt.run(ctx, "admission", failingLoop{err: context.Canceled})
	rt.run(ctx, "execution", failingLoop{err: types.NewInvariantError("registry", "P1 appears in both ready and blocked")})
	rt.run(ctx, "unblocking", failingLoop{err: errors.New("boom")})

	faults := rt.Faults()
	require.Len(t, faults, 2)
	assert.True(t, rt.Halted())
	assert.ErrorContains(t, rt.Err(), "execution loop")
	assert.True(t, types.IsInvariant(rt.Err()))
}

func TestNew_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Memory.PageSizeMB = 0
	_, err := New(WithConfig(config))
	assert.ErrorContains(t, err, "invalid config")
}

func TestRuntime_SubmitRandom_Concurrent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv, err := New(WithLogger(logger), WithClock(clock.NewVirtual(time.Unix(0, 0))))
	require.NoError(t, err)
	rt := srv.Runtime()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := rt.SubmitRandom(ctx); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot := rt.Snapshot()
	require.Len(t, snapshot.New, 40)
	seen := map[int]bool{}
	for _, view := range snapshot.New {
		assert.False(t, seen[view.ID], "P%d submitted twice", view.ID)
		seen[view.ID] = true
		assert.GreaterOrEqual(t, view.Demand, 50)
		assert.LessOrEqual(t, view.Demand, 200)
	}
	assert.NoError(t, rt.Verify())
}

func TestRuntime_OnProgress(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv, err := New(WithLogger(logger), WithClock(clock.NewVirtual(time.Unix(0, 0))))
	require.NoError(t, err)
	rt := srv.Runtime()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []progress.Counters
	rt.OnProgress(func(c progress.Counters) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})
	_, err = rt.Submit(ctx, 100)
	require.NoError(t, err)
	_, err = rt.Submit(ctx, 120)
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[1].Submitted)
	mu.Unlock()

	rt.OnProgress(nil)
	_, err = rt.SubmitRandom(ctx)
	require.NoError(t, err)
	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}
