package unblocker

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/runtime/simulation"
)

// blockedState admits every demand and runs one burst per process so that
// each ends up Blocked.
func blockedState(t *testing.T, resources []int, demands ...int) *simulation.State {
	t.Helper()
	config := simulation.DefaultConfig()
	config.Verify = true
	state := simulation.New(config, simulation.WithAssigner(policy.NewFixed(resources...)))
	ctx := context.Background()
	for _, demand := range demands {
		p, err := state.Submit(ctx, demand)
		require.NoError(t, err)
		_, err = state.Admit(ctx, p.ID)
		require.NoError(t, err)
	}
	for range demands {
		p, ok, err := state.Dispatch(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		next, err := state.CompleteBurst(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, execution.StateBlocked, next)
	}
	return state
}

func TestService_Tick(t *testing.T) {
	testCases := []struct {
		description   string
		resources     []int
		demands       []int
		expectPromote int
		expectReady   []int
		expectBlocked []int
	}{
		{description: "no blocked processes"},
		{description: "held resource is promoted", resources: []int{0}, demands: []int{100}, expectPromote: 1, expectReady: []int{1}},
		{description: "distinct resources all promoted", resources: []int{0, 1, 2}, demands: []int{100, 100, 100}, expectPromote: 3, expectReady: []int{1, 2, 3}},
		{description: "contended resource stays blocked", resources: []int{2, 2}, demands: []int{100, 100}, expectPromote: 1, expectReady: []int{1}, expectBlocked: []int{2}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			state := blockedState(t, testCase.resources, testCase.demands...)
			logger, _ := test.NewNullLogger()
			srv := New(state, WithLogger(logger), WithConfig(Config{PollingInterval: time.Second}))

			promoted, err := srv.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, testCase.expectPromote, promoted)
			snapshot := state.Snapshot()
			assert.Equal(t, testCase.expectReady, viewIDs(snapshot.Ready))
			assert.Equal(t, testCase.expectBlocked, viewIDs(snapshot.Blocked))
		})
	}
}

func TestService_Tick_AcquiresOnceFree(t *testing.T) {
	state := blockedState(t, []int{1, 1}, 100, 100)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	srv := New(state, WithLogger(logger), WithConfig(Config{PollingInterval: time.Second}))
	ctx := context.Background()

	// P1 cycles to termination while P2 keeps probing R1
	for {
		_, err := srv.Tick(ctx)
		require.NoError(t, err)
		p, ok, err := state.Dispatch(ctx)
		require.NoError(t, err)
		if !ok || p.ID != 1 {
			break
		}
		next, err := state.CompleteBurst(ctx, p.ID)
		require.NoError(t, err)
		if next == execution.StateTerminated {
			break
		}
	}
	busy := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "resource busy" {
			busy++
			assert.Equal(t, 2, entry.Data["process"])
		}
	}
	assert.Equal(t, 3, busy)

	promoted, err := srv.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
	view, _ := state.Snapshot().Find(2)
	assert.Equal(t, execution.StateReady, view.State)
	assert.True(t, view.HoldsResource)
}

func TestService_HeldWait(t *testing.T) {
	virtual := clock.NewVirtual(time.Unix(0, 0))
	state := blockedState(t, []int{0}, 100)
	logger, _ := test.NewNullLogger()
	srv := New(state, WithClock(virtual), WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.NoError(t, virtual.WaitForWaiters(ctx, 1))
	virtual.Advance(2 * time.Second)
	require.NoError(t, virtual.WaitForWaiters(ctx, 1))
	assert.Len(t, state.Blocked(), 1, "held wait in progress")
	virtual.Advance(time.Second)
	require.NoError(t, virtual.WaitForWaiters(ctx, 1))
	assert.Empty(t, state.Blocked())
	assert.Len(t, state.Snapshot().Ready, 1)

	srv.Shutdown()
	assert.NoError(t, <-done)
}

func viewIDs(views []simulation.ProcessView) []int {
	var out []int
	for _, view := range views {
		out = append(out, view.ID)
	}
	return out
}
