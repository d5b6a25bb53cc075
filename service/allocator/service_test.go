package allocator

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/model/types"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/runtime/simulation"
)

func TestService_Tick(t *testing.T) {
	testCases := []struct {
		description   string
		demands       []int
		expectAdmit   int
		expectPending int
		expectUsedMB  int
	}{
		{description: "nothing pending", demands: nil},
		{description: "single 120MB process", demands: []int{120}, expectAdmit: 1, expectUsedMB: 150},
		{description: "oldest first, younger waits", demands: []int{950, 100}, expectAdmit: 1, expectPending: 1, expectUsedMB: 950},
		{description: "smaller younger process still fits", demands: []int{900, 200, 50}, expectAdmit: 2, expectPending: 1, expectUsedMB: 950},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			state := simulation.New(simulation.DefaultConfig(), simulation.WithAssigner(policy.NewFixed(0)))
			for _, demand := range testCase.demands {
				_, err := state.Submit(context.Background(), demand)
				require.NoError(t, err)
			}
			logger, hook := test.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			srv := New(state, WithLogger(logger))

			admitted, err := srv.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, testCase.expectAdmit, admitted)
			snapshot := state.Snapshot()
			assert.Len(t, snapshot.New, testCase.expectPending)
			assert.Len(t, snapshot.Ready, testCase.expectAdmit)
			assert.Equal(t, testCase.expectUsedMB, snapshot.MemoryUsedMB)
			for _, entry := range hook.AllEntries() {
				assert.Equal(t, simulation.LoopAdmission, entry.Data["loop"])
			}
		})
	}
}

func TestService_Start(t *testing.T) {
	virtual := clock.NewVirtual(time.Unix(0, 0))
	state := simulation.New(simulation.DefaultConfig(), simulation.WithClock(virtual))
	logger, _ := test.NewNullLogger()
	srv := New(state, WithClock(virtual), WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	p, err := state.Submit(ctx, 120)
	require.NoError(t, err)
	require.NoError(t, virtual.WaitForWaiters(ctx, 1))
	virtual.Advance(2 * time.Second)
	view, _ := state.Snapshot().Find(p.ID)
	assert.Equal(t, execution.StateNew, view.State, "interval has not elapsed")

	virtual.Advance(time.Second)
	require.NoError(t, virtual.WaitForWaiters(ctx, 1))
	view, _ = state.Snapshot().Find(p.ID)
	assert.Equal(t, execution.StateReady, view.State)

	srv.Shutdown()
	srv.Shutdown()
	assert.NoError(t, <-done)
}

func TestService_Start_Cancelled(t *testing.T) {
	state := simulation.New(simulation.DefaultConfig())
	srv := New(state, WithConfig(Config{PollingInterval: time.Hour}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := srv.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, types.IsInvariant(err))
}
