package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssongk/daytrip/internal/types"
)

func TestRunWave(t *testing.T) {
	logger := slog.Default()

	t.Run("ResultsKeyedByInputIndex", func(t *testing.T) {
		orch := NewOrchestrator(4, logger)

		// Earlier tasks sleep longer, so completion order is the reverse of
		// input order; the joined result must still follow input order.
		names := []string{"first", "second", "third"}
		tasks := make([]SearchTask, len(names))
		for i, name := range names {
			delay := time.Duration(len(names)-i) * 20 * time.Millisecond
			tasks[i] = SearchTask{
				Spec: types.SlotSpec{Day: 1, Position: i},
				Run: func(ctx context.Context) (types.Place, error) {
					time.Sleep(delay)
					return types.Place{Name: name}, nil
				},
			}
		}

		places, err := orch.RunWave(context.Background(), tasks)
		require.NoError(t, err)
		require.Len(t, places, 3)
		for i, name := range names {
			assert.Equal(t, name, places[i].Name)
		}
	})

	t.Run("FirstErrorFailsWave", func(t *testing.T) {
		orch := NewOrchestrator(4, logger)
		boom := errors.New("provider down")

		tasks := []SearchTask{
			{
				Spec: types.SlotSpec{Day: 2, Position: 0},
				Run: func(ctx context.Context) (types.Place, error) {
					return types.Place{Name: "ok"}, nil
				},
			},
			{
				Spec: types.SlotSpec{Day: 2, Position: 1},
				Run: func(ctx context.Context) (types.Place, error) {
					return types.Place{}, boom
				},
			},
		}

		places, err := orch.RunWave(context.Background(), tasks)
		assert.Nil(t, places)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "day 2 position 1")
	})

	t.Run("FailureCancelsSiblings", func(t *testing.T) {
		orch := NewOrchestrator(4, logger)
		var sawCancel atomic.Bool

		tasks := []SearchTask{
			{
				Spec: types.SlotSpec{Day: 1, Position: 0},
				Run: func(ctx context.Context) (types.Place, error) {
					return types.Place{}, errors.New("fail fast")
				},
			},
			{
				Spec: types.SlotSpec{Day: 1, Position: 1},
				Run: func(ctx context.Context) (types.Place, error) {
					select {
					case <-ctx.Done():
						sawCancel.Store(true)
						return types.Place{}, ctx.Err()
					case <-time.After(2 * time.Second):
						return types.Place{Name: "too late"}, nil
					}
				},
			},
		}

		_, err := orch.RunWave(context.Background(), tasks)
		require.Error(t, err)
		assert.True(t, sawCancel.Load())
	})

	t.Run("ConcurrencyCappedAtLimit", func(t *testing.T) {
		orch := NewOrchestrator(2, logger)
		var running, peak atomic.Int32

		tasks := make([]SearchTask, 6)
		for i := range tasks {
			tasks[i] = SearchTask{
				Spec: types.SlotSpec{Day: 1, Position: i},
				Run: func(ctx context.Context) (types.Place, error) {
					now := running.Add(1)
					for {
						p := peak.Load()
						if now <= p || peak.CompareAndSwap(p, now) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					running.Add(-1)
					return types.Place{}, nil
				},
			}
		}

		_, err := orch.RunWave(context.Background(), tasks)
		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("EmptyWave", func(t *testing.T) {
		orch := NewOrchestrator(0, logger)
		places, err := orch.RunWave(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, places)
	})
}
