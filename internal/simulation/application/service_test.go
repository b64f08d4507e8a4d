package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/heston/internal/simulation/domain"
	"github.com/wyfcoding/heston/pkg/config"
	"github.com/wyfcoding/heston/pkg/metrics"
)

type recordedEvent struct {
	eventType string
	key       string
	event     any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, eventType, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{eventType: eventType, key: key, event: event})
	return f.err
}

func (f *fakePublisher) ofType(eventType string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testServiceConfig() config.SimulationConfig {
	return config.SimulationConfig{
		MinTimeSteps:     10,
		MaxBatchSize:     5000,
		DefaultBatchSize: 200,
		MaxSessions:      3,
	}
}

func referenceParams() SimulationParams {
	return SimulationParams{
		S0: 100, V0: 0.04, R: 0.05, Theta: 0.04, Kappa: 2, Xi: 0.3, Rho: -0.7, T: 1, K: 100, N: 20,
	}
}

func newTestService(t *testing.T) (*SimulationService, *fakePublisher, *metrics.Metrics) {
	t.Helper()
	pub := &fakePublisher{}
	m := metrics.New("test")
	return NewSimulationService(testServiceConfig(), pub, m), pub, m
}

func TestCreateSimulation(t *testing.T) {
	svc, pub, m := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 42})
	require.NoError(t, err)

	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, GeneratorPCG, dto.Generator)
	assert.Equal(t, uint64(42), dto.Seed)
	assert.True(t, dto.Initialized)
	assert.Equal(t, "TRACKING", dto.Phase)
	assert.Zero(t, dto.SimulationCount)
	assert.True(t, dto.OptionPrice.IsZero())
	assert.InDelta(t, 10.4506, dto.BlackScholesPrice.InexactFloat64(), 1e-3)
	assert.Equal(t, referenceParams(), dto.Config)

	events := pub.ofType(domain.SimulationInitializedEventType)
	require.Len(t, events, 1)
	assert.Equal(t, dto.ID, events[0].key)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
}

func TestCreateSimulation_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateSimulationCommand)
		wantErr error
	}{
		{"rho out of range", func(c *CreateSimulationCommand) { c.Rho = 1.5 }, domain.ErrInvalidConfig},
		{"non-positive strike", func(c *CreateSimulationCommand) { c.K = 0 }, domain.ErrInvalidConfig},
		{"too few steps", func(c *CreateSimulationCommand) { c.N = 5 }, ErrTimeStepsTooFew},
		{"unknown generator", func(c *CreateSimulationCommand) { c.Generator = "mt" }, ErrUnknownGenerator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub, _ := newTestService(t)
			cmd := CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 1}
			tt.mutate(&cmd)

			dto, err := svc.CreateSimulation(context.Background(), cmd)
			assert.Nil(t, dto)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsClientError(err))
			assert.Empty(t, pub.events)

			list, err := svc.ListSimulations(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCreateSimulation_TooManySessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: uint64(i + 1)})
		require.NoError(t, err)
	}

	_, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams()})
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestRunBatch(t *testing.T) {
	svc, pub, m := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 7})
	require.NoError(t, err)

	dto, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, 200, dto.SimulationCount)
	assert.Equal(t, 1, dto.Batches)
	assert.Equal(t, 200, dto.ArchiveSize)
	assert.Equal(t, "TRACKING", dto.Phase)
	assert.True(t, dto.OptionPrice.IsPositive())

	dto, err = svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 900})
	require.NoError(t, err)
	assert.Equal(t, 1100, dto.SimulationCount)
	assert.Equal(t, "ACCUMULATING", dto.Phase)
	assert.Equal(t, domain.TrackingLimit, dto.ArchiveSize)

	assert.Len(t, pub.ofType(domain.SimulationBatchCompletedEventType), 2)
	tracking := pub.ofType(domain.SimulationTrackingCompletedEventType)
	require.Len(t, tracking, 1)
	ev := tracking[0].event.(domain.SimulationTrackingCompletedEvent)
	assert.Equal(t, domain.TrackingLimit, ev.ArchiveSize)
	assert.LessOrEqual(t, ev.MinFinal, ev.MedianFinal)
	assert.LessOrEqual(t, ev.MedianFinal, ev.MaxFinal)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal))
	assert.Equal(t, 1100.0, testutil.ToFloat64(m.PathsSimulated.WithLabelValues("TRACKING")))
}

func TestRunBatch_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 7})
	require.NoError(t, err)

	_, err = svc.RunBatch(ctx, RunBatchCommand{ID: "missing"})
	assert.ErrorIs(t, err, ErrSimulationNotFound)

	_, err = svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidBatchSize)

	_, err = svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 5001})
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	got, err := svc.GetSimulation(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, got.SimulationCount)
}

func TestRunBatch_PublishFailureDoesNotFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewSimulationService(testServiceConfig(), pub, nil)
	ctx := context.Background()

	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 3})
	require.NoError(t, err)
	dto, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, dto.SimulationCount)
}

func TestSameSeedIsReproducible(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var prices []float64
	for _, gen := range []string{GeneratorLCG, GeneratorLCG} {
		created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 99, Generator: gen})
		require.NoError(t, err)
		dto, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 300})
		require.NoError(t, err)
		prices = append(prices, dto.OptionPrice.InexactFloat64())
	}
	assert.Equal(t, prices[0], prices[1])
}

func TestReinitialize(t *testing.T) {
	svc, pub, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 5})
	require.NoError(t, err)
	_, err = svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 1200})
	require.NoError(t, err)

	bad := referenceParams()
	bad.Rho = -2
	_, err = svc.Reinitialize(ctx, ReinitializeCommand{ID: created.ID, SimulationParams: bad})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	got, err := svc.GetSimulation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1200, got.SimulationCount)
	assert.Equal(t, referenceParams(), got.Config)

	updated := referenceParams()
	updated.K = 110
	dto, err := svc.Reinitialize(ctx, ReinitializeCommand{ID: created.ID, SimulationParams: updated})
	require.NoError(t, err)
	assert.Zero(t, dto.SimulationCount)
	assert.Zero(t, dto.ArchiveSize)
	assert.Equal(t, "TRACKING", dto.Phase)
	assert.Equal(t, 110.0, dto.Config.K)
	assert.InDelta(t, 6.0401, dto.BlackScholesPrice.InexactFloat64(), 1e-3)
	assert.Len(t, pub.ofType(domain.SimulationInitializedEventType), 2)

	_, err = svc.Reinitialize(ctx, ReinitializeCommand{ID: "missing", SimulationParams: updated})
	assert.ErrorIs(t, err, ErrSimulationNotFound)
}

func TestPercentilePaths(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 11})
	require.NoError(t, err)

	_, err = svc.GetPercentilePath(ctx, created.ID, 50)
	assert.ErrorIs(t, err, ErrPercentileUnavailable)
	paths, err := svc.ListPercentilePaths(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 1000})
	require.NoError(t, err)

	median, err := svc.GetPercentilePath(ctx, created.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, median.Percentile)
	assert.Len(t, median.Prices, referenceParams().N+1)
	assert.Equal(t, 100.0, median.Prices[0])

	_, err = svc.GetPercentilePath(ctx, created.ID, 7)
	assert.ErrorIs(t, err, ErrPercentileUnavailable)

	paths, err = svc.ListPercentilePaths(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, paths, 5)
	for i := 1; i < len(paths); i++ {
		assert.True(t, paths[i-1].Final.LessThanOrEqual(paths[i].Final))
	}
	assert.Equal(t, []int{0, 25, 50, 75, 100}, []int{
		paths[0].Percentile, paths[1].Percentile, paths[2].Percentile, paths[3].Percentile, paths[4].Percentile,
	})
}

func TestRunUntil(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 13})
	require.NoError(t, err)

	var counts []int
	dto, err := svc.RunUntil(ctx, RunUntilCommand{ID: created.ID, Target: 1050, BatchSize: 400}, func(d *SimulationDTO) {
		counts = append(counts, d.SimulationCount)
	})
	require.NoError(t, err)
	assert.Equal(t, 1050, dto.SimulationCount)
	assert.Equal(t, []int{400, 800, 1050}, counts)

	dto, err = svc.RunUntil(ctx, RunUntilCommand{ID: created.ID, Target: 500}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1050, dto.SimulationCount)

	_, err = svc.RunUntil(ctx, RunUntilCommand{ID: created.ID, Target: 0}, nil)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestRunUntil_Cancelled(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.CreateSimulation(context.Background(), CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 17})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	dto, err := svc.RunUntil(ctx, RunUntilCommand{ID: created.ID, Target: 10000, BatchSize: 100}, func(d *SimulationDTO) {
		if d.SimulationCount >= 300 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, dto)
	assert.Equal(t, 300, dto.SimulationCount)
}

func TestListAndDeleteSimulations(t *testing.T) {
	svc, pub, m := newTestService(t)
	ctx := context.Background()
	a, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 1})
	require.NoError(t, err)
	b, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 2})
	require.NoError(t, err)

	list, err := svc.ListSimulations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	require.NoError(t, svc.DeleteSimulation(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteSimulation(ctx, a.ID), ErrSimulationNotFound)
	_, err = svc.GetSimulation(ctx, a.ID)
	assert.ErrorIs(t, err, ErrSimulationNotFound)

	list, err = svc.ListSimulations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Len(t, pub.ofType(domain.SimulationDeletedEventType), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
}

func TestConcurrentBatchesOnOneSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 21})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 50})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetSimulation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 400, got.SimulationCount)
	assert.Equal(t, 8, got.Batches)
}

func TestReinitialize_RestartsStreamFromSeed(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 31, Generator: GeneratorLCG})
	require.NoError(t, err)

	first, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 300})
	require.NoError(t, err)

	_, err = svc.Reinitialize(ctx, ReinitializeCommand{ID: created.ID, SimulationParams: referenceParams()})
	require.NoError(t, err)
	again, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 300})
	require.NoError(t, err)

	assert.Equal(t, uint64(31), again.Seed)
	assert.True(t, first.OptionPrice.Equal(again.OptionPrice))
	assert.True(t, first.StandardError.Equal(again.StandardError))
}

func TestRunUntil_ClipsAgainstInterleavedBatches(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateSimulation(ctx, CreateSimulationCommand{SimulationParams: referenceParams(), Seed: 37})
	require.NoError(t, err)

	var counts []int
	dto, err := svc.RunUntil(ctx, RunUntilCommand{ID: created.ID, Target: 1000, BatchSize: 400}, func(d *SimulationDTO) {
		counts = append(counts, d.SimulationCount)
		if len(counts) == 1 {
			_, err := svc.RunBatch(ctx, RunBatchCommand{ID: created.ID, BatchSize: 300})
			require.NoError(t, err)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, dto.SimulationCount)
	assert.Equal(t, []int{400, 1000}, counts)
}
