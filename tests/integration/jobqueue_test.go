package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJobQueue_ConcurrentClaimsAreExclusive(t *testing.T) {
	tdb := NewSharedTestDB(t)
	store := jobqueue.NewStore(tdb.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	const jobs = 40
	for i := 0; i < jobs; i++ {
		_, err := store.Enqueue(ctx, jobqueue.EnqueueRequest{
			TenantID: tenantID,
			JobType:  "test.claim",
			Payload:  map[string]int{"n": i},
		})
		require.NoError(t, err)
	}

	var (
		mu      sync.Mutex
		claimed = make(map[uuid.UUID]int)
		wg      sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := store.ClaimNext(ctx, []string{"test.claim"})
				if !assert.NoError(t, err) || job == nil {
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
				assert.NoError(t, store.MarkSucceeded(ctx, job.ID))
			}
		}()
	}
	wg.Wait()

	require.Len(t, claimed, jobs)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestJobQueue_RetryThenFail(t *testing.T) {
	tdb := NewSharedTestDB(t)
	store := jobqueue.NewStore(tdb.DB, jobqueue.WithRetryBaseDelay(time.Millisecond))
	ctx := context.Background()

	queued, err := store.Enqueue(ctx, jobqueue.EnqueueRequest{
		TenantID: uuid.New(), JobType: "test.retry", Payload: struct{}{}, MaxAttempts: 2,
	})
	require.NoError(t, err)

	job, err := store.ClaimNext(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, job)
	status, err := store.MarkFailed(ctx, job, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusQueued, status)

	require.Eventually(t, func() bool {
		job, err = store.ClaimNext(ctx, nil)
		return err == nil && job != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, job.Attempts)

	status, err = store.MarkFailed(ctx, job, errors.New("boom again"))
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusFailed, status)

	stored, err := store.Get(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusFailed, stored.Status)
	assert.Equal(t, "boom again", stored.LastError)
}

func TestJobQueue_RequeueStale(t *testing.T) {
	tdb := NewSharedTestDB(t)
	now := time.Now()
	clock := func() time.Time { return now }
	store := jobqueue.NewStore(tdb.DB, jobqueue.WithClock(clock))
	ctx := context.Background()

	_, err := store.Enqueue(ctx, jobqueue.EnqueueRequest{TenantID: uuid.New(), JobType: "test.stale", Payload: struct{}{}})
	require.NoError(t, err)
	job, err := store.ClaimNext(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, job)

	now = now.Add(10 * time.Minute)
	n, err := store.RequeueStale(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, store.Heartbeat(ctx, job.ID), jobqueue.ErrJobNotRunning)
	again, err := store.ClaimNext(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
}

func TestJobQueue_PoolRunsJobs(t *testing.T) {
	tdb := NewSharedTestDB(t)
	store := jobqueue.NewStore(tdb.DB)
	reg := prometheus.NewRegistry()
	metrics := jobqueue.NewMetrics(reg)
	pool := jobqueue.NewPool(jobqueue.PoolConfig{
		Workers:           3,
		PollInterval:      20 * time.Millisecond,
		JobTimeout:        5 * time.Second,
		HeartbeatInterval: 100 * time.Millisecond,
		StaleTimeout:      time.Minute,
	}, store, metrics, zap.NewNop())

	var (
		mu   sync.Mutex
		seen []uuid.UUID
	)
	pool.Register("test.pool", jobqueue.HandlerFunc(func(_ context.Context, job *jobqueue.JobRun) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.ID)
		return nil
	}))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Enqueue(ctx, jobqueue.EnqueueRequest{TenantID: uuid.New(), JobType: "test.pool", Payload: struct{}{}})
		require.NoError(t, err)
	}

	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(context.Background()) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 5
	}, 10*time.Second, 20*time.Millisecond)

	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.Succeeded.WithLabelValues("test.pool")))
}
