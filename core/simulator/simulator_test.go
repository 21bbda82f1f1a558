package simulator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"robot-training-hub/core/models"
	"robot-training-hub/core/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Publish(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t models.EventType) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, e := range r.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type flakyStore struct {
	*repository.MemoryStore
	mu       sync.Mutex
	appended int
	failAt   int
}

func (s *flakyStore) AppendMetric(ctx context.Context, sample *models.MetricSample) error {
	s.mu.Lock()
	s.appended++
	n := s.appended
	s.mu.Unlock()
	if n >= s.failAt {
		return errors.New("disk full")
	}
	return s.MemoryStore.AppendMetric(ctx, sample)
}

func newJob(t *testing.T, store *repository.MemoryStore, total int) *models.TrainingJob {
	t.Helper()
	job := &models.TrainingJob{UserID: 1, Name: "walker", TotalEpochs: total}
	require.NoError(t, store.CreateJob(context.Background(), job))
	return job
}

func newTestManager(store Store, pub Publisher, interval time.Duration) *Manager {
	return NewManager(store, pub, WithInterval(interval), WithRand(rand.New(rand.NewSource(42))))
}

func waitForStatus(t *testing.T, store Store, id int64, status models.JobStatus) *models.TrainingJob {
	t.Helper()
	var job *models.TrainingJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetJob(context.Background(), id)
		return err == nil && job.Status == status
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestRunCompletesAfterTotalEpochs(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	pub := &recorder{}
	m := newTestManager(store, pub, 5*time.Millisecond)
	defer m.Shutdown()

	job := newJob(t, store, 5)
	require.True(t, m.Start(job))

	done := waitForStatus(t, store, job.ID, models.JobStatusCompleted)
	require.Eventually(t, func() bool { return !m.Running(job.ID) }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 5, done.CurrentEpoch)
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.CompletedAt)

	samples, err := store.ListMetrics(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, samples, 5)
	for i, s := range samples {
		assert.Equal(t, i+1, s.Epoch)
	}

	complete := pub.ofType(models.EventTrainingComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, job.ID, complete[0].EventJobID())

	for _, e := range pub.ofType(models.EventTrainingProgress) {
		p := e.(*models.TrainingProgressEvent)
		assert.Equal(t, models.ProgressFor(p.Epoch, 5), p.Progress)
		assert.LessOrEqual(t, p.Epoch, 5)
	}

	logs, err := store.ListLogs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 6)
	assert.Regexp(t, `^Epoch 1/5 - Reward: \d+\.\d, Loss: \d\.\d{4}$`, logs[0].Message)
	assert.Equal(t, models.LogLevelInfo, logs[5].Level)

	// completed is sticky and later ticks write nothing
	time.Sleep(30 * time.Millisecond)
	samples, err = store.ListMetrics(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, samples, 5)
}

func TestStartIsIdempotentPerJob(t *testing.T) {
	store := repository.NewMemoryStore()
	m := newTestManager(store, &recorder{}, time.Hour)
	defer m.Shutdown()

	job := newJob(t, store, 10)
	assert.True(t, m.Start(job))
	assert.False(t, m.Start(job))
	assert.Equal(t, 1, m.Active())

	other := newJob(t, store, 10)
	other.Status = models.JobStatusFailed
	assert.False(t, m.Start(other))
}

func TestStopCancelsRunner(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	m := newTestManager(store, &recorder{}, 5*time.Millisecond)
	defer m.Shutdown()

	job := newJob(t, store, 10000)
	require.True(t, m.Start(job))

	require.Eventually(t, func() bool {
		j, err := store.GetJob(ctx, job.ID)
		return err == nil && j.CurrentEpoch >= 2
	}, 5*time.Second, 5*time.Millisecond)

	assert.True(t, m.Stop(job.ID))
	assert.False(t, m.Running(job.ID))
	assert.False(t, m.Stop(job.ID))

	before, err := store.ListMetrics(ctx, job.ID)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	after, err := store.ListMetrics(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestRunExitsWhenJobBecomesTerminal(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	m := newTestManager(store, &recorder{}, 5*time.Millisecond)
	defer m.Shutdown()

	job := newJob(t, store, 10000)
	require.True(t, m.Start(job))
	require.Eventually(t, func() bool {
		j, err := store.GetJob(ctx, job.ID)
		return err == nil && j.CurrentEpoch >= 1
	}, 5*time.Second, 5*time.Millisecond)

	failed := models.JobStatusFailed
	_, err := store.UpdateJob(ctx, job.ID, models.JobPatch{Status: &failed})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !m.Running(job.ID) }, 5*time.Second, 5*time.Millisecond)
	j, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, j.Status)
}

func TestStoreErrorFailsJob(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	store := &flakyStore{MemoryStore: mem, failAt: 3}
	pub := &recorder{}
	m := newTestManager(store, pub, 5*time.Millisecond)
	defer m.Shutdown()

	job := newJob(t, mem, 10)
	require.True(t, m.Start(job))

	failed := waitForStatus(t, store, job.ID, models.JobStatusFailed)
	require.Eventually(t, func() bool { return !m.Running(job.ID) }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, failed.CurrentEpoch)
	assert.NotNil(t, failed.CompletedAt)

	logs, err := mem.ListLogs(ctx, job.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, models.LogLevelError, last.Level)
	assert.Contains(t, last.Message, "disk full")

	updates := pub.ofType(models.EventTrainingUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, models.JobStatusFailed, updates[0].(*models.TrainingUpdateEvent).Job.Status)
	assert.Empty(t, pub.ofType(models.EventTrainingComplete))
}

func TestResumeFromCurrentEpoch(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	m := newTestManager(store, &recorder{}, 5*time.Millisecond)
	defer m.Shutdown()

	job := newJob(t, store, 4)
	epoch, running := 2, models.JobStatusRunning
	resumed, err := store.UpdateJob(ctx, job.ID, models.JobPatch{CurrentEpoch: &epoch, Status: &running})
	require.NoError(t, err)

	require.True(t, m.Start(resumed))
	waitForStatus(t, store, job.ID, models.JobStatusCompleted)

	samples, err := store.ListMetrics(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 3, samples[0].Epoch)
	assert.Equal(t, 4, samples[1].Epoch)
}

func TestShutdownRefusesNewRuns(t *testing.T) {
	store := repository.NewMemoryStore()
	m := newTestManager(store, &recorder{}, time.Hour)

	require.True(t, m.Start(newJob(t, store, 3)))
	m.Shutdown()
	assert.Equal(t, 0, m.Active())
	assert.False(t, m.Start(newJob(t, store, 3)))
}

func TestParamsMetricsBounds(t *testing.T) {
	p := DefaultParams()
	rng := rand.New(rand.NewSource(7))

	for epoch := 1; epoch <= 1000; epoch++ {
		got := p.Metrics(epoch, rng)
		assert.GreaterOrEqual(t, got.Loss, 0.001)
		assert.LessOrEqual(t, got.Reward, 500.0)
		assert.LessOrEqual(t, got.Accuracy, 99.0)
	}

	first := p.Metrics(1, rng)
	assert.GreaterOrEqual(t, first.Reward, 202.0)
	assert.Less(t, first.Reward, 252.0)
	assert.GreaterOrEqual(t, first.Accuracy, 70.5)
	assert.Less(t, first.Accuracy, 75.5)

	late := p.Metrics(400, rng)
	assert.Equal(t, 500.0, late.Reward)
	assert.Equal(t, 99.0, late.Accuracy)
}
