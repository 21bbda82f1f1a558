package monitoring

import (
	"context"
	"testing"
	"time"

	"robot-training-hub/core/models"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs []*models.TrainingJob

func (f fakeJobs) ListJobs(context.Context, *int64) ([]*models.TrainingJob, error) {
	return f, nil
}

type fakeRunners struct {
	running map[int64]bool
	started []int64
}

func (f *fakeRunners) Running(id int64) bool { return f.running[id] }

func (f *fakeRunners) Start(job *models.TrainingJob) bool {
	f.started = append(f.started, job.ID)
	f.running[job.ID] = true
	return true
}

func TestCheckResumesOrphanedJobs(t *testing.T) {
	jobs := fakeJobs{
		{ID: 1, Status: models.JobStatusQueued},
		{ID: 2, Status: models.JobStatusRunning, CurrentEpoch: 4, TotalEpochs: 10},
		{ID: 3, Status: models.JobStatusRunning},
		{ID: 4, Status: models.JobStatusCompleted},
		{ID: 5, Status: models.JobStatusFailed},
	}
	runners := &fakeRunners{running: map[int64]bool{3: true}}
	metrics := NewMetrics(prom.NewRegistry())

	jm := NewJobMonitor(jobs, runners, metrics, time.Minute)
	resumed := jm.Check(context.Background())

	assert.Equal(t, 2, resumed)
	assert.ElementsMatch(t, []int64{1, 2}, runners.started)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.jobsByStatus.WithLabelValues("queued")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.jobsByStatus.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.jobsByStatus.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.jobsByStatus.WithLabelValues("failed")))

	// a second pass finds nothing to resume
	assert.Equal(t, 0, jm.Check(context.Background()))
}

func TestMetricsObservers(t *testing.T) {
	reg := prom.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveEpoch(models.EpochMetrics{Loss: 0.05, Reward: 260, Accuracy: 80})
	m.ObserveEpoch(models.EpochMetrics{Loss: 0.04, Reward: 270, Accuracy: 81})
	m.ObserveFinished(models.JobStatusCompleted)
	m.SetActiveRunners(3)
	m.SetClients(2)
	m.MessageDropped()
	m.ObserveRequest("GET", "/api/models", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.epochs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeRunners))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.wsClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/models", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
