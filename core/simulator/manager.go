package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"robot-training-hub/core/models"

	log "github.com/sirupsen/logrus"
)

// Store is the slice of the persistence layer a training run writes to
type Store interface {
	GetJob(ctx context.Context, id int64) (*models.TrainingJob, error)
	UpdateJob(ctx context.Context, id int64, patch models.JobPatch) (*models.TrainingJob, error)
	AppendMetric(ctx context.Context, sample *models.MetricSample) error
	AppendLog(ctx context.Context, entry *models.LogEntry) error
}

// Publisher receives the events produced by training runs
type Publisher interface {
	Publish(event models.Event)
}

// Observer is notified of run activity, used for metrics
type Observer interface {
	ObserveEpoch(m models.EpochMetrics)
	ObserveFinished(status models.JobStatus)
	SetActiveRunners(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveEpoch(models.EpochMetrics)  {}
func (nopObserver) ObserveFinished(models.JobStatus) {}
func (nopObserver) SetActiveRunners(int)             {}

// Option configures a Manager
type Option func(*Manager)

// WithInterval sets the time between epochs
func WithInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// WithRand sets the noise source
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithParams overrides the curve constants
func WithParams(p Params) Option {
	return func(m *Manager) { m.params = p }
}

// WithObserver attaches an activity observer
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager owns one runner goroutine per training job
type Manager struct {
	store    Store
	pub      Publisher
	params   Params
	interval time.Duration
	observer Observer

	rngMu sync.Mutex
	rng   *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	runners map[int64]*runner
	closed  bool
}

type runner struct {
	jobID  int64
	epoch  int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a simulator manager
func NewManager(store Store, pub Publisher, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    store,
		pub:      pub,
		params:   DefaultParams(),
		interval: 2 * time.Second,
		observer: nopObserver{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:      ctx,
		cancel:   cancel,
		runners:  make(map[int64]*runner),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches a runner for job, resuming from its current epoch.
// It returns false when the job already has a runner, is terminal, or the manager is shut down.
func (m *Manager) Start(job *models.TrainingJob) bool {
	if job.Status.Terminal() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if _, ok := m.runners[job.ID]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(m.ctx)
	r := &runner{
		jobID:  job.ID,
		epoch:  job.CurrentEpoch,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.runners[job.ID] = r
	m.observer.SetActiveRunners(len(m.runners))

	m.wg.Add(1)
	go m.run(ctx, r)

	log.WithFields(log.Fields{"job_id": job.ID, "from_epoch": job.CurrentEpoch}).Info("training run started")
	return true
}

// Stop cancels the runner of jobID and waits for it to exit.
// It reports whether a runner was active.
func (m *Manager) Stop(jobID int64) bool {
	m.mu.Lock()
	r, ok := m.runners[jobID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	r.cancel()
	<-r.done
	return true
}

// Running reports whether jobID has a live runner
func (m *Manager) Running(jobID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runners[jobID]
	return ok
}

// Active returns the number of live runners
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runners)
}

// Shutdown cancels every runner and waits for them to exit
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) remove(r *runner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runners[r.jobID] == r {
		delete(m.runners, r.jobID)
	}
	m.observer.SetActiveRunners(len(m.runners))
}

func (m *Manager) metrics(epoch int) models.EpochMetrics {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.params.Metrics(epoch, m.rng)
}

func (m *Manager) publish(event models.Event) {
	if m.pub != nil {
		m.pub.Publish(event)
	}
}
