package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"robot-training-hub/core/models"
)

// MemoryStore keeps every record in process memory. Records are copied on the way in and out
// so callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[int64]models.User
	models      map[int64]models.Model
	jobs        map[int64]models.TrainingJob
	metrics     map[int64][]models.MetricSample
	logs        map[int64][]models.LogEntry
	posts       map[int64]models.CommunityPost
	sessions    map[int64]models.ValidationSession
	marketplace map[int64]models.MarketplaceModel

	nextUserID    int64
	nextModelID   int64
	nextJobID     int64
	nextMetricID  int64
	nextLogID     int64
	nextPostID    int64
	nextSessionID int64

	now func() time.Time
}

// NewMemoryStore creates an in-memory store seeded with the default user and catalog
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		users:         make(map[int64]models.User),
		models:        make(map[int64]models.Model),
		jobs:          make(map[int64]models.TrainingJob),
		metrics:       make(map[int64][]models.MetricSample),
		logs:          make(map[int64][]models.LogEntry),
		posts:         make(map[int64]models.CommunityPost),
		sessions:      make(map[int64]models.ValidationSession),
		marketplace:   make(map[int64]models.MarketplaceModel),
		nextUserID:    1,
		nextModelID:   1,
		nextJobID:     1,
		nextMetricID:  1,
		nextLogID:     1,
		nextPostID:    1,
		nextSessionID: 1,
		now:           func() time.Time { return time.Now().UTC() },
	}

	for _, u := range seedUsers() {
		u.CreatedAt = s.now()
		s.users[u.ID] = u
		if u.ID >= s.nextUserID {
			s.nextUserID = u.ID + 1
		}
	}
	for _, m := range seedMarketplace() {
		s.marketplace[m.ID] = m
	}
	return s
}

// Close implements Store
func (s *MemoryStore) Close() error { return nil }

// Users

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user %q already exists", user.Username)
		}
	}
	user.ID = s.nextUserID
	s.nextUserID++
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	return nil
}

// Models

func (s *MemoryStore) ListModels(_ context.Context, userID *int64) ([]*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Model, 0, len(s.models))
	for _, m := range s.models {
		if m.IsPublic || (userID != nil && m.UserID == *userID) {
			cp := m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountModels(ctx context.Context, userID *int64) (int, error) {
	list, err := s.ListModels(ctx, userID)
	return len(list), err
}

func (s *MemoryStore) GetModel(_ context.Context, id int64) (*models.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	return &m, nil
}

func (s *MemoryStore) CreateModel(_ context.Context, model *models.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	model.ID = s.nextModelID
	s.nextModelID++
	model.Downloads = 0
	model.Likes = 0
	model.CreatedAt = s.now()
	s.models[model.ID] = *model
	return nil
}

func (s *MemoryStore) UpdateModel(_ context.Context, id int64, patch models.ModelPatch) (*models.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	if patch.LowersCounters(m) {
		return nil, fmt.Errorf("model %d: %w", id, ErrCounterDecrease)
	}
	patch.Apply(&m)
	s.models[id] = m
	return &m, nil
}

func (s *MemoryStore) DeleteModel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	delete(s.models, id)
	return nil
}

func (s *MemoryStore) IncrementModelCounter(_ context.Context, id int64, counter models.Counter) (*models.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	switch counter {
	case models.CounterDownloads:
		m.Downloads++
	case models.CounterLikes:
		m.Likes++
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}
	s.models[id] = m
	return &m, nil
}

// Training jobs

func (s *MemoryStore) ListJobs(_ context.Context, userID *int64) ([]*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TrainingJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if userID != nil && j.UserID != *userID {
			continue
		}
		cp := j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetJob(_ context.Context, id int64) (*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return &j, nil
}

func (s *MemoryStore) CreateJob(_ context.Context, job *models.TrainingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.ID = s.nextJobID
	s.nextJobID++
	job.Status = models.JobStatusQueued
	job.Progress = 0
	job.CurrentEpoch = 0
	job.CreatedAt = s.now()
	job.StartedAt = nil
	job.CompletedAt = nil
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, id int64, patch models.JobPatch) (*models.TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	patch.Apply(&j)
	s.jobs[id] = j
	return &j, nil
}

// Metrics

func (s *MemoryStore) AppendMetric(_ context.Context, sample *models.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample.ID = s.nextMetricID
	s.nextMetricID++
	sample.Timestamp = s.now()
	s.metrics[sample.JobID] = append(s.metrics[sample.JobID], *sample)
	return nil
}

func (s *MemoryStore) ListMetrics(_ context.Context, jobID int64) ([]*models.MetricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.metrics[jobID]
	out := make([]*models.MetricSample, len(samples))
	for i := range samples {
		cp := samples[i]
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Epoch != out[j].Epoch {
			return out[i].Epoch < out[j].Epoch
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Logs

func (s *MemoryStore) AppendLog(_ context.Context, entry *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextLogID
	s.nextLogID++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	s.logs[entry.JobID] = append(s.logs[entry.JobID], *entry)
	return nil
}

func (s *MemoryStore) ListLogs(_ context.Context, jobID int64) ([]*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[jobID]
	out := make([]*models.LogEntry, len(entries))
	for i := range entries {
		cp := entries[i]
		out[i] = &cp
	}
	return out, nil
}

// Community posts

func (s *MemoryStore) ListPosts(_ context.Context) ([]*models.PostView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.PostView, 0, len(s.posts))
	for _, p := range s.posts {
		view := &models.PostView{CommunityPost: p}
		if u, ok := s.users[p.UserID]; ok {
			view.User = &u
		}
		if p.ModelID != nil {
			if m, ok := s.models[*p.ModelID]; ok {
				view.Model = &m
			}
		}
		out = append(out, view)
	}
	// newest first; ids break ties between posts created in the same instant
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreatePost(_ context.Context, post *models.CommunityPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = s.nextPostID
	s.nextPostID++
	post.Likes = 0
	post.Comments = 0
	post.CreatedAt = s.now()
	s.posts[post.ID] = *post
	return nil
}

func (s *MemoryStore) UpdatePost(_ context.Context, id int64, patch models.PostPatch) (*models.CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	patch.Apply(&p)
	s.posts[id] = p
	return &p, nil
}

// Validation sessions

func (s *MemoryStore) ListSessions(_ context.Context, userID *int64) ([]*models.ValidationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ValidationSession, 0, len(s.sessions))
	for _, vs := range s.sessions {
		if userID != nil && vs.UserID != *userID {
			continue
		}
		cp := vs
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, session *models.ValidationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ID = s.nextSessionID
	s.nextSessionID++
	session.Duration = 0
	session.CreatedAt = s.now()
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, id int64, patch models.SessionPatch) (*models.ValidationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("validation session %d: %w", id, ErrNotFound)
	}
	patch.Apply(&vs)
	s.sessions[id] = vs
	return &vs, nil
}

// Marketplace

func copyMarketplaceModel(m models.MarketplaceModel) *models.MarketplaceModel {
	m.Tags = append([]string(nil), m.Tags...)
	return &m
}

func (s *MemoryStore) ListMarketplaceModels(_ context.Context) ([]*models.MarketplaceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MarketplaceModel, 0, len(s.marketplace))
	for _, m := range s.marketplace {
		out = append(out, copyMarketplaceModel(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetMarketplaceModel(_ context.Context, id int64) (*models.MarketplaceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.marketplace[id]
	if !ok {
		return nil, fmt.Errorf("marketplace model %d: %w", id, ErrNotFound)
	}
	return copyMarketplaceModel(m), nil
}

func (s *MemoryStore) IncrementMarketplaceCounter(_ context.Context, id int64, counter models.Counter) (*models.MarketplaceModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.marketplace[id]
	if !ok {
		return nil, fmt.Errorf("marketplace model %d: %w", id, ErrNotFound)
	}
	switch counter {
	case models.CounterDownloads:
		m.Downloads++
	case models.CounterLikes:
		m.Likes++
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}
	s.marketplace[id] = m
	return copyMarketplaceModel(m), nil
}
