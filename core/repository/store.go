package repository

import (
	"context"
	"errors"

	"robot-training-hub/core/models"
)

var (
	// ErrNotFound is returned when an operation targets an unknown id
	ErrNotFound = errors.New("record not found")
	// ErrCounterDecrease is returned when an update would lower a popularity counter
	ErrCounterDecrease = errors.New("counters cannot decrease")
)

// UserRepository handles user records
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// ModelRepository handles the user model library
type ModelRepository interface {
	// ListModels returns public models plus, when userID is set, that user's private ones
	ListModels(ctx context.Context, userID *int64) ([]*models.Model, error)
	GetModel(ctx context.Context, id int64) (*models.Model, error)
	CreateModel(ctx context.Context, model *models.Model) error
	UpdateModel(ctx context.Context, id int64, patch models.ModelPatch) (*models.Model, error)
	DeleteModel(ctx context.Context, id int64) error
	IncrementModelCounter(ctx context.Context, id int64, counter models.Counter) (*models.Model, error)
	CountModels(ctx context.Context, userID *int64) (int, error)
}

// JobRepository handles training jobs
type JobRepository interface {
	ListJobs(ctx context.Context, userID *int64) ([]*models.TrainingJob, error)
	GetJob(ctx context.Context, id int64) (*models.TrainingJob, error)
	CreateJob(ctx context.Context, job *models.TrainingJob) error
	UpdateJob(ctx context.Context, id int64, patch models.JobPatch) (*models.TrainingJob, error)
}

// MetricRepository handles per-epoch metric samples
type MetricRepository interface {
	AppendMetric(ctx context.Context, sample *models.MetricSample) error
	ListMetrics(ctx context.Context, jobID int64) ([]*models.MetricSample, error)
}

// LogRepository handles training log lines
type LogRepository interface {
	AppendLog(ctx context.Context, entry *models.LogEntry) error
	ListLogs(ctx context.Context, jobID int64) ([]*models.LogEntry, error)
}

// CommunityRepository handles community posts
type CommunityRepository interface {
	ListPosts(ctx context.Context) ([]*models.PostView, error)
	CreatePost(ctx context.Context, post *models.CommunityPost) error
	UpdatePost(ctx context.Context, id int64, patch models.PostPatch) (*models.CommunityPost, error)
}

// ValidationRepository handles remote validation sessions
type ValidationRepository interface {
	ListSessions(ctx context.Context, userID *int64) ([]*models.ValidationSession, error)
	CreateSession(ctx context.Context, session *models.ValidationSession) error
	UpdateSession(ctx context.Context, id int64, patch models.SessionPatch) (*models.ValidationSession, error)
}

// MarketplaceRepository handles the shared model catalog
type MarketplaceRepository interface {
	ListMarketplaceModels(ctx context.Context) ([]*models.MarketplaceModel, error)
	GetMarketplaceModel(ctx context.Context, id int64) (*models.MarketplaceModel, error)
	IncrementMarketplaceCounter(ctx context.Context, id int64, counter models.Counter) (*models.MarketplaceModel, error)
}

// Store is the full persistence surface, constructed once at startup and injected
type Store interface {
	UserRepository
	ModelRepository
	JobRepository
	MetricRepository
	LogRepository
	CommunityRepository
	ValidationRepository
	MarketplaceRepository
	Close() error
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
