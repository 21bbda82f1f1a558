package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"robot-training-hub/api/rest/handlers"
	"robot-training-hub/core/models"
	"robot-training-hub/core/monitoring"
	"robot-training-hub/core/repository"
	"robot-training-hub/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	running map[int64]bool
	started []int64
}

func (f *fakeRunner) Start(job *models.TrainingJob) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.Status.Terminal() || f.running[job.ID] {
		return false
	}
	f.running[job.ID] = true
	f.started = append(f.started, job.ID)
	return true
}

func (f *fakeRunner) Stop(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running[id] {
		return false
	}
	delete(f.running, id)
	return true
}

func (f *fakeRunner) Running(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[id]
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeBroadcaster) Publish(e models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeBroadcaster) ServeWS(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (f *fakeBroadcaster) ofType(t models.EventType) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type testServer struct {
	handler http.Handler
	store   *repository.MemoryStore
	runner  *fakeRunner
	events  *fakeBroadcaster
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	artifacts, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	ts := &testServer{
		store:  repository.NewMemoryStore(),
		runner: &fakeRunner{running: map[int64]bool{}},
		events: &fakeBroadcaster{},
	}
	ts.handler = NewHandler(Deps{
		Store:       ts.store,
		Runner:      ts.runner,
		Broadcaster: ts.events,
		Uploads:     handlers.NewUploads(artifacts, 1<<20),
		Metrics:     monitoring.NewMetrics(reg),
		Gatherer:    reg,
		CORSOrigin:  "*",
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	return ts.do(t, method, path, r, "application/json")
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("contents of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) submitJob(t *testing.T, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, map[string]string{
		"modelFile":  "policy.pt",
		"rewardFile": "reward.py",
	})
	return ts.do(t, http.MethodPost, "/api/training-jobs", body, ct)
}

func TestPatchUnknownModelReturnsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.CreateModel(ctx, &models.Model{UserID: 1, Name: "walker", ModelType: "humanoid", IsPublic: true}))

	rec := ts.doJSON(t, http.MethodPatch, "/api/models/7", map[string]interface{}{"name": "renamed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Model not found", decode[map[string]string](t, rec)["message"])

	list, err := ts.store.ListModels(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "walker", list[0].Name)
}

func TestListModelsUnionsOwnedAndPublic(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	for _, m := range []*models.Model{
		{UserID: 3, Name: "mine-private", ModelType: "quadruped"},
		{UserID: 3, Name: "mine-public", ModelType: "quadruped", IsPublic: true},
		{UserID: 4, Name: "theirs-public", ModelType: "manipulator", IsPublic: true},
		{UserID: 4, Name: "theirs-private", ModelType: "manipulator"},
	} {
		require.NoError(t, ts.store.CreateModel(ctx, m))
	}

	rec := ts.do(t, http.MethodGet, "/api/models?userId=3", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	names := []string{}
	for _, m := range decode[[]models.Model](t, rec) {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"mine-private", "mine-public", "theirs-public"}, names)

	rec = ts.do(t, http.MethodGet, "/api/models", nil, "")
	assert.Len(t, decode[[]models.Model](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/models?userId=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelLifecycle(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{
		"userId":       "1",
		"name":         "Biped v2",
		"modelType":    "humanoid",
		"description":  "walks",
		"accuracy":     "91.5",
		"trainingTime": "12",
		"isPublic":     "true",
	}, map[string]string{"modelFile": "biped.onnx"})
	rec := ts.do(t, http.MethodPost, "/api/models", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.Model](t, rec)
	assert.Equal(t, "Biped v2", created.Name)
	require.NotNil(t, created.FilePath)
	assert.True(t, strings.HasSuffix(*created.FilePath, ".onnx"))
	require.NotNil(t, created.Size)
	assert.Equal(t, int64(len("contents of biped.onnx")), *created.Size)
	assert.Equal(t, 91.5, *created.Accuracy)
	assert.True(t, created.IsPublic)

	path := "/api/models/" + jsonID(created.ID)
	rec = ts.do(t, http.MethodPost, path+"/like", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[models.Model](t, rec).Likes)

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"likes": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"description": "runs", "likes": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "runs", *decode[models.Model](t, rec).Description)

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"owner": "someone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateModelRequiresFile(t *testing.T) {
	ts := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{"userId": "1", "name": "n", "modelType": "humanoid"}, nil)
	rec := ts.do(t, http.MethodPost, "/api/models", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "modelFile is required", decode[map[string]string](t, rec)["message"])

	rec = ts.doJSON(t, http.MethodPost, "/api/models", map[string]string{"name": "n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketplaceLikeTwiceAddsTwo(t *testing.T) {
	ts := newTestServer(t)
	before, err := ts.store.GetMarketplaceModel(context.Background(), 2)
	require.NoError(t, err)

	var likes float64
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/marketplace/models/2/like", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[map[string]interface{}](t, rec)
		assert.Equal(t, true, resp["success"])
		likes = resp["likes"].(float64)
	}
	assert.Equal(t, float64(before.Likes+2), likes)

	rec := ts.do(t, http.MethodPost, "/api/marketplace/models/2/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(before.Downloads+1), decode[map[string]interface{}](t, rec)["downloads"])

	rec = ts.do(t, http.MethodPost, "/api/marketplace/models/99/like", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketplaceCatalog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/marketplace/models", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[[]models.MarketplaceModel](t, rec)
	require.Len(t, catalog, 3)
	assert.NotEmpty(t, catalog[0].Tags)
	assert.NotEmpty(t, catalog[0].Author.Name)

	rec = ts.do(t, http.MethodGet, "/api/marketplace/models/3", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[models.MarketplaceModel](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/api/marketplace/models/42", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitJobRoundTripsRewardConfig(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.submitJob(t, map[string]string{
		"name":         "Quadruped gait",
		"userId":       "1",
		"totalEpochs":  "5",
		"rewardConfig": `{"position":0.7,"velocity":0.3,"energy":0.5}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.TrainingJob](t, rec)
	assert.Equal(t, models.JobStatusQueued, created.Status)
	assert.Equal(t, 0, created.Progress)
	require.NotNil(t, created.ModelFile)
	require.NotNil(t, created.RewardFile)
	assert.True(t, ts.runner.Running(created.ID))

	rec = ts.do(t, http.MethodGet, "/api/training-jobs/"+jsonID(created.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.TrainingJob](t, rec)
	require.NotNil(t, got.RewardConfig)
	assert.Equal(t, models.RewardConfig{Position: 0.7, Velocity: 0.3, Energy: 0.5}, *got.RewardConfig)
}

func TestSubmitJobValidation(t *testing.T) {
	ts := newTestServer(t)
	valid := func() map[string]string {
		return map[string]string{"name": "job", "userId": "1", "totalEpochs": "10"}
	}

	cases := map[string]func(map[string]string){
		"missing name":          func(f map[string]string) { delete(f, "name") },
		"non numeric epochs":    func(f map[string]string) { f["totalEpochs"] = "ten" },
		"zero epochs":           func(f map[string]string) { f["totalEpochs"] = "0" },
		"unknown user":          func(f map[string]string) { f["userId"] = "77" },
		"unknown model":         func(f map[string]string) { f["modelId"] = "77" },
		"malformed reward json": func(f map[string]string) { f["rewardConfig"] = "{position:" },
		"weight out of range":   func(f map[string]string) { f["rewardConfig"] = `{"position":1.5}` },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fields := valid()
			mutate(fields)
			rec := ts.submitJob(t, fields)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("missing reward file", func(t *testing.T) {
		body, ct := multipartBody(t, valid(), map[string]string{"modelFile": "policy.pt"})
		rec := ts.do(t, http.MethodPost, "/api/training-jobs", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "rewardFile is required", decode[map[string]string](t, rec)["message"])
	})

	jobs, err := ts.store.ListJobs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUploadLimit(t *testing.T) {
	ts := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("modelFile", "huge.pt")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("x"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := ts.do(t, http.MethodPost, "/api/models", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListJobsFiltersByOwner(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.CreateJob(ctx, &models.TrainingJob{UserID: 1, Name: "a", TotalEpochs: 3}))
	require.NoError(t, ts.store.CreateJob(ctx, &models.TrainingJob{UserID: 2, Name: "b", TotalEpochs: 3}))

	rec := ts.do(t, http.MethodGet, "/api/training-jobs?userId=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode[[]models.TrainingJob](t, rec)
	require.Len(t, jobs, 1)
	assert.Equal(t, "b", jobs[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/training-jobs", nil, "")
	assert.Len(t, decode[[]models.TrainingJob](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/training-jobs/9", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchJob(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	job := &models.TrainingJob{UserID: 1, Name: "gait", TotalEpochs: 8}
	require.NoError(t, ts.store.CreateJob(ctx, job))
	path := "/api/training-jobs/" + jsonID(job.ID)

	rec := ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "queued jobs cannot be completed by hand")

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"status": "running", "currentEpoch": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	running := decode[models.TrainingJob](t, rec)
	assert.Equal(t, models.JobStatusRunning, running.Status)
	assert.Equal(t, 25, running.Progress)
	assert.NotNil(t, running.StartedAt)
	assert.True(t, ts.runner.Running(job.ID), "a non-terminal job gets a runner")

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"currentEpoch": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"progress": 90})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"priority": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[models.TrainingJob](t, rec)
	assert.Equal(t, 8, done.CurrentEpoch)
	assert.Equal(t, 100, done.Progress)
	assert.NotNil(t, done.CompletedAt)
	assert.False(t, ts.runner.Running(job.ID))

	rec = ts.doJSON(t, http.MethodPatch, path, map[string]interface{}{"status": "running"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "terminal states are sticky")

	updates := ts.events.ofType(models.EventTrainingUpdate)
	require.Len(t, updates, 2)
	assert.Equal(t, models.JobStatusCompleted, updates[1].(*models.TrainingUpdateEvent).Job.Status)

	rec = ts.doJSON(t, http.MethodPatch, "/api/training-jobs/99", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopJob(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.submitJob(t, map[string]string{"name": "arm", "userId": "1", "totalEpochs": "50"})
	require.Equal(t, http.StatusCreated, rec.Code)
	job := decode[models.TrainingJob](t, rec)
	path := "/api/training-jobs/" + jsonID(job.ID) + "/stop"

	rec = ts.do(t, http.MethodPost, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stopped := decode[models.TrainingJob](t, rec)
	assert.Equal(t, models.JobStatusFailed, stopped.Status)
	assert.NotNil(t, stopped.CompletedAt)
	assert.False(t, ts.runner.Running(job.ID))
	require.Len(t, ts.events.ofType(models.EventTrainingUpdate), 1)

	// stopping again leaves the job as it is
	rec = ts.do(t, http.MethodPost, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JobStatusFailed, decode[models.TrainingJob](t, rec).Status)
	assert.Len(t, ts.events.ofType(models.EventTrainingUpdate), 1)

	rec = ts.do(t, http.MethodGet, "/api/training-logs/"+jsonID(job.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]map[string]interface{}](t, rec)
	require.Len(t, entries, 2)
	last := entries[len(entries)-1]
	assert.Equal(t, "WARN", last["level"])
	assert.Equal(t, "Training stopped by user", last["message"])
	assert.Contains(t, last, "timestamp")

	rec = ts.do(t, http.MethodPost, "/api/training-jobs/404/stop", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrainingMetrics(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	job := &models.TrainingJob{UserID: 1, Name: "gait", TotalEpochs: 3}
	require.NoError(t, ts.store.CreateJob(ctx, job))
	for _, epoch := range []int{2, 1, 3} {
		require.NoError(t, ts.store.AppendMetric(ctx, &models.MetricSample{JobID: job.ID, Epoch: epoch, Loss: 0.1, Reward: 200, Accuracy: 70}))
	}

	rec := ts.do(t, http.MethodGet, "/api/training-metrics/"+jsonID(job.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	samples := decode[[]models.MetricSample](t, rec)
	require.Len(t, samples, 3)
	for i, s := range samples {
		assert.Equal(t, i+1, s.Epoch)
	}

	rec = ts.do(t, http.MethodGet, "/api/training-metrics/55", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/training-logs/55", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommunityPosts(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	model := &models.Model{UserID: 1, Name: "walker", ModelType: "humanoid", IsPublic: true}
	require.NoError(t, ts.store.CreateModel(ctx, model))

	rec := ts.doJSON(t, http.MethodPost, "/api/community/posts", map[string]interface{}{
		"userId": "1", "content": "first gait that does not fall over",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.doJSON(t, http.MethodPost, "/api/community/posts", map[string]interface{}{
		"userId": 1, "content": "sharing my model", "modelId": model.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[models.CommunityPost](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/community/posts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[[]models.PostView](t, rec)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID, "newest first")
	require.NotNil(t, posts[0].User)
	assert.Equal(t, "johndoe", posts[0].User.Username)
	require.NotNil(t, posts[0].Model)
	assert.Equal(t, "walker", posts[0].Model.Name)
	assert.Nil(t, posts[1].Model)

	rec = ts.doJSON(t, http.MethodPatch, "/api/community/posts/"+jsonID(second.ID), map[string]interface{}{"likes": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[models.CommunityPost](t, rec).Likes)

	rec = ts.doJSON(t, http.MethodPatch, "/api/community/posts/77", map[string]interface{}{"likes": 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, bad := range []map[string]interface{}{
		{"userId": 1},
		{"userId": 99, "content": "hi"},
		{"userId": "one", "content": "hi"},
		{"userId": 1, "content": "hi", "modelId": 99},
	} {
		rec = ts.doJSON(t, http.MethodPost, "/api/community/posts", bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestValidationSessions(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	model := &models.Model{UserID: 1, Name: "walker", ModelType: "humanoid"}
	require.NoError(t, ts.store.CreateModel(ctx, model))

	rec := ts.doJSON(t, http.MethodPost, "/api/validation-sessions", map[string]interface{}{
		"userId": "1", "modelId": jsonID(model.ID), "robotType": "Unitree Go1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[models.ValidationSession](t, rec)
	assert.Equal(t, models.SessionStatusPending, session.Status)
	assert.Equal(t, 0, session.Duration)

	rec = ts.doJSON(t, http.MethodPatch, "/api/validation-sessions/"+jsonID(session.ID), map[string]interface{}{
		"status": "active", "duration": 30,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.ValidationSession](t, rec)
	assert.Equal(t, models.SessionStatusActive, updated.Status)
	assert.Equal(t, 30, updated.Duration)

	rec = ts.do(t, http.MethodGet, "/api/validation-sessions?userId=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ValidationSession](t, rec), 1)
	rec = ts.do(t, http.MethodGet, "/api/validation-sessions?userId=2", nil, "")
	assert.Empty(t, decode[[]models.ValidationSession](t, rec))

	for _, bad := range []map[string]interface{}{
		{"userId": 1, "modelId": model.ID},
		{"userId": 1, "modelId": 99, "robotType": "arm"},
		{"userId": 1, "modelId": model.ID, "robotType": "arm", "status": "paused"},
	} {
		rec = ts.doJSON(t, http.MethodPost, "/api/validation-sessions", bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec = ts.doJSON(t, http.MethodPatch, "/api/validation-sessions/"+jsonID(session.ID), map[string]interface{}{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.doJSON(t, http.MethodPatch, "/api/validation-sessions/99", map[string]interface{}{"duration": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/users/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "johndoe", user["username"])
	assert.NotContains(t, user, "password")

	rec = ts.do(t, http.MethodGet, "/api/users/2", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardStats(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	statuses := []models.JobStatus{models.JobStatusQueued, models.JobStatusRunning, models.JobStatusRunning, models.JobStatusFailed}
	start := time.Now().UTC().Add(-2 * time.Hour)
	end := start.Add(90 * time.Minute)
	for _, status := range statuses {
		job := &models.TrainingJob{UserID: 1, Name: "j", TotalEpochs: 10}
		require.NoError(t, ts.store.CreateJob(ctx, job))
		s := status
		patch := models.JobPatch{Status: &s}
		if status == models.JobStatusFailed {
			patch.StartedAt = &start
			patch.CompletedAt = &end
		}
		_, err := ts.store.UpdateJob(ctx, job.ID, patch)
		require.NoError(t, err)
	}
	require.NoError(t, ts.store.CreateModel(ctx, &models.Model{UserID: 1, Name: "m", ModelType: "humanoid"}))

	rec := ts.do(t, http.MethodGet, "/api/dashboard/stats?userId=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[handlers.DashboardStats](t, rec)
	assert.Equal(t, 2, stats.ActiveJobs)
	assert.Equal(t, 1, stats.QueuedJobs)
	assert.Equal(t, 0, stats.CompletedJobs)
	assert.Equal(t, 1, stats.FailedJobs)
	assert.Equal(t, 1, stats.ModelsCount)
	assert.Equal(t, 1.5, stats.TrainingHours)
}

func TestOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	ts.do(t, http.MethodGet, "/api/marketplace/models", nil, "")
	rec = ts.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `robot_training_hub_http_requests_total{code="200",method="GET",route="/api/marketplace/models"} 1`)

	rec = ts.do(t, http.MethodOptions, "/api/training-jobs", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
