package routes

import (
	"net/http"

	"robot-training-hub/api/rest/handlers"
	"robot-training-hub/core/repository"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Broadcaster publishes events and serves the websocket endpoint
type Broadcaster interface {
	handlers.Publisher
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Deps are the services the API is built on
type Deps struct {
	Store       repository.Store
	Runner      handlers.Runner
	Broadcaster Broadcaster
	Uploads     *handlers.Uploads
	Metrics     RequestObserver
	Gatherer    prometheus.Gatherer
	CORSOrigin  string
}

// NewHandler builds the HTTP handler serving the REST API, the websocket and operational endpoints
func NewHandler(d Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(d.Metrics))
	SetupRoutes(r, d)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	r.HandleFunc("/ws", d.Broadcaster.ServeWS)

	return withCORS(d.CORSOrigin, r)
}

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, d Deps) {
	modelHandler := handlers.NewModelHandler(d.Store, d.Uploads)
	jobHandler := handlers.NewJobHandler(d.Store, d.Runner, d.Broadcaster, d.Uploads)
	communityHandler := handlers.NewCommunityHandler(d.Store)
	validationHandler := handlers.NewValidationHandler(d.Store)
	marketplaceHandler := handlers.NewMarketplaceHandler(d.Store)
	userHandler := handlers.NewUserHandler(d.Store)
	dashboardHandler := handlers.NewDashboardHandler(d.Store)

	api := r.PathPrefix("/api").Subrouter()

	// Model library
	api.HandleFunc("/models", modelHandler.ListModels).Methods("GET")
	api.HandleFunc("/models", modelHandler.CreateModel).Methods("POST")
	api.HandleFunc("/models/{id}", modelHandler.UpdateModel).Methods("PATCH")
	api.HandleFunc("/models/{id}", modelHandler.DeleteModel).Methods("DELETE")
	api.HandleFunc("/models/{id}/download", modelHandler.Download).Methods("POST")
	api.HandleFunc("/models/{id}/like", modelHandler.Like).Methods("POST")

	// Training jobs
	api.HandleFunc("/training-jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/training-jobs", jobHandler.SubmitJob).Methods("POST")
	api.HandleFunc("/training-jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/training-jobs/{id}", jobHandler.UpdateJob).Methods("PATCH")
	api.HandleFunc("/training-jobs/{id}/stop", jobHandler.StopJob).Methods("POST")
	api.HandleFunc("/training-metrics/{jobId}", jobHandler.GetJobMetrics).Methods("GET")
	api.HandleFunc("/training-logs/{jobId}", jobHandler.GetJobLogs).Methods("GET")

	// Community
	api.HandleFunc("/community/posts", communityHandler.ListPosts).Methods("GET")
	api.HandleFunc("/community/posts", communityHandler.CreatePost).Methods("POST")
	api.HandleFunc("/community/posts/{id}", communityHandler.UpdatePost).Methods("PATCH")

	// Validation sessions
	api.HandleFunc("/validation-sessions", validationHandler.ListSessions).Methods("GET")
	api.HandleFunc("/validation-sessions", validationHandler.CreateSession).Methods("POST")
	api.HandleFunc("/validation-sessions/{id}", validationHandler.UpdateSession).Methods("PATCH")

	// Marketplace
	api.HandleFunc("/marketplace/models", marketplaceHandler.ListModels).Methods("GET")
	api.HandleFunc("/marketplace/models/{id}", marketplaceHandler.GetModel).Methods("GET")
	api.HandleFunc("/marketplace/models/{id}/like", marketplaceHandler.Like).Methods("POST")
	api.HandleFunc("/marketplace/models/{id}/download", marketplaceHandler.Download).Methods("POST")

	// Users and dashboard
	api.HandleFunc("/users/{id}", userHandler.GetUser).Methods("GET")
	api.HandleFunc("/dashboard/stats", dashboardHandler.GetStats).Methods("GET")
}
