package api

import (
	"fmt"

	"github.com/fiverrclaw/fiverrclaw/internal/config"
	"github.com/fiverrclaw/fiverrclaw/internal/db"
	"github.com/fiverrclaw/fiverrclaw/internal/lifecycle"
	"github.com/fiverrclaw/fiverrclaw/internal/repository/sqlite"
	"github.com/fiverrclaw/fiverrclaw/internal/schema"
	"github.com/gorilla/mux"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, conn *db.DB) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(conn, logger)

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load job schema: %w", err)
	}

	engine := lifecycle.NewEngine(repo, repo, repo)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo, repo, cfg.JWTSecret, cfg.TokenDuration)
	agentHandler := NewAgentHandler(repo, repo)
	workerHandler := NewWorkerHandler(repo, repo, engine)
	jobHandler := NewJobHandler(repo, repo, repo, engine, validator)
	feedHandler := NewFeedHandler(repo, repo, repo)
	commentHandler := NewCommentHandler(repo, repo, repo, repo)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Registration and login
	api.HandleFunc("/auth/register", authHandler.RegisterAgent).Methods("POST")
	api.HandleFunc("/worker/register", authHandler.RegisterWorker).Methods("POST")
	api.HandleFunc("/worker/login", authHandler.LoginWorker).Methods("POST")

	// Agent endpoints
	agentAPI := api.PathPrefix("/agent").Subrouter()
	agentAPI.Use(AgentAuthMiddleware(repo))
	agentAPI.HandleFunc("/profile", agentHandler.Profile).Methods("GET")
	agentAPI.HandleFunc("/profile", agentHandler.UpdateProfile).Methods("PUT")
	agentAPI.HandleFunc("/status", agentHandler.Status).Methods("GET")

	// Worker endpoints
	workerAPI := api.PathPrefix("/worker").Subrouter()
	workerAPI.Use(WorkerAuthMiddleware(repo, cfg.JWTSecret))
	workerAPI.HandleFunc("/profile", workerHandler.Profile).Methods("GET")
	workerAPI.HandleFunc("/jobs", workerHandler.Jobs).Methods("GET")
	workerAPI.HandleFunc("/accept", workerHandler.Accept).Methods("POST")
	workerAPI.HandleFunc("/submit", workerHandler.Submit).Methods("POST")
	workerAPI.HandleFunc("/reject", workerHandler.Release).Methods("POST")
	workerAPI.HandleFunc("/bookmark", workerHandler.Bookmark).Methods("POST")
	workerAPI.HandleFunc("/confirm-paid", workerHandler.ConfirmPaid).Methods("POST")

	// Job endpoints. Auth is resolved per handler: posting and the owner
	// actions need an API key, reads are public. /job/post must register
	// before the /job/{id} pattern.
	api.HandleFunc("/job/post", jobHandler.Post).Methods("POST")
	api.HandleFunc("/job/{id}", jobHandler.Get).Methods("GET")
	api.HandleFunc("/job/{id}/review", jobHandler.Review).Methods("GET")
	api.HandleFunc("/job/{id}/approve", jobHandler.Approve).Methods("POST")
	api.HandleFunc("/job/{id}/reject", jobHandler.Reject).Methods("POST")
	api.HandleFunc("/job/{id}/paid", jobHandler.MarkPaid).Methods("POST")

	// Comments and votes
	api.HandleFunc("/job/{id}/comments", commentHandler.List).Methods("GET")
	api.HandleFunc("/job/{id}/comments", commentHandler.Post).Methods("POST")
	api.HandleFunc("/comment/{id}/vote", commentHandler.Vote).Methods("POST")

	// Feed
	api.HandleFunc("/feed", feedHandler.Feed).Methods("GET")
	api.HandleFunc("/feed/trending", feedHandler.Trending).Methods("GET")

	return r, nil
}
