// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/live-poll/cliparse"
	"github.com/danielhkuo/live-poll/handlers"
	"github.com/danielhkuo/live-poll/middleware"
	"github.com/danielhkuo/live-poll/realtime"
	"github.com/danielhkuo/live-poll/store"
	"github.com/danielhkuo/live-poll/voting"
)

// Deps are the components the routes are served by
type Deps struct {
	Store      *store.Store
	Service    *voting.Service
	Aggregator *voting.Aggregator
	Notifier   voting.Notifier
	Hub        *realtime.Hub
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Store, cfg)
	pollHandler := handlers.NewPollHandler(deps.Store, deps.Notifier, cfg)
	voteHandler := handlers.NewVoteHandler(deps.Store, deps.Service, cfg)
	resultsHandler := handlers.NewResultsHandler(deps.Aggregator)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Live connection counts
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, deps.Hub.Stats())
	})

	// Users
	mux.HandleFunc("POST /users", middleware.WithLogging(userHandler.Register))

	// Poll management (creator operations)
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("POST /polls/{id}/options", middleware.WithLogging(pollHandler.AddOption))
	mux.HandleFunc("DELETE /polls/{id}/options/{optionId}", middleware.WithLogging(pollHandler.DeleteOption))
	mux.HandleFunc("POST /polls/{id}/publish", middleware.WithLogging(pollHandler.PublishPoll))
	mux.HandleFunc("POST /polls/{id}/unpublish", middleware.WithLogging(pollHandler.UnpublishPoll))

	// Voting
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(voteHandler.CastVote))
	mux.HandleFunc("GET /polls/{id}/my-vote", middleware.WithLogging(voteHandler.MyVote))
	mux.HandleFunc("DELETE /votes/{id}", middleware.WithLogging(voteHandler.RetractVote))

	// Results
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Live updates
	mux.Handle("GET /ws", deps.Hub)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("live-poll API v1"))
	})

	return mux
}
