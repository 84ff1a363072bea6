package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerRoutes(mux, services)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerRoutes(mux *http.ServeMux, services *Services) {
	orch := services.Orchestrator

	mux.HandleFunc("POST /api/v1/matches", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Community string             `json:"community"`
			Config    models.MatchConfig `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		m, err := orch.CreateMatch(r.Context(), req.Community, req.Config)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	})

	mux.HandleFunc("GET /api/v1/matches", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.ListActiveMatches())
	})

	mux.HandleFunc("GET /api/v1/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		m, err := orch.GetMatch(r.Context(), matchID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	})

	mux.HandleFunc("POST /api/v1/matches/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := orch.JoinMatch(r.Context(), matchID, req.PlayerID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
	})

	mux.HandleFunc("POST /api/v1/matches/{id}/submit", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req struct {
			PlayerID   string `json:"player_id"`
			MediaRef   string `json:"media_ref"`
			RoundIndex int    `json:"round_index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sub, err := orch.Submit(r.Context(), matchID, req.PlayerID, req.MediaRef, req.RoundIndex)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if sub.Status == models.SubmissionStatusRejected {
			// Recorded in the feed, surfaced to the submitter as a
			// policy rejection.
			rejection := &errs.ValidationRejected{Reason: "content failed community policy"}
			if sub.Validation != nil {
				rejection.Warnings = sub.Validation.ContentWarnings
			}
			writeDomainError(w, rejection)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	})

	registerLifecycleRoute(mux, "start", orch.StartMatch)
	registerLifecycleRoute(mux, "pause", orch.PauseGame)
	registerLifecycleRoute(mux, "resume", orch.ResumeGame)
	registerLifecycleRoute(mux, "cancel", orch.CancelGame)
	registerLifecycleRoute(mux, "end", orch.EndGame)

	mux.HandleFunc("GET /ws/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playerID := r.URL.Query().Get("player_id")
		if err := services.Connections.UpgradeConnection(w, r, playerID, matchID); err != nil {
			log.Error().Err(err).Msg("WebSocket upgrade failed")
		}
	})
}

func registerLifecycleRoute(mux *http.ServeMux, action string, fn func(ctx context.Context, matchID uuid.UUID) error) {
	mux.HandleFunc("POST /api/v1/matches/{id}/"+action, func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := fn(r.Context(), matchID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": action})
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps the engine's error taxonomy onto HTTP status
// codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		ctxErr    *errs.ContextError
		notFound  *errs.NotFoundError
		rejected  *errs.ValidationRejected
		transport *errs.TransportError
		logic     *errs.LogicError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &ctxErr):
		writeError(w, http.StatusForbidden, err)
	case errors.As(err, &rejected):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &logic):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &transport):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
