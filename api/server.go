package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/cubeclash/game/config"
	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
	"github.com/wricardo/cubeclash/game/session"
	"github.com/wricardo/cubeclash/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Setup
	api.HandleFunc("/sessions/{id}/players", s.handleAddPlayer).Methods("POST")
	api.HandleFunc("/sessions/{id}/start", s.handleStartGame).Methods("POST")
	api.HandleFunc("/sessions/{id}/new-game", s.handleNewGame).Methods("POST")

	// Turn actions
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/actions", s.handleProposeAction).Methods("POST")
	api.HandleFunc("/sessions/{id}/actions/commit", s.handleCommitAction).Methods("POST")
	api.HandleFunc("/sessions/{id}/actions", s.handleCancelAction).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/end-turn", s.handleEndTurn).Methods("POST")
	api.HandleFunc("/sessions/{id}/roll", s.handleRollDice).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Save slots
	api.HandleFunc("/sessions/{id}/saves", s.handleListSaves).Methods("GET")
	api.HandleFunc("/sessions/{id}/saves", s.handleSaveGame).Methods("POST")
	api.HandleFunc("/sessions/{id}/saves/{name}/load", s.handleLoadGame).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Limit  string `json:"limit,omitempty"`
}

// statusFor maps service and rule errors to HTTP status codes
func statusFor(err error) int {
	var re *engine.RuleError
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrConfigNotFound),
		errors.Is(err, service.ErrSaveUnavailable):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidName),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.As(err, &re):
		switch re.Reason {
		case engine.ReasonWrongPhase, engine.ReasonWrongPlayer:
			return http.StatusConflict
		default:
			return http.StatusUnprocessableEntity
		}
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status and rule reason
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	var re *engine.RuleError
	if errors.As(err, &re) {
		body.Reason = string(re.Reason)
		body.Limit = string(re.Limit)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.String("reason", body.Reason))
	}
	respondJSON(w, status, body)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if ti.Equal(tj) {
			return sessions[i].ID < sessions[j].ID
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Setup Handlers

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Player name is required")
		return
	}

	result, err := s.service.AddPlayer(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.StartGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.NewGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "New game ready, add players to start",
		"state":   state,
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleProposeAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string           `json:"type"`
		Source *engine.Position `json:"source,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actionType, ok := engine.ParseActionType(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown action type %q (use move, build, roll or none)", req.Type))
		return
	}

	result, err := s.service.ProposeAction(r.Context(), mux.Vars(r)["id"], actionType, req.Source)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommitAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target *engine.Position `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Target == nil {
		respondError(w, http.StatusBadRequest, "target is required")
		return
	}

	result, err := s.service.CommitAction(r.Context(), mux.Vars(r)["id"], *req.Target)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelAction(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.CancelAction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.EndTurn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleRollDice(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RollDice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Save Handlers

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	saves, err := s.service.ListSaves(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"saves": saves})
}

func (s *Server) handleSaveGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Save name is required")
		return
	}

	if err := s.service.SaveGame(r.Context(), mux.Vars(r)["id"], req.Name); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Game saved as %s", req.Name),
		"name":    req.Name,
	})
}

func (s *Server) handleLoadGame(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	state, err := s.service.LoadGame(r.Context(), vars["id"], vars["name"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	gameConfig, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, gameConfig)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id"`
		engine.GameConfig
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}
	configID := req.ConfigID
	if configID == "" {
		configID = req.Name
	}

	gameConfig := req.GameConfig
	if err := s.service.SaveConfig(r.Context(), configID, &gameConfig); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// handleWebSocket upgrades watchers of an existing session
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket disabled", http.StatusServiceUnavailable)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, info.ID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
