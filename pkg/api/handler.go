package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ragops/banditd/pkg/auth"
	"github.com/ragops/banditd/pkg/bandit"
	"github.com/ragops/banditd/pkg/logging"
	"github.com/ragops/banditd/pkg/models"
	"github.com/ragops/banditd/pkg/store"
	"github.com/ragops/banditd/pkg/trainer"
)

// Handler serves the bandit status API
type Handler struct {
	tracker *bandit.Tracker
	store   store.Store
	trainer *trainer.Trainer
	logger  *logging.Logger
	tokens  *auth.TokenManager
}

// NewHandler creates a new API handler
func NewHandler(tracker *bandit.Tracker, s store.Store, t *trainer.Trainer, logger *logging.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		store:   s,
		trainer: t,
		logger:  logger,
	}
}

// SetTokenManager enables the token-issuing endpoint. Must be called
// before RegisterRoutes.
func (h *Handler) SetTokenManager(tm *auth.TokenManager) {
	h.tokens = tm
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	if h.tokens != nil {
		r.HandleFunc("/api/auth/token", h.IssueToken).Methods("POST")
	}
	r.HandleFunc("/api/bandit/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/api/bandit/enabled", h.SetEnabled).Methods("POST")
	r.HandleFunc("/api/bandit/cold-start", h.SetColdStart).Methods("POST")
	r.HandleFunc("/api/bandit/train", h.StartTraining).Methods("POST")
	r.HandleFunc("/api/bandit/train/cancel", h.CancelTraining).Methods("POST")
	r.HandleFunc("/api/bandit/runs", h.ListRuns).Methods("GET")
	r.HandleFunc("/api/bandit/runs/{id}", h.GetRun).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GetStatus returns a snapshot of the tracker
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Status())
}

// SetEnabled toggles the strategy selector
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req models.EnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.tracker.SetEnabled(req.Enabled)
	h.logger.Info("Selector enabled flag changed", map[string]interface{}{"enabled": req.Enabled})
	writeJSON(w, http.StatusOK, h.tracker.Status())
}

// SetColdStart overrides the cold-start flag
func (h *Handler) SetColdStart(w http.ResponseWriter, r *http.Request) {
	var req models.ColdStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.tracker.SetColdStart(req.ColdStart)
	writeJSON(w, http.StatusOK, h.tracker.Status())
}

// StartTraining begins a new training cycle
func (h *Handler) StartTraining(w http.ResponseWriter, r *http.Request) {
	var req models.TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.trainer.Start(req.TotalUnits)
	if err != nil {
		if errors.Is(err, trainer.ErrCycleActive) {
			http.Error(w, "A training cycle is already active", http.StatusConflict)
			return
		}
		h.logger.Error("Failed to start training cycle", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Failed to start training cycle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, run)
}

// CancelTraining cancels the active training cycle
func (h *Handler) CancelTraining(w http.ResponseWriter, r *http.Request) {
	if err := h.trainer.Cancel(); err != nil {
		if errors.Is(err, trainer.ErrNoCycle) {
			http.Error(w, "No training cycle is active", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to cancel training cycle", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns returns run history, optionally filtered by status
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	var runs []*models.Run
	if status != "" {
		runs = h.store.GetRunsByStatus(models.RunStatus(status))
	} else {
		runs = h.store.GetAllRuns()
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns a single run by ID
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := h.store.GetRun(id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// IssueToken issues a short-lived client token. The caller must already
// be authenticated with the static API key, so issuance is not open.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}

	h.tokens.CleanupExpiredTokens()
	token, err := h.tokens.GenerateToken(req.ClientID, ttl)
	if err != nil {
		h.logger.Error("Failed to issue token", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Client token issued", map[string]interface{}{
		"client_id": req.ClientID,
		"ttl":       ttl.String(),
	})
	writeJSON(w, http.StatusCreated, models.TokenResponse{
		ClientID:  req.ClientID,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Health returns daemon liveness plus store health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
	}
	if err := h.store.HealthCheck(); err != nil {
		health["status"] = "degraded"
		health["store_error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}
