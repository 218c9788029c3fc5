package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/agent"
	"github.com/kestrel-aero/charterdesk/internal/orchestrator"
	"github.com/kestrel-aero/charterdesk/internal/rfp"
)

// StateStore is the persistence surface the API reads. It extends the
// flow's contract with the per-user listing.
type StateStore interface {
	rfp.StateStore
	GetByUser(ctx context.Context, userID string) ([]*rfp.State, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	orch     *orchestrator.Orchestrator
	store    StateStore
	registry *agent.Registry
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(orch *orchestrator.Orchestrator, store StateStore, registry *agent.Registry, logger *zap.Logger) *Handler {
	return &Handler{orch: orch, store: store, registry: registry, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/agents", h.listAgents)

		r.Post("/threads/{id}/messages", h.postMessage)
		r.Get("/threads/{id}", h.getThread)
		r.Delete("/threads/{id}", h.resetThread)
		r.Get("/users/{id}/threads", h.listUserThreads)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "charterdesk"})
}

type workerInfo struct {
	Type    string        `json:"type"`
	Status  string        `json:"status"`
	Metrics agent.Metrics `json:"metrics"`
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	workers := h.registry.List()
	infos := make([]workerInfo, 0, len(workers))
	for _, wk := range workers {
		infos = append(infos, workerInfo{
			Type:    wk.Type(),
			Status:  wk.Status(),
			Metrics: wk.Metrics(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

type messageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	reply, err := h.orch.HandleMessage(r.Context(), threadID, req.UserID, req.Message)
	if err != nil {
		h.logger.Error("turn failed",
			zap.String("thread", threadID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	state, err := h.store.Get(r.Context(), threadID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if state == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "thread not found"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) resetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), threadID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) listUserThreads(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	states, err := h.store.GetByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if states == nil {
		states = []*rfp.State{}
	}
	writeJSON(w, http.StatusOK, states)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
