package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pattty847/TranscriptAI/internal/batch"
	"github.com/pattty847/TranscriptAI/internal/pipeline"
	"github.com/pattty847/TranscriptAI/internal/store"
)

type BatchHandler struct {
	manager *batch.Manager
	store   *store.Store
}

func NewBatchHandler(manager *batch.Manager, st *store.Store) *BatchHandler {
	return &BatchHandler{manager: manager, store: st}
}

type submitBatchRequest struct {
	Input   string           `json:"input"`
	Options pipeline.Options `json:"options"`
}

// SubmitBatch queues a new processing batch
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		jsonError(w, "input is required", http.StatusBadRequest)
		return
	}

	b, err := h.manager.Submit(req.Input, req.Options)
	if err != nil {
		jsonError(w, "failed to submit batch: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, b, http.StatusAccepted)
}

// ListBatches returns all batches, newest first
func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.store.ListBatches()
	if err != nil {
		jsonError(w, "failed to list batches: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, batches, http.StatusOK)
}

// GetBatch returns a single batch with its items
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing batch ID", http.StatusBadRequest)
		return
	}

	b, err := h.store.GetBatch(id)
	if err != nil {
		jsonError(w, "batch not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, b, http.StatusOK)
}

// StopBatch cancels a pending or running batch
func (h *BatchHandler) StopBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing batch ID", http.StatusBadRequest)
		return
	}

	if err := h.manager.Stop(id); err != nil {
		jsonError(w, "failed to stop batch: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
