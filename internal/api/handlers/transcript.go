package handlers

import (
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pattty847/TranscriptAI/internal/storage"
)

type TranscriptHandler struct {
	transcriptsDir string
}

func NewTranscriptHandler(transcriptsDir string) *TranscriptHandler {
	return &TranscriptHandler{transcriptsDir: transcriptsDir}
}

// ListTranscripts returns all saved transcript files
func (h *TranscriptHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	entries, err := storage.ListDirectory(h.transcriptsDir, storage.IsTranscriptFile)
	if err != nil {
		if os.IsNotExist(err) {
			jsonResponse(w, []*storage.FileEntry{}, http.StatusOK)
			return
		}
		jsonError(w, "failed to list transcripts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, entries, http.StatusOK)
}

// SearchTranscripts finds transcripts by filename substring
func (h *TranscriptHandler) SearchTranscripts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	max := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			max = n
		}
	}

	entries, err := storage.Search(h.transcriptsDir, query, max)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, entries, http.StatusOK)
}

// GetTranscript serves a transcript's text content
func (h *TranscriptHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || !storage.IsTranscriptFile(name) {
		jsonError(w, "invalid transcript name", http.StatusBadRequest)
		return
	}

	path, err := storage.SafeJoin(h.transcriptsDir, name)
	if err != nil {
		jsonError(w, "invalid transcript name", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "transcript not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(data)
}

// DeleteTranscript removes a saved transcript
func (h *TranscriptHandler) DeleteTranscript(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || !storage.IsTranscriptFile(name) {
		jsonError(w, "invalid transcript name", http.StatusBadRequest)
		return
	}

	path, err := storage.SafeJoin(h.transcriptsDir, name)
	if err != nil {
		jsonError(w, "invalid transcript name", http.StatusBadRequest)
		return
	}

	if err := os.Remove(path); err != nil {
		jsonError(w, "transcript not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
