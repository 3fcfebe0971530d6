package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pattty847/TranscriptAI/internal/analyze"
	"github.com/pattty847/TranscriptAI/internal/storage"
)

// AnalysisService is what the analyze endpoints need from the LLM layer.
// Implemented by analyze.Analyzer.
type AnalysisService interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	ExtractQuotes(ctx context.Context, transcript string, maxQuotes int) ([]string, error)
	ExtractTopics(ctx context.Context, transcript string) ([]string, error)
	Sentiment(ctx context.Context, transcript string) (string, error)
	Custom(ctx context.Context, transcript, prompt string) (string, error)
	FullAnalysis(ctx context.Context, transcript string) (*analyze.Result, error)
	Ping(ctx context.Context) error
}

type AnalyzeHandler struct {
	newAnalyzer    func() AnalysisService
	transcriptsDir string
	analysisDir    string
}

// NewAnalyzeHandler takes a constructor rather than a service so each request
// picks up the currently stored model and API settings.
func NewAnalyzeHandler(newAnalyzer func() AnalysisService, transcriptsDir, analysisDir string) *AnalyzeHandler {
	return &AnalyzeHandler{
		newAnalyzer:    newAnalyzer,
		transcriptsDir: transcriptsDir,
		analysisDir:    analysisDir,
	}
}

type analyzeRequest struct {
	Transcript string `json:"transcript"` // transcript filename, or empty when Text is set
	Text       string `json:"text"`       // raw text alternative
	Type       string `json:"type"`       // full, summary, quotes, topics, sentiment, custom
	Prompt     string `json:"prompt"`     // custom type only
}

// Analyze runs an analysis pass over a saved transcript or raw text
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	text := req.Text
	if text == "" {
		if req.Transcript == "" {
			jsonError(w, "transcript or text is required", http.StatusBadRequest)
			return
		}
		path, err := storage.SafeJoin(h.transcriptsDir, req.Transcript)
		if err != nil {
			jsonError(w, "invalid transcript name", http.StatusBadRequest)
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			jsonError(w, "transcript not found", http.StatusNotFound)
			return
		}
		text = string(data)
	}

	ctx := r.Context()
	svc := h.newAnalyzer()
	switch req.Type {
	case "", "full":
		result, err := svc.FullAnalysis(ctx, text)
		if err != nil {
			jsonError(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		h.saveResult(req.Transcript, result)
		jsonResponse(w, result, http.StatusOK)
	case "summary":
		out, err := svc.Summarize(ctx, text)
		h.respond(w, out, err)
	case "quotes":
		quotes, err := svc.ExtractQuotes(ctx, text, 10)
		if err != nil {
			jsonError(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		jsonResponse(w, map[string][]string{"quotes": quotes}, http.StatusOK)
	case "topics":
		topics, err := svc.ExtractTopics(ctx, text)
		if err != nil {
			jsonError(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		jsonResponse(w, map[string][]string{"topics": topics}, http.StatusOK)
	case "sentiment":
		out, err := svc.Sentiment(ctx, text)
		h.respond(w, out, err)
	case "custom":
		if req.Prompt == "" {
			jsonError(w, "prompt is required for custom analysis", http.StatusBadRequest)
			return
		}
		out, err := svc.Custom(ctx, text, req.Prompt)
		h.respond(w, out, err)
	default:
		jsonError(w, "unknown analysis type: "+req.Type, http.StatusBadRequest)
	}
}

// PingAnalyzer checks that the configured analysis backend answers
func (h *AnalyzeHandler) PingAnalyzer(w http.ResponseWriter, r *http.Request) {
	if err := h.newAnalyzer().Ping(r.Context()); err != nil {
		jsonError(w, "analysis backend unreachable: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, map[string]bool{"ok": true}, http.StatusOK)
}

func (h *AnalyzeHandler) respond(w http.ResponseWriter, out string, err error) {
	if err != nil {
		jsonError(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, map[string]string{"result": out}, http.StatusOK)
}

// saveResult persists a full analysis next to the other analysis artifacts.
// Best-effort; the HTTP response already carries the result.
func (h *AnalyzeHandler) saveResult(transcriptName string, result *analyze.Result) {
	if transcriptName == "" {
		return
	}
	base := strings.TrimSuffix(transcriptName, filepath.Ext(transcriptName))
	path, err := storage.SafeJoin(h.analysisDir, base+".json")
	if err != nil {
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(path, data, 0644)
}

// ListAnalyses returns saved analysis artifacts
func (h *AnalyzeHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	entries, err := storage.ListDirectory(h.analysisDir, storage.IsAnalysisFile)
	if err != nil {
		if os.IsNotExist(err) {
			jsonResponse(w, []*storage.FileEntry{}, http.StatusOK)
			return
		}
		jsonError(w, "failed to list analyses: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, entries, http.StatusOK)
}
