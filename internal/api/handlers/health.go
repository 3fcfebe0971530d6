package handlers

import (
	"net/http"
	"os/exec"

	"github.com/pattty847/TranscriptAI/internal/ffmpeg"
	"github.com/pattty847/TranscriptAI/internal/gpu"
)

type HealthHandler struct {
	ytDlpBin string
	device   gpu.Device
}

func NewHealthHandler(ytDlpBin, deviceOverride string) *HealthHandler {
	return &HealthHandler{
		ytDlpBin: ytDlpBin,
		device:   gpu.ResolveDevice(deviceOverride),
	}
}

// Health reports service status and external tool availability
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ffmpegOK := ffmpeg.CheckDependencies() == nil
	_, ytDlpErr := exec.LookPath(h.ytDlpBin)

	status := "ok"
	if !ffmpegOK || ytDlpErr != nil {
		status = "degraded"
	}

	jsonResponse(w, map[string]interface{}{
		"status": status,
		"device": string(h.device),
		"tools": map[string]bool{
			"ffmpeg": ffmpegOK,
			"yt-dlp": ytDlpErr == nil,
		},
	}, http.StatusOK)
}
