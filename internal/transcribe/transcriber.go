package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pattty847/TranscriptAI/internal/ffmpeg"
	"github.com/pattty847/TranscriptAI/internal/gpu"
)

// Error reports a failed transcription.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// modelServer is a running speech-to-text backend bound to a compute
// device. Killing the process is what releases device and host memory.
type modelServer interface {
	BaseURL() string
	Stop()
}

// spawner starts a model server; swapped in tests.
type spawner func(ctx context.Context, serverBin, modelPath string, device gpu.Device) (modelServer, error)

// Transcriber runs whisper speech-to-text over local media files. The
// underlying whisper-server process is the loaded-model handle: it is
// started lazily on first use and must be released with Unload to free
// memory between batches.
type Transcriber struct {
	serverBin string
	modelPath string
	device    gpu.Device

	mu     sync.Mutex
	server modelServer

	spawn      spawner
	httpClient *http.Client
	probeDur   func(path string) float64
	checkDeps  func() error
	extract    func(ctx context.Context, mediaPath string) (string, error)
}

func NewTranscriber(serverBin, modelPath, deviceOverride string) *Transcriber {
	return &Transcriber{
		serverBin: serverBin,
		modelPath: modelPath,
		device:    gpu.ResolveDevice(deviceOverride),
		spawn:     spawnWhisperServer,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // transcription can be very long
		},
		probeDur:  ffmpeg.Duration,
		checkDeps: ffmpeg.CheckDependencies,
		extract:   ffmpeg.ExtractAudio,
	}
}

// Load starts the whisper-server process if it is not already running.
func (t *Transcriber) Load(ctx context.Context, sink Sink) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server != nil {
		return nil
	}

	if _, err := os.Stat(t.modelPath); err != nil {
		return &Error{Reason: fmt.Sprintf("cannot access model file: %s", t.modelPath), Err: err}
	}

	emit(sink, Progress{
		Stage:   "loading",
		Message: fmt.Sprintf("Loading %s on %s...", filepath.Base(t.modelPath), t.device),
	})

	server, err := t.spawn(ctx, t.serverBin, t.modelPath, t.device)
	if err != nil {
		return &Error{Reason: "failed to start whisper server", Err: err}
	}
	t.server = server

	emit(sink, Progress{Stage: "loading", Percent: 100, Message: "Model loaded successfully"})
	log.Printf("[transcribe] model loaded: %s device=%s", filepath.Base(t.modelPath), t.device)
	return nil
}

// Unload stops the model server and releases its memory. Idempotent and
// safe to call when nothing is loaded.
func (t *Transcriber) Unload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.server == nil {
		return
	}
	t.server.Stop()
	t.server = nil
	log.Printf("[transcribe] model unloaded")
}

// Loaded reports whether a model server is currently running.
func (t *Transcriber) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.server != nil
}

// Transcribe converts a local media file to text. Progress is synthesized
// by a concurrent estimator because the inference call cannot be observed
// mid-flight; the estimator is joined on success and failure alike.
func (t *Transcriber) Transcribe(ctx context.Context, mediaPath string, sink Sink) (string, error) {
	if err := t.checkDeps(); err != nil {
		return "", err
	}

	if err := t.Load(ctx, sink); err != nil {
		return "", err
	}

	duration := t.probeDur(mediaPath)
	name := filepath.Base(mediaPath)

	emit(sink, Progress{Stage: "processing", Message: fmt.Sprintf("Transcribing %s...", name)})

	audioPath, err := t.extract(ctx, mediaPath)
	if err != nil {
		return "", &Error{Reason: "audio extraction failed", Err: err}
	}
	defer os.Remove(audioPath)

	stop := startEstimator(duration, name, sink)
	text, err := t.sendToServer(ctx, audioPath)
	stop()

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Reason: err.Error(), Err: err}
	}

	emit(sink, Progress{Stage: "saving", Percent: 100, Message: "Transcription complete"})
	return text, nil
}

// sendToServer posts the extracted audio to the whisper-server inference
// endpoint and returns plain text.
func (t *Transcriber) sendToServer(ctx context.Context, audioPath string) (string, error) {
	t.mu.Lock()
	baseURL := ""
	if t.server != nil {
		baseURL = t.server.BaseURL()
	}
	t.mu.Unlock()
	if baseURL == "" {
		return "", fmt.Errorf("model is not loaded")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("response_format", "text")
	writer.WriteField("temperature", "0.0")
	writer.Close()

	url := baseURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("whisper server request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper server error (status %d): %s", resp.StatusCode, string(body))
	}

	return strings.TrimSpace(string(body)), nil
}

func emit(sink Sink, p Progress) {
	if sink != nil {
		sink(p)
	}
}
