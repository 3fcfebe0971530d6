package transcribe

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/pattty847/TranscriptAI/internal/gpu"
)

const (
	serverStartTimeout = 120 * time.Second
	serverPollInterval = 500 * time.Millisecond
)

// whisperServer wraps a whisper.cpp server child process. The process owns
// the loaded model weights; stopping it is the memory release.
type whisperServer struct {
	cmd     *exec.Cmd
	baseURL string
}

func (s *whisperServer) BaseURL() string { return s.baseURL }

func (s *whisperServer) Stop() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.cmd.Process.Kill()
	s.cmd.Wait()
}

// spawnWhisperServer starts whisper-server on a free local port and waits
// until it answers HTTP before returning.
func spawnWhisperServer(ctx context.Context, serverBin, modelPath string, device gpu.Device) (modelServer, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("allocate port: %w", err)
	}

	args := []string{
		"-m", modelPath,
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", port),
	}
	if device == gpu.DeviceCPU {
		args = append(args, "--no-gpu")
	}

	cmd := exec.Command(serverBin, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", serverBin, err)
	}

	server := &whisperServer{
		cmd:     cmd,
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
	}

	if err := waitReady(ctx, server.baseURL); err != nil {
		server.Stop()
		return nil, err
	}

	log.Printf("[transcribe] whisper server ready on port %d (device=%s)", port, device)
	return server, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitReady polls the server until it responds or the startup window runs
// out. Model loading dominates startup time, so the window is generous.
func waitReady(ctx context.Context, baseURL string) error {
	deadline := time.Now().Add(serverStartTimeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(serverPollInterval):
		}
		resp, err := client.Get(baseURL + "/")
		if err != nil {
			continue
		}
		resp.Body.Close()
		return nil
	}
	return fmt.Errorf("whisper server did not become ready within %s", serverStartTimeout)
}
