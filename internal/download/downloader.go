package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
)

// Progress is one normalized download progress snapshot. Pushed to a sink
// and discarded, never persisted.
type Progress struct {
	Percent  float64 `json:"percent"` // 0..100
	Speed    string  `json:"speed"`
	ETA      string  `json:"eta"`
	Filename string  `json:"filename"`
}

// Sink receives progress snapshots.
type Sink func(Progress)

// Error reports a failed media download.
type Error struct {
	URL    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("download failed for %s: %s", e.URL, e.Reason)
}

// Downloader fetches media files via yt-dlp.
type Downloader struct {
	bin       string
	videosDir string
	startCmd  func(ctx context.Context, name string, args ...string) runningCmd
}

type runningCmd interface {
	StdoutPipe() (stdout *bufio.Scanner, err error)
	Start() error
	Wait() error
	Stderr() string
}

type execCmd struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
}

func (c *execCmd) StdoutPipe() (*bufio.Scanner, error) {
	pipe, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	return bufio.NewScanner(pipe), nil
}

func (c *execCmd) Start() error { return c.cmd.Start() }
func (c *execCmd) Wait() error  { return c.cmd.Wait() }
func (c *execCmd) Stderr() string {
	return c.stderr.String()
}

func newExecCmd(ctx context.Context, name string, args ...string) runningCmd {
	c := &execCmd{cmd: exec.CommandContext(ctx, name, args...)}
	c.cmd.Stderr = &c.stderr
	return c
}

func NewDownloader(bin, videosDir string) *Downloader {
	return &Downloader{
		bin:       bin,
		videosDir: videosDir,
		startCmd:  newExecCmd,
	}
}

// Download fetches the media for a URL and returns the local file path.
// Prefers a combined mp4 and falls back to the best available format. The
// output template keeps titles filesystem-safe and tags filenames with the
// source-site ID to avoid collisions.
func (d *Downloader) Download(ctx context.Context, url string, sink Sink) (string, error) {
	args := []string{
		"-f", "best[ext=mp4]/best",
		"-o", filepath.Join(d.videosDir, "%(title).80B [%(id)s].%(ext)s"),
		"--restrict-filenames",
		"--windows-filenames",
		"--no-warnings",
		"--no-color",
		"--newline",
		"--print", "after_move:filepath",
		"--no-simulate",
		url,
	}

	cmd := d.startCmd(ctx, d.bin, args...)
	scanner, err := cmd.StdoutPipe()
	if err != nil {
		return "", &Error{URL: url, Reason: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		return "", &Error{URL: url, Reason: err.Error()}
	}

	var finalPath string
	for scanner.Scan() {
		line := scanner.Text()
		if p, ok := parseProgressLine(line); ok {
			if sink != nil {
				sink(p)
			}
			continue
		}
		// yt-dlp prints the final filepath as a bare line via --print
		if trimmed := strings.TrimSpace(stripANSI(line)); trimmed != "" && !strings.HasPrefix(trimmed, "[") {
			finalPath = trimmed
		}
	}

	if err := cmd.Wait(); err != nil {
		reason := strings.TrimSpace(cmd.Stderr())
		if reason == "" {
			reason = err.Error()
		}
		return "", &Error{URL: url, Reason: reason}
	}

	if finalPath == "" {
		return "", &Error{URL: url, Reason: "downloader produced no output file"}
	}

	log.Printf("[download] saved %s", finalPath)
	return finalPath, nil
}
