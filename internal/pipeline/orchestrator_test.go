package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pattty847/TranscriptAI/internal/caption"
	"github.com/pattty847/TranscriptAI/internal/config"
	"github.com/pattty847/TranscriptAI/internal/download"
	"github.com/pattty847/TranscriptAI/internal/transcribe"
)

type fakeCaptions struct {
	fetch func(url string) (caption.Result, error)
	calls []string
}

func (f *fakeCaptions) Fetch(ctx context.Context, url string, opts caption.Options) (caption.Result, error) {
	f.calls = append(f.calls, url)
	if f.fetch == nil {
		return caption.Result{Status: caption.StatusUnavailable, Reason: "no captions"}, nil
	}
	return f.fetch(url)
}

type fakeDownloader struct {
	videosDir string
	fail      map[string]string
	calls     []string
}

func (f *fakeDownloader) Download(ctx context.Context, url string, sink download.Sink) (string, error) {
	f.calls = append(f.calls, url)
	if reason, ok := f.fail[url]; ok {
		return "", &download.Error{URL: url, Reason: reason}
	}
	path := filepath.Join(f.videosDir, fmt.Sprintf("dl_%d.mp4", len(f.calls)))
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return "", err
	}
	if sink != nil {
		sink(download.Progress{Percent: 100})
	}
	return path, nil
}

type fakeTranscriber struct {
	failOn  map[string]string
	unloads int
	calls   []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaPath string, sink transcribe.Sink) (string, error) {
	f.calls = append(f.calls, mediaPath)
	if reason, ok := f.failOn[filepath.Base(mediaPath)]; ok {
		return "", &transcribe.Error{Reason: reason}
	}
	if sink != nil {
		sink(transcribe.Progress{Stage: "processing", Percent: 50})
	}
	return "transcribed text", nil
}

func (f *fakeTranscriber) Unload() { f.unloads++ }

type testEnv struct {
	paths       config.Paths
	captions    *fakeCaptions
	downloader  *fakeDownloader
	transcriber *fakeTranscriber
	orch        *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	env := &testEnv{
		paths:       paths,
		captions:    &fakeCaptions{},
		downloader:  &fakeDownloader{videosDir: paths.Videos},
		transcriber: &fakeTranscriber{},
	}
	env.orch = NewOrchestrator(paths, env.captions, env.downloader, env.transcriber)
	return env
}

func writeMedia(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

func TestProcessBatchPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	src := t.TempDir()
	one := writeMedia(t, src, "one.mp3")
	two := writeMedia(t, src, "two.mp3")
	three := writeMedia(t, src, "three.mp3")
	env.transcriber.failOn = map[string]string{"two.mp3": "decode failure"}

	items := env.orch.ProcessBatch(context.Background(),
		one+"\n"+two+"\n"+three,
		Options{}, nil)

	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].Status != StatusCompleted {
		t.Fatalf("item 1 status = %s, want completed", items[0].Status)
	}
	if items[1].Status != StatusError {
		t.Fatalf("item 2 status = %s, want error", items[1].Status)
	}
	if items[1].ErrorMessage == "" {
		t.Fatal("item 2 should carry an error message")
	}
	if items[2].Status != StatusCompleted {
		t.Fatalf("item 3 status = %s, want completed (batch must continue)", items[2].Status)
	}
	if len(env.transcriber.calls) != 3 {
		t.Fatalf("transcriber calls = %d, want 3", len(env.transcriber.calls))
	}
	if env.transcriber.unloads != 1 {
		t.Fatalf("unloads = %d, want exactly 1", env.transcriber.unloads)
	}
}

func TestProcessBatchUnloadsOnCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := env.orch.ProcessBatch(ctx, "https://youtube.com/watch?v=abcdefghijk", Options{}, nil)

	if env.transcriber.unloads != 1 {
		t.Fatalf("unloads = %d, want 1 even when cancelled", env.transcriber.unloads)
	}
	if len(items) != 1 || items[0].Status != StatusPending {
		t.Fatalf("cancelled batch items = %+v, want 1 pending item", items)
	}
}

func TestCaptionFastPathSkipsDownloadAndTranscription(t *testing.T) {
	env := newTestEnv(t)
	env.captions.fetch = func(url string) (caption.Result, error) {
		return caption.Result{Status: caption.StatusOK, Text: "caption text", Path: "/t/x.txt"}, nil
	}

	items := env.orch.ProcessBatch(context.Background(),
		"https://youtube.com/watch?v=abcdefghijk",
		Options{UseCaptionPath: true}, nil)

	if items[0].Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", items[0].Status)
	}
	if items[0].TranscriptPath != "/t/x.txt" {
		t.Fatalf("transcript path = %q", items[0].TranscriptPath)
	}
	if len(env.downloader.calls) != 0 {
		t.Fatal("downloader must not run on caption fast-path hit")
	}
	if len(env.transcriber.calls) != 0 {
		t.Fatal("transcriber must not run on caption fast-path hit")
	}
}

func TestCaptionMissFallsBackToDownload(t *testing.T) {
	env := newTestEnv(t)
	env.captions.fetch = func(url string) (caption.Result, error) {
		return caption.Result{Status: caption.StatusRateLimited, Reason: "429 after retries"}, nil
	}

	items := env.orch.ProcessBatch(context.Background(),
		"https://youtube.com/watch?v=abcdefghijk",
		Options{UseCaptionPath: true}, nil)

	if items[0].Status != StatusCompleted {
		t.Fatalf("status = %s (%s), want completed via fallback", items[0].Status, items[0].ErrorMessage)
	}
	if len(env.downloader.calls) != 1 {
		t.Fatalf("downloader calls = %d, want 1", len(env.downloader.calls))
	}
	if len(env.transcriber.calls) != 1 {
		t.Fatalf("transcriber calls = %d, want 1", len(env.transcriber.calls))
	}
}

func TestCaptionPathDisabledForNonCaptionHosts(t *testing.T) {
	env := newTestEnv(t)

	env.orch.ProcessBatch(context.Background(),
		"https://example.com/clip",
		Options{UseCaptionPath: true}, nil)

	if len(env.captions.calls) != 0 {
		t.Fatal("caption fetcher must not run for non-caption hosts")
	}
	if len(env.downloader.calls) != 1 {
		t.Fatalf("downloader calls = %d, want 1", len(env.downloader.calls))
	}
}

func TestCaptionDelayThrottle(t *testing.T) {
	env := newTestEnv(t)
	now := time.Unix(1000, 0)
	env.orch.now = func() time.Time { return now }
	var waits []time.Duration
	env.orch.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	env.captions.fetch = func(url string) (caption.Result, error) {
		return caption.Result{Status: caption.StatusOK, Text: "t", Path: "/t/x.txt"}, nil
	}

	env.orch.ProcessBatch(context.Background(),
		"https://youtube.com/watch?v=aaaaaaaaaaa\nhttps://youtube.com/watch?v=bbbbbbbbbbb",
		Options{UseCaptionPath: true, CaptionDelay: 10}, nil)

	// No wait before the first attempt; the full interval before the second
	// because the clock never advances.
	if len(waits) != 1 {
		t.Fatalf("waits = %v, want exactly 1", waits)
	}
	if waits[0] != 10*time.Second {
		t.Fatalf("wait = %v, want 10s", waits[0])
	}
}

func TestCaptionDelayElapsedMeansNoWait(t *testing.T) {
	env := newTestEnv(t)
	now := time.Unix(1000, 0)
	env.orch.now = func() time.Time {
		now = now.Add(30 * time.Second)
		return now
	}
	var waits []time.Duration
	env.orch.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	env.captions.fetch = func(url string) (caption.Result, error) {
		return caption.Result{Status: caption.StatusOK, Text: "t", Path: "/t/x.txt"}, nil
	}

	env.orch.ProcessBatch(context.Background(),
		"https://youtube.com/watch?v=aaaaaaaaaaa\nhttps://youtube.com/watch?v=bbbbbbbbbbb",
		Options{UseCaptionPath: true, CaptionDelay: 10}, nil)

	if len(waits) != 0 {
		t.Fatalf("waits = %v, want none when interval already elapsed", waits)
	}
}

func TestDownloadOnlySkipsTranscription(t *testing.T) {
	env := newTestEnv(t)

	items := env.orch.ProcessBatch(context.Background(),
		"https://example.com/clip",
		Options{DownloadOnly: true}, nil)

	if items[0].Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", items[0].Status)
	}
	if items[0].MediaPath == "" {
		t.Fatal("download-only item should keep its media path")
	}
	if len(env.transcriber.calls) != 0 {
		t.Fatal("transcriber must not run in download-only mode")
	}
}

func TestDownloadedMediaDeletedUnlessRetained(t *testing.T) {
	env := newTestEnv(t)

	items := env.orch.ProcessBatch(context.Background(),
		"https://example.com/clip", Options{}, nil)

	if items[0].Status != StatusCompleted {
		t.Fatalf("status = %s", items[0].Status)
	}
	if items[0].MediaPath != "" {
		t.Fatalf("media path = %q, want cleared after deletion", items[0].MediaPath)
	}
	entries, _ := os.ReadDir(env.paths.Videos)
	if len(entries) != 0 {
		t.Fatalf("videos dir has %d entries, want 0", len(entries))
	}

	// Retained run keeps the file.
	env2 := newTestEnv(t)
	items = env2.orch.ProcessBatch(context.Background(),
		"https://example.com/clip", Options{KeepMedia: true}, nil)
	if items[0].MediaPath == "" {
		t.Fatal("retained media path should be set")
	}
	if _, err := os.Stat(items[0].MediaPath); err != nil {
		t.Fatalf("retained media missing: %v", err)
	}
}

func TestLocalFileInPlaceNeverDeleted(t *testing.T) {
	env := newTestEnv(t)
	src := writeMedia(t, t.TempDir(), "keepme.mp3")

	items := env.orch.ProcessBatch(context.Background(), src, Options{}, nil)

	if items[0].Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", items[0].Status, items[0].ErrorMessage)
	}
	// In-place mode: the user's file is not owned by the pipeline.
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source file was deleted: %v", err)
	}
}

func TestLocalFileCopyMode(t *testing.T) {
	env := newTestEnv(t)
	src := writeMedia(t, t.TempDir(), "clip.mp3")

	items := env.orch.ProcessBatch(context.Background(), src,
		Options{CopyFiles: true, KeepMedia: true}, nil)

	if items[0].Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", items[0].Status, items[0].ErrorMessage)
	}
	if filepath.Dir(items[0].MediaPath) != env.paths.Videos {
		t.Fatalf("media path = %q, want under videos dir", items[0].MediaPath)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("original file should remain: %v", err)
	}
}

func TestInvalidInputsSurfaceAsErrorItems(t *testing.T) {
	env := newTestEnv(t)

	items := env.orch.ProcessBatch(context.Background(),
		"https://example.com/clip\nnot a real thing\n/missing/talk.mp3", Options{}, nil)

	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	bySource := map[string]*WorkItem{}
	for _, item := range items {
		bySource[item.Source] = item
	}

	// Sources stay verbatim; the rejection reason goes into the error message.
	garbage := bySource["not a real thing"]
	if garbage == nil {
		t.Fatal("invalid segment missing from results")
	}
	if garbage.Status != StatusError || !strings.Contains(garbage.ErrorMessage, "not a recognized URL or media file") {
		t.Fatalf("invalid item = %+v, want error with reason", garbage)
	}

	missing := bySource["/missing/talk.mp3"]
	if missing == nil {
		t.Fatal("missing file segment missing from results")
	}
	if missing.Status != StatusError || !strings.Contains(missing.ErrorMessage, "file not found") {
		t.Fatalf("missing file item = %+v, want file-not-found error", missing)
	}
}

func TestTranscriptWrittenToDisk(t *testing.T) {
	env := newTestEnv(t)
	src := writeMedia(t, t.TempDir(), "talk.mp3")

	items := env.orch.ProcessBatch(context.Background(), src, Options{}, nil)

	if items[0].TranscriptPath == "" {
		t.Fatal("transcript path not set")
	}
	data, err := os.ReadFile(items[0].TranscriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(data) != "transcribed text" {
		t.Fatalf("transcript = %q", data)
	}
	if filepath.Dir(items[0].TranscriptPath) != env.paths.Transcripts {
		t.Fatalf("transcript path = %q, want under transcripts dir", items[0].TranscriptPath)
	}
}

func TestDownloadFailureRecordsError(t *testing.T) {
	env := newTestEnv(t)
	env.downloader.fail = map[string]string{"https://example.com/clip": "video unavailable"}

	items := env.orch.ProcessBatch(context.Background(),
		"https://example.com/clip", Options{}, nil)

	if items[0].Status != StatusError {
		t.Fatalf("status = %s, want error", items[0].Status)
	}
	if !strings.Contains(items[0].ErrorMessage, "video unavailable") {
		t.Fatalf("error message = %q", items[0].ErrorMessage)
	}
}
