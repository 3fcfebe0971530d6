package caption

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testURL = "https://www.youtube.com/watch?v=abcdefghijk"

// fakeRunner records invocations and delegates to injected behavior.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (string, string, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	return f.run(ctx, name, args...)
}

func newTestFetcher(t *testing.T, override string, runner commandRunner) (*Fetcher, *[]time.Duration) {
	t.Helper()
	sleeps := &[]time.Duration{}
	f := NewFetcher("yt-dlp", t.TempDir(), override)
	f.runner = runner
	f.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return f, sleeps
}

func cookieBrowserArg(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--cookies-from-browser" {
			return args[i+1]
		}
	}
	return ""
}

func TestFetchNonCaptionHost(t *testing.T) {
	calls := 0
	f, _ := newTestFetcher(t, "", &fakeRunner{run: func(ctx context.Context, name string, args ...string) (string, string, error) {
		calls++
		return "", "", nil
	}})

	res, err := f.Fetch(context.Background(), "https://example.com/video", Options{})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if res.Status != StatusUnavailable {
		t.Fatalf("status = %s, want unavailable", res.Status)
	}
	if calls != 0 {
		t.Fatalf("runner called %d times for non-caption host", calls)
	}
}

func TestFetchRateLimitBackoffTiming(t *testing.T) {
	f, sleeps := newTestFetcher(t, "", &fakeRunner{run: func(ctx context.Context, name string, args ...string) (string, string, error) {
		return "", "HTTP Error 429: Too Many Requests", errors.New("exit status 1")
	}})

	res, err := f.Fetch(context.Background(), testURL, Options{
		RotateCookies: false,
		MaxRetries:    2,
		BackoffBase:   8,
	})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if res.Status != StatusRateLimited {
		t.Fatalf("status = %s, want rate_limited", res.Status)
	}

	want := []time.Duration{8 * time.Second, 16 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i := range want {
		if (*sleeps)[i] != want[i] {
			t.Fatalf("sleep[%d] = %v, want %v", i, (*sleeps)[i], want[i])
		}
	}
}

func TestFetchRateLimitAdvancesContextsWithoutExtraWait(t *testing.T) {
	var browsers []string
	f, sleeps := newTestFetcher(t, "", &fakeRunner{run: func(ctx context.Context, name string, args ...string) (string, string, error) {
		browsers = append(browsers, cookieBrowserArg(args))
		return "", "429 too many requests", errors.New("exit status 1")
	}})

	_, err := f.Fetch(context.Background(), testURL, Options{
		RotateCookies: true,
		MaxRetries:    1,
		BackoffBase:   2,
	})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}

	// 5 contexts (edge, chrome, brave, firefox, anonymous), 2 attempts each.
	if len(browsers) != 10 {
		t.Fatalf("attempts = %d, want 10", len(browsers))
	}
	// One backoff sleep per context, none between contexts.
	if len(*sleeps) != 5 {
		t.Fatalf("sleeps = %d, want 5", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != 2*time.Second {
			t.Fatalf("sleep = %v, want 2s", d)
		}
	}
}

func TestFetchCredentialContextOrder(t *testing.T) {
	var browsers []string
	f, sleeps := newTestFetcher(t, "firefox", &fakeRunner{run: func(ctx context.Context, name string, args ...string) (string, string, error) {
		browsers = append(browsers, cookieBrowserArg(args))
		return "", "no subtitles available", errors.New("exit status 1")
	}})

	res, err := f.Fetch(context.Background(), testURL, Options{
		RotateCookies: true,
		MaxRetries:    3,
	})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if res.Status != StatusUnavailable {
		t.Fatalf("status = %s, want unavailable", res.Status)
	}

	// Override first, fixed order after, dedup applied, anonymous last. A
	// non-rate-limit failure abandons each context after one attempt.
	want := []string{"firefox", "edge", "chrome", "brave", ""}
	if len(browsers) != len(want) {
		t.Fatalf("browsers = %v, want %v", browsers, want)
	}
	for i := range want {
		if browsers[i] != want[i] {
			t.Fatalf("browsers[%d] = %q, want %q", i, browsers[i], want[i])
		}
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no backoff sleeps, got %v", *sleeps)
	}
}

func TestFetchSuccessParsesAndSaves(t *testing.T) {
	var f *Fetcher
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (string, string, error) {
		vtt := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nhello there\n"
		path := filepath.Join(f.transcriptsDir, "Some_Title [abcdefghijk].en.vtt")
		if err := os.WriteFile(path, []byte(vtt), 0644); err != nil {
			t.Fatalf("write vtt: %v", err)
		}
		return "", "", nil
	}}
	f, _ = newTestFetcher(t, "", runner)

	res, err := f.Fetch(context.Background(), testURL, Options{IncludeTimestamps: true})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("status = %s (%s), want ok", res.Status, res.Reason)
	}
	if res.Text != "[00:00:01] hello there" {
		t.Fatalf("text = %q", res.Text)
	}
	if !strings.HasSuffix(res.Path, ".txt") {
		t.Fatalf("path = %q, want .txt", res.Path)
	}
	saved, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read saved transcript: %v", err)
	}
	if string(saved) != res.Text {
		t.Fatalf("saved = %q, want %q", saved, res.Text)
	}
}

func TestFetchEmptyTranscriptIsUnavailable(t *testing.T) {
	var f *Fetcher
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (string, string, error) {
		path := filepath.Join(f.transcriptsDir, "Empty [abcdefghijk].en.vtt")
		if err := os.WriteFile(path, []byte("WEBVTT\n"), 0644); err != nil {
			t.Fatalf("write vtt: %v", err)
		}
		return "", "", nil
	}}
	f, _ = newTestFetcher(t, "", runner)

	res, err := f.Fetch(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if res.Status != StatusUnavailable {
		t.Fatalf("status = %s, want unavailable", res.Status)
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct{ url, want string }{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/video", ""},
	}
	for _, c := range cases {
		if got := extractVideoID(c.url); got != c.want {
			t.Fatalf("extractVideoID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
