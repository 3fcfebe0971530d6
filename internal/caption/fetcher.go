package caption

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Status is the typed outcome of a caption fetch. Both failure kinds route
// the orchestrator to the download+transcribe fallback; they differ only in
// the user-facing message.
type Status int

const (
	StatusOK Status = iota
	StatusRateLimited
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "unavailable"
	}
}

// Result is the outcome of one caption fast-path attempt chain.
type Result struct {
	Status Status
	Text   string // parsed transcript, StatusOK only
	Path   string // saved .txt path, StatusOK only
	Reason string // user-facing message on failure
}

// Options control one fetch.
type Options struct {
	IncludeTimestamps bool
	RotateCookies     bool
	MaxRetries        int
	BackoffBase       float64 // seconds
}

// browserOrder is the fixed cookie-store preference tried after any
// configured override and before the final anonymous attempt.
var browserOrder = []string{"edge", "chrome", "brave", "firefox"}

// subtitleLangs is the language preference: exact locale variants before
// generic "any language".
var subtitleLangs = "en-US,en-GB,en,en.*,.*"

// commandRunner abstracts yt-dlp execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Fetcher retrieves pre-existing subtitle tracks via yt-dlp without
// downloading the media itself.
type Fetcher struct {
	bin            string
	transcriptsDir string
	cookieBrowser  string // configured override, tried first
	runner         commandRunner
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewFetcher(bin, transcriptsDir, cookieBrowser string) *Fetcher {
	return &Fetcher{
		bin:            bin,
		transcriptsDir: transcriptsDir,
		cookieBrowser:  cookieBrowser,
		runner:         execRunner{},
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var youtubeIDRes = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
}

// IsCaptionHost reports whether the URL belongs to the caption-bearing host
// family the fast-path supports.
func IsCaptionHost(url string) bool {
	lowered := strings.ToLower(url)
	return strings.Contains(lowered, "youtube.com") || strings.Contains(lowered, "youtu.be")
}

func extractVideoID(url string) string {
	for _, re := range youtubeIDRes {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// credentialContexts builds the ordered list of cookie stores to try: the
// configured override, the fixed browser order, then a final anonymous
// attempt. Duplicates removed, order preserved.
func (f *Fetcher) credentialContexts(rotate bool) []string {
	if !rotate {
		return []string{""}
	}

	var contexts []string
	seen := map[string]bool{}
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			contexts = append(contexts, c)
		}
	}

	if f.cookieBrowser != "" {
		add(f.cookieBrowser)
	}
	for _, b := range browserOrder {
		add(b)
	}
	add("") // anonymous fallback
	return contexts
}

// Fetch attempts the caption fast-path for a URL. The returned error is
// non-nil only for context cancellation; every other failure is expressed
// as a typed Result so the fallback decision stays visible to callers.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (Result, error) {
	if !IsCaptionHost(url) {
		return Result{Status: StatusUnavailable, Reason: "not a caption-bearing URL"}, nil
	}

	var lastErr string
	rateLimited := false

	for _, browser := range f.credentialContexts(opts.RotateCookies) {
		for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
			res, err := f.attempt(ctx, url, browser, opts.IncludeTimestamps)
			if err == nil {
				return res, nil
			}
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}

			lastErr = err.Error()
			if isRateLimit(lastErr) {
				rateLimited = true
				if attempt < opts.MaxRetries {
					delay := time.Duration(opts.BackoffBase * math.Pow(2, float64(attempt)) * float64(time.Second))
					log.Printf("[caption] rate limited (browser=%q attempt=%d), backing off %s", browser, attempt, delay)
					if serr := f.sleep(ctx, delay); serr != nil {
						return Result{}, serr
					}
					continue
				}
				// retries exhausted for this context: advance without waiting
				break
			}
			// missing track / parse failure: abandon this context immediately
			break
		}
	}

	if rateLimited {
		return Result{
			Status: StatusRateLimited,
			Reason: "subtitle request was rate-limited (HTTP 429) after retries; falling back to download and transcribe",
		}, nil
	}
	if lastErr == "" {
		lastErr = "unknown subtitle download error"
	}
	return Result{
		Status: StatusUnavailable,
		Reason: fmt.Sprintf("captions unavailable: %s", lastErr),
	}, nil
}

func isRateLimit(msg string) bool {
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "too many requests")
}

// attempt runs a single yt-dlp subtitle download under one credential
// context and parses the resulting track.
func (f *Fetcher) attempt(ctx context.Context, url, browser string, includeTimestamps bool) (Result, error) {
	before, err := snapshotDir(f.transcriptsDir)
	if err != nil {
		return Result{}, fmt.Errorf("read transcripts dir: %w", err)
	}
	started := time.Now()

	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt/srt/best",
		"--sub-langs", subtitleLangs,
		"-o", filepath.Join(f.transcriptsDir, "%(title).80B [%(id)s].%(ext)s"),
		"--no-progress",
		"--no-warnings",
		"--restrict-filenames",
		"--windows-filenames",
		"--no-color",
	}
	if browser != "" {
		args = append(args, "--cookies-from-browser", browser)
	}
	args = append(args, url)

	if _, stderr, err := f.runner.Run(ctx, f.bin, args...); err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return Result{}, errors.New(msg)
	}

	captionPath, err := f.locateCaptionFile(url, before, started)
	if err != nil {
		return Result{}, err
	}

	raw, err := os.ReadFile(captionPath)
	if err != nil {
		return Result{}, fmt.Errorf("read caption file: %w", err)
	}

	text := ParseCaptions(string(raw), includeTimestamps)
	if text == "" {
		return Result{}, errors.New("caption file downloaded but produced empty transcript text")
	}

	outPath := strings.TrimSuffix(captionPath, filepath.Ext(captionPath)) + ".txt"
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return Result{}, fmt.Errorf("save transcript: %w", err)
	}

	log.Printf("[caption] fast-path hit: %s", outPath)
	return Result{Status: StatusOK, Text: text, Path: outPath}, nil
}

// locateCaptionFile picks the subtitle file the attempt just produced.
// Candidates are files new since the attempt started, with a subtitle
// extension, preferring names tagged with the video ID; the most recently
// modified candidate wins. The mtime heuristic is a policy choice tied to
// yt-dlp's on-disk behavior, not a contract.
func (f *Fetcher) locateCaptionFile(url string, before map[string]bool, started time.Time) (string, error) {
	entries, err := os.ReadDir(f.transcriptsDir)
	if err != nil {
		return "", err
	}

	videoID := extractVideoID(url)

	type candidate struct {
		path  string
		mtime time.Time
	}
	var tagged, all []candidate

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".vtt" && ext != ".srt" {
			continue
		}
		path := filepath.Join(f.transcriptsDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		c := candidate{path: path, mtime: info.ModTime()}
		all = append(all, c)
		if before[path] && info.ModTime().Before(started) {
			continue
		}
		if videoID != "" && !strings.Contains(entry.Name(), "["+videoID+"]") {
			continue
		}
		tagged = append(tagged, c)
	}

	candidates := tagged
	if len(candidates) == 0 {
		// Fallback: newest subtitle-like file regardless of tag
		candidates = all
	}
	if len(candidates) == 0 {
		return "", errors.New("no caption track found (manual or auto-generated)")
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].mtime.After(candidates[j].mtime)
	})
	return candidates[0].path, nil
}

func snapshotDir(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		seen[filepath.Join(dir, entry.Name())] = true
	}
	return seen, nil
}
