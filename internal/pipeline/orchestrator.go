package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pattty847/TranscriptAI/internal/caption"
	"github.com/pattty847/TranscriptAI/internal/config"
	"github.com/pattty847/TranscriptAI/internal/download"
	"github.com/pattty847/TranscriptAI/internal/input"
	"github.com/pattty847/TranscriptAI/internal/transcribe"
)

// Options control one batch run.
type Options struct {
	DownloadOnly      bool
	KeepMedia         bool
	CopyFiles         bool
	UseCaptionPath    bool
	IncludeTimestamps bool
	RotateCookies     bool
	MaxRetries        int
	BackoffBase       float64 // seconds
	CaptionDelay      float64 // minimum seconds between caption attempts
}

// Event is one batch progress notification pushed to the caller's sink.
type Event struct {
	Index   int        `json:"index"`
	Source  string     `json:"source"`
	Status  ItemStatus `json:"status"`
	Stage   string     `json:"stage,omitempty"`
	Percent float64    `json:"percent,omitempty"`
	Message string     `json:"message,omitempty"`
}

// EventSink receives batch events. May be nil.
type EventSink func(Event)

// CaptionFetcher is the caption fast-path stage.
type CaptionFetcher interface {
	Fetch(ctx context.Context, url string, opts caption.Options) (caption.Result, error)
}

// Downloader is the media download stage.
type Downloader interface {
	Download(ctx context.Context, url string, sink download.Sink) (string, error)
}

// Transcriber is the speech-to-text stage. Unload must be safe to call
// regardless of whether a model was ever loaded.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string, sink transcribe.Sink) (string, error)
	Unload()
}

// Orchestrator drives work items through the pipeline stages sequentially.
// Items are serialized because the loaded transcription model is the only
// shared resource and must stay singular to bound memory.
type Orchestrator struct {
	paths       config.Paths
	captions    CaptionFetcher
	downloader  Downloader
	transcriber Transcriber

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(paths config.Paths, captions CaptionFetcher, downloader Downloader, transcriber Transcriber) *Orchestrator {
	return &Orchestrator{
		paths:       paths,
		captions:    captions,
		downloader:  downloader,
		transcriber: transcriber,
		now:         time.Now,
		sleep:       sleepCtx,
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

// ProcessBatch parses the raw input and drives every item to a terminal
// state. One item's failure never aborts the batch; only context
// cancellation stops early, and already-finished items keep their results.
// The transcription model is released before returning, on every path.
func (o *Orchestrator) ProcessBatch(ctx context.Context, rawText string, opts Options, sink EventSink) []*WorkItem {
	defer o.transcriber.Unload()

	batch := input.ParseBatch(rawText)
	items := make([]*WorkItem, 0, len(batch.URLs)+len(batch.Files)+len(batch.Invalid))

	for _, url := range batch.URLs {
		items = append(items, newWorkItem(url, input.KindURL))
	}
	for _, file := range batch.Files {
		items = append(items, newWorkItem(file, input.KindFile))
	}
	for _, bad := range batch.Invalid {
		item := newWorkItem(bad.Segment, input.KindInvalid)
		item.fail("invalid input: " + bad.Reason)
		items = append(items, item)
	}

	log.Printf("[pipeline] batch start: %d urls, %d files, %d invalid",
		len(batch.URLs), len(batch.Files), len(batch.Invalid))

	// End time of the previous caption attempt, zero until one happens.
	var lastCaptionEnd time.Time

	for i, item := range items {
		if item.Status.Terminal() {
			o.emit(sink, i, item, "", 0, item.ErrorMessage)
			continue
		}
		if ctx.Err() != nil {
			// Stopped: remaining items stay pending, no further transitions.
			break
		}
		o.processItem(ctx, i, item, opts, sink, &lastCaptionEnd)
	}

	return items
}

func (o *Orchestrator) processItem(ctx context.Context, idx int, item *WorkItem, opts Options, sink EventSink, lastCaptionEnd *time.Time) {
	if item.Kind == input.KindURL && opts.UseCaptionPath && caption.IsCaptionHost(item.Source) {
		done, stopped := o.tryCaptionPath(ctx, idx, item, opts, sink, lastCaptionEnd)
		if done || stopped {
			return
		}
	}

	mediaPath, err := o.acquireMedia(ctx, idx, item, opts, sink)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		item.fail(err.Error())
		o.emit(sink, idx, item, "", 0, item.ErrorMessage)
		return
	}
	item.MediaPath = mediaPath

	if opts.DownloadOnly {
		if err := item.transition(StatusCompleted); err != nil {
			item.fail(err.Error())
		}
		o.emit(sink, idx, item, "", 100, "Download complete")
		return
	}

	if err := o.transcribeItem(ctx, idx, item, opts, sink); err != nil {
		if ctx.Err() != nil {
			return
		}
		item.fail(err.Error())
		o.emit(sink, idx, item, "", 0, item.ErrorMessage)
	}
}

// tryCaptionPath runs the caption fast-path. Returns done=true when the item
// reached a terminal state, stopped=true on cancellation. A fast-path miss
// returns (false, false) and the caller falls through to download.
func (o *Orchestrator) tryCaptionPath(ctx context.Context, idx int, item *WorkItem, opts Options, sink EventSink, lastCaptionEnd *time.Time) (done, stopped bool) {
	// Throttle measured from the end of the previous caption attempt; no
	// wait if the interval already elapsed.
	if opts.CaptionDelay > 0 && !lastCaptionEnd.IsZero() {
		elapsed := o.now().Sub(*lastCaptionEnd)
		if wait := time.Duration(opts.CaptionDelay * float64(time.Second)); elapsed < wait {
			o.emit(sink, idx, item, "waiting", 0, "Waiting before next caption request...")
			if err := o.sleep(ctx, wait-elapsed); err != nil {
				return false, true
			}
		}
	}

	o.emit(sink, idx, item, "captions", 0, "Checking for existing captions...")
	res, err := o.captions.Fetch(ctx, item.Source, caption.Options{
		IncludeTimestamps: opts.IncludeTimestamps,
		RotateCookies:     opts.RotateCookies,
		MaxRetries:        opts.MaxRetries,
		BackoffBase:       opts.BackoffBase,
	})
	*lastCaptionEnd = o.now()
	if err != nil {
		return false, true
	}

	switch res.Status {
	case caption.StatusOK:
		item.TranscriptPath = res.Path
		if terr := item.transition(StatusCompleted); terr != nil {
			item.fail(terr.Error())
			return true, false
		}
		o.emit(sink, idx, item, "captions", 100, "Captions retrieved, no transcription needed")
		return true, false
	default:
		// Rate-limited and unavailable both fall back to download.
		log.Printf("[pipeline] caption fast-path miss (%s): %s", res.Status, res.Reason)
		o.emit(sink, idx, item, "captions", 0, res.Reason)
		return false, false
	}
}

// acquireMedia produces a local media file for the item: download for URLs,
// workspace copy or in-place use for local files.
func (o *Orchestrator) acquireMedia(ctx context.Context, idx int, item *WorkItem, opts Options, sink EventSink) (string, error) {
	if item.NeedsDownload {
		if err := item.transition(StatusDownloading); err != nil {
			return "", err
		}
		o.emit(sink, idx, item, "download", 0, "Downloading media...")
		path, err := o.downloader.Download(ctx, item.Source, func(p download.Progress) {
			o.emit(sink, idx, item, "download", p.Percent, p.Filename)
		})
		if err != nil {
			return "", err
		}
		item.ownsMedia = true
		return path, nil
	}

	if _, err := os.Stat(item.Source); err != nil {
		return "", fmt.Errorf("file not found: %s", item.Source)
	}

	if opts.CopyFiles {
		if err := item.transition(StatusCopying); err != nil {
			return "", err
		}
		o.emit(sink, idx, item, "copy", 0, "Copying file to workspace...")
		path, err := copyToWorkspace(item.Source, o.paths.Videos)
		if err != nil {
			return "", err
		}
		item.ownsMedia = true
		return path, nil
	}

	// In-place mode: transcribe the user's file where it sits.
	return item.Source, nil
}

func (o *Orchestrator) transcribeItem(ctx context.Context, idx int, item *WorkItem, opts Options, sink EventSink) error {
	if err := item.transition(StatusTranscribing); err != nil {
		return err
	}

	text, err := o.transcriber.Transcribe(ctx, item.MediaPath, func(p transcribe.Progress) {
		o.emit(sink, idx, item, p.Stage, p.Percent, p.Message)
	})
	if err != nil {
		return err
	}

	outPath := transcriptPath(o.paths.Transcripts, item.MediaPath)
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	item.TranscriptPath = outPath

	// Downloaded or copied media is transient unless retained. Deletion is
	// best-effort; the transcript is already safe on disk.
	if item.ownsMedia && !opts.KeepMedia {
		if err := os.Remove(item.MediaPath); err != nil {
			log.Printf("[pipeline] could not remove media %s: %v", item.MediaPath, err)
		} else {
			item.MediaPath = ""
		}
	}

	if err := item.transition(StatusCompleted); err != nil {
		return err
	}
	o.emit(sink, idx, item, "saving", 100, "Transcript saved")
	return nil
}

func (o *Orchestrator) emit(sink EventSink, idx int, item *WorkItem, stage string, percent float64, msg string) {
	if sink == nil {
		return
	}
	sink(Event{
		Index:   idx,
		Source:  item.Source,
		Status:  item.Status,
		Stage:   stage,
		Percent: percent,
		Message: msg,
	})
}
