package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pattty847/TranscriptAI/internal/caption"
	"github.com/pattty847/TranscriptAI/internal/config"
	"github.com/pattty847/TranscriptAI/internal/download"
	"github.com/pattty847/TranscriptAI/internal/pipeline"
	"github.com/pattty847/TranscriptAI/internal/transcribe"
)

var processFlags struct {
	downloadOnly bool
	keepMedia    bool
	noCaptions   bool
	noCopy       bool
	noRotate     bool
	timestamps   bool
	retries      int
	backoff      float64
	delay        float64
}

var processCmd = &cobra.Command{
	Use:   "process <url-or-file> [more...]",
	Short: "Process a batch of URLs and files from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	f := processCmd.Flags()
	f.BoolVar(&processFlags.downloadOnly, "download-only", false, "download media without transcribing")
	f.BoolVar(&processFlags.keepMedia, "keep-media", false, "retain downloaded media files")
	f.BoolVar(&processFlags.noCaptions, "no-captions", false, "skip the caption fast-path")
	f.BoolVar(&processFlags.noCopy, "no-copy", false, "transcribe local files in place instead of copying")
	f.BoolVar(&processFlags.noRotate, "no-rotate", false, "disable browser cookie rotation")
	f.BoolVar(&processFlags.timestamps, "timestamps", false, "include timestamps in caption transcripts")
	f.IntVar(&processFlags.retries, "retries", -1, "caption retry count per credential context")
	f.Float64Var(&processFlags.backoff, "backoff", -1, "caption backoff base in seconds")
	f.Float64Var(&processFlags.delay, "delay", -1, "minimum seconds between caption attempts")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	paths := config.NewPaths(cfg.AssetsPath)
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create asset directories: %w", err)
	}

	opts := pipeline.Options{
		DownloadOnly:      processFlags.downloadOnly,
		KeepMedia:         processFlags.keepMedia || cfg.KeepMedia,
		CopyFiles:         cfg.CopyFiles && !processFlags.noCopy,
		UseCaptionPath:    cfg.UseCaptionPath && !processFlags.noCaptions,
		IncludeTimestamps: processFlags.timestamps,
		RotateCookies:     cfg.RotateCookies && !processFlags.noRotate,
		MaxRetries:        cfg.MaxRetries,
		BackoffBase:       cfg.BackoffBase,
		CaptionDelay:      cfg.CaptionDelay,
	}
	if processFlags.retries >= 0 {
		opts.MaxRetries = processFlags.retries
	}
	if processFlags.backoff >= 0 {
		opts.BackoffBase = processFlags.backoff
	}
	if processFlags.delay >= 0 {
		opts.CaptionDelay = processFlags.delay
	}

	orch := pipeline.NewOrchestrator(
		paths,
		caption.NewFetcher(cfg.YtDlpBin, paths.Transcripts, cfg.CookieBrowser),
		download.NewDownloader(cfg.YtDlpBin, paths.Videos),
		transcribe.NewTranscriber(cfg.WhisperServer, cfg.WhisperModel, cfg.WhisperDevice),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "stopping...")
		cancel()
	}()

	items := orch.ProcessBatch(ctx, strings.Join(args, "\n"), opts, func(ev pipeline.Event) {
		if ev.Message == "" {
			return
		}
		fmt.Printf("[%d] %-12s %s\n", ev.Index+1, ev.Status, ev.Message)
	})

	failed := 0
	fmt.Println()
	for i, item := range items {
		switch item.Status {
		case pipeline.StatusCompleted:
			out := item.TranscriptPath
			if out == "" {
				out = item.MediaPath
			}
			fmt.Printf("%d. %s -> %s\n", i+1, item.Source, out)
		case pipeline.StatusError:
			failed++
			fmt.Printf("%d. %s -> FAILED: %s\n", i+1, item.Source, item.ErrorMessage)
		default:
			fmt.Printf("%d. %s -> %s\n", i+1, item.Source, item.Status)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(items))
	}
	return nil
}
