package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pattty847/TranscriptAI/internal/analyze"
	"github.com/pattty847/TranscriptAI/internal/api"
	"github.com/pattty847/TranscriptAI/internal/api/handlers"
	"github.com/pattty847/TranscriptAI/internal/auth"
	"github.com/pattty847/TranscriptAI/internal/batch"
	"github.com/pattty847/TranscriptAI/internal/caption"
	"github.com/pattty847/TranscriptAI/internal/config"
	"github.com/pattty847/TranscriptAI/internal/download"
	"github.com/pattty847/TranscriptAI/internal/pipeline"
	"github.com/pattty847/TranscriptAI/internal/store"
	"github.com/pattty847/TranscriptAI/internal/transcribe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	paths := config.NewPaths(cfg.AssetsPath)
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create asset directories: %w", err)
	}

	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer st.Close()

	if err := st.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// The pipeline is rebuilt per batch and the analyzer per request so
	// settings saved through the API apply without a restart.
	runner := batch.RunnerFunc(func(ctx context.Context, rawText string, opts pipeline.Options, sink pipeline.EventSink) []*pipeline.WorkItem {
		rc := cfg.Overlay(st.GetSetting)
		orch := pipeline.NewOrchestrator(
			paths,
			caption.NewFetcher(rc.YtDlpBin, paths.Transcripts, rc.CookieBrowser),
			download.NewDownloader(rc.YtDlpBin, paths.Videos),
			transcribe.NewTranscriber(rc.WhisperServer, rc.WhisperModel, rc.WhisperDevice),
		)
		return orch.ProcessBatch(ctx, rawText, opts, sink)
	})
	manager := batch.NewManager(st, runner)
	defer manager.Shutdown()

	newAnalyzer := func() handlers.AnalysisService {
		rc := cfg.Overlay(st.GetSetting)
		return analyze.NewAnalyzer(rc.OpenAIKey, rc.OpenAIBaseURL, rc.AnalysisModel)
	}

	router := api.NewRouter(st, jwtService, cfg, paths, manager, newAnalyzer)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on %s", addr)
	log.Printf("Assets path: %s", cfg.AssetsPath)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
