package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "transcriptai",
	Short: "Media acquisition and transcription pipeline",
	Long: `TranscriptAI turns a batch of URLs and local media files into text
transcripts, preferring pre-existing captions before falling back to
download and speech-to-text, with optional LLM analysis on top.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
