package config

import (
	"os"
	"path/filepath"
)

// Paths groups the workspace directories used by the pipeline. It is built
// once at startup and passed to collaborators explicitly.
type Paths struct {
	Videos      string
	Transcripts string
	Analysis    string
}

func NewPaths(assetsPath string) Paths {
	return Paths{
		Videos:      filepath.Join(assetsPath, "videos"),
		Transcripts: filepath.Join(assetsPath, "transcripts"),
		Analysis:    filepath.Join(assetsPath, "analysis"),
	}
}

// EnsureDirectories creates the workspace layout. Called once at process
// startup, before any pipeline work.
func (p Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Videos, p.Transcripts, p.Analysis} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
