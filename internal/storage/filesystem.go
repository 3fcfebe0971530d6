package storage

import (
	"os"
	"path/filepath"
	"strings"
)

type FileEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

var transcriptExtensions = map[string]bool{
	".txt": true,
}

var analysisExtensions = map[string]bool{
	".json": true, ".md": true,
}

func IsTranscriptFile(name string) bool {
	return transcriptExtensions[strings.ToLower(filepath.Ext(name))]
}

func IsAnalysisFile(name string) bool {
	return analysisExtensions[strings.ToLower(filepath.Ext(name))]
}

// SafeJoin resolves name under basePath, refusing path traversal.
func SafeJoin(basePath, name string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(filepath.Join(basePath, name))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", os.ErrPermission
	}
	return absFull, nil
}

// ListDirectory returns the non-hidden entries of a directory, optionally
// filtered by a name predicate.
func ListDirectory(basePath string, keep func(name string) bool) ([]*FileEntry, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, err
	}

	result := []*FileEntry{}
	for _, entry := range entries {
		// Skip hidden files
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() {
			continue
		}
		if keep != nil && !keep(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, &FileEntry{
			Name: entry.Name(),
			Path: entry.Name(),
			Size: info.Size(),
		})
	}
	return result, nil
}
