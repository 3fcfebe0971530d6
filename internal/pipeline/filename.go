package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[<>:"|?*\\]`)

// sanitizeName makes a base name filesystem-safe: invalid characters are
// removed and spaces become underscores.
func sanitizeName(name string) string {
	clean := unsafeChars.ReplaceAllString(name, "")
	clean = strings.ReplaceAll(clean, " ", "_")
	clean = strings.Trim(clean, "._")
	if clean == "" {
		clean = "transcript"
	}
	return clean
}

// transcriptPath returns a collision-free transcript path for a media file.
// Collisions append _1, _2, ... before the extension.
func transcriptPath(dir, mediaPath string) string {
	base := filepath.Base(mediaPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = sanitizeName(base)

	candidate := filepath.Join(dir, base+".txt")
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d.txt", base, n))
	}
}

// copyToWorkspace copies a local media file into the videos directory,
// appending a numeric suffix when the name is taken. Returns the new path.
func copyToWorkspace(srcPath, videosDir string) (string, error) {
	name := filepath.Base(srcPath)
	ext := filepath.Ext(name)
	stem := sanitizeName(strings.TrimSuffix(name, ext))

	dst := filepath.Join(videosDir, stem+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = filepath.Join(videosDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create workspace copy: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("copy media: %w", err)
	}
	return dst, nil
}
