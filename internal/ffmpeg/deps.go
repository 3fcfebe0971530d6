package ffmpeg

import (
	"fmt"
	"os/exec"
	"strings"
)

const downloadURL = "https://www.ffmpeg.org/download.html"

// MissingDependencyError reports absent external media binaries together
// with an install pointer.
type MissingDependencyError struct {
	Tools []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing required media tools: %s. Install FFmpeg: %s",
		strings.Join(e.Tools, ", "), downloadURL)
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// CheckDependencies verifies ffmpeg and ffprobe are reachable on PATH.
func CheckDependencies() error {
	var missing []string
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return &MissingDependencyError{Tools: missing}
	}
	return nil
}
