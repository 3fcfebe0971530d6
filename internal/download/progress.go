package download

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	// [download]  45.3% of 10.55MiB at 1.23MiB/s ETA 00:05
	downloadLineRe = regexp.MustCompile(`^\[download\]\s+(\S+)%\s+of\s+\S+(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)
	destLineRe     = regexp.MustCompile(`^\[download\]\s+Destination:\s+(.+)$`)
	nonNumericRe   = regexp.MustCompile(`[^\d.]`)
)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// ParsePercent extracts a percentage from raw progress text. Control/ANSI
// sequences and non-numeric characters are stripped first; any parse
// failure yields 0 rather than an error.
func ParsePercent(raw string) float64 {
	clean := nonNumericRe.ReplaceAllString(stripANSI(raw), "")
	if clean == "" {
		return 0
	}
	percent, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// parseProgressLine turns one yt-dlp output line into a Progress snapshot.
// The second return is false for lines that are not progress updates.
func parseProgressLine(line string) (Progress, bool) {
	clean := stripANSI(strings.TrimRight(line, "\r"))

	if m := destLineRe.FindStringSubmatch(clean); m != nil {
		return Progress{Filename: strings.TrimSpace(m[1])}, true
	}

	m := downloadLineRe.FindStringSubmatch(clean)
	if m == nil {
		return Progress{}, false
	}
	return Progress{
		Percent: ParsePercent(m[1]),
		Speed:   m[2],
		ETA:     m[3],
	}, true
}
