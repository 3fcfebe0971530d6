package caption

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	cueIDRe      = regexp.MustCompile(`^\d+$`)
	// Matches lines this parser already emitted, so re-parsing its own
	// output keeps cue boundaries intact.
	emittedRe = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2})\]\s*`)
)

// cleanLine strips markup tags and HTML entities and collapses whitespace.
func cleanLine(line string) string {
	text := tagRe.ReplaceAllString(line, "")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// normalizeTimestamp converts a VTT/SRT cue start ("HH:MM:SS.mmm" or
// "MM:SS.mmm", comma or dot separated) to HH:MM:SS.
func normalizeTimestamp(raw string) string {
	ts := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	parts := strings.Split(ts, ":")

	toInt := func(s string) int {
		n, _ := strconv.Atoi(strings.SplitN(s, ".", 2)[0])
		return n
	}

	switch len(parts) {
	case 3:
		return fmt.Sprintf("%02d:%02d:%02d", toInt(parts[0]), toInt(parts[1]), toInt(parts[2]))
	case 2:
		return fmt.Sprintf("00:%02d:%02d", toInt(parts[0]), toInt(parts[1]))
	default:
		return "00:00:00"
	}
}

// ParseCaptions merges a VTT/SRT subtitle track into plain transcript text.
// Lines following a timing line accumulate into one cue until a blank line,
// the next timing line, or EOF; on flush the cue is skipped when empty or
// identical to the previously emitted text (auto-generated tracks repeat
// rolling captions). Text with no opening timing line is treated as one cue
// per line, which keeps cue boundaries intact when the parser runs over its
// own bare output. Each emitted line is "[HH:MM:SS] text", or bare text when
// timestamps are disabled. Re-running the parser on its own output is a no-op.
func ParseCaptions(raw string, includeTimestamps bool) string {
	var (
		out       []string
		cueLines  []string
		timestamp string
		lastText  string
		inCue     bool
		pendingID string
	)

	flush := func() {
		if len(cueLines) == 0 {
			return
		}
		joined := cleanLine(strings.Join(cueLines, " "))
		cueLines = cueLines[:0]
		if joined == "" || joined == lastText {
			return
		}
		lastText = joined
		if includeTimestamps && timestamp != "" {
			out = append(out, fmt.Sprintf("[%s] %s", timestamp, joined))
		} else {
			out = append(out, joined)
		}
	}

	// A digit-only line is held back until the next line decides whether it
	// was an SRT cue ID (timing line follows, drop it) or standalone text.
	resolvePending := func(wasCueID bool) {
		if pendingID == "" {
			return
		}
		if !wasCueID {
			flush()
			cueLines = append(cueLines, pendingID)
			flush()
		}
		pendingID = ""
	}

	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if stripped == "" {
			resolvePending(false)
			flush()
			inCue = false
			continue
		}
		upper := strings.ToUpper(stripped)
		if strings.HasPrefix(upper, "WEBVTT") ||
			strings.HasPrefix(stripped, "Kind:") ||
			strings.HasPrefix(stripped, "Language:") ||
			strings.HasPrefix(stripped, "NOTE") {
			continue
		}
		if strings.Contains(stripped, "-->") {
			resolvePending(true)
			flush()
			start := strings.TrimSpace(strings.SplitN(stripped, "-->", 2)[0])
			timestamp = normalizeTimestamp(start)
			inCue = true
			continue
		}
		if m := emittedRe.FindStringSubmatch(stripped); m != nil {
			resolvePending(false)
			flush()
			timestamp = m[1]
			inCue = true
			if rest := strings.TrimSpace(stripped[len(m[0]):]); rest != "" {
				cueLines = append(cueLines, rest)
			}
			continue
		}
		if !inCue && cueIDRe.MatchString(stripped) {
			resolvePending(false)
			pendingID = stripped
			continue
		}
		resolvePending(false)
		cueLines = append(cueLines, stripped)
		if !inCue {
			flush()
		}
	}
	resolvePending(false)
	flush()

	return strings.TrimSpace(strings.Join(out, "\n"))
}
