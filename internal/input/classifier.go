package input

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind classifies one input segment.
type Kind int

const (
	KindInvalid Kind = iota
	KindURL
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindFile:
		return "file"
	default:
		return "invalid"
	}
}

// InvalidInput is a rejected segment with the reason it was rejected. The
// segment is kept verbatim so callers can report it back unchanged.
type InvalidInput struct {
	Segment string `json:"segment"`
	Reason  string `json:"reason"`
}

// Batch is the partition of a raw input blob. Every non-empty segment lands
// in exactly one of the three lists.
type Batch struct {
	URLs    []string       `json:"urls"`
	Files   []string       `json:"files"`
	Invalid []InvalidInput `json:"invalid"`
}

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://`),
	regexp.MustCompile(`(?i)^www\.`),
	regexp.MustCompile(`(?i)^[a-z0-9-]+\.(com|org|net|io|co|tv|be|de|fr|uk)`),
}

var mediaExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true,
	".flv": true, ".wmv": true, ".m4v": true, ".3gp": true,
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".aac": true,
	".ogg": true, ".opus": true, ".wma": true, ".aiff": true, ".aif": true,
}

// IsMediaFile reports whether name carries a supported audio/video extension.
func IsMediaFile(name string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(name))]
}

// Classify detects whether a single segment is a URL, a media file path, or
// invalid. A path with a media extension is accepted even if it does not
// exist yet; existence is re-checked by ParseBatch and again before use.
func Classify(segment string) Kind {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return KindInvalid
	}

	for _, re := range urlPatterns {
		if re.MatchString(segment) {
			return KindURL
		}
	}

	if info, err := os.Stat(segment); err == nil && info.Mode().IsRegular() {
		if IsMediaFile(segment) {
			return KindFile
		}
		return KindInvalid
	}

	// Not on disk (yet): trust the extension alone
	if IsMediaFile(segment) {
		return KindFile
	}

	return KindInvalid
}

// ParseBatch splits raw input on semicolons and newlines and partitions the
// segments. File entries must exist on disk; missing ones are reported as
// invalid with a reason.
func ParseBatch(text string) Batch {
	var batch Batch
	var fileCandidates []string

	for _, segment := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == '\n'
	}) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		switch Classify(segment) {
		case KindURL:
			batch.URLs = append(batch.URLs, segment)
		case KindFile:
			fileCandidates = append(fileCandidates, segment)
		default:
			batch.Invalid = append(batch.Invalid, InvalidInput{
				Segment: segment,
				Reason:  "not a recognized URL or media file",
			})
		}
	}

	valid, bad := ValidateFiles(fileCandidates)
	batch.Files = valid
	batch.Invalid = append(batch.Invalid, bad...)

	return batch
}

// ValidateFiles filters file paths to existing supported media files and
// returns reasons for the rest.
func ValidateFiles(paths []string) (valid []string, invalid []InvalidInput) {
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil || !info.Mode().IsRegular():
			invalid = append(invalid, InvalidInput{Segment: p, Reason: "file not found"})
		case !IsMediaFile(p):
			invalid = append(invalid, InvalidInput{Segment: p, Reason: "not a supported media file"})
		default:
			valid = append(valid, p)
		}
	}
	return valid, invalid
}
