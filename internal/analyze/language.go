package analyze

import (
	"sync"

	"github.com/pemistahl/lingua-go"
)

// detectableLanguages keeps the detector's model footprint small; add here
// when transcripts in other languages show up.
var detectableLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Russian,
	lingua.Japanese,
	lingua.Korean,
	lingua.Chinese,
}

// LanguageDetector identifies the transcript language. The underlying model
// is process-wide and built lazily because loading the language profiles is
// not free; analyzers are constructed per request and must stay cheap.
type LanguageDetector struct{}

var (
	linguaOnce     sync.Once
	linguaDetector lingua.LanguageDetector
)

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{}
}

// Detect returns the ISO 639-1 code of the most likely language, or "" when
// the text is too short or ambiguous to call.
func (d *LanguageDetector) Detect(text string) string {
	if len(text) < 20 {
		return ""
	}
	linguaOnce.Do(func() {
		linguaDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectableLanguages...).
			Build()
	})

	lang, ok := linguaDetector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return lang.IsoCode639_1().String()
}
