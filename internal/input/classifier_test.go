package input

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyURLs(t *testing.T) {
	cases := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://example.com/video",
		"www.example.org/clip",
		"youtube.com/watch?v=abc",
		"vimeo.com/12345",
	}
	for _, c := range cases {
		if got := Classify(c); got != KindURL {
			t.Fatalf("Classify(%q) = %s, want url", c, got)
		}
	}
}

func TestClassifyFileByExtension(t *testing.T) {
	// Path does not exist; the extension alone is enough.
	if got := Classify("/nonexistent/video.mp4"); got != KindFile {
		t.Fatalf("Classify nonexistent .mp4 = %s, want file", got)
	}
	if got := Classify("/nonexistent/notes.txt"); got != KindInvalid {
		t.Fatalf("Classify .txt = %s, want invalid", got)
	}
}

func TestClassifyExistingNonMediaFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if got := Classify(path); got != KindInvalid {
		t.Fatalf("Classify existing .pdf = %s, want invalid", got)
	}
}

func TestParseBatchPartition(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "talk.mp3")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	raw := "https://youtube.com/watch?v=abc;  " + existing + "\n/missing/clip.mkv\ngarbage entry;\n\n"
	batch := ParseBatch(raw)

	if len(batch.URLs) != 1 || batch.URLs[0] != "https://youtube.com/watch?v=abc" {
		t.Fatalf("urls = %v", batch.URLs)
	}
	if len(batch.Files) != 1 || batch.Files[0] != existing {
		t.Fatalf("files = %v", batch.Files)
	}
	if len(batch.Invalid) != 2 {
		t.Fatalf("invalid = %v, want 2 entries", batch.Invalid)
	}
	if batch.Invalid[0].Segment != "garbage entry" || batch.Invalid[0].Reason != "not a recognized URL or media file" {
		t.Fatalf("invalid[0] = %+v", batch.Invalid[0])
	}
	if batch.Invalid[1].Segment != "/missing/clip.mkv" || batch.Invalid[1].Reason != "file not found" {
		t.Fatalf("invalid[1] = %+v", batch.Invalid[1])
	}

	// Every non-empty segment lands in exactly one bucket.
	total := len(batch.URLs) + len(batch.Files) + len(batch.Invalid)
	if total != 4 {
		t.Fatalf("total segments = %d, want 4", total)
	}
}

func TestParseBatchEmptyInput(t *testing.T) {
	batch := ParseBatch(" ;\n;  \n")
	if len(batch.URLs)+len(batch.Files)+len(batch.Invalid) != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.wav")
	bad := filepath.Join(dir, "b.doc")
	for _, p := range []string{good, bad} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	valid, invalid := ValidateFiles([]string{good, bad, "/missing/c.mp4"})
	if len(valid) != 1 || valid[0] != good {
		t.Fatalf("valid = %v", valid)
	}
	if len(invalid) != 2 {
		t.Fatalf("invalid = %v", invalid)
	}
	if invalid[0].Segment != bad || invalid[0].Reason != "not a supported media file" {
		t.Fatalf("invalid[0] = %+v", invalid[0])
	}
	if invalid[1].Segment != "/missing/c.mp4" || invalid[1].Reason != "file not found" {
		t.Fatalf("invalid[1] = %+v", invalid[1])
	}
}
