package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeJoinRejectsTraversal(t *testing.T) {
	base := t.TempDir()

	if _, err := SafeJoin(base, "../outside.txt"); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := SafeJoin(base, "../../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}

	path, err := SafeJoin(base, "inside.txt")
	if err != nil {
		t.Fatalf("SafeJoin error = %v", err)
	}
	if path != filepath.Join(base, "inside.txt") {
		t.Fatalf("path = %q", path)
	}
}

func TestListDirectoryFiltersAndSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", ".hidden.txt", "c.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entries, err := ListDirectory(dir, IsTranscriptFile)
	if err != nil {
		t.Fatalf("ListDirectory error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if !IsTranscriptFile(e.Name) {
			t.Fatalf("unexpected entry %q", e.Name)
		}
	}
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"podcast_episode_1.txt", "Podcast_Episode_2.txt", "interview.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	results, err := Search(dir, "podcast", 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (case-insensitive)", len(results))
	}

	limited, err := Search(dir, "podcast", 1)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited results = %d, want 1", len(limited))
	}
}
