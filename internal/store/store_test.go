package store

import (
	"path/filepath"
	"testing"

	"github.com/pattty847/TranscriptAI/internal/auth"
	"github.com/pattty847/TranscriptAI/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnsureAdminAndLogin(t *testing.T) {
	s := newTestStore(t)

	if err := s.EnsureAdmin("admin", "secret"); err != nil {
		t.Fatalf("EnsureAdmin error = %v", err)
	}
	// Second call is a no-op.
	if err := s.EnsureAdmin("other", "other"); err != nil {
		t.Fatalf("second EnsureAdmin error = %v", err)
	}

	u, err := s.GetUserByUsername("admin")
	if err != nil {
		t.Fatalf("GetUserByUsername error = %v", err)
	}
	if u.Role != "admin" {
		t.Fatalf("role = %q, want admin", u.Role)
	}
	if !auth.CheckPassword("secret", u.Password) {
		t.Fatal("stored password hash does not verify")
	}

	if _, err := s.GetUserByUsername("other"); err == nil {
		t.Fatal("second admin should not have been created")
	}

	byID, err := s.GetUserByID(u.ID)
	if err != nil || byID.Username != "admin" {
		t.Fatalf("GetUserByID = %+v, err = %v", byID, err)
	}
}

func TestBatchRoundTrip(t *testing.T) {
	s := newTestStore(t)

	type opts struct {
		KeepMedia bool `json:"keep_media"`
	}
	b, err := s.CreateBatch("https://youtube.com/watch?v=abc", opts{KeepMedia: true})
	if err != nil {
		t.Fatalf("CreateBatch error = %v", err)
	}
	if b.ID == "" || b.Status != BatchPending {
		t.Fatalf("batch = %+v", b)
	}

	if err := s.MarkBatchStarted(b.ID); err != nil {
		t.Fatalf("MarkBatchStarted error = %v", err)
	}

	item := BatchItem{
		BatchID: b.ID,
		Index:   0,
		Source:  "https://youtube.com/watch?v=abc",
		Kind:    "url",
		Status:  "downloading",
	}
	if err := s.UpsertItem(item); err != nil {
		t.Fatalf("UpsertItem error = %v", err)
	}

	// Upsert with same index updates in place.
	item.Status = "completed"
	item.TranscriptPath = "/t/abc.txt"
	if err := s.UpsertItem(item); err != nil {
		t.Fatalf("second UpsertItem error = %v", err)
	}

	if err := s.MarkBatchFinished(b.ID, BatchCompleted); err != nil {
		t.Fatalf("MarkBatchFinished error = %v", err)
	}

	got, err := s.GetBatch(b.ID)
	if err != nil {
		t.Fatalf("GetBatch error = %v", err)
	}
	if got.Status != BatchCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatal("timestamps not recorded")
	}
	if len(got.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(got.Items))
	}
	if got.Items[0].Status != "completed" || got.Items[0].TranscriptPath != "/t/abc.txt" {
		t.Fatalf("item = %+v", got.Items[0])
	}

	list, err := s.ListBatches()
	if err != nil {
		t.Fatalf("ListBatches error = %v", err)
	}
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("list = %+v", list)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	if got := s.GetSetting("missing", "fallback"); got != "fallback" {
		t.Fatalf("GetSetting missing = %q", got)
	}
	if err := s.SetSetting("whisper_model", "ggml-base.bin"); err != nil {
		t.Fatalf("SetSetting error = %v", err)
	}
	if err := s.SetSetting("whisper_model", "ggml-large-v3.bin"); err != nil {
		t.Fatalf("SetSetting update error = %v", err)
	}
	if got := s.GetSetting("whisper_model", ""); got != "ggml-large-v3.bin" {
		t.Fatalf("GetSetting = %q", got)
	}

	all, err := s.GetAllSettings()
	if err != nil || len(all) != 1 {
		t.Fatalf("GetAllSettings = %v, err = %v", all, err)
	}
}

func TestSettingsOverlayConfig(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting("whisper_model", "ggml-large-v3.bin"); err != nil {
		t.Fatalf("SetSetting error = %v", err)
	}

	base := &config.Config{WhisperModel: "ggml-base.bin", WhisperDevice: "auto"}
	rc := base.Overlay(s.GetSetting)

	if rc.WhisperModel != "ggml-large-v3.bin" {
		t.Fatalf("WhisperModel = %q, want value saved through settings", rc.WhisperModel)
	}
	if rc.WhisperDevice != "auto" {
		t.Fatalf("WhisperDevice = %q, want env fallback for unsaved key", rc.WhisperDevice)
	}
}
