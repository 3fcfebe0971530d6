package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch statuses. Item statuses live in the pipeline package; the store
// records them as opaque strings.
const (
	BatchPending   = "pending"
	BatchRunning   = "running"
	BatchCompleted = "completed"
	BatchStopped   = "stopped"
)

// Batch is one recorded processing run.
type Batch struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	InputText   string          `json:"input_text"`
	Options     json.RawMessage `json:"options"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Items       []BatchItem     `json:"items,omitempty"`
}

// BatchItem is the persisted view of one work item.
type BatchItem struct {
	BatchID        string    `json:"batch_id"`
	Index          int       `json:"index"`
	Source         string    `json:"source"`
	Kind           string    `json:"kind"`
	Status         string    `json:"status"`
	MediaPath      string    `json:"media_path,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	Error          string    `json:"error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateBatch records a new pending batch and returns it.
func (s *Store) CreateBatch(inputText string, options interface{}) (*Batch, error) {
	optJSON, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	b := &Batch{
		ID:        uuid.New().String(),
		Status:    BatchPending,
		InputText: inputText,
		Options:   optJSON,
		CreatedAt: time.Now(),
	}
	_, err = s.db.Exec(`
		INSERT INTO batches (id, status, input_text, options, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Status, b.InputText, string(b.Options), b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return b, nil
}

// MarkBatchStarted transitions the batch to running.
func (s *Store) MarkBatchStarted(id string) error {
	_, err := s.db.Exec(
		"UPDATE batches SET status = ?, started_at = ? WHERE id = ?",
		BatchRunning, time.Now(), id,
	)
	return err
}

// MarkBatchFinished records the terminal batch status.
func (s *Store) MarkBatchFinished(id, status string) error {
	_, err := s.db.Exec(
		"UPDATE batches SET status = ?, completed_at = ? WHERE id = ?",
		status, time.Now(), id,
	)
	return err
}

// UpsertItem records the current state of one work item.
func (s *Store) UpsertItem(item BatchItem) error {
	_, err := s.db.Exec(`
		INSERT INTO batch_items (batch_id, idx, source, kind, status, media_path, transcript_path, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id, idx) DO UPDATE SET
			status=?, media_path=?, transcript_path=?, error=?, updated_at=?`,
		item.BatchID, item.Index, item.Source, item.Kind, item.Status,
		item.MediaPath, item.TranscriptPath, item.Error, time.Now(),
		item.Status, item.MediaPath, item.TranscriptPath, item.Error, time.Now(),
	)
	return err
}

// GetBatch loads a batch with its items.
func (s *Store) GetBatch(id string) (*Batch, error) {
	b := &Batch{}
	var options string
	var startedAt, completedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT id, status, input_text, options, created_at, started_at, completed_at
		FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.Status, &b.InputText, &options, &b.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	b.Options = json.RawMessage(options)
	if startedAt.Valid {
		b.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}

	items, err := s.listItems(id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

// ListBatches returns all batches, newest first, without items.
func (s *Store) ListBatches() ([]*Batch, error) {
	rows, err := s.db.Query(`
		SELECT id, status, input_text, options, created_at, started_at, completed_at
		FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b := &Batch{}
		var options string
		var startedAt, completedAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.Status, &b.InputText, &options, &b.CreatedAt, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		b.Options = json.RawMessage(options)
		if startedAt.Valid {
			b.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			b.CompletedAt = &completedAt.Time
		}
		batches = append(batches, b)
	}
	if batches == nil {
		batches = []*Batch{}
	}
	return batches, nil
}

func (s *Store) listItems(batchID string) ([]BatchItem, error) {
	rows, err := s.db.Query(`
		SELECT batch_id, idx, source, kind, status, media_path, transcript_path, error, updated_at
		FROM batch_items WHERE batch_id = ? ORDER BY idx ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []BatchItem{}
	for rows.Next() {
		var item BatchItem
		var mediaPath, transcriptPath, errMsg sql.NullString
		if err := rows.Scan(&item.BatchID, &item.Index, &item.Source, &item.Kind,
			&item.Status, &mediaPath, &transcriptPath, &errMsg, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.MediaPath = mediaPath.String
		item.TranscriptPath = transcriptPath.String
		item.Error = errMsg.String
		items = append(items, item)
	}
	return items, nil
}
