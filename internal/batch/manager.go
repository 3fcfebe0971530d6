package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/pattty847/TranscriptAI/internal/pipeline"
	"github.com/pattty847/TranscriptAI/internal/store"
)

// Runner drives one batch to completion. Satisfied by pipeline.Orchestrator.
type Runner interface {
	ProcessBatch(ctx context.Context, rawText string, opts pipeline.Options, sink pipeline.EventSink) []*pipeline.WorkItem
}

// RunnerFunc adapts a function to Runner. The server wraps per-batch
// pipeline construction in one of these so stored settings are re-read for
// every run.
type RunnerFunc func(ctx context.Context, rawText string, opts pipeline.Options, sink pipeline.EventSink) []*pipeline.WorkItem

func (f RunnerFunc) ProcessBatch(ctx context.Context, rawText string, opts pipeline.Options, sink pipeline.EventSink) []*pipeline.WorkItem {
	return f(ctx, rawText, opts, sink)
}

// Manager queues batches and runs them one at a time. Serialization matters:
// a batch holds the loaded transcription model, and two concurrent batches
// would double device memory.
type Manager struct {
	store  *store.Store
	runner Runner

	mu      sync.Mutex
	pending chan string
	cancels map[string]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(st *store.Store, runner Runner) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:   st,
		runner:  runner,
		pending: make(chan string, 100),
		cancels: make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go m.worker()
	return m
}

// Submit records a new batch and queues it for processing.
func (m *Manager) Submit(inputText string, opts pipeline.Options) (*store.Batch, error) {
	b, err := m.store.CreateBatch(inputText, opts)
	if err != nil {
		return nil, err
	}
	select {
	case m.pending <- b.ID:
	default:
		return nil, fmt.Errorf("batch queue is full")
	}
	return b, nil
}

// Stop cancels a running batch. Pending batches are cancelled when the
// worker reaches them and finds the stopped status.
func (m *Manager) Stop(batchID string) error {
	m.mu.Lock()
	cancelFn, running := m.cancels[batchID]
	m.mu.Unlock()

	if running {
		cancelFn()
		return nil
	}

	b, err := m.store.GetBatch(batchID)
	if err != nil {
		return err
	}
	if b.Status != store.BatchPending {
		return fmt.Errorf("batch %s is not running or pending", batchID)
	}
	return m.store.MarkBatchFinished(batchID, store.BatchStopped)
}

// Shutdown stops the worker and cancels any in-flight batch.
func (m *Manager) Shutdown() {
	m.cancel()
	<-m.done
}

func (m *Manager) worker() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case batchID := <-m.pending:
			m.runBatch(batchID)
		}
	}
}

func (m *Manager) runBatch(batchID string) {
	b, err := m.store.GetBatch(batchID)
	if err != nil {
		log.Printf("[batch] failed to load batch %s: %v", batchID, err)
		return
	}
	if b.Status != store.BatchPending {
		return
	}

	var opts pipeline.Options
	if err := json.Unmarshal(b.Options, &opts); err != nil {
		log.Printf("[batch] batch %s has bad options: %v", batchID, err)
		m.store.MarkBatchFinished(batchID, store.BatchStopped)
		return
	}

	ctx, cancelFn := context.WithCancel(m.ctx)
	m.mu.Lock()
	m.cancels[batchID] = cancelFn
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, batchID)
		m.mu.Unlock()
		cancelFn()
	}()

	m.store.MarkBatchStarted(batchID)
	log.Printf("[batch] batch %s started", batchID)

	items := m.runner.ProcessBatch(ctx, b.InputText, opts, func(ev pipeline.Event) {
		m.store.UpsertItem(store.BatchItem{
			BatchID: batchID,
			Index:   ev.Index,
			Source:  ev.Source,
			Status:  string(ev.Status),
			Error:   errorMessage(ev),
		})
	})

	// Final reconciliation: the event stream is lossy by design, the item
	// snapshots are authoritative.
	for i, item := range items {
		m.store.UpsertItem(store.BatchItem{
			BatchID:        batchID,
			Index:          i,
			Source:         item.Source,
			Kind:           item.Kind.String(),
			Status:         string(item.Status),
			MediaPath:      item.MediaPath,
			TranscriptPath: item.TranscriptPath,
			Error:          item.ErrorMessage,
		})
	}

	status := store.BatchCompleted
	if ctx.Err() != nil {
		status = store.BatchStopped
	}
	m.store.MarkBatchFinished(batchID, status)
	log.Printf("[batch] batch %s finished: %s (%d items)", batchID, status, len(items))
}

func errorMessage(ev pipeline.Event) string {
	if ev.Status == pipeline.StatusError {
		return ev.Message
	}
	return ""
}
